package bscrypt

import (
	"strconv"

	"github.com/go-bscrypt/bscrypt/internal/base64"
)

const (
	// hashMaxSize bounds a PHC string's length (111 characters plus a
	// NUL terminator slot), matching BSCRYPT_HASH_MAX_SIZE.
	hashMaxSize = 112

	saltSize        = 16
	saltEncodedSize = 22

	// defaultHashBytes is the raw derived-key length embedded in a PHC
	// string when no PepperFunc is in use.
	defaultHashBytes = 24

	hashPrefix = "$bscrypt$m="

	// compareLength is the number of leading bytes of a reconstructed
	// hash string that Verify compares, fixed regardless of the actual
	// pepper-adjusted hash length. The reference implementation's
	// equivalent compare relies on both buffers being NUL-padded past
	// their real content; fixedHashBuffer below reproduces that
	// padding so the same fixed-length compare is safe in Go.
	compareLength = 55
)

// readUint32 parses an unsigned decimal integer starting at s[offset],
// stopping at (and consuming) the ending byte. It rejects a leading
// zero unless the number is exactly "0", mirroring the reference
// parser's strictness.
func readUint32(s string, offset int, ending byte) (value uint32, next int, ok bool) {
	str := s[offset:]
	if len(str) == 0 {
		return 0, 0, false
	}
	if str[0] == '0' && (len(str) < 2 || str[1] != ending) {
		return 0, 0, false
	}

	i := 0
	var acc uint64
	for i < 11 && i < len(str) && str[i] >= '0' && str[i] <= '9' {
		acc = acc*10 + uint64(str[i]-'0')
		i++
	}
	if i == 0 || i >= len(str) || str[i] != ending || acc > 0xFFFFFFFF {
		return 0, 0, false
	}
	return uint32(acc), offset + i + 1, true
}

// decodeHashHeader parses the "$bscrypt$m=<m>,t=<t>,p=<p>$" prefix of
// hash, returning the cost parameters and the offset of the first
// character after it (the start of the base64 salt).
func decodeHashHeader(hash string) (Params, int, bool) {
	if len(hash) < len(hashPrefix) || hash[:len(hashPrefix)] != hashPrefix {
		return Params{}, 0, false
	}

	m, offset, ok := readUint32(hash, len(hashPrefix), ',')
	if !ok || len(hash) < offset+2 || hash[offset:offset+2] != "t=" {
		return Params{}, 0, false
	}

	t, offset, ok := readUint32(hash, offset+2, ',')
	if !ok || len(hash) < offset+2 || hash[offset:offset+2] != "p=" {
		return Params{}, 0, false
	}

	p, offset, ok := readUint32(hash, offset+2, '$')
	if !ok {
		return Params{}, 0, false
	}

	return Params{MemoryKiB: m, Iterations: t, Parallelism: p}, offset, true
}

// encodeHash renders the PHC string for params, salt and the (possibly
// peppered) derived hash bytes.
func encodeHash(params Params, salt, hashBytes []byte) string {
	buf := make([]byte, 0, hashMaxSize)
	buf = append(buf, hashPrefix...)
	buf = strconv.AppendUint(buf, uint64(params.MemoryKiB), 10)
	buf = append(buf, ",t="...)
	buf = strconv.AppendUint(buf, uint64(params.Iterations), 10)
	buf = append(buf, ",p="...)
	buf = strconv.AppendUint(buf, uint64(params.Parallelism), 10)
	buf = append(buf, '$')
	buf = append(buf, base64.EncodeToString(salt, base64.EncodeNoPad)...)
	buf = append(buf, base64.EncodeToString(hashBytes, base64.EncodeNoPad)...)
	return string(buf)
}

// fixedHashBuffer copies s into a fixed hashMaxSize buffer, zero-padded
// past s's length, so that a constant-length compare over buffers of
// different real content length never reads out of bounds and never
// depends on where either string's real content ends.
func fixedHashBuffer(s string) [hashMaxSize]byte {
	var buf [hashMaxSize]byte
	copy(buf[:], s)
	return buf
}

// constTimeEqual reports whether a and b agree over their first n
// bytes (n clamped to hashMaxSize), comparing byte-by-byte with no
// early exit so the result does not leak where the first difference
// occurred.
func constTimeEqual(a, b string, n int) bool {
	if n > hashMaxSize {
		n = hashMaxSize
	}
	bufA := fixedHashBuffer(a)
	bufB := fixedHashBuffer(b)

	var diff byte
	for i := 0; i < n; i++ {
		diff |= bufA[i] ^ bufB[i]
	}
	return diff == 0
}
