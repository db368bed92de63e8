// Package base64 implements a constant-time Base64 variant whose 64
// characters are ordered "./0-9A-Za-z" (a dot-slash alphabet), as used
// to embed salt and hash bytes in a bscrypt PHC string.
//
// Decoding runs in time independent of the input bytes: character
// validity is decided by three range-membership tests combined with
// bit arithmetic rather than a branch or table lookup, so no timing
// signal leaks which characters were present.
package base64

// Encoding/decoding flags.
const (
	// EncodeNoPad omits '=' padding when encoding.
	EncodeNoPad = 1

	// DecodeIgnoreNoPad allows a source length that is not a multiple
	// of 4 (i.e. unpadded input).
	DecodeIgnoreNoPad = 1
	// DecodeIgnoreBadPad skips validation of the unused low bits in a
	// partial trailing group.
	DecodeIgnoreBadPad = 2
)

// decode6Bits decodes one alphabet character into its 6-bit value, or
// returns a negative number if ch is not in the alphabet. The three
// range checks are combined with bit arithmetic (not short-circuit
// boolean operators) so every call takes the same number of operations
// regardless of which range (or none) ch falls in.
func decode6Bits(ch byte) int {
	c := int(ch)
	ret := -1
	ret += (((('.' - 1) - c) & (c - ('9' + 1))) >> 8 & (1 + (c - '.')))
	ret += (((('A' - 1) - c) & (c - ('Z' + 1))) >> 8 & (1 + ('9' - '.' + 1) + (c - 'A')))
	ret += (((('a' - 1) - c) & (c - ('z' + 1))) >> 8 & (1 + ('9' - '.' + 1) + ('Z' - 'A' + 1) + (c - 'a')))
	return ret
}

// encode6Bits encodes 6 bits of data (0..63) into a dot-slash alphabet
// character.
func encode6Bits(src int) byte {
	ch := src + '.'
	ch += (('9' - ch) >> 9) & ('A' - ('9' + 1))
	ch += (('Z' - ch) >> 9) & ('a' - ('Z' + 1))
	return byte(ch)
}

// DecodedSize returns the number of bytes that decoding src would
// produce, and whether src has a valid length for decode. It inspects
// up to the last two bytes of src to account for "=" padding, but does
// not validate that src's characters belong to the alphabet — that
// check happens in Decode. Because only the length (never secret
// data) drives its branches, DecodedSize is not constant-time, per the
// relaxation the format allows.
func DecodedSize(src []byte, flags int) (int, bool) {
	n := len(src)
	if n%4 == 1 {
		return 0, false
	}
	if n%4 != 0 && flags&DecodeIgnoreNoPad == 0 {
		return 0, false
	}
	if n == 0 {
		return 0, true
	}

	full := n
	if n%4 == 0 {
		pad := 0
		if src[n-1] == '=' {
			pad++
			if src[n-2] == '=' {
				pad++
			}
		}
		full -= pad
	}

	switch full % 4 {
	case 0:
		return 3 * (full / 4), true
	case 2:
		return 3*(full/4) + 1, true
	case 3:
		return 3*(full/4) + 2, true
	default:
		return 0, false
	}
}

// EncodedLen returns the number of characters (excluding the trailing
// NUL) that Encode writes for n input bytes.
func EncodedLen(n int, flags int) int {
	full := n / 3 * 4
	rem := n % 3
	if rem == 0 {
		return full
	}
	if flags&EncodeNoPad != 0 {
		return full + rem + 1
	}
	return full + 4
}

// Encode writes the dot-slash Base64 encoding of src into dst and
// appends a terminating NUL byte. dst must have length at least
// EncodedLen(len(src), flags)+1. It returns the number of characters
// written, excluding the NUL.
func Encode(dst, src []byte, flags int) int {
	di := 0
	si := 0
	for len(src)-si >= 3 {
		b0, b1, b2 := int(src[si]), int(src[si+1]), int(src[si+2])
		dst[di+0] = encode6Bits(b0 >> 2)
		dst[di+1] = encode6Bits(((b0 << 4) | (b1 >> 4)) & 63)
		dst[di+2] = encode6Bits(((b1 << 2) | (b2 >> 6)) & 63)
		dst[di+3] = encode6Bits(b2 & 63)
		di += 4
		si += 3
	}

	if rem := len(src) - si; rem > 0 {
		b0 := int(src[si])
		b1 := 0
		if rem > 1 {
			b1 = int(src[si+1])
		}
		dst[di] = encode6Bits(b0 >> 2)
		dst[di+1] = encode6Bits(((b0 << 4) | (b1 >> 4)) & 63)
		di += 2
		if rem > 1 {
			dst[di] = encode6Bits((b1 << 2) & 63)
			di++
		}
		if flags&EncodeNoPad == 0 {
			dst[di] = '='
			di++
			if rem == 1 {
				dst[di] = '='
				di++
			}
		}
	}

	dst[di] = 0
	return di
}

// EncodeToString is a convenience wrapper around Encode that returns
// the encoded string directly.
func EncodeToString(src []byte, flags int) string {
	buf := make([]byte, EncodedLen(len(src), flags)+1)
	n := Encode(buf, src, flags)
	return string(buf[:n])
}

// Decode decodes src into dst, which must be at least as long as the
// value DecodedSize(src, flags) returns. It reports whether every
// character of src was valid (member of the alphabet, or "=" in a
// valid padding position) and, unless DecodeIgnoreBadPad is set,
// whether the unused low bits of a partial trailing group were zero.
// The per-byte work is branch-free over src's content: errors
// accumulate into a single integer via OR and are only inspected once,
// at the end.
func Decode(dst, src []byte, flags int) bool {
	n := len(src)
	if n%4 == 1 || (n%4 != 0 && flags&DecodeIgnoreNoPad == 0) {
		return false
	}
	if n == 0 {
		return true
	}

	err := 0
	di := 0
	si := 0
	for n-si > 4 {
		c0 := decode6Bits(src[si])
		c1 := decode6Bits(src[si+1])
		c2 := decode6Bits(src[si+2])
		c3 := decode6Bits(src[si+3])
		dst[di+0] = byte((c0 << 2) | (c1 >> 4))
		dst[di+1] = byte((c1 << 4) | (c2 >> 2))
		dst[di+2] = byte((c2 << 6) | c3)
		err |= c0 | c1 | c2 | c3
		di += 3
		si += 4
	}

	// Remaining 2, 3 or 4 characters.
	rem := n - si
	c0 := decode6Bits(src[si])
	c1 := decode6Bits(src[si+1])
	c2 := 0
	c3 := 0
	err |= c0 | c1

	if rem > 3 {
		pad2 := src[si+3] == '='
		pad3 := src[si+2] == '='
		if pad2 {
			rem--
		}
		if pad3 {
			rem--
		}
		if !pad3 {
			c2 = decode6Bits(src[si+2])
		}
		if !pad2 {
			c3 = decode6Bits(src[si+3])
		}
		err |= c2 | c3

		if rem >= 3 {
			dst[di+1] = byte((c1 << 4) | (c2 >> 2))
		}
		if rem >= 4 {
			dst[di+2] = byte((c2 << 6) | c3)
		}
	} else if rem == 3 {
		c2 = decode6Bits(src[si+2])
		err |= c2
		dst[di+1] = byte((c1 << 4) | (c2 >> 2))
	}
	dst[di] = byte((c0 << 2) | (c1 >> 4))

	if flags&DecodeIgnoreBadPad == 0 {
		// decode6Bits never returns a value with bit 6 set (its range is
		// 0..63, or negative for an invalid character), so ORing it in
		// here is the only way these checks can push err out of the
		// accepted range without colliding with legitimate accumulated
		// bits or masking an already-negative (invalid character) err.
		if rem < 3 && (c1&0x0f) != 0 {
			err |= 1 << 6
		}
		if rem < 4 && (c2&0x03) != 0 {
			err |= 1 << 6
		}
	}

	return err >= 0 && err < 0x40
}
