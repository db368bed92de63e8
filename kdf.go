package bscrypt

import (
	"encoding/binary"
	"runtime"

	"github.com/go-bscrypt/bscrypt/blake2b"
	"github.com/go-bscrypt/bscrypt/internal/base64"
	"github.com/go-bscrypt/bscrypt/internal/engine"
)

// deriveSeed computes seed = BLAKE2b(BLAKE2b(salt) || password) as 8
// native words, matching the reference implementation's two-stage
// seed derivation.
func deriveSeed(password, salt []byte) ([8]uint64, error) {
	var seed [8]uint64

	saltDigest, err := blake2b.NewDigest(nil, nil, nil, 64)
	if err != nil {
		return seed, err
	}
	saltDigest.Write(salt)
	saltHash := saltDigest.Sum(nil)
	defer wipe(saltHash)

	seedDigest, err := blake2b.NewDigest(nil, nil, nil, 64)
	if err != nil {
		return seed, err
	}
	seedDigest.Write(saltHash)
	seedDigest.Write(password)
	seedBytes := seedDigest.Sum(nil)
	defer wipe(seedBytes)

	for i := range seed {
		seed[i] = binary.LittleEndian.Uint64(seedBytes[i*8 : i*8+8])
	}
	return seed, nil
}

// Derive runs the bscrypt memory-hard function and returns outputSize
// bytes of derived key material. It is the raw primitive Hash and
// Verify build the PHC string encoding on top of; callers who only
// need key material (not a storable password hash) can use it
// directly.
func Derive(password, salt []byte, params Params, outputSize int) ([]byte, error) {
	params = params.clamp()

	seed, err := deriveSeed(password, salt)
	if err != nil {
		return nil, err
	}
	defer wipeWords(seed[:])

	layout := engine.NewLayout(params.MemoryKiB)
	if layout.Count <= 0 || layout.SboxOffset < 0 {
		return nil, ErrParameterOverflow
	}

	maxThreads := uint32(runtime.GOMAXPROCS(0))
	if maxThreads > params.Parallelism {
		maxThreads = params.Parallelism
	}

	work := engine.Run(seed, layout, params.Iterations, params.Parallelism, maxThreads)
	defer wipeWords(work[:])

	var workSeed [16]uint64
	copy(workSeed[:8], work[:])
	copy(workSeed[8:], seed[:])
	defer wipeWords(workSeed[:])

	out := make([]byte, outputSize)
	engine.Expand(out, workSeed)
	return out, nil
}

// hashWithSalt derives the raw hash bytes for password and salt under
// params, applies pepper if non-nil, and encodes the PHC string. Both
// Hash and Verify funnel through this so peppering and encoding stay
// in one place.
func hashWithSalt(password, salt []byte, params Params, pepper PepperFunc) (string, error) {
	params = params.clamp()

	hashBytes, err := Derive(password, salt, params, defaultHashBytes)
	if err != nil {
		return "", err
	}
	defer wipe(hashBytes)

	if pepper != nil {
		peppered, err := pepper(hashBytes)
		if err != nil {
			return "", err
		}
		if len(peppered) < 16 || len(peppered) > 32 {
			return "", ErrPepperOutputSize
		}
		hashBytes = peppered
	}

	return encodeHash(params, salt, hashBytes), nil
}

// Hash generates a fresh random salt and returns a self-describing
// bscrypt PHC string for password under params. If random is nil,
// crypto/rand is used. If pepper is non-nil, it transforms the raw
// hash bytes before they are encoded (see PepperFunc).
func Hash(password []byte, params Params, random RandomFunc, pepper PepperFunc) (string, error) {
	if random == nil {
		random = defaultRandom
	}

	salt := make([]byte, saltSize)
	if err := random(salt); err != nil {
		return "", err
	}
	defer wipe(salt)

	return hashWithSalt(password, salt, params, pepper)
}

// Verify reports whether password matches the password bscrypt hash
// was generated from. pepper must be the same PepperFunc (or nil)
// used to produce hash. A malformed hash string is reported as
// ErrMalformedHash, never confused with a failed password match.
func Verify(hash string, password []byte, pepper PepperFunc) (bool, error) {
	params, offset, ok := decodeHashHeader(hash)
	if !ok || len(hash) < offset+saltEncodedSize {
		return false, ErrMalformedHash
	}

	salt := make([]byte, saltSize)
	if ok := base64.Decode(salt, []byte(hash[offset:offset+saltEncodedSize]), base64.DecodeIgnoreNoPad); !ok {
		return false, ErrMalformedHash
	}
	defer wipe(salt)

	// The hash segment must decode to 16..32 bytes, the range hashWithSalt
	// accepts from a PepperFunc (24 bytes without one).
	body := []byte(hash[offset+saltEncodedSize:])
	bodySize, ok := base64.DecodedSize(body, base64.DecodeIgnoreNoPad)
	if !ok || bodySize < 16 || bodySize > 32 || !base64.Decode(make([]byte, bodySize), body, base64.DecodeIgnoreNoPad) {
		return false, ErrMalformedHash
	}

	testHash, err := hashWithSalt(password, salt, params.clamp(), pepper)
	if err != nil {
		return false, err
	}

	return constTimeEqual(testHash, hash, offset+compareLength), nil
}

// NeedsRehash reports whether hash was generated under cost parameters
// different from params (or is not a valid bscrypt hash at all), so a
// caller can transparently upgrade a stored hash on next successful
// login.
func NeedsRehash(hash string, params Params) bool {
	decoded, _, ok := decodeHashHeader(hash)
	if !ok {
		return true
	}
	return decoded != params
}
