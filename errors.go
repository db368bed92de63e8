package bscrypt

import "errors"

var (
	// ErrMalformedHash is returned when a PHC string does not match
	// the "$bscrypt$m=...,t=...,p=...$<salt><hash>" grammar, or its
	// salt segment fails to decode.
	ErrMalformedHash = errors.New("bscrypt: malformed hash string")

	// ErrPepperOutputSize is returned when a PepperFunc returns a
	// result outside the 16..32 byte range the encrypted-hash field
	// allows.
	ErrPepperOutputSize = errors.New("bscrypt: pepper function returned an out-of-range size")

	// ErrParameterOverflow is returned when a cost parameter, after
	// clamping, would require an S-box larger than this platform can
	// address. This is bscrypt's stand-in for the reference
	// implementation's allocation-failure path: Go cannot recover from
	// an out-of-memory condition the way the C reference retries on a
	// failed thread spawn, so the check happens up front instead.
	ErrParameterOverflow = errors.New("bscrypt: cost parameters overflow the addressable S-box size")
)
