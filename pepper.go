package bscrypt

// PepperFunc deterministically transforms the raw 24-byte derived hash
// before it is embedded in a PHC string, typically by encrypting it
// under a server-side key kept outside the hash itself ("peppering").
// It must return between 16 and 32 bytes, and Verify relies on it
// being a deterministic, invertible-by-construction transform: bscrypt
// re-derives the same raw hash from the password and stored salt, then
// applies PepperFunc again and compares the encoded result, rather
// than decrypting the stored value.
type PepperFunc func(hashBytes []byte) ([]byte, error)
