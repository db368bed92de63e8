package bscrypt

import "crypto/rand"

// RandomFunc fills buf with cryptographically secure random bytes. It
// is the collaborator Hash uses to generate a fresh salt; the default,
// used when a caller passes nil, reads from crypto/rand.
type RandomFunc func(buf []byte) error

func defaultRandom(buf []byte) error {
	_, err := rand.Read(buf)
	return err
}
