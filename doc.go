// Package bscrypt implements the bscrypt memory-hard password hashing
// and key derivation function: a BLAKE2b-seeded, notBlake2b-expanded
// S-box construction mixed by a data-dependent 32-dword inner round,
// run once per unit of parallelism and combined by XOR, with output
// stretched by repeated BLAKE2b calls. It can produce either a raw
// derived key of any length (Derive) or a self-describing PHC-style
// hash string (Hash/Verify).
package bscrypt
