package bscrypt

// wipe overwrites b with zeros in place. Like the reference
// implementation's secureClearMemory, this is a best-effort clear: Go's
// garbage collector and escape analysis may still retain earlier
// copies of the underlying bytes elsewhere, so this does not guarantee
// the password or derived key never touched memory this call can't
// see.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func wipeWords(w []uint64) {
	for i := range w {
		w[i] = 0
	}
}
