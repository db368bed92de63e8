package notblake2b

import "testing"

func TestBlockDeterministic(t *testing.T) {
	var a, b [16]uint64
	for i := range a {
		a[i] = uint64(i + 1)
		b[i] = uint64(i + 1)
	}
	Block(&a)
	Block(&b)
	if a != b {
		t.Fatal("Block is not deterministic for identical input")
	}
}

func TestBlockChangesState(t *testing.T) {
	// The mix uses only additions, XORs and rotations with no constants,
	// so the all-zero block is a fixed point; start from a single set bit.
	var before, block [16]uint64
	block[0] = 1
	before = block
	Block(&block)
	if block == before {
		t.Fatal("Block left its input state unchanged")
	}
}

func TestBlockAvalanche(t *testing.T) {
	var a, b [16]uint64
	for i := range a {
		a[i] = uint64(i + 1)
		b[i] = uint64(i + 1)
	}
	b[0] ^= 1

	Block(&a)
	Block(&b)

	diff := 0
	for i := range a {
		if a[i] != b[i] {
			diff++
		}
	}
	if diff < len(a)/2 {
		t.Fatalf("single input bit flip only changed %d/%d output words", diff, len(a))
	}
}
