package bscrypt

// Cost parameter bounds, carried directly from the reference
// implementation's limits.
const (
	// MemoryKiBMin is the smallest accepted S-box size per lane, in KiB.
	MemoryKiBMin = 16
	// MemoryKiBMax is the largest accepted S-box size per lane, in KiB
	// (64 GiB); at exactly this value the S-box is built as two equal
	// halves instead of the usual largest-power-of-two split, because
	// the natural split's index mask would no longer fit a native word
	// half as cleanly.
	MemoryKiBMax = 67108864
	// IterationsMin is the smallest accepted iteration count.
	IterationsMin = 2
)

// Params holds the three bscrypt cost knobs: memory (m), time (t) and
// parallelism (p). Reasonable combinations, taken from the reference
// implementation's own worked benchmarks:
//
//   - To approximate Pufferfish2's cost at a given level, pair m and t
//     inversely: (m=16,t=33065), (m=32,t=16465), (m=64,t=8219), ...,
//     (m=4096,t=137), each divided by p when p > 1.
//   - To approximate bcrypt cost 15 (roughly 85 hashes/second on a
//     contemporary GPU) with p=1: m=16, t=223529412/(1024*16)+1, and
//     similarly for larger m.
//   - To approximate bcrypt cost 9 (roughly 5300 hashes/second on a
//     contemporary GPU) with p=1: m=256, t=190000000/(53*256*1024)+1.
//
// These are starting points for operators tuning deployment cost, not
// values this package computes automatically.
type Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint32
}

// clamp returns p with every field forced into its accepted range,
// exactly as the reference implementation silently clamps out-of-range
// inputs rather than rejecting them.
func (p Params) clamp() Params {
	switch {
	case p.MemoryKiB > MemoryKiBMax:
		p.MemoryKiB = MemoryKiBMax
	case p.MemoryKiB < MemoryKiBMin:
		p.MemoryKiB = MemoryKiBMin
	}
	if p.Iterations < IterationsMin {
		p.Iterations = IterationsMin
	}
	if p.Parallelism < 1 {
		p.Parallelism = 1
	}
	return p
}
