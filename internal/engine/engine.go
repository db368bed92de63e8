// Package engine implements the memory-hard mixing core of bscrypt:
// per-lane S-box construction, the data-dependent inner mixing round,
// the lane pool that runs parallelism-many lanes across at most
// maxThreads goroutines, and final output expansion.
//
// None of this package validates cost parameters — callers are
// expected to have already clamped memoryKiB/iterations/parallelism
// to the module's accepted ranges before building a Layout.
package engine

import (
	"encoding/binary"
	"math/bits"
	"sync"

	"github.com/go-bscrypt/bscrypt/blake2b"
	"github.com/go-bscrypt/bscrypt/internal/notblake2b"
)

// memoryKiBMax is the 64 GiB boundary at which the S-box mask would
// overflow a 32-bit lookup index, forcing the two-equal-half split
// instead of the usual largest-power-of-two split.
const memoryKiBMax = 67108864

// Layout describes the S-box geometry derived from a memoryKiB cost
// parameter: how many uint64 words the lane's combined S-box holds,
// where the second half begins, and the index mask used to look up
// words in each half during mixing.
type Layout struct {
	Count      int
	SboxOffset int
	Mask       uint64
}

// NewLayout computes the S-box geometry for memoryKiB, which the
// caller must have already clamped to the accepted range.
func NewLayout(memoryKiB uint32) Layout {
	count := 1024 / 8 * int(memoryKiB)

	if memoryKiB == memoryKiBMax {
		sboxOffset := count / 2
		return Layout{Count: count, SboxOffset: sboxOffset, Mask: uint64(sboxOffset - 1)}
	}

	// Largest power of two not exceeding count.
	sboxSize := 1 << (bits.Len64(uint64(count)) - 1)
	sboxOffset := count - sboxSize
	return Layout{Count: count, SboxOffset: sboxOffset, Mask: uint64(sboxSize - 1)}
}

// hashWords64 hashes inBytes bytes (taken from the low bytes of src,
// in order) and writes the 64-byte BLAKE2b digest into dst as 8
// native words.
func hashWords64(dst []uint64, src []uint64, inBytes int) {
	var buf [64]byte
	if err := blake2b.HashWords(buf[:], src, inBytes); err != nil {
		panic(err)
	}
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint64(buf[i*8 : i*8+8])
	}
}

// Fill expands seed and threadID into the count-word S-box region of
// sbox (sbox must have length at least count): two BLAKE2b calls seed
// the first 16 words, then each following 16-word block is a copy of
// the previous block run through the notBlake2b permutation.
func Fill(sbox []uint64, seed [8]uint64, threadID uint32, count int) {
	copy(sbox[:8], seed[:])
	sbox[8] = uint64(threadID)

	hashWords64(sbox[:8], sbox[:9], 8*8+4)
	hashWords64(sbox[8:16], sbox[:8], 8*8)

	var block [16]uint64
	for p := 0; p < count-16; p += 16 {
		copy(block[:], sbox[p:p+16])
		notblake2b.Block(&block)
		copy(sbox[p+16:p+32], block[:])
	}
}

// workFinish folds the count-word S-box down to the 16 words at its
// head, seeded with iv, and hashes the result into work.
func workFinish(work *[8]uint64, iv uint64, sbox []uint64, count int) {
	for i := 0; i < 16; i++ {
		sbox[i] = (sbox[i] + iv) ^ sbox[i+16]
	}
	for i := 32; i < count; i += 32 {
		for k := 0; k < 16; k++ {
			sbox[k] = (sbox[k] + sbox[i+k]) ^ sbox[i+16+k]
		}
	}
	hashWords64(work[:], sbox[:16], 16*8)
}

// Work32x4 runs one lane of the memory-hard mixer: it fills sbox per
// Fill, derives eight running words a..h, then for iterations rounds
// walks every 32-dword (16-word) stripe of the S-box once, mixing its
// first eight words add-then-xor and its second eight xor-then-add,
// cross-indexing both S-box halves by the current running words before
// folding the result back into work.
//
// sbox must have length at least layout.Count+8; it is used as
// scratch space and is left in an unspecified state on return.
func Work32x4(work *[8]uint64, seed [8]uint64, sbox []uint64, layout Layout, iterations uint32, threadID uint32) {
	s0 := sbox
	s1 := sbox[layout.SboxOffset:]
	count := layout.Count
	mask := layout.Mask

	Fill(sbox, seed, threadID, count)

	copy(sbox[count:count+8], sbox[:8])
	hashWords64(sbox[count:count+8], sbox[count-8:count+8], 16*8)

	a := sbox[count+0]
	b := sbox[count+1]
	c := sbox[count+2]
	d := sbox[count+3]
	e := sbox[count+4]
	f := sbox[count+5]
	g := sbox[count+6]
	h := sbox[count+7]

	for it := uint32(0); it < iterations; it++ {
		for j := 0; j < count; j += 16 {
			a ^= sbox[j+0]
			b ^= sbox[j+1]
			c ^= sbox[j+2]
			d ^= sbox[j+3]
			e ^= sbox[j+4]
			f ^= sbox[j+5]
			g ^= sbox[j+6]
			h ^= sbox[j+7]

			a += s0[(e>>32)&mask]
			a ^= s1[e&mask]
			b += s0[(f>>32)&mask]
			b ^= s1[f&mask]
			c += s0[(g>>32)&mask]
			c ^= s1[g&mask]
			d += s0[(h>>32)&mask]
			d ^= s1[h&mask]
			e += s0[(a>>32)&mask]
			e ^= s1[a&mask]
			f += s0[(b>>32)&mask]
			f ^= s1[b&mask]
			g += s0[(c>>32)&mask]
			g ^= s1[c&mask]
			h += s0[(d>>32)&mask]
			h ^= s1[d&mask]

			a += s0[(f>>32)&mask]
			a ^= s1[f&mask]
			b += s0[(g>>32)&mask]
			b ^= s1[g&mask]
			c += s0[(h>>32)&mask]
			c ^= s1[h&mask]
			d += s0[(e>>32)&mask]
			d ^= s1[e&mask]
			f += s0[(a>>32)&mask]
			f ^= s1[a&mask]
			g += s0[(b>>32)&mask]
			g ^= s1[b&mask]
			h += s0[(c>>32)&mask]
			h ^= s1[c&mask]
			e += s0[(d>>32)&mask]
			e ^= s1[d&mask]

			a += s0[(g>>32)&mask]
			a ^= s1[g&mask]
			b += s0[(h>>32)&mask]
			b ^= s1[h&mask]
			c += s0[(e>>32)&mask]
			c ^= s1[e&mask]
			d += s0[(f>>32)&mask]
			d ^= s1[f&mask]
			g += s0[(a>>32)&mask]
			g ^= s1[a&mask]
			h += s0[(b>>32)&mask]
			h ^= s1[b&mask]
			e += s0[(c>>32)&mask]
			e ^= s1[c&mask]
			f += s0[(d>>32)&mask]
			f ^= s1[d&mask]

			a += s0[(h>>32)&mask]
			a ^= s1[h&mask]
			b += s0[(e>>32)&mask]
			b ^= s1[e&mask]
			c += s0[(f>>32)&mask]
			c ^= s1[f&mask]
			d += s0[(g>>32)&mask]
			d ^= s1[g&mask]
			h += s0[(a>>32)&mask]
			h ^= s1[a&mask]
			e += s0[(b>>32)&mask]
			e ^= s1[b&mask]
			f += s0[(c>>32)&mask]
			f ^= s1[c&mask]
			g += s0[(d>>32)&mask]
			g ^= s1[d&mask]

			sbox[j+0] += f
			sbox[j+1] += g
			sbox[j+2] += h
			sbox[j+3] += e
			sbox[j+4] += b
			sbox[j+5] += c
			sbox[j+6] += d
			sbox[j+7] += a

			a = bits.RotateLeft64(a, -15)
			b = bits.RotateLeft64(b, -35)
			c = bits.RotateLeft64(c, -17)
			d = bits.RotateLeft64(d, -41)

			j2 := j + 8
			a += sbox[j2+0]
			b += sbox[j2+1]
			c += sbox[j2+2]
			d += sbox[j2+3]
			e += sbox[j2+4]
			f += sbox[j2+5]
			g += sbox[j2+6]
			h += sbox[j2+7]

			a ^= s0[(e>>32)&mask]
			a += s1[e&mask]
			b ^= s0[(f>>32)&mask]
			b += s1[f&mask]
			c ^= s0[(g>>32)&mask]
			c += s1[g&mask]
			d ^= s0[(h>>32)&mask]
			d += s1[h&mask]
			e ^= s0[(a>>32)&mask]
			e += s1[a&mask]
			f ^= s0[(b>>32)&mask]
			f += s1[b&mask]
			g ^= s0[(c>>32)&mask]
			g += s1[c&mask]
			h ^= s0[(d>>32)&mask]
			h += s1[d&mask]

			a ^= s0[(f>>32)&mask]
			a += s1[f&mask]
			b ^= s0[(g>>32)&mask]
			b += s1[g&mask]
			c ^= s0[(h>>32)&mask]
			c += s1[h&mask]
			d ^= s0[(e>>32)&mask]
			d += s1[e&mask]
			f ^= s0[(a>>32)&mask]
			f += s1[a&mask]
			g ^= s0[(b>>32)&mask]
			g += s1[b&mask]
			h ^= s0[(c>>32)&mask]
			h += s1[c&mask]
			e ^= s0[(d>>32)&mask]
			e += s1[d&mask]

			a ^= s0[(g>>32)&mask]
			a += s1[g&mask]
			b ^= s0[(h>>32)&mask]
			b += s1[h&mask]
			c ^= s0[(e>>32)&mask]
			c += s1[e&mask]
			d ^= s0[(f>>32)&mask]
			d += s1[f&mask]
			g ^= s0[(a>>32)&mask]
			g += s1[a&mask]
			h ^= s0[(b>>32)&mask]
			h += s1[b&mask]
			e ^= s0[(c>>32)&mask]
			e += s1[c&mask]
			f ^= s0[(d>>32)&mask]
			f += s1[d&mask]

			a ^= s0[(h>>32)&mask]
			a += s1[h&mask]
			b ^= s0[(e>>32)&mask]
			b += s1[e&mask]
			c ^= s0[(f>>32)&mask]
			c += s1[f&mask]
			d ^= s0[(g>>32)&mask]
			d += s1[g&mask]
			h ^= s0[(a>>32)&mask]
			h += s1[a&mask]
			e ^= s0[(b>>32)&mask]
			e += s1[b&mask]
			f ^= s0[(c>>32)&mask]
			f += s1[c&mask]
			g ^= s0[(d>>32)&mask]
			g += s1[d&mask]

			sbox[j2+0] ^= f
			sbox[j2+1] ^= g
			sbox[j2+2] ^= h
			sbox[j2+3] ^= e
			sbox[j2+4] ^= b
			sbox[j2+5] ^= c
			sbox[j2+6] ^= d
			sbox[j2+7] ^= a

			e = bits.RotateLeft64(e, -21)
			f = bits.RotateLeft64(f, -45)
			g = bits.RotateLeft64(g, -27)
			h = bits.RotateLeft64(h, -47)
		}
	}

	iv := ((((((h ^ g) + f) ^ e) + d) ^ c) + b) ^ a
	workFinish(work, iv, sbox, count)
}

// Run executes parallelism-many independent lanes, combining each
// lane's work words into a single 8-word accumulator via XOR. When
// maxThreads is 1 or less, lanes run sequentially on the calling
// goroutine; otherwise a fixed pool of maxThreads goroutines pulls
// lane indices from a mutex-guarded counter until none remain, mirroring
// a worker-pool over a shared job queue.
func Run(seed [8]uint64, layout Layout, iterations, parallelism, maxThreads uint32) [8]uint64 {
	var work [8]uint64

	runLane := func(laneID uint32) [8]uint64 {
		sbox := make([]uint64, layout.Count+8)
		var laneWork [8]uint64
		Work32x4(&laneWork, seed, sbox, layout, iterations, laneID)
		return laneWork
	}

	if maxThreads <= 1 {
		for lane := uint32(0); lane < parallelism; lane++ {
			laneWork := runLane(lane)
			for k := range work {
				work[k] ^= laneWork[k]
			}
		}
		return work
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	nextLane := uint32(0)

	wg.Add(int(maxThreads))
	for t := uint32(0); t < maxThreads; t++ {
		go func() {
			defer wg.Done()
			for {
				mu.Lock()
				lane := nextLane
				nextLane++
				mu.Unlock()
				if lane >= parallelism {
					return
				}

				laneWork := runLane(lane)

				mu.Lock()
				for k := range work {
					work[k] ^= laneWork[k]
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return work
}

// Expand stretches the 16-word work||seed state into len(out) bytes
// of output, 64 bytes (one BLAKE2b digest) at a time, perturbing the
// state between digests so successive blocks are independent.
func Expand(out []byte, workSeed [16]uint64) {
	i := uint64(1)
	for len(out) > 64 {
		if err := blake2b.HashWords(out[:64], workSeed[:], 16*8); err != nil {
			panic(err)
		}
		out = out[64:]
		workSeed[0] ^= i
		i++
	}
	if len(out) != 0 {
		if err := blake2b.HashWords(out, workSeed[:], 16*8); err != nil {
			panic(err)
		}
	}
}
