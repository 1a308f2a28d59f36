package core

import (
	"encoding/binary"
	"fmt"

	"lukechampine.com/blake3"
)

// Stream is a 32-bit xorshift PRNG. The state is integer-only and the
// sequence is bit-exact across processes, which is what makes chunk
// regeneration reproducible anywhere: every consumer that seeds a stream
// from the same (worldSeed, key) pair observes the same draws.
type Stream struct {
	state uint32
	index int
}

// NewStream seeds a stream. A zero seed would trap xorshift at zero, so
// it is replaced with a fixed non-zero constant.
func NewStream(seed uint32) *Stream {
	if seed == 0 {
		seed = 0x9E3779B9
	}
	return &Stream{state: seed}
}

// streamSeed derives a 32-bit seed from an arbitrary label. BLAKE3's
// avalanche behaviour guarantees distinct streams for distinct labels.
func streamSeed(label string) uint32 {
	sum := blake3.Sum256([]byte(label))
	return binary.LittleEndian.Uint32(sum[:4])
}

// ChunkStream is the generation stream for one chunk.
func ChunkStream(worldSeed int64, chunkY int) *Stream {
	return NewStream(streamSeed(fmt.Sprintf("chunk|%d|%d", worldSeed, chunkY)))
}

// LootStream is advanced once per destroy event to pick drops.
func LootStream(worldSeed int64) *Stream {
	return NewStream(streamSeed(fmt.Sprintf("loot|%d", worldSeed)))
}

// EventStream drives random event rolls (cave-ins, gas pockets, ...).
func EventStream(worldSeed int64) *Stream {
	return NewStream(streamSeed(fmt.Sprintf("event|%d", worldSeed)))
}

// JitterStream drives drop placement jitter.
func JitterStream(worldSeed int64) *Stream {
	return NewStream(streamSeed(fmt.Sprintf("jitter|%d", worldSeed)))
}

// Next returns the next draw in [0, 1).
func (s *Stream) Next() float64 {
	x := s.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	s.state = x
	s.index++
	return float64(x) / 4294967296.0
}

// Intn returns a draw in [0, n).
func (s *Stream) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.Next() * float64(n))
}

// IntRange returns a draw in [lo, hi] inclusive.
func (s *Stream) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.Intn(hi-lo+1)
}

// Index reports how many draws have been consumed.
func (s *Stream) Index() int { return s.index }

// SkipTo advances the stream to the given draw index. Single-block
// lookups use this to land on the exact draw a full regeneration would
// have used. Rewinding is not possible; callers must reseed instead.
func (s *Stream) SkipTo(index int) {
	for s.index < index {
		s.Next()
	}
}
