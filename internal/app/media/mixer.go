package media

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
)

const (
	// DefaultChunkSamples is the canonical number of 16-bit mono samples per chunk.
	DefaultChunkSamples = 2048
	bytesPerSample      = 2
)

var ErrEmptyChunk = errors.New("empty audio chunk")

// Stats is a point-in-time view of one mixer.
type Stats struct {
	Mixes        uint64 `json:"mixes"`
	Speakers     int    `json:"speakers"`
	ChunkSamples int    `json:"chunk_samples"`
}

// AudioMixer keeps the newest PCM chunk of every speaker in one session and
// produces N-1 mixes from them. Older chunks are overwritten, never queued.
type AudioMixer struct {
	chunkSamples int
	silent       []byte

	mu     sync.Mutex
	latest map[string][]byte
	mixes  uint64
}

func NewAudioMixer(chunkSamples int) *AudioMixer {
	if chunkSamples <= 0 {
		chunkSamples = DefaultChunkSamples
	}
	return &AudioMixer{
		chunkSamples: chunkSamples,
		silent:       make([]byte, chunkSamples*bytesPerSample),
		latest:       make(map[string][]byte),
	}
}

// ChunkBytes is the canonical chunk length in bytes.
func (m *AudioMixer) ChunkBytes() int { return m.chunkSamples * bytesPerSample }

// SilentChunk returns a fresh all-zero chunk of canonical length.
func (m *AudioMixer) SilentChunk() []byte {
	return make([]byte, len(m.silent))
}

// Ingest replaces the stored chunk of speaker. The chunk is retained as is;
// callers must not modify it afterwards.
func (m *AudioMixer) Ingest(speaker string, chunk []byte) error {
	if len(chunk) == 0 {
		return ErrEmptyChunk
	}
	m.mu.Lock()
	m.latest[speaker] = chunk
	m.mu.Unlock()
	return nil
}

// MixExcluding mixes every stored chunk except the recipient's own. With no
// other speaker it returns the silent chunk.
func (m *AudioMixer) MixExcluding(recipient string) []byte {
	m.mu.Lock()
	chunks := make([][]byte, 0, len(m.latest))
	for speaker, chunk := range m.latest {
		if speaker != recipient {
			chunks = append(chunks, chunk)
		}
	}
	m.mixes++
	m.mu.Unlock()

	if len(chunks) == 0 {
		return m.SilentChunk()
	}
	return mix(chunks, m.chunkSamples)
}

// Clear forgets the speaker's chunk.
func (m *AudioMixer) Clear(speaker string) {
	m.mu.Lock()
	delete(m.latest, speaker)
	m.mu.Unlock()
}

func (m *AudioMixer) Speakers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.latest)
}

func (m *AudioMixer) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Mixes: m.mixes, Speakers: len(m.latest), ChunkSamples: m.chunkSamples}
}

// mix sums int16 little-endian samples of every chunk into int32, divides by
// the contributor count when there is more than one, and clamps back to int16.
// Short chunks are zero-padded on the right, long ones truncated to the prefix.
func mix(chunks [][]byte, samples int) []byte {
	acc := make([]int32, samples)
	for _, chunk := range chunks {
		for i := range samples {
			off := i * bytesPerSample
			if off >= len(chunk) {
				break
			}
			lo, hi := chunk[off], byte(0)
			if off+1 < len(chunk) {
				hi = chunk[off+1]
			}
			acc[i] += int32(int16(uint16(lo) | uint16(hi)<<8))
		}
	}

	count := int32(len(chunks))
	out := make([]byte, samples*bytesPerSample)
	for i, s := range acc {
		if count > 1 {
			s /= count
		}
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(clamp16(s)))
	}
	return out
}

func clamp16(s int32) int16 {
	switch {
	case s > math.MaxInt16:
		return math.MaxInt16
	case s < math.MinInt16:
		return math.MinInt16
	default:
		return int16(s)
	}
}

// IsSilent reports whether every sample of chunk is zero.
func IsSilent(chunk []byte) bool {
	for _, b := range chunk {
		if b != 0 {
			return false
		}
	}
	return true
}
