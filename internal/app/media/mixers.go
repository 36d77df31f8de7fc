package media

import (
	"maps"
	"sync"

	"github.com/dkeye/confrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Mixers owns one AudioMixer per live session.
type Mixers struct {
	chunkSamples int

	mu     sync.RWMutex
	mixers map[domain.SessionName]*AudioMixer
}

func NewMixers(chunkSamples int) *Mixers {
	if chunkSamples <= 0 {
		chunkSamples = DefaultChunkSamples
	}
	return &Mixers{
		chunkSamples: chunkSamples,
		mixers:       make(map[domain.SessionName]*AudioMixer),
	}
}

// ChunkSamples is the canonical chunk size of every mixer in the set.
func (s *Mixers) ChunkSamples() int { return s.chunkSamples }

func (s *Mixers) GetOrCreate(session domain.SessionName) *AudioMixer {
	s.mu.RLock()
	m, ok := s.mixers[session]
	s.mu.RUnlock()
	if ok {
		return m
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok = s.mixers[session]; ok {
		return m
	}
	m = NewAudioMixer(s.chunkSamples)
	s.mixers[session] = m
	log.Info().Str("module", "media.mixer").Str("session", string(session)).Msg("mixer created")
	return m
}

func (s *Mixers) Get(session domain.SessionName) (*AudioMixer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mixers[session]
	return m, ok
}

// Drop tears down the session's mixer.
func (s *Mixers) Drop(session domain.SessionName) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mixers[session]; ok {
		delete(s.mixers, session)
		log.Info().Str("module", "media.mixer").Str("session", string(session)).Msg("mixer dropped")
	}
}

// Snapshot returns the current session -> mixer set so a tick can iterate it
// without holding the lock.
func (s *Mixers) Snapshot() map[domain.SessionName]*AudioMixer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.mixers)
}
