package core

import "github.com/dkeye/confrelay/internal/domain"

//go:generate mockgen -destination=mocks/mocks.go -package=mocks github.com/dkeye/confrelay/internal/core ControlConn,MediaSender

// PublishResult reports delivery stats of a fan-out to the orchestrator.
// Failed members are reported, never removed inline.
type PublishResult struct {
	SendTo int
	Failed []domain.ClientID
}

// SessionInfo is a read-only view of a session for APIs.
type SessionInfo struct {
	Name         domain.SessionName `json:"name"`
	Participants []string           `json:"participants"`
	Presenter    string             `json:"presenter,omitempty"`
	Files        int                `json:"files"`
	Speakers     int                `json:"speakers"`
	Mixes        uint64             `json:"mixes"`
	Audio        AudioFormat        `json:"audio"`
}

// AudioFormat describes the PCM the mixer consumes and produces:
// 16-bit little-endian mono.
type AudioFormat struct {
	SampleRate   int `json:"sample_rate"`
	ChunkSamples int `json:"chunk_samples"`
}
