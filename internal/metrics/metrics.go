package metrics

import (
	"maps"
	"sync"
)

// Counter names.
const (
	DatagramsIn        = "datagrams_in"
	DatagramsDropped   = "datagrams_dropped"
	UnknownEndpoint    = "unknown_endpoint"
	EndpointsLearned   = "endpoints_learned"
	MixesSent          = "mixes_sent"
	SilentMixesSkipped = "silent_mixes_skipped"
	VideoRelayed       = "video_relayed"
	FramesIn           = "frames_in"
	DeliveryFailures   = "delivery_failures"
	ProtocolErrors     = "protocol_errors"
	RateLimited        = "rate_limited"
	OversizeDatagrams  = "oversize_datagrams"
	ScreenFramesDenied = "screen_frames_denied"
)

// Metrics is a concurrency-safe counter registry.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

func (m *Metrics) Inc(name string) {
	m.Add(name, 1)
}

func (m *Metrics) Add(name string, n uint64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.m[name] += n
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

// Snapshot copies every counter.
func (m *Metrics) Snapshot() map[string]uint64 {
	if m == nil {
		return map[string]uint64{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.m)
}
