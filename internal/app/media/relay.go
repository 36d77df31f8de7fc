package media

import (
	"errors"
	"net/netip"

	"github.com/dkeye/confrelay/internal/core"
	"github.com/dkeye/confrelay/internal/domain"
	"github.com/dkeye/confrelay/internal/metrics"
	"github.com/rs/zerolog/log"
)

var ErrNoEndpoint = errors.New("no media endpoint for client")

// EndpointLookup resolves the endpoint media for a client must go to.
type EndpointLookup interface {
	Lookup(id domain.ClientID) (netip.AddrPort, bool)
}

// Relay unicasts datagrams to clients through their current endpoint.
// Sends are best effort: nothing is retried or buffered.
type Relay struct {
	sender    core.MediaSender
	endpoints EndpointLookup
	metrics   *metrics.Metrics
}

func NewRelay(sender core.MediaSender, endpoints EndpointLookup, m *metrics.Metrics) *Relay {
	return &Relay{sender: sender, endpoints: endpoints, metrics: m}
}

// SendTo delivers data to one client.
func (r *Relay) SendTo(id domain.ClientID, data []byte) error {
	ep, ok := r.endpoints.Lookup(id)
	if !ok {
		return ErrNoEndpoint
	}
	if err := r.sender.SendTo(data, ep); err != nil {
		r.metrics.Inc(metrics.DatagramsDropped)
		log.Debug().Err(err).Str("module", "media.relay").Str("client", string(id)).Str("addr", ep.String()).Msg("datagram send failed")
		return err
	}
	return nil
}

// Fanout sends data to every target independently and returns how many
// sends succeeded. Targets without a known endpoint are skipped.
func (r *Relay) Fanout(data []byte, targets []domain.ClientID) int {
	sent := 0
	for _, id := range targets {
		if err := r.SendTo(id, data); err == nil {
			sent++
		}
	}
	return sent
}
