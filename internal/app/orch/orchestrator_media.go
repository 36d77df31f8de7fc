package orch

import (
	"context"
	"net/netip"
	"time"

	"github.com/dkeye/confrelay/internal/app/media"
	"github.com/dkeye/confrelay/internal/domain"
	"github.com/dkeye/confrelay/internal/metrics"
	"github.com/dkeye/confrelay/internal/wire"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
)

const DefaultMixInterval = 20 * time.Millisecond

// OnDatagram routes one media datagram: audio into the session mixer,
// heartbeats nowhere, everything else to the other session members.
func (o *Orchestrator) OnDatagram(src netip.AddrPort, data []byte) {
	o.Metrics.Inc(metrics.DatagramsIn)

	id, ok := o.Endpoints.Resolve(src)
	if !ok {
		if id, ok = o.learnEndpoint(src, data); !ok {
			return
		}
	}
	user, ok := o.Registry.User(id)
	if !ok || !user.Registered() {
		o.Metrics.Inc(metrics.DatagramsDropped)
		return
	}

	d, err := wire.DecodeDatagram(data)
	if err != nil {
		o.Metrics.Inc(metrics.ProtocolErrors)
		log.Debug().Err(err).Str("module", "app.orch").Str("addr", src.String()).Msg("dropping malformed datagram")
		return
	}

	switch d.Type {
	case wire.MediaHeartbeat:
	case wire.MediaAudio:
		o.ingestAudio(user, d)
	default:
		o.broadcastMedia(user, data)
	}
}

// learnEndpoint binds src to the client named inside the datagram. Unknown
// names are dropped, never guessed.
func (o *Orchestrator) learnEndpoint(src netip.AddrPort, data []byte) (domain.ClientID, bool) {
	username := wire.SniffUsername(data)
	if username == "" {
		o.Metrics.Inc(metrics.UnknownEndpoint)
		log.Debug().Str("module", "app.orch").Str("addr", src.String()).Msg("datagram from unknown endpoint without username")
		return "", false
	}
	id, ok := o.Registry.FindByUsername(username)
	if !ok {
		o.Metrics.Inc(metrics.UnknownEndpoint)
		log.Debug().Str("module", "app.orch").Str("addr", src.String()).Str("username", username).Msg("no client for datagram username")
		return "", false
	}
	if o.Endpoints.Learn(src, id) {
		o.Metrics.Inc(metrics.EndpointsLearned)
		log.Info().Str("module", "app.orch").Str("addr", src.String()).Str("username", username).Str("client", string(id)).Msg("learned media endpoint")
	}
	return id, true
}

func (o *Orchestrator) ingestAudio(user domain.User, d *wire.Datagram) {
	frame, err := d.AudioFrame()
	if err != nil {
		o.Metrics.Inc(metrics.DatagramsDropped)
		return
	}
	o.membership.RLock()
	defer o.membership.RUnlock()
	if !o.present(user) {
		o.Metrics.Inc(metrics.DatagramsDropped)
		return
	}
	if err := o.Mixers.GetOrCreate(user.Session).Ingest(user.Username, frame); err != nil {
		o.Metrics.Inc(metrics.DatagramsDropped)
	}
}

// broadcastMedia fans data out to every member of the sender's session except
// the sender and anyone sharing its display name.
func (o *Orchestrator) broadcastMedia(user domain.User, data []byte) int {
	members := o.Sessions.Members(user.Session)
	targets := make([]domain.ClientID, 0, len(members))
	for _, m := range members {
		if m.ID == user.ID || m.Name == user.Username {
			continue
		}
		targets = append(targets, m.ID)
	}
	sent := o.Relay.Fanout(data, targets)
	o.Metrics.Add(metrics.VideoRelayed, uint64(sent))
	return sent
}

// MixTick sends one personalized mix to every member of every live session
// whose media endpoint is known. Silent mixes are not sent.
func (o *Orchestrator) MixTick() {
	for session, mixer := range o.Mixers.Snapshot() {
		if !o.Sessions.Exists(session) {
			o.Mixers.Drop(session)
			continue
		}
		for _, m := range o.Sessions.Members(session) {
			if _, ok := o.Endpoints.Lookup(m.ID); !ok {
				continue
			}
			mix := mixer.MixExcluding(m.Name)
			if media.IsSilent(mix) {
				o.Metrics.Inc(metrics.SilentMixesSkipped)
				continue
			}
			pkt, err := wire.EncodeMix(mix)
			if err != nil {
				log.Error().Err(err).Str("module", "app.orch").Msg("encode mix")
				continue
			}
			if o.Relay.SendTo(m.ID, pkt) == nil {
				o.Metrics.Inc(metrics.MixesSent)
			}
		}
	}
}

// RunMixer ticks the mixer every interval, less the time the previous tick
// took, until ctx is done. A panicking tick is logged and the loop goes on.
func (o *Orchestrator) RunMixer(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultMixInterval
	}
	log.Info().Str("module", "app.orch").Dur("interval", interval).Msg("mixer started")
	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.orch").Msg("mixer stopped")
			return nil
		case <-timer.C:
		}
		started := time.Now()
		var pc panics.Catcher
		pc.Try(o.MixTick)
		if r := pc.Recovered(); r != nil {
			log.Error().Err(r.AsError()).Str("module", "app.orch").Msg("mixer tick panicked")
		}
		timer.Reset(max(0, interval-time.Since(started)))
	}
}
