package orch

import (
	"context"
	"sync"

	"github.com/dkeye/confrelay/internal/app"
	"github.com/dkeye/confrelay/internal/app/media"
	"github.com/dkeye/confrelay/internal/core"
	"github.com/dkeye/confrelay/internal/domain"
	"github.com/dkeye/confrelay/internal/metrics"
	"github.com/dkeye/confrelay/internal/wire"
	"github.com/rs/zerolog/log"
)

const defaultRemovalQueue = 64

// Config tunes the orchestrator. Zero values pick defaults.
type Config struct {
	ChunkSamples      int
	SampleRate        int
	MessagesPerSecond float64
	MessageBurst      int
	RemovalQueue      int
}

// Orchestrator dispatches control records and media datagrams to the
// session tables and owns every cross-table sequence (join, leave, teardown).
type Orchestrator struct {
	Registry   *app.Registry
	Endpoints  *app.EndpointRegistry
	Sessions   *app.SessionDirectory
	Presenters *app.PresenterArbiter
	Files      *app.FileRegistry
	Mixers     *media.Mixers
	Relay      *media.Relay
	Policy     app.Policy
	Metrics    *metrics.Metrics

	// membership is held exclusively by register and disconnect so a session
	// is never torn down while a client is joining it. Audio ingest and
	// presenter grants hold it shared so they never act for a departed client.
	membership sync.RWMutex
	removals   chan domain.ClientID
	sampleRate int
}

func New(cfg Config, sender core.MediaSender, m *metrics.Metrics) *Orchestrator {
	if cfg.RemovalQueue <= 0 {
		cfg.RemovalQueue = defaultRemovalQueue
	}
	if m == nil {
		m = metrics.New()
	}
	endpoints := app.NewEndpointRegistry()
	sessions := app.NewSessionDirectory()
	return &Orchestrator{
		Registry:   app.NewRegistry(cfg.MessagesPerSecond, cfg.MessageBurst),
		Endpoints:  endpoints,
		Sessions:   sessions,
		Presenters: app.NewPresenterArbiter(sessions),
		Files:      app.NewFileRegistry(),
		Mixers:     media.NewMixers(cfg.ChunkSamples),
		Relay:      media.NewRelay(sender, endpoints, m),
		Policy:     app.SimplePolicy{},
		Metrics:    m,
		removals:   make(chan domain.ClientID, cfg.RemovalQueue),
		sampleRate: cfg.SampleRate,
	}
}

// Connect registers a freshly accepted control connection.
func (o *Orchestrator) Connect(conn core.ControlConn) domain.ClientID {
	return o.Registry.Add(conn)
}

// OnFrame handles one control record read from id's connection. Records of
// one client are handled in the order its reader delivers them.
func (o *Orchestrator) OnFrame(id domain.ClientID, data core.Frame) {
	o.Metrics.Inc(metrics.FramesIn)
	if !o.Registry.Allow(id) {
		o.Metrics.Inc(metrics.RateLimited)
		log.Debug().Str("module", "app.orch").Str("client", string(id)).Msg("record rate limited")
		return
	}
	msg, err := wire.Decode(data)
	if err != nil {
		o.Metrics.Inc(metrics.ProtocolErrors)
		log.Warn().Err(err).Str("module", "app.orch").Str("client", string(id)).Msg("dropping malformed record")
		return
	}
	user, ok := o.Registry.User(id)
	if !ok {
		return
	}

	switch m := msg.(type) {
	case *wire.RegisterUDP:
		o.register(user, m)
		return
	case *wire.Heartbeat:
		o.heartbeat(user, m)
		return
	}

	if !user.Registered() {
		log.Debug().Str("module", "app.orch").Str("client", string(id)).Str("type", string(msg.Kind())).Msg("record before registration dropped")
		return
	}

	switch m := msg.(type) {
	case *wire.Chat, *wire.Unknown:
		o.broadcastReliable(user.Session, data, user.ID)
	case *wire.VideoStatus:
		o.relayVideoStatus(user, m, data)
	case *wire.ScreenShareRequest:
		o.screenShare(user, m)
	case *wire.Screen:
		o.relayScreen(user, data)
	case *wire.ScreenStop:
		o.stopScreen(user, data)
	case *wire.FileInfo:
		o.AnnounceFile(user, m, data)
	case *wire.FileRequest:
		o.RequestDownload(user, m)
	case *wire.FileChunk:
		o.RouteChunk(user, m.Filename, m.Requester, data)
	case *wire.FileEnd:
		o.RouteChunk(user, m.Filename, m.Requester, data)
	case *wire.ScreenShareApproved, *wire.ScreenShareDenied, *wire.PresenterChanged,
		*wire.FileError, *wire.ParticipantsList, *wire.AvailableFiles:
		log.Debug().Str("module", "app.orch").Str("client", string(id)).Str("type", string(msg.Kind())).Msg("server-only record from client dropped")
	}
}

// Disconnect removes id and everything it owns, then tells the rest of its
// session. It is safe to call more than once.
func (o *Orchestrator) Disconnect(id domain.ClientID) {
	o.membership.Lock()
	defer o.membership.Unlock()

	user, conn, ok := o.Registry.Remove(id)
	if !ok {
		return
	}
	conn.Close()
	o.Endpoints.Forget(id)
	o.Files.RemoveOwner(id)
	if !user.Registered() {
		return
	}
	o.leave(user)
}

// ScheduleRemoval queues id for disconnect cleanup outside the caller's
// iteration.
func (o *Orchestrator) ScheduleRemoval(id domain.ClientID) {
	select {
	case o.removals <- id:
	default:
		go o.Disconnect(id)
	}
}

// ProcessRemovals runs every queued removal and returns how many ran.
func (o *Orchestrator) ProcessRemovals() int {
	n := 0
	for {
		select {
		case id := <-o.removals:
			o.Disconnect(id)
			n++
		default:
			return n
		}
	}
}

// RunRemovals drains the removal queue until ctx is done.
func (o *Orchestrator) RunRemovals(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			o.ProcessRemovals()
			return nil
		case id := <-o.removals:
			o.Disconnect(id)
		}
	}
}

// Shutdown closes every connection still registered.
func (o *Orchestrator) Shutdown() {
	for _, c := range o.Registry.Conns() {
		c.Close()
	}
}

// Snapshot describes every live session, sorted by name.
func (o *Orchestrator) Snapshot() []core.SessionInfo {
	names := o.Sessions.Names()
	out := make([]core.SessionInfo, 0, len(names))
	for _, name := range names {
		out = append(out, o.sessionInfo(name))
	}
	return out
}

// Session describes one session.
func (o *Orchestrator) Session(name domain.SessionName) (core.SessionInfo, bool) {
	if !o.Sessions.Exists(name) {
		return core.SessionInfo{}, false
	}
	return o.sessionInfo(name), true
}

func (o *Orchestrator) sessionInfo(name domain.SessionName) core.SessionInfo {
	info := core.SessionInfo{
		Name:         name,
		Participants: o.Sessions.ParticipantsOf(name),
		Files:        len(o.Files.Available(name)),
		Audio:        core.AudioFormat{SampleRate: o.sampleRate, ChunkSamples: o.Mixers.ChunkSamples()},
	}
	if st := o.Presenters.State(name); st.Phase == domain.Presenting {
		info.Presenter = st.Owner.Name
	}
	if m, ok := o.Mixers.Get(name); ok {
		st := m.Stats()
		info.Speakers = st.Speakers
		info.Mixes = st.Mixes
	}
	return info
}

// sendTo delivers a server record to one client. A failed send schedules
// the client for removal.
func (o *Orchestrator) sendTo(id domain.ClientID, msg wire.Message) {
	conn, ok := o.Registry.Conn(id)
	if !ok {
		return
	}
	if err := conn.Send(wire.MustEncode(msg)); err != nil {
		o.deliveryFailed(id, err)
	}
}

// broadcastReliable sends frame to every member of session except exclude.
// Failures are collected and acted on after the fan-out.
func (o *Orchestrator) broadcastReliable(session domain.SessionName, frame core.Frame, exclude domain.ClientID) core.PublishResult {
	var (
		res  core.PublishResult
		errs []error
	)
	for _, m := range o.Sessions.Members(session) {
		if m.ID == exclude {
			continue
		}
		conn, ok := o.Registry.Conn(m.ID)
		if !ok {
			continue
		}
		if err := conn.Send(frame); err != nil {
			res.Failed = append(res.Failed, m.ID)
			errs = append(errs, err)
			continue
		}
		res.SendTo++
	}
	for i, id := range res.Failed {
		o.deliveryFailed(id, errs[i])
	}
	return res
}

func (o *Orchestrator) deliveryFailed(id domain.ClientID, err error) {
	o.Metrics.Inc(metrics.DeliveryFailures)
	log.Warn().Err(err).Str("module", "app.orch").Str("client", string(id)).Msg("reliable delivery failed")
	if o.Policy == nil {
		return
	}
	switch o.Policy.OnDeliveryFailure(id, err) {
	case app.KickMember:
		o.ScheduleRemoval(id)
	case app.NoAction:
	}
}

// present reports whether user is still connected and in its session. The
// caller holds the membership lock.
func (o *Orchestrator) present(user domain.User) bool {
	if _, ok := o.Registry.User(user.ID); !ok {
		return false
	}
	return o.Sessions.IsMember(user.Session, user.ID)
}
