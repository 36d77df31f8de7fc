package orch

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/confrelay/internal/domain"
	"github.com/dkeye/confrelay/internal/metrics"
	"github.com/dkeye/confrelay/internal/wire"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) register(user domain.User, m *wire.RegisterUDP) {
	username, session, err := domain.NormalizeRegistration(user.Remote, m.Username, domain.SessionName(m.Session))
	if err != nil {
		o.Metrics.Inc(metrics.ProtocolErrors)
		log.Warn().Err(err).Str("module", "app.orch").Str("client", string(user.ID)).Msg("registration rejected")
		return
	}

	o.membership.Lock()
	defer o.membership.Unlock()

	reg, newly, err := o.Registry.Register(user.ID, username, session)
	if err != nil {
		return
	}
	if m.Port > 0 {
		o.Endpoints.Register(reg.ID, reg.Remote.Addr(), uint16(m.Port))
	}

	if newly {
		o.Sessions.Join(reg.Session, reg.ID, reg.Username)
		o.broadcastReliable(reg.Session, systemChat(reg.Username+" has joined the session"), reg.ID)
		o.syncSession(reg.Session)
	} else {
		o.sendTo(reg.ID, o.participantsList(reg.Session))
	}
	o.sendAvailableFiles(reg.ID, reg.Session)
}

func (o *Orchestrator) heartbeat(user domain.User, m *wire.Heartbeat) {
	if m.UDPPort == nil || !user.Registered() {
		return
	}
	o.Endpoints.Register(user.ID, user.Remote.Addr(), uint16(*m.UDPPort))
}

// leave runs the departure sequence of a registered client. The caller holds
// the membership lock.
func (o *Orchestrator) leave(user domain.User) {
	session := user.Session
	if m, ok := o.Mixers.Get(session); ok {
		m.Clear(user.Username)
	}
	_, empty := o.Sessions.Leave(session, user.ID)
	if empty {
		o.Mixers.Drop(session)
		o.Presenters.Clear(session)
		return
	}
	o.Presenters.RequestStop(session, user.ID, func(domain.PresenterState) {
		o.broadcastReliable(session, wire.MustEncode(&wire.PresenterChanged{IsPresenting: false}), "")
	})
	o.broadcastReliable(session, systemChat(user.Username+" has left the session"), user.ID)
	o.syncSession(session)
}

func (o *Orchestrator) participantsList(session domain.SessionName) *wire.ParticipantsList {
	return &wire.ParticipantsList{Participants: o.Sessions.ParticipantsOf(session)}
}

// syncSession pushes the full roster to every member of session.
func (o *Orchestrator) syncSession(session domain.SessionName) {
	o.broadcastReliable(session, wire.MustEncode(o.participantsList(session)), "")
}

// SyncParticipants pushes the full roster to every member of every session.
func (o *Orchestrator) SyncParticipants() {
	for _, name := range o.Sessions.Names() {
		o.syncSession(name)
	}
}

// RunRosterSync calls SyncParticipants every interval until ctx is done.
// A non-positive interval disables it.
func (o *Orchestrator) RunRosterSync(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			o.SyncParticipants()
		}
	}
}

func (o *Orchestrator) sendAvailableFiles(id domain.ClientID, session domain.SessionName) {
	files := o.Files.Available(session)
	if len(files) == 0 {
		return
	}
	o.sendTo(id, &wire.AvailableFiles{Files: files})
}

func systemChat(text string) []byte {
	return wire.MustEncode(&wire.Chat{
		Sender:    domain.SystemSender,
		Message:   text,
		Timestamp: float64(time.Now().UnixMilli()) / 1000,
	})
}

func presenterReason(name string) string {
	return fmt.Sprintf("%s is currently presenting", name)
}
