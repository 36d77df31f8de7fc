package orch

import (
	"github.com/dkeye/confrelay/internal/domain"
	"github.com/dkeye/confrelay/internal/metrics"
	"github.com/dkeye/confrelay/internal/wire"
	"github.com/rs/zerolog/log"
)

const approvedMessage = "You are now presenting"

func (o *Orchestrator) screenShare(user domain.User, m *wire.ScreenShareRequest) {
	switch m.Action {
	case wire.ActionStart:
		o.RequestStart(user)
	case wire.ActionStop:
		o.RequestStop(user)
	}
}

// RequestStart asks for the presenter role of the user's session. The winner
// gets screen_share_approved and the session a presenter_changed; a loser gets
// screen_share_denied naming the current presenter. A client that has
// already left gets nothing.
func (o *Orchestrator) RequestStart(user domain.User) bool {
	o.membership.RLock()
	defer o.membership.RUnlock()
	if !o.present(user) {
		log.Debug().Str("module", "app.orch").Str("client", string(user.ID)).Msg("screen share request from departed client")
		return false
	}
	session := user.Session
	st, ok := o.Presenters.RequestStart(session, domain.Presenter{ID: user.ID, Name: user.Username}, func(st domain.PresenterState) {
		o.broadcastReliable(session, wire.MustEncode(&wire.PresenterChanged{Presenter: st.Owner.Name, IsPresenting: true}), "")
	})
	if !ok {
		o.sendTo(user.ID, &wire.ScreenShareDenied{
			Reason:           presenterReason(st.Owner.Name),
			CurrentPresenter: st.Owner.Name,
		})
		return false
	}
	o.sendTo(user.ID, &wire.ScreenShareApproved{Message: approvedMessage})
	return true
}

// RequestStop releases the role if the user holds it.
func (o *Orchestrator) RequestStop(user domain.User) bool {
	session := user.Session
	return o.Presenters.RequestStop(session, user.ID, func(domain.PresenterState) {
		o.broadcastReliable(session, wire.MustEncode(&wire.PresenterChanged{IsPresenting: false}), "")
	})
}

// relayScreen forwards a screen frame only from the session's presenter.
func (o *Orchestrator) relayScreen(user domain.User, frame []byte) {
	if !o.Presenters.IsPresenter(user.Session, user.ID) {
		o.Metrics.Inc(metrics.ScreenFramesDenied)
		log.Debug().Str("module", "app.orch").Str("username", user.Username).Msg("screen frame from non-presenter dropped")
		return
	}
	o.broadcastReliable(user.Session, frame, user.ID)
}

func (o *Orchestrator) stopScreen(user domain.User, frame []byte) {
	o.broadcastReliable(user.Session, frame, user.ID)
	o.broadcastReliable(user.Session, systemChat(user.Username+" has stopped sharing their screen"), "")
}

// relayVideoStatus forwards a status only when it names the sender itself.
func (o *Orchestrator) relayVideoStatus(user domain.User, m *wire.VideoStatus, frame []byte) {
	if m.Username != user.Username {
		log.Warn().Str("module", "app.orch").Str("client", string(user.ID)).Str("claimed", m.Username).Msg("video status for another user dropped")
		return
	}
	o.broadcastReliable(user.Session, frame, user.ID)
}
