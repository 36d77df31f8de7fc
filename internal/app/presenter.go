package app

import (
	"sync"

	"github.com/dkeye/confrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

type presenterSlot struct {
	mu    sync.Mutex
	state domain.PresenterState
}

// SessionLookup reports whether a session currently exists.
type SessionLookup interface {
	Exists(name domain.SessionName) bool
}

// PresenterArbiter grants the screen-share role to at most one client per
// session. Decisions for a session run under that session's lock; change
// callbacks run before the lock is released.
type PresenterArbiter struct {
	sessions SessionLookup

	mu    sync.Mutex
	slots map[domain.SessionName]*presenterSlot
}

// NewPresenterArbiter returns an arbiter that only keeps state for sessions
// known to sessions. A nil lookup accepts every session.
func NewPresenterArbiter(sessions SessionLookup) *PresenterArbiter {
	return &PresenterArbiter{sessions: sessions, slots: make(map[domain.SessionName]*presenterSlot)}
}

func (a *PresenterArbiter) slot(session domain.SessionName) (*presenterSlot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.slots[session]
	if ok {
		return s, true
	}
	if a.sessions != nil && !a.sessions.Exists(session) {
		return nil, false
	}
	s = &presenterSlot{}
	a.slots[session] = s
	return s, true
}

// RequestStart grants the role if the session is Idle. On success it calls
// onChange with the new state before returning. On denial the returned
// state names the current presenter. A session that does not exist is
// denied with a zero state.
func (a *PresenterArbiter) RequestStart(session domain.SessionName, p domain.Presenter, onChange func(domain.PresenterState)) (domain.PresenterState, bool) {
	s, ok := a.slot(session)
	if !ok {
		log.Debug().Str("module", "app.presenter").Str("session", string(session)).Str("requester", p.Name).Msg("screen share for unknown session")
		return domain.PresenterState{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase == domain.Presenting {
		log.Info().Str("module", "app.presenter").Str("session", string(session)).
			Str("requester", p.Name).Str("presenter", s.state.Owner.Name).Msg("screen share denied")
		return s.state, false
	}
	s.state = domain.PresenterState{Phase: domain.Presenting, Owner: p}
	log.Info().Str("module", "app.presenter").Str("session", string(session)).Str("presenter", p.Name).Msg("screen share granted")
	if onChange != nil {
		onChange(s.state)
	}
	return s.state, true
}

// RequestStop returns the session to Idle if id is the current presenter.
// A stop from anyone else is a no-op.
func (a *PresenterArbiter) RequestStop(session domain.SessionName, id domain.ClientID, onChange func(domain.PresenterState)) bool {
	a.mu.Lock()
	s, ok := a.slots[session]
	a.mu.Unlock()
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != domain.Presenting || s.state.Owner.ID != id {
		return false
	}
	log.Info().Str("module", "app.presenter").Str("session", string(session)).Str("presenter", s.state.Owner.Name).Msg("screen share released")
	s.state = domain.PresenterState{Phase: domain.Idle}
	if onChange != nil {
		onChange(s.state)
	}
	return true
}

func (a *PresenterArbiter) IsPresenter(session domain.SessionName, id domain.ClientID) bool {
	st := a.State(session)
	return st.Phase == domain.Presenting && st.Owner.ID == id
}

func (a *PresenterArbiter) State(session domain.SessionName) domain.PresenterState {
	a.mu.Lock()
	s, ok := a.slots[session]
	a.mu.Unlock()
	if !ok {
		return domain.PresenterState{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Clear drops all presenter state of a torn-down session.
func (a *PresenterArbiter) Clear(session domain.SessionName) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.slots, session)
}
