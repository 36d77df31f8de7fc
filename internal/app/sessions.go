package app

import (
	"slices"
	"sync"

	"github.com/dkeye/confrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Member is one entry of a session roster.
type Member struct {
	ID   domain.ClientID
	Name string
}

type sessionRoom struct {
	members []Member
}

// SessionDirectory tracks which clients belong to which named session.
// Sessions are created by the first join and removed by the last leave.
type SessionDirectory struct {
	mu       sync.RWMutex
	sessions map[domain.SessionName]*sessionRoom
}

func NewSessionDirectory() *SessionDirectory {
	return &SessionDirectory{sessions: make(map[domain.SessionName]*sessionRoom)}
}

// Join adds id to the session. It is idempotent and reports whether the
// member was newly added.
func (d *SessionDirectory) Join(name domain.SessionName, id domain.ClientID, username string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.sessions[name]
	if !ok {
		room = &sessionRoom{}
		d.sessions[name] = room
		log.Info().Str("module", "app.sessions").Str("session", string(name)).Msg("session created")
	}
	if slices.ContainsFunc(room.members, func(m Member) bool { return m.ID == id }) {
		return false
	}
	room.members = append(room.members, Member{ID: id, Name: username})
	log.Info().Str("module", "app.sessions").Str("session", string(name)).Str("client", string(id)).Str("username", username).Msg("member joined")
	return true
}

// Leave removes id from the session. empty is true when the session was
// removed because its last member left.
func (d *SessionDirectory) Leave(name domain.SessionName, id domain.ClientID) (removed, empty bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.sessions[name]
	if !ok {
		return false, false
	}
	i := slices.IndexFunc(room.members, func(m Member) bool { return m.ID == id })
	if i < 0 {
		return false, false
	}
	room.members = slices.Delete(room.members, i, i+1)
	log.Info().Str("module", "app.sessions").Str("session", string(name)).Str("client", string(id)).Msg("member left")
	if len(room.members) == 0 {
		delete(d.sessions, name)
		log.Info().Str("module", "app.sessions").Str("session", string(name)).Msg("session removed")
		return true, true
	}
	return true, false
}

// Members returns a copy of the roster in join order.
func (d *SessionDirectory) Members(name domain.SessionName) []Member {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.sessions[name]
	if !ok {
		return nil
	}
	return slices.Clone(room.members)
}

// ParticipantsOf returns the display names of the session, in roster order.
func (d *SessionDirectory) ParticipantsOf(name domain.SessionName) []string {
	members := d.Members(name)
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.Name)
	}
	return out
}

// IsMember reports whether id is currently in the session.
func (d *SessionDirectory) IsMember(name domain.SessionName, id domain.ClientID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.sessions[name]
	if !ok {
		return false
	}
	return slices.ContainsFunc(room.members, func(m Member) bool { return m.ID == id })
}

func (d *SessionDirectory) Exists(name domain.SessionName) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.sessions[name]
	return ok
}

func (d *SessionDirectory) Names() []domain.SessionName {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.SessionName, 0, len(d.sessions))
	for name := range d.sessions {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
