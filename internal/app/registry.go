package app

import (
	"sync"

	"github.com/dkeye/confrelay/internal/core"
	"github.com/dkeye/confrelay/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type clientEntry struct {
	User    domain.User
	Conn    core.ControlConn
	Limiter *rate.Limiter
	seq     uint64
}

// Registry owns every connected ClientSession, registered or not.
type Registry struct {
	mu      sync.RWMutex
	clients map[domain.ClientID]*clientEntry
	nextSeq uint64

	limit rate.Limit
	burst int
}

// NewRegistry creates a registry whose clients may each send perSecond
// control records with the given burst. perSecond <= 0 disables limiting.
func NewRegistry(perSecond float64, burst int) *Registry {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Registry{
		clients: make(map[domain.ClientID]*clientEntry),
		limit:   limit,
		burst:   burst,
	}
}

func (r *Registry) Add(conn core.ControlConn) domain.ClientID {
	id := domain.NewClientID()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSeq++
	r.clients[id] = &clientEntry{
		User:    domain.User{ID: id, Remote: conn.RemoteAddr()},
		Conn:    conn,
		Limiter: rate.NewLimiter(r.limit, r.burst),
		seq:     r.nextSeq,
	}
	log.Info().Str("module", "app.registry").Str("client", string(id)).Str("remote", conn.RemoteAddr().String()).Msg("client connected")
	return id
}

// Register sets username and session on the first call. Later calls keep
// the first values: a display name is immutable once registered.
func (r *Registry) Register(id domain.ClientID, username string, session domain.SessionName) (domain.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.clients[id]
	if !ok {
		return domain.User{}, false, ErrNotConnected
	}
	if e.User.Registered() {
		if e.User.Username != username || e.User.Session != session {
			log.Warn().Str("module", "app.registry").Str("client", string(id)).
				Str("username", e.User.Username).Str("requested", username).
				Msg("ignoring re-registration with different identity")
		}
		return e.User, false, nil
	}
	e.User.Username = username
	e.User.Session = session
	log.Info().Str("module", "app.registry").Str("client", string(id)).Str("username", username).Str("session", string(session)).Msg("client registered")
	return e.User, true, nil
}

func (r *Registry) User(id domain.ClientID) (domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.clients[id]; ok {
		return e.User, true
	}
	return domain.User{}, false
}

func (r *Registry) Conn(id domain.ClientID) (core.ControlConn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.clients[id]; ok {
		return e.Conn, true
	}
	return nil, false
}

// Allow reports whether the client may send another control record now.
func (r *Registry) Allow(id domain.ClientID) bool {
	r.mu.RLock()
	e, ok := r.clients[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return e.Limiter.Allow()
}

// FindByUsername returns the most recently connected registered client
// with that display name.
func (r *Registry) FindByUsername(name string) (domain.ClientID, bool) {
	if name == "" {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		best    domain.ClientID
		bestSeq uint64
	)
	for id, e := range r.clients {
		if e.User.Username == name && e.seq > bestSeq {
			best, bestSeq = id, e.seq
		}
	}
	return best, bestSeq != 0
}

func (r *Registry) Remove(id domain.ClientID) (domain.User, core.ControlConn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.clients[id]
	if !ok {
		return domain.User{}, nil, false
	}
	delete(r.clients, id)
	log.Info().Str("module", "app.registry").Str("client", string(id)).Str("username", e.User.Username).Msg("client removed")
	return e.User, e.Conn, true
}

// Conns snapshots every live connection, for shutdown.
func (r *Registry) Conns() []core.ControlConn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ControlConn, 0, len(r.clients))
	for _, e := range r.clients {
		out = append(out, e.Conn)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
