package app

import (
	"net/netip"
	"sync"

	"github.com/dkeye/confrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// EndpointRegistry maps observed media endpoints to clients and back.
// Each client has at most one endpoint and each endpoint at most one client.
type EndpointRegistry struct {
	mu       sync.RWMutex
	byAddr   map[netip.AddrPort]domain.ClientID
	byClient map[domain.ClientID]netip.AddrPort
}

func NewEndpointRegistry() *EndpointRegistry {
	return &EndpointRegistry{
		byAddr:   make(map[netip.AddrPort]domain.ClientID),
		byClient: make(map[domain.ClientID]netip.AddrPort),
	}
}

// Register records the port a client declared over the control channel,
// paired with the client's control-channel IP.
func (e *EndpointRegistry) Register(id domain.ClientID, ip netip.Addr, port uint16) bool {
	if port == 0 || !ip.IsValid() {
		return false
	}
	return e.bind(id, netip.AddrPortFrom(ip, port))
}

// Learn binds a datagram source to a client identified by other means.
func (e *EndpointRegistry) Learn(src netip.AddrPort, id domain.ClientID) bool {
	return e.bind(id, src)
}

// bind replaces the client's previous endpoint atomically. It reports
// whether the table changed.
func (e *EndpointRegistry) bind(id domain.ClientID, ep netip.AddrPort) bool {
	ep = normalize(ep)
	e.mu.Lock()
	defer e.mu.Unlock()
	old, had := e.byClient[id]
	if had && old == ep {
		return false
	}
	if had {
		delete(e.byAddr, old)
	}
	if other, taken := e.byAddr[ep]; taken && other != id {
		delete(e.byClient, other)
		log.Warn().Str("module", "app.endpoints").Str("addr", ep.String()).Str("from", string(other)).Str("to", string(id)).Msg("endpoint moved to another client")
	}
	e.byAddr[ep] = id
	e.byClient[id] = ep
	if had {
		log.Info().Str("module", "app.endpoints").Str("client", string(id)).Str("old", old.String()).Str("new", ep.String()).Msg("media endpoint changed")
	} else {
		log.Info().Str("module", "app.endpoints").Str("client", string(id)).Str("addr", ep.String()).Msg("media endpoint bound")
	}
	return true
}

func (e *EndpointRegistry) Resolve(src netip.AddrPort) (domain.ClientID, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, ok := e.byAddr[normalize(src)]
	return id, ok
}

// Lookup returns the endpoint outbound media for a client must go to.
func (e *EndpointRegistry) Lookup(id domain.ClientID) (netip.AddrPort, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ep, ok := e.byClient[id]
	return ep, ok
}

func (e *EndpointRegistry) Forget(id domain.ClientID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ep, ok := e.byClient[id]; ok {
		delete(e.byAddr, ep)
		delete(e.byClient, id)
	}
}

func (e *EndpointRegistry) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.byClient)
}

// normalize folds IPv4-mapped IPv6 addresses so dual-stack sockets and
// IPv4 control connections agree on the key.
func normalize(ep netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(ep.Addr().Unmap(), ep.Port())
}
