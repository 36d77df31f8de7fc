package core

import (
	"net/netip"

	"github.com/dkeye/confrelay/internal/domain"
)

// Frame is one serialized control record (without the length prefix).
type Frame []byte

// ControlConn abstracts the reliable messaging transport of one client.
// Owned by the adapter; the adapter must Close() it.
// Send must not block on the network and must never interleave two frames.
type ControlConn interface {
	Send(Frame) error
	RemoteAddr() netip.AddrPort
	Close()
}

// ControlHandler receives the lifecycle and records of control connections.
// OnFrame calls for one id come from a single goroutine, in arrival order.
type ControlHandler interface {
	Connect(conn ControlConn) domain.ClientID
	OnFrame(id domain.ClientID, data Frame)
	Disconnect(id domain.ClientID)
}
