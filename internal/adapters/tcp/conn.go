package tcp

import (
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/dkeye/confrelay/internal/core"
	"github.com/dkeye/confrelay/internal/wire"
	"github.com/rs/zerolog/log"
)

// Conn is one framed control connection. Frames queued with Send are written
// by a single writer goroutine, so they never interleave on the stream.
type Conn struct {
	conn         net.Conn
	remote       netip.AddrPort
	writeTimeout time.Duration
	send         chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newConn(nc net.Conn, queue int, writeTimeout time.Duration) *Conn {
	return &Conn{
		conn:         nc,
		remote:       remoteAddrPort(nc.RemoteAddr()),
		writeTimeout: writeTimeout,
		send:         make(chan core.Frame, queue),
	}
}

// Send queues f without blocking. It fails with core.ErrBackpressure when
// the queue is full.
func (c *Conn) Send(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *Conn) RemoteAddr() netip.AddrPort { return c.remote }

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

func (c *Conn) writePump() {
	for f := range c.send {
		if c.writeTimeout > 0 {
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				log.Debug().Err(err).Str("module", "adapters.tcp").Str("remote", c.remote.String()).Msg("writePump set deadline")
				c.Close()
				return
			}
		}
		if err := wire.WriteFrame(c.conn, f); err != nil {
			log.Debug().Err(err).Str("module", "adapters.tcp").Str("remote", c.remote.String()).Msg("writePump write error")
			c.Close()
			return
		}
	}
}

func remoteAddrPort(a net.Addr) netip.AddrPort {
	if ta, ok := a.(*net.TCPAddr); ok {
		ap := ta.AddrPort()
		return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
	}
	ap, _ := netip.ParseAddrPort(a.String())
	return ap
}
