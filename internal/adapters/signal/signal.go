package signal

import (
	"context"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/dkeye/confrelay/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const defaultSendQueue = 256

// ControlWSController serves the control channel over WebSocket: one binary
// message per record, no length prefix.
type ControlWSController struct {
	Handler      core.ControlHandler
	ReadLimit    int64
	SendQueue    int
	WriteTimeout time.Duration
}

func NewControlWSController(h core.ControlHandler, readLimit int64, queue int, writeTimeout time.Duration) *ControlWSController {
	if queue <= 0 {
		queue = defaultSendQueue
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &ControlWSController{
		Handler:      h,
		ReadLimit:    readLimit,
		SendQueue:    queue,
		WriteTimeout: writeTimeout,
	}
}

type WsControlConn struct {
	conn   *websocket.Conn
	remote netip.AddrPort
	send   chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsControlConn) Send(f core.Frame) error {
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

func (c *WsControlConn) RemoteAddr() netip.AddrPort { return c.remote }

func (c *WsControlConn) Close() {
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

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *ControlWSController) HandleControl(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &WsControlConn{
		conn:   ws,
		remote: remoteAddrPort(c.Request.RemoteAddr),
		send:   make(chan core.Frame, ctl.SendQueue),
	}
	id := ctl.Handler.Connect(conn)
	log.Info().Str("module", "signal").Str("client", string(id)).Str("remote", conn.remote.String()).Msg("new WS control connection")

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, id, conn)
}

func remoteAddrPort(addr string) netip.AddrPort {
	ap, err := netip.ParseAddrPort(addr)
	if err != nil {
		return netip.AddrPort{}
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}
