package tcp

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/dkeye/confrelay/internal/core"
	"github.com/dkeye/confrelay/internal/wire"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

const (
	DefaultSendQueue    = 256
	DefaultWriteTimeout = 5 * time.Second
)

// Server accepts control connections and runs one reader and one writer per
// connection.
type Server struct {
	Handler       core.ControlHandler
	MaxFrameBytes int
	SendQueue     int
	WriteTimeout  time.Duration

	wg conc.WaitGroup
}

// Serve accepts on ln until ctx is done or ln fails. Closing ln is the
// caller's job only when ctx is never cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	log.Info().Str("module", "adapters.tcp").Str("addr", ln.Addr().String()).Msg("control listener started")
	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info().Str("module", "adapters.tcp").Msg("control listener stopped")
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}
		s.wg.Go(func() { s.handle(nc) })
	}
}

// Wait blocks until every connection goroutine returned.
func (s *Server) Wait() {
	if r := s.wg.WaitAndRecover(); r != nil {
		log.Error().Err(r.AsError()).Str("module", "adapters.tcp").Msg("connection goroutine panicked")
	}
}

func (s *Server) handle(nc net.Conn) {
	queue := s.SendQueue
	if queue <= 0 {
		queue = DefaultSendQueue
	}
	timeout := s.WriteTimeout
	if timeout == 0 {
		timeout = DefaultWriteTimeout
	}
	conn := newConn(nc, queue, timeout)
	s.wg.Go(conn.writePump)

	id := s.Handler.Connect(conn)
	defer s.Handler.Disconnect(id)

	for {
		data, err := wire.ReadFrame(nc, s.MaxFrameBytes)
		if err != nil {
			ev := log.Debug()
			switch {
			case errors.Is(err, io.EOF):
				ev = log.Info()
			case errors.Is(err, wire.ErrFrameTooLarge):
				ev = log.Warn()
			}
			ev.Err(err).Str("module", "adapters.tcp").Str("client", string(id)).Str("remote", conn.RemoteAddr().String()).Msg("control connection closed")
			return
		}
		s.Handler.OnFrame(id, data)
	}
}
