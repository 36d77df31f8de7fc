package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	router "github.com/dkeye/confrelay/internal/adapters/http"
	"github.com/dkeye/confrelay/internal/adapters/tcp"
	"github.com/dkeye/confrelay/internal/adapters/udp"
	"github.com/dkeye/confrelay/internal/app/orch"
	"github.com/dkeye/confrelay/internal/config"
	"github.com/dkeye/confrelay/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var ErrShutdownTimeout = errors.New("workers did not stop in time")

// Server wires the relay: control listener, media socket, mixer, removal
// queue and the optional admin HTTP API.
type Server struct {
	cfg     *config.Config
	metrics *metrics.Metrics

	control net.Listener
	media   *udp.Socket
	orch    *orch.Orchestrator
	tcp     *tcp.Server
	admin   *http.Server
}

// New binds the control and media ports. Failing to bind either is fatal.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	m := metrics.New()
	ln, err := net.Listen("tcp", cfg.ControlAddr())
	if err != nil {
		return nil, fmt.Errorf("listen control %s: %w", cfg.ControlAddr(), err)
	}
	sock, err := udp.Listen(cfg.MediaAddr(), cfg.MaxDatagramBytes, m)
	if err != nil {
		_ = ln.Close()
		return nil, err
	}

	o := orch.New(orch.Config{
		ChunkSamples:      cfg.AudioChunkSamples,
		SampleRate:        cfg.AudioSampleRate,
		MessagesPerSecond: cfg.MessagesPerSecond,
		MessageBurst:      cfg.MessageBurst,
	}, sock, m)

	s := &Server{
		cfg:     cfg,
		metrics: m,
		control: ln,
		media:   sock,
		orch:    o,
		tcp: &tcp.Server{
			Handler:       o,
			MaxFrameBytes: cfg.MaxFrameBytes,
			SendQueue:     cfg.SendQueue,
			WriteTimeout:  cfg.WriteTimeout,
		},
	}
	if cfg.AdminAddr != "" {
		s.admin = &http.Server{
			Addr: cfg.AdminAddr,
			Handler: router.SetupRouter(ctx, cfg, router.Deps{
				Sessions: o,
				Counters: m,
				Control:  o,
				Clients:  o.Registry.Count,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return s, nil
}

// Run serves until ctx is done, then closes every socket and waits up to
// shutdown_timeout for the workers to return.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.tcp.Serve(gctx, s.control) })
	g.Go(func() error { return s.media.Serve(gctx, s.orch) })
	g.Go(func() error { return s.orch.RunMixer(gctx, s.cfg.MixInterval) })
	g.Go(func() error { return s.orch.RunRemovals(gctx) })
	g.Go(func() error { return s.orch.RunRosterSync(gctx, s.cfg.RosterSync) })
	if s.admin != nil {
		g.Go(func() error {
			log.Info().Str("module", "server").Str("addr", s.admin.Addr).Msg("admin API started")
			if err := s.admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
			defer cancel()
			return s.admin.Shutdown(shutdownCtx)
		})
	}

	log.Info().Str("module", "server").Str("control", s.control.Addr().String()).
		Str("media", s.media.LocalAddr().String()).Msg("relay started")

	<-gctx.Done()
	log.Info().Str("module", "server").Msg("shutting down")
	s.orch.Shutdown()

	done := make(chan error, 1)
	go func() {
		err := g.Wait()
		// listeners are closed now; catch connections accepted meanwhile.
		s.orch.Shutdown()
		s.tcp.Wait()
		done <- err
	}()

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	select {
	case err := <-done:
		log.Info().Str("module", "server").Msg("relay stopped")
		return err
	case <-time.After(timeout):
		log.Warn().Str("module", "server").Dur("timeout", timeout).Msg("workers did not finish in time")
		return ErrShutdownTimeout
	}
}
