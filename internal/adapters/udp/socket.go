package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/dkeye/confrelay/internal/core"
	"github.com/dkeye/confrelay/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
)

const (
	// DefaultMaxDatagramBytes is the largest UDP payload over IPv4.
	DefaultMaxDatagramBytes = 65507
	readBufferBytes         = 65536
)

var ErrDatagramTooLarge = errors.New("datagram exceeds size limit")

// Socket is the media channel: one UDP socket shared by every client.
type Socket struct {
	conn        *net.UDPConn
	maxDatagram int
	metrics     *metrics.Metrics
}

func Listen(addr string, maxDatagram int, m *metrics.Metrics) (*Socket, error) {
	ua, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve media addr %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", ua)
	if err != nil {
		return nil, fmt.Errorf("listen media %q: %w", addr, err)
	}
	if maxDatagram <= 0 || maxDatagram > DefaultMaxDatagramBytes {
		maxDatagram = DefaultMaxDatagramBytes
	}
	return &Socket{conn: conn, maxDatagram: maxDatagram, metrics: m}, nil
}

func (s *Socket) LocalAddr() netip.AddrPort {
	return s.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// SendTo writes one datagram. Oversized payloads are refused, not split.
func (s *Socket) SendTo(data []byte, to netip.AddrPort) error {
	if len(data) > s.maxDatagram {
		s.metrics.Inc(metrics.OversizeDatagrams)
		return fmt.Errorf("%w: %d > %d", ErrDatagramTooLarge, len(data), s.maxDatagram)
	}
	_, err := s.conn.WriteToUDPAddrPort(data, to)
	return err
}

// Serve reads datagrams until ctx is done or the socket is closed. A
// panicking handler loses that datagram only.
func (s *Socket) Serve(ctx context.Context, h core.MediaHandler) error {
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	log.Info().Str("module", "adapters.udp").Str("addr", s.conn.LocalAddr().String()).Msg("media socket started")
	buf := make([]byte, readBufferBytes)
	for {
		n, src, err := s.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info().Str("module", "adapters.udp").Msg("media socket stopped")
				return nil
			}
			log.Debug().Err(err).Str("module", "adapters.udp").Msg("read datagram")
			continue
		}
		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		src = netip.AddrPortFrom(src.Addr().Unmap(), src.Port())

		var pc panics.Catcher
		pc.Try(func() { h.OnDatagram(src, pkt) })
		if r := pc.Recovered(); r != nil {
			log.Error().Err(r.AsError()).Str("module", "adapters.udp").Str("addr", src.String()).Msg("datagram handler panicked")
		}
	}
}

func (s *Socket) Close() error {
	return s.conn.Close()
}
