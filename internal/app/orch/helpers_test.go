package orch

import (
	"encoding/base64"
	"encoding/binary"
	"net/netip"
	"sync"
	"testing"

	"github.com/dkeye/confrelay/internal/core"
	"github.com/dkeye/confrelay/internal/domain"
	"github.com/dkeye/confrelay/internal/metrics"
	"github.com/dkeye/confrelay/internal/wire"
	json "github.com/goccy/go-json"
)

const (
	testChunkSamples = 4
	testSampleRate   = 22050
)

type fakeConn struct {
	remote netip.AddrPort

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (c *fakeConn) Send(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	c.frames = append(c.frames, append([]byte(nil), f...))
	return nil
}

func (c *fakeConn) RemoteAddr() netip.AddrPort { return c.remote }

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

func (c *fakeConn) raw() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *fakeConn) messages(t *testing.T) []wire.Message {
	t.Helper()
	var out []wire.Message
	for _, f := range c.raw() {
		m, err := wire.Decode(f)
		if err != nil {
			t.Fatalf("client received undecodable frame %s: %v", f, err)
		}
		out = append(out, m)
	}
	return out
}

func ofType[T wire.Message](t *testing.T, c *fakeConn) []T {
	t.Helper()
	var out []T
	for _, m := range c.messages(t) {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

type fakeSender struct {
	mu   sync.Mutex
	sent map[netip.AddrPort][][]byte
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(map[netip.AddrPort][][]byte)}
}

func (s *fakeSender) SendTo(data []byte, to netip.AddrPort) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[to] = append(s.sent[to], append([]byte(nil), data...))
	return nil
}

func (s *fakeSender) to(ep netip.AddrPort) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[ep]
}

func (s *fakeSender) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.sent {
		n += len(v)
	}
	return n
}

type client struct {
	id    domain.ClientID
	conn  *fakeConn
	media netip.AddrPort
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeSender) {
	t.Helper()
	s := newFakeSender()
	return New(Config{ChunkSamples: testChunkSamples, SampleRate: testSampleRate}, s, metrics.New()), s
}

func encode(t *testing.T, m wire.Message) core.Frame {
	t.Helper()
	b, err := wire.Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return b
}

// join connects a client from 10.0.0.<n> and registers it with UDP port 5000+n.
func join(t *testing.T, o *Orchestrator, n int, name, session string) client {
	t.Helper()
	ip := netip.AddrFrom4([4]byte{10, 0, 0, byte(n)})
	conn := &fakeConn{remote: netip.AddrPortFrom(ip, 40000)}
	id := o.Connect(conn)
	port := 5000 + n
	o.OnFrame(id, encode(t, &wire.RegisterUDP{Port: port, Username: name, Session: session}))
	return client{id: id, conn: conn, media: netip.AddrPortFrom(ip, uint16(port))}
}

func pcm(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func datagram(t *testing.T, kind wire.MediaKind, username string, frame []byte) []byte {
	t.Helper()
	b, err := json.Marshal(&wire.Datagram{Type: kind, Username: username, Frame: frame})
	if err != nil {
		t.Fatalf("marshal datagram: %v", err)
	}
	return b
}

func samples(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}

func b64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }
