package media

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/dkeye/confrelay/internal/core/mocks"
	"github.com/dkeye/confrelay/internal/domain"
	"github.com/dkeye/confrelay/internal/metrics"
	"go.uber.org/mock/gomock"
)

type staticEndpoints map[domain.ClientID]netip.AddrPort

func (s staticEndpoints) Lookup(id domain.ClientID) (netip.AddrPort, bool) {
	ep, ok := s[id]
	return ep, ok
}

func TestRelayFanoutSkipsUnknownAndSurvivesFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockMediaSender(ctrl)
	m := metrics.New()

	epA := netip.MustParseAddrPort("10.0.0.1:5000")
	epB := netip.MustParseAddrPort("10.0.0.2:5000")
	r := NewRelay(sender, staticEndpoints{"a": epA, "b": epB}, m)

	data := []byte("video")
	sender.EXPECT().SendTo(data, epA).Return(errors.New("unreachable"))
	sender.EXPECT().SendTo(data, epB).Return(nil)

	if sent := r.Fanout(data, []domain.ClientID{"a", "b", "c"}); sent != 1 {
		t.Fatalf("sent=%d, want 1", sent)
	}
	if got := m.Get(metrics.DatagramsDropped); got != 1 {
		t.Fatalf("%s=%d, want 1", metrics.DatagramsDropped, got)
	}
}

func TestRelaySendToWithoutEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := NewRelay(mocks.NewMockMediaSender(ctrl), staticEndpoints{}, nil)
	if err := r.SendTo("ghost", []byte("x")); !errors.Is(err, ErrNoEndpoint) {
		t.Fatalf("err=%v, want ErrNoEndpoint", err)
	}
}
