package orch

import (
	"testing"

	"github.com/dkeye/confrelay/internal/domain"
	"github.com/dkeye/confrelay/internal/metrics"
	"github.com/dkeye/confrelay/internal/wire"
)

func TestPresenterArbitration(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	a := join(t, o, 1, "A", "S")
	b := join(t, o, 2, "B", "S")
	a.conn.reset()
	b.conn.reset()

	o.OnFrame(a.id, encode(t, &wire.ScreenShareRequest{Action: wire.ActionStart}))

	if got := ofType[*wire.ScreenShareApproved](t, a.conn); len(got) != 1 || got[0].Message != "You are now presenting" {
		t.Fatalf("A approvals=%+v", got)
	}
	for name, c := range map[string]*fakeConn{"A": a.conn, "B": b.conn} {
		got := ofType[*wire.PresenterChanged](t, c)
		if len(got) != 1 || got[0].Presenter != "A" || !got[0].IsPresenting {
			t.Fatalf("%s presenter_changed=%+v", name, got)
		}
	}

	o.OnFrame(b.id, encode(t, &wire.ScreenShareRequest{Action: wire.ActionStart}))
	denied := ofType[*wire.ScreenShareDenied](t, b.conn)
	if len(denied) != 1 || denied[0].CurrentPresenter != "A" || denied[0].Reason != "A is currently presenting" {
		t.Fatalf("B denials=%+v", denied)
	}
	if got := ofType[*wire.PresenterChanged](t, a.conn); len(got) != 1 {
		t.Fatalf("denied request announced a presenter change")
	}
}

func TestScreenFramesOnlyFromPresenter(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	a := join(t, o, 1, "A", "S")
	b := join(t, o, 2, "B", "S")
	o.OnFrame(a.id, encode(t, &wire.ScreenShareRequest{Action: wire.ActionStart}))
	a.conn.reset()
	b.conn.reset()

	o.OnFrame(b.id, encode(t, &wire.Screen{Username: "B", Frame: []byte("img")}))
	if len(a.conn.raw()) != 0 {
		t.Fatalf("non-presenter frame relayed")
	}
	if n := o.Metrics.Get(metrics.ScreenFramesDenied); n != 1 {
		t.Fatalf("%s=%d, want 1", metrics.ScreenFramesDenied, n)
	}

	frame := encode(t, &wire.Screen{Username: "A", Frame: []byte("img")})
	o.OnFrame(a.id, frame)
	if got := b.conn.raw(); len(got) != 1 || string(got[0]) != string(frame) {
		t.Fatalf("B frames=%q", got)
	}
}

func TestScreenStopAnnounced(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	a := join(t, o, 1, "A", "S")
	b := join(t, o, 2, "B", "S")
	a.conn.reset()
	b.conn.reset()

	o.OnFrame(a.id, encode(t, &wire.ScreenStop{Username: "A"}))

	if got := ofType[*wire.ScreenStop](t, b.conn); len(got) != 1 {
		t.Fatalf("B screen_stop=%+v", got)
	}
	for name, c := range map[string]*fakeConn{"A": a.conn, "B": b.conn} {
		chats := ofType[*wire.Chat](t, c)
		if len(chats) != 1 || chats[0].Message != "A has stopped sharing their screen" {
			t.Fatalf("%s chats=%+v", name, chats)
		}
	}
}

func TestPresenterStopOnlyByOwner(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	a := join(t, o, 1, "A", "S")
	b := join(t, o, 2, "B", "S")
	o.OnFrame(a.id, encode(t, &wire.ScreenShareRequest{Action: wire.ActionStart}))
	b.conn.reset()

	o.OnFrame(b.id, encode(t, &wire.ScreenShareRequest{Action: wire.ActionStop}))
	if !o.Presenters.IsPresenter("S", a.id) {
		t.Fatalf("non-owner released the role")
	}
	if len(b.conn.raw()) != 0 {
		t.Fatalf("non-owner stop produced records")
	}

	o.OnFrame(a.id, encode(t, &wire.ScreenShareRequest{Action: wire.ActionStop}))
	got := ofType[*wire.PresenterChanged](t, b.conn)
	if len(got) != 1 || got[0].IsPresenting || got[0].Presenter != "" {
		t.Fatalf("B presenter_changed=%+v", got)
	}
}

func TestPresenterDisconnectReleasesRole(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	a := join(t, o, 1, "A", "S")
	b := join(t, o, 2, "B", "S")
	o.OnFrame(a.id, encode(t, &wire.ScreenShareRequest{Action: wire.ActionStart}))
	b.conn.reset()

	o.Disconnect(a.id)

	got := ofType[*wire.PresenterChanged](t, b.conn)
	if len(got) != 1 || got[0].IsPresenting {
		t.Fatalf("B presenter_changed=%+v", got)
	}
	b.conn.reset()
	o.OnFrame(b.id, encode(t, &wire.ScreenShareRequest{Action: wire.ActionStart}))
	if got := ofType[*wire.ScreenShareApproved](t, b.conn); len(got) != 1 {
		t.Fatalf("B not approved after presenter left")
	}
}

func TestStartFromDepartedClientIgnored(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	a := join(t, o, 1, "A", "S")
	stale, _ := o.Registry.User(a.id)
	o.Disconnect(a.id)

	if o.RequestStart(stale) {
		t.Fatalf("role granted to a departed client")
	}

	c := join(t, o, 3, "C", "S")
	c.conn.reset()
	o.OnFrame(c.id, encode(t, &wire.ScreenShareRequest{Action: wire.ActionStart}))
	if got := ofType[*wire.ScreenShareApproved](t, c.conn); len(got) != 1 {
		t.Fatalf("C not approved in a fresh session S, state=%+v", o.Presenters.State("S"))
	}
}

func TestStartFromDepartedMemberOfLiveSession(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	a := join(t, o, 1, "A", "S")
	b := join(t, o, 2, "B", "S")
	stale, _ := o.Registry.User(a.id)
	o.Disconnect(a.id)
	b.conn.reset()

	if o.RequestStart(stale) {
		t.Fatalf("role granted to a departed client")
	}
	if got := ofType[*wire.PresenterChanged](t, b.conn); len(got) != 0 {
		t.Fatalf("presenter change announced for a departed client: %+v", got)
	}
	if st := o.Presenters.State("S"); st.Phase != domain.Idle {
		t.Fatalf("presenter state=%+v, want idle", st)
	}
}
