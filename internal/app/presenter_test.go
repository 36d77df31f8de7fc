package app

import (
	"sync"
	"testing"

	"github.com/dkeye/confrelay/internal/domain"
)

func TestPresenterStartStop(t *testing.T) {
	a := NewPresenterArbiter(nil)
	var changes []domain.PresenterState
	record := func(st domain.PresenterState) { changes = append(changes, st) }

	if _, ok := a.RequestStart("S", domain.Presenter{ID: "a", Name: "A"}, record); !ok {
		t.Fatalf("start denied on idle session")
	}
	st, ok := a.RequestStart("S", domain.Presenter{ID: "b", Name: "B"}, record)
	if ok {
		t.Fatalf("second start approved")
	}
	if st.Owner.Name != "A" {
		t.Fatalf("denial names %q, want A", st.Owner.Name)
	}
	if a.RequestStop("S", "b", record) {
		t.Fatalf("non-owner stop succeeded")
	}
	if !a.RequestStop("S", "a", record) {
		t.Fatalf("owner stop failed")
	}
	if len(changes) != 2 || changes[0].Phase != domain.Presenting || changes[1].Phase != domain.Idle {
		t.Fatalf("changes=%+v", changes)
	}
	if a.State("S").Phase != domain.Idle {
		t.Fatalf("state=%v, want idle", a.State("S").Phase)
	}
}

func TestPresenterConcurrentStartOneWinner(t *testing.T) {
	for range 50 {
		a := NewPresenterArbiter(nil)
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners []string
			denials []string
		)
		for _, name := range []string{"A", "B", "C", "D"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				st, ok := a.RequestStart("S", domain.Presenter{ID: domain.ClientID(name), Name: name}, nil)
				mu.Lock()
				defer mu.Unlock()
				if ok {
					winners = append(winners, name)
				} else {
					denials = append(denials, st.Owner.Name)
				}
			}()
		}
		wg.Wait()
		if len(winners) != 1 {
			t.Fatalf("winners=%v, want exactly one", winners)
		}
		for _, d := range denials {
			if d != winners[0] {
				t.Fatalf("denial names %q, want winner %q", d, winners[0])
			}
		}
	}
}

func TestPresenterClear(t *testing.T) {
	a := NewPresenterArbiter(nil)
	a.RequestStart("S", domain.Presenter{ID: "a", Name: "A"}, nil)
	a.Clear("S")
	if a.IsPresenter("S", "a") {
		t.Fatalf("presenter survived Clear")
	}
}

func TestPresenterUnknownSessionDenied(t *testing.T) {
	d := NewSessionDirectory()
	a := NewPresenterArbiter(d)

	st, ok := a.RequestStart("S", domain.Presenter{ID: "a", Name: "A"}, nil)
	if ok || st.Phase != domain.Idle {
		t.Fatalf("RequestStart on missing session=%+v,%v, want denied", st, ok)
	}

	d.Join("S", "c", "C")
	if _, ok := a.RequestStart("S", domain.Presenter{ID: "c", Name: "C"}, nil); !ok {
		t.Fatalf("start denied in a live session")
	}
}
