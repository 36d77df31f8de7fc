package domain

// PresenterPhase is the state of a session's screen-share role.
type PresenterPhase int

const (
	Idle PresenterPhase = iota
	Presenting
)

func (p PresenterPhase) String() string {
	if p == Presenting {
		return "presenting"
	}
	return "idle"
}

// Presenter identifies the holder of the screen-share role.
type Presenter struct {
	ID   ClientID `json:"id"`
	Name string   `json:"name"`
}

// PresenterState is Idle with a zero Owner, or Presenting with the owner set.
type PresenterState struct {
	Phase PresenterPhase
	Owner Presenter
}
