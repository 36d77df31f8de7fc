package app

import (
	"errors"

	"github.com/dkeye/confrelay/internal/core"
	"github.com/dkeye/confrelay/internal/domain"
)

type FailureAction int

const (
	NoAction FailureAction = iota
	KickMember
)

// Policy decides what happens to a member whose reliable delivery failed.
// It runs after the fan-out finished, never while membership is iterated.
type Policy interface {
	OnDeliveryFailure(id domain.ClientID, err error) FailureAction
}

// SimplePolicy kicks members whose queue overflowed. A closed connection is
// left alone: its reader is already running the disconnect.
type SimplePolicy struct{}

func (SimplePolicy) OnDeliveryFailure(_ domain.ClientID, err error) FailureAction {
	if errors.Is(err, core.ErrConnClosed) {
		return NoAction
	}
	return KickMember
}
