package core

import "errors"

var (
	// ErrBackpressure means a connection's send queue is full.
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)
