package app

import "errors"

var (
	ErrNotConnected      = errors.New("client not connected")
	ErrFileNotAvailable  = errors.New("file not available")
	ErrFileIncomplete    = errors.New("file information is incomplete")
	ErrOwnerDisconnected = errors.New("file owner is no longer connected")
)
