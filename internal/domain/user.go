// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/google/uuid"
)

const (
	MaxUsernameLen    = 64
	MaxSessionNameLen = 64
)

// DefaultSession is joined by clients that register without naming one.
const DefaultSession SessionName = "Main Session"

// SystemSender is the sender name of server generated chat lines.
const SystemSender = "System"

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrSessionTooLong  = errors.New("session name too long")
)

// ClientID is the stable identity of one control-channel connection.
type ClientID string

func NewClientID() ClientID {
	return ClientID(uuid.NewString())
}

type SessionName string

// User is the registration state of a connected client.
// Username and Session are empty until the first register_udp.
type User struct {
	ID       ClientID       `json:"id"`
	Remote   netip.AddrPort `json:"-"`
	Username string         `json:"username"`
	Session  SessionName    `json:"session"`
}

func (u *User) Registered() bool { return u.Username != "" && u.Session != "" }

// FallbackUsername is the name given to clients that register anonymously.
func FallbackUsername(remote netip.AddrPort) string {
	return fmt.Sprintf("User-%s:%d", remote.Addr(), remote.Port())
}

// NormalizeRegistration applies defaults and length limits to a registration.
func NormalizeRegistration(remote netip.AddrPort, username string, session SessionName) (string, SessionName, error) {
	if username == "" {
		username = FallbackUsername(remote)
	}
	if session == "" {
		session = DefaultSession
	}
	if len(username) > MaxUsernameLen {
		return "", "", ErrUsernameTooLong
	}
	if len(session) > MaxSessionNameLen {
		return "", "", ErrSessionTooLong
	}
	return username, session, nil
}
