package client

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConnectionTimeout matches every *TimeoutError.
	ErrConnectionTimeout = errors.New("connection timeout")

	// ErrNotConnected is returned by operations on a connection that never connected.
	ErrNotConnected = errors.New("not connected")

	// ErrConnectionLost is returned once a connected session has dropped.
	// Operations stay no-ops until Connect succeeds again.
	ErrConnectionLost = errors.New("connection lost")

	// ErrPeerDisconnected means the peer ended the session with DISCONNECT.
	ErrPeerDisconnected = fmt.Errorf("%w: peer sent DISCONNECT", ErrConnectionLost)

	// ErrReplyTimeout means no RETURN arrived within the reply timeout.
	ErrReplyTimeout = fmt.Errorf("%w: no reply within deadline", ErrConnectionLost)
)

// TimeoutError reports a connect-with-retry budget exhausted before a session
// was established. It carries what an operator needs to tell a wrong port
// from an application that has not started yet.
type TimeoutError struct {
	Host     string
	Port     int
	Name     string
	Elapsed  time.Duration
	Attempts int
	Err      error // last attempt error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf(
		"connection timeout: tried %d times over %v with host=%s port=%d name=%q; "+
			"check that the review application is running with networking enabled on the configured port",
		e.Attempts, e.Elapsed.Round(time.Millisecond), e.Host, e.Port, e.Name,
	)
	if e.Err != nil {
		msg += ": last error: " + e.Err.Error()
	}
	return msg
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrConnectionTimeout
}

// lost wraps an I/O failure so callers can match ErrConnectionLost while the
// original cause (including *protocol.DecodeError) stays reachable.
func lost(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrConnectionLost, op, err)
}
