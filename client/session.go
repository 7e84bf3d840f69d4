package client

import (
	"context"
	"errors"

	"github.com/Mmx233/rvlink/config"
	"github.com/rs/zerolog"
)

// WithSession connects to the control port with retry, bounded by
// cfg.ConnectTimeout, runs fn and closes the connection on every exit path.
func WithSession(ctx context.Context, cfg config.Client, logger zerolog.Logger, fn func(*Connection) error, opts ...Option) error {
	return WithConnection(ctx, New(cfg, logger, opts...), fn)
}

// WithConnection is WithSession for a caller-built Connection.
// The connection is closed even when connecting fails.
func WithConnection(ctx context.Context, conn *Connection, fn func(*Connection) error) (err error) {
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	if err := conn.ConnectWithRetry(ctx, conn.Config().ConnectTimeout); err != nil {
		return err
	}
	return fn(conn)
}
