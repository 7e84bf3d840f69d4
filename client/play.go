package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mmx233/rvlink/config"
	"github.com/Mmx233/rvlink/protocol"
	"github.com/rs/zerolog"
)

// ErrMissingFolder means the review application cannot be launched because
// the request carries no folder to open it in.
var ErrMissingFolder = errors.New("representation has no folder, the review application cannot be started")

// ErrNothingToPlay is returned for a request without representations.
var ErrNothingToPlay = errors.New("no representation to play")

// LaunchContext is the pipeline context the review application starts in.
type LaunchContext struct {
	Project string
	Folder  string
	Task    string // optional
}

// Launcher starts the review application with networking enabled.
type Launcher interface {
	Launch(ctx context.Context, lc LaunchContext) error
}

// PlayRequest asks the review application to load representations.
type PlayRequest struct {
	LaunchContext
	Representations []protocol.LoadRequest
}

// Player opens representations in the review application, starting it first
// when nothing is listening on the control port.
type Player struct {
	cfg      config.Client
	launcher Launcher // nil disables launching
	opts     []Option
	logger   zerolog.Logger
}

// NewPlayer creates a Player. launcher may be nil.
func NewPlayer(cfg config.Client, launcher Launcher, logger zerolog.Logger, opts ...Option) *Player {
	return &Player{
		cfg:      cfg,
		launcher: launcher,
		opts:     opts,
		logger:   logger.With().Str("com", "player").Logger(),
	}
}

// Play sends one load_container event for the request. A *TimeoutError is
// returned unchanged so callers can show its diagnostic message.
func (p *Player) Play(ctx context.Context, req PlayRequest) error {
	if len(req.Representations) == 0 {
		return ErrNothingToPlay
	}
	contents, err := protocol.EncodeLoadRequests(req.Representations)
	if err != nil {
		return fmt.Errorf("encode load requests: %w", err)
	}

	conn := New(p.cfg, p.logger, p.opts...)
	if err := conn.Connect(ctx); err != nil {
		p.logger.Debug().Err(err).Msg("review application not reachable")
		if err := p.launch(ctx, req.LaunchContext); err != nil {
			_ = conn.Close()
			return err
		}
	}

	return WithConnection(ctx, conn, func(conn *Connection) error {
		_, err := conn.SendEvent(ctx, protocol.EventLoadContainer, contents, false)
		if err != nil {
			return fmt.Errorf("send %s: %w", protocol.EventLoadContainer, err)
		}
		p.logger.Info().Int("count", len(req.Representations)).Msg("load requested")
		return nil
	})
}

func (p *Player) launch(ctx context.Context, lc LaunchContext) error {
	if p.launcher == nil {
		p.logger.Debug().Msg("no launcher configured, waiting for a running review application")
		return nil
	}
	if lc.Folder == "" {
		return ErrMissingFolder
	}

	p.logger.Info().
		Str("project", lc.Project).
		Str("folder", lc.Folder).
		Str("task", lc.Task).
		Msg("launching review application")
	if err := p.launcher.Launch(ctx, lc); err != nil {
		return fmt.Errorf("launch review application: %w", err)
	}
	return nil
}
