package peer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mmx233/rvlink/config"
	"github.com/Mmx233/rvlink/metrics"
	"github.com/Mmx233/rvlink/tools"
	"github.com/rs/zerolog"
)

// Server is the review application's side of the control protocol: it
// greets controllers, keeps them alive with pings and routes their events.
type Server struct {
	cfg     config.Peer
	handler EventHandler
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu       sync.Mutex
	sessions map[uint64]*session
	nextID   atomic.Uint64
	wg       sync.WaitGroup
}

// Option customizes a Server.
type Option func(*Server)

// WithMetrics records frame counts on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a Server. handler may be nil, events are then only logged.
// cfg should have defaults applied.
func New(cfg config.Peer, handler EventHandler, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		handler:  handler,
		sessions: make(map[uint64]*session),
		logger:   logger.With().Str("com", "peer").Str("peer_name", cfg.Name).Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenAndServe listens on the configured address and serves until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts controllers on ln until ctx ends, then closes every session
// and returns once they have all finished. ln is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		_ = ln.Close()
	}()

	s.logger.Info().Str("listen", ln.Addr().String()).Msg("peer listening")

	var serveErr error
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() == nil {
				serveErr = fmt.Errorf("accept: %w", err)
				s.logger.Error().Err(err).Msg("accept connection failed")
			}
			break
		}

		s.wg.Add(1)
		go s.handleConnection(ctx, conn)
	}

	cancel()
	<-stopped
	s.wg.Wait()
	s.logger.Info().Msg("peer stopped")
	return serveErr
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()

	sess := newSession(s.nextID.Add(1), conn, s)
	s.add(sess)
	defer s.remove(sess)

	sess.logger.Info().Msg("controller connected")
	err := sess.run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		sess.logger.Info().Msg("controller disconnected")
	case tools.IsExpectedClose(err):
		sess.logger.Debug().Err(err).Msg("controller went away")
	default:
		sess.logger.Warn().Err(err).Msg("session ended with error")
	}
}

func (s *Server) add(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.id] = sess
}

func (s *Server) remove(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess.id)
}

// SessionInfo describes a connected controller.
type SessionInfo struct {
	ID          uint64
	Client      string // empty until the controller greeted
	Remote      string
	ConnectedAt time.Time
}

// Sessions lists connected controllers ordered by id.
func (s *Server) Sessions() []SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		infos = append(infos, sess.info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Broadcast queues a MESSAGE for every greeted controller and returns how
// many accepted it. Controllers with a full queue are skipped.
func (s *Server) Broadcast(body string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	sent := 0
	for _, sess := range s.sessions {
		if sess.enqueue(body) {
			sent++
		}
	}
	return sent
}
