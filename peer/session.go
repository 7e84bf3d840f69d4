package peer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mmx233/rvlink/protocol"
	"github.com/rs/zerolog"
)

const (
	writeTimeout = 5 * time.Second
	outboxSize   = 16
)

var errPongTimeout = errors.New("controller did not answer ping")

// session serves one controller. Only the run goroutine writes to conn.
type session struct {
	id          uint64
	conn        net.Conn
	server      *Server
	connectedAt time.Time
	outbox      chan string
	greeted     atomic.Bool
	logger      zerolog.Logger

	mu     sync.Mutex
	client string

	// owned by run
	pings        bool
	awaitingPong bool
}

type readResult struct {
	frame protocol.Frame
	err   error
}

func newSession(id uint64, conn net.Conn, server *Server) *session {
	return &session{
		id:          id,
		conn:        conn,
		server:      server,
		connectedAt: time.Now(),
		outbox:      make(chan string, outboxSize),
		pings:       true,
		logger: server.logger.With().
			Uint64("session", id).
			Str("remote", conn.RemoteAddr().String()).
			Logger(),
	}
}

func (s *session) info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		ID:          s.id,
		Client:      s.client,
		Remote:      s.conn.RemoteAddr().String(),
		ConnectedAt: s.connectedAt,
	}
}

func (s *session) enqueue(body string) bool {
	if !s.greeted.Load() {
		return false
	}
	select {
	case s.outbox <- body:
		return true
	default:
		return false
	}
}

// run serves the session until the controller disconnects, the connection
// fails or ctx ends. A nil error means the controller sent DISCONNECT.
func (s *session) run(ctx context.Context) error {
	frames := make(chan readResult)
	done := make(chan struct{})
	readerDone := make(chan struct{})

	go func() {
		defer close(readerDone)
		r := bufio.NewReader(s.conn)
		for {
			frame, err := protocol.ReadFrame(r)
			select {
			case frames <- readResult{frame: frame, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	defer func() {
		close(done)
		_ = s.conn.Close()
		<-readerDone
	}()

	var tick <-chan time.Time
	if interval := s.server.cfg.PingInterval; interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			if s.greeted.Load() {
				_ = s.write(protocol.TypeMessage, protocol.BodyDisconnect)
			}
			return ctx.Err()

		case body := <-s.outbox:
			if err := s.write(protocol.TypeMessage, body); err != nil {
				return err
			}

		case <-tick:
			if !s.greeted.Load() || !s.pings {
				continue
			}
			if s.awaitingPong {
				return errPongTimeout
			}
			if err := s.write(protocol.TypePing, "p"); err != nil {
				return err
			}
			s.awaitingPong = true

		case res := <-frames:
			if res.err != nil {
				return res.err
			}
			s.server.metrics.FrameReceived(res.frame.Type)
			stop, err := s.handleFrame(ctx, res.frame)
			if err != nil || stop {
				return err
			}
		}
	}
}

// handleFrame reacts to one frame. stop is true when the controller ended the session.
func (s *session) handleFrame(ctx context.Context, frame protocol.Frame) (stop bool, err error) {
	s.logger.Trace().Str("frame_type", frame.Type).Int("length", len(frame.Payload)).Msg("frame received")

	switch frame.Type {
	case protocol.TypeNewGreeting, protocol.TypeGreeting:
		client := strings.TrimSuffix(frame.Body(), " "+protocol.ControllerRole)
		s.mu.Lock()
		s.client = client
		s.mu.Unlock()
		s.logger = s.logger.With().Str("client_name", client).Logger()
		s.greeted.Store(true)
		s.logger.Info().Msg("controller greeted")
		if frame.Type == protocol.TypeNewGreeting {
			return false, s.write(protocol.TypeGreeting, s.server.cfg.Name+" "+protocol.ControllerRole)
		}

	case protocol.TypePingPongControl:
		s.pings = frame.Body() == "1"
		s.awaitingPong = false
		s.logger.Debug().Bool("pings", s.pings).Msg("ping control")

	case protocol.TypePing:
		return false, s.write(protocol.TypePong, "p")

	case protocol.TypePong:
		s.awaitingPong = false

	case protocol.TypeMessage:
		if frame.IsDisconnect() {
			return true, nil
		}
		return false, s.handleMessage(ctx, frame.Body())

	default:
		s.logger.Debug().Str("frame_type", frame.Type).Msg("frame ignored")
	}
	return false, nil
}

func (s *session) handleMessage(ctx context.Context, body string) error {
	eb, ok, err := protocol.ParseEventBody(body)
	if err != nil {
		s.logger.Warn().Err(err).Msg("malformed event")
		return nil
	}
	if !ok {
		s.logger.Info().Str("body", body).Msg("message")
		return nil
	}

	s.mu.Lock()
	ev := &Event{body: eb, client: s.client}
	s.mu.Unlock()

	var reply string
	if s.server.handler != nil {
		reply, err = s.server.handler.HandleEvent(ctx, ev)
		if err != nil {
			s.logger.Error().Err(err).Str("event", ev.Name()).Str("target", ev.Target()).Msg("event handler failed")
			reply = ""
		}
	} else {
		s.logger.Info().Str("event", ev.Name()).Str("target", ev.Target()).Str("contents", ev.Contents()).Msg("event")
	}

	if ev.WantsReturn() {
		return s.write(protocol.TypeReturn, reply)
	}
	return nil
}

func (s *session) write(frameType, payload string) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := protocol.WriteFrame(s.conn, frameType, []byte(payload)); err != nil {
		return err
	}
	s.server.metrics.FrameSent(frameType)
	return nil
}
