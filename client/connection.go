package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/Mmx233/rvlink/config"
	"github.com/Mmx233/rvlink/metrics"
	"github.com/Mmx233/rvlink/protocol"
	"github.com/Mmx233/rvlink/tools"
	"github.com/rs/zerolog"
)

// ConnectionState represents the state of the control-port session
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateClosing
)

// String returns a string representation of the connection state
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// DialFunc opens the TCP socket for one attempt.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// MessageHandler receives MESSAGE bodies other than DISCONNECT.
type MessageHandler func(body string)

// Connection is a client session with the review application's control port.
//
// A Connection is owned by a single goroutine: it never reads or writes from
// a background goroutine, and the receive loop only runs while a caller is
// blocked in SendEvent or Drain. State may be read concurrently.
type Connection struct {
	cfg     config.Client
	backoff Backoff

	// socket, exclusive; replaced on every attempt
	conn   net.Conn
	reader *bufio.Reader

	state         atomic.Int32
	attempts      int
	lastElapsed   time.Duration
	everConnected bool

	clock     Clock
	dial      DialFunc
	onMessage MessageHandler
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// Option customizes a Connection.
type Option func(*Connection)

// WithClock replaces the clock driving retries and the close grace period.
func WithClock(clock Clock) Option {
	return func(c *Connection) {
		c.clock = clock
	}
}

// WithDialer replaces the function opening sockets.
func WithDialer(dial DialFunc) Option {
	return func(c *Connection) {
		c.dial = dial
	}
}

// WithMessageHandler sets the callback for application messages.
func WithMessageHandler(handler MessageHandler) Option {
	return func(c *Connection) {
		c.onMessage = handler
	}
}

// WithMetrics records connection activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Connection) {
		c.metrics = m
	}
}

// New creates a disconnected Connection. cfg should have defaults applied.
func New(cfg config.Client, logger zerolog.Logger, opts ...Option) *Connection {
	c := &Connection{
		cfg:     cfg,
		backoff: NewBackoff(cfg.Backoff),
		clock:   RealClock(),
		logger: logger.With().
			Str("com", "connection").
			Str("address", cfg.Address()).
			Str("client_name", cfg.Name).
			Logger(),
	}
	c.dial = (&net.Dialer{}).DialContext
	c.onMessage = func(body string) {
		c.logger.Debug().Str("body", body).Msg("received message")
	}
	for _, opt := range opts {
		opt(c)
	}

	c.state.Store(int32(StateDisconnected))
	return c
}

// State returns the current connection state.
func (c *Connection) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// IsConnected reports whether the session completed its handshake and is live.
func (c *Connection) IsConnected() bool {
	return c.State() == StateConnected
}

// Attempts returns the number of failed attempts since the last success.
func (c *Connection) Attempts() int {
	return c.attempts
}

// LastElapsed returns how long the last ConnectWithRetry took.
func (c *Connection) LastElapsed() time.Duration {
	return c.lastElapsed
}

// Config returns the configuration the connection was created with.
func (c *Connection) Config() config.Client {
	return c.cfg
}

func (c *Connection) setState(s ConnectionState) {
	c.state.Store(int32(s))
}

// Connect makes a single connection attempt. It is a no-op when already connected.
// On failure the socket is closed and discarded, the state returns to
// disconnected and the attempt counter stays incremented.
func (c *Connection) Connect(ctx context.Context) error {
	if c.IsConnected() {
		return nil
	}

	c.setState(StateConnecting)
	c.logger.Debug().Int("attempt", c.attempts+1).Msg("connecting to review application")

	conn, reader, err := c.handshake(ctx)
	c.metrics.ConnectAttempt(err)
	if err != nil {
		c.attempts++
		c.setState(StateDisconnected)
		return err
	}

	c.conn = conn
	c.reader = reader
	c.attempts = 0
	c.everConnected = true
	c.setState(StateConnected)
	c.logger.Info().Msg("connected to review application")

	return nil
}

// handshake dials a fresh socket and exchanges greetings on it.
// The socket is closed on any failure.
func (c *Connection) handshake(ctx context.Context) (conn net.Conn, reader *bufio.Reader, err error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.IOTimeout)
	defer cancel()

	conn, err = c.dial(dialCtx, "tcp", c.cfg.Address())
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", c.cfg.Address(), err)
	}
	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()

	deadline := time.Now().Add(c.cfg.IOTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err = conn.SetDeadline(deadline); err != nil {
		return nil, nil, fmt.Errorf("set handshake deadline: %w", err)
	}

	if err = protocol.WriteNewGreeting(conn, c.cfg.Name); err != nil {
		return nil, nil, fmt.Errorf("send greeting: %w", err)
	}
	c.metrics.FrameSent(protocol.TypeNewGreeting)
	if err = protocol.WritePingPongControl(conn, false); err != nil {
		return nil, nil, fmt.Errorf("send ping control: %w", err)
	}
	c.metrics.FrameSent(protocol.TypePingPongControl)

	reader = bufio.NewReader(conn)
	if c.cfg.WaitsForGreeting() {
		if err = c.awaitGreeting(conn, reader); err != nil {
			return nil, nil, err
		}
	}

	if err = conn.SetDeadline(time.Time{}); err != nil {
		return nil, nil, fmt.Errorf("clear handshake deadline: %w", err)
	}
	return conn, reader, nil
}

// awaitGreeting reads frames until the peer greets back. PINGs that race the
// ping control frame are still answered.
func (c *Connection) awaitGreeting(conn net.Conn, reader *bufio.Reader) error {
	for {
		frame, err := protocol.ReadFrame(reader)
		if err != nil {
			return fmt.Errorf("await greeting: %w", err)
		}
		c.metrics.FrameReceived(frame.Type)

		switch frame.Type {
		case protocol.TypeGreeting, protocol.TypeNewGreeting:
			c.logger.Debug().Str("greeting", frame.Body()).Msg("peer greeted")
			return nil
		case protocol.TypePing:
			if err := protocol.WritePong(conn); err != nil {
				return fmt.Errorf("answer ping: %w", err)
			}
			c.metrics.FrameSent(protocol.TypePong)
		case protocol.TypeMessage:
			if frame.IsDisconnect() {
				return fmt.Errorf("await greeting: %w", ErrPeerDisconnected)
			}
			c.logger.Debug().Str("body", frame.Body()).Msg("message before greeting ignored")
		default:
			c.logger.Debug().Str("frame_type", frame.Type).Msg("frame before greeting ignored")
		}
	}
}

// ConnectWithRetry calls Connect with exponential backoff until it succeeds
// or the next retry would end after budget, in which case a *TimeoutError
// is returned. No socket is left open on failure.
func (c *Connection) ConnectWithRetry(ctx context.Context, budget time.Duration) error {
	start := c.clock.Now()

	for attempt := 1; ; attempt++ {
		remaining := budget - c.clock.Now().Sub(start)
		attemptCtx, cancel := context.WithTimeout(ctx, remaining)
		err := c.Connect(attemptCtx)
		cancel()

		elapsed := c.clock.Now().Sub(start)
		c.lastElapsed = elapsed
		if err == nil {
			c.logger.Debug().Dur("elapsed", elapsed).Int("attempt", attempt).Msg("connect with retry succeeded")
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("connect %s: %w", c.cfg.Address(), ctx.Err())
		}

		delay := c.backoff.Delay(attempt)
		if elapsed+delay > budget {
			c.logger.Warn().
				Err(err).
				Dur("elapsed", elapsed).
				Int("attempts", attempt).
				Msg("giving up connecting to review application")
			return &TimeoutError{
				Host:     c.cfg.Host,
				Port:     c.cfg.Port,
				Name:     c.cfg.Name,
				Elapsed:  elapsed,
				Attempts: attempt,
				Err:      err,
			}
		}

		c.logger.Trace().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("connect failed, retrying")
		select {
		case <-ctx.Done():
			return fmt.Errorf("connect %s: %w", c.cfg.Address(), ctx.Err())
		case <-c.clock.After(delay):
		}
	}
}

// unavailable is returned by operations attempted while not connected.
func (c *Connection) unavailable() error {
	if c.everConnected {
		return ErrConnectionLost
	}
	return ErrNotConnected
}

// writeFrame writes one frame under the I/O deadline. A failed write drops the session.
func (c *Connection) writeFrame(frameType string, payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.IOTimeout)); err != nil {
		c.drop(err)
		return lost("set write deadline", err)
	}
	if err := protocol.WriteFrame(c.conn, frameType, payload); err != nil {
		c.drop(err)
		return lost("send", err)
	}
	c.metrics.FrameSent(frameType)
	return nil
}

// SendMessage sends body as a MESSAGE frame. It does nothing and returns
// ErrNotConnected or ErrConnectionLost when there is no live session.
// A write failure closes the connection.
func (c *Connection) SendMessage(body string) error {
	if !c.IsConnected() {
		return c.unavailable()
	}
	c.logger.Trace().Str("body", body).Msg("send message")
	return c.writeFrame(protocol.TypeMessage, []byte(body))
}

// SendEvent sends "RETURNEVENT <name> * <contents>". With awaitReply it runs
// the receive loop on the calling goroutine until a RETURN frame arrives and
// returns its payload; the wait is capped by the reply timeout.
func (c *Connection) SendEvent(ctx context.Context, name, contents string, awaitReply bool) (string, error) {
	if err := c.SendMessage(protocol.FormatReturnEvent(name, contents)); err != nil {
		return "", err
	}
	if !awaitReply {
		return "", nil
	}

	start := time.Now()
	reply, err := c.process(ctx, true)
	c.metrics.ReplyWait(time.Since(start))
	if err != nil {
		return "", fmt.Errorf("await reply to %s: %w", name, err)
	}
	return reply, nil
}

// Drain handles every frame that is already available, answering PINGs and
// delivering messages, then returns. A peer DISCONNECT closes the session
// and is not reported as an error.
func (c *Connection) Drain(ctx context.Context) error {
	if !c.IsConnected() {
		return c.unavailable()
	}
	_, err := c.process(ctx, false)
	if errors.Is(err, ErrPeerDisconnected) {
		return nil
	}
	return err
}

// Close ends the session: a best-effort DISCONNECT, the grace period, then
// an orderly shutdown of both directions. Close is idempotent.
func (c *Connection) Close() error {
	if c.conn == nil {
		c.setState(StateDisconnected)
		return nil
	}

	if c.IsConnected() {
		c.setState(StateClosing)
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.IOTimeout)); err == nil {
			if err := protocol.WriteDisconnect(c.conn); err != nil {
				c.logger.Debug().Err(err).Msg("send disconnect failed")
			} else {
				c.metrics.FrameSent(protocol.TypeMessage)
				<-c.clock.After(c.cfg.CloseGrace)
			}
		}
	}

	err := c.shutdown()
	c.logger.Info().Msg("connection closed")
	return err
}

// drop tears the session down after an I/O failure, without DISCONNECT.
func (c *Connection) drop(cause error) {
	if c.conn == nil {
		return
	}
	if tools.IsExpectedClose(cause) {
		c.logger.Debug().Err(cause).Msg("connection dropped by peer")
	} else {
		c.logger.Warn().Err(cause).Msg("connection lost")
	}
	_ = c.shutdown()
}

// shutdown closes both directions, releases the socket and marks the session disconnected.
func (c *Connection) shutdown() error {
	conn := c.conn
	c.conn = nil
	c.reader = nil
	c.setState(StateDisconnected)

	if half, ok := conn.(interface {
		CloseWrite() error
		CloseRead() error
	}); ok {
		_ = half.CloseWrite()
		_ = half.CloseRead()
	}

	if err := conn.Close(); err != nil && !tools.IsExpectedClose(err) {
		return fmt.Errorf("close socket: %w", err)
	}
	return nil
}

// isTimeout reports whether err is a deadline expiry.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
