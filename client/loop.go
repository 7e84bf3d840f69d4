package client

import (
	"context"
	"fmt"
	"time"

	"github.com/Mmx233/rvlink/protocol"
)

// process runs the receive loop on the calling goroutine.
//
// With awaitReply it returns the payload of the first RETURN frame, failing
// with ErrReplyTimeout once the reply timeout has passed in wall-clock time,
// however busy the peer keeps the socket. Giving up early, on timeout or on
// ctx, drops the session since the late RETURN cannot be told apart.
// Without it, it returns as soon as a poll finds no pending data.
func (c *Connection) process(ctx context.Context, awaitReply bool) (string, error) {
	var deadline time.Time
	if awaitReply {
		deadline = time.Now().Add(c.cfg.ReplyTimeout)
	}

	for {
		if err := ctx.Err(); err != nil {
			if awaitReply && c.IsConnected() {
				// the RETURN is still owed and would answer the next request
				c.drop(err)
				return "", lost("await reply", err)
			}
			return "", err
		}
		if !c.IsConnected() {
			return "", c.unavailable()
		}
		if awaitReply && time.Now().After(deadline) {
			c.logger.Warn().Dur("reply_timeout", c.cfg.ReplyTimeout).Msg("no reply from review application")
			c.drop(ErrReplyTimeout)
			return "", ErrReplyTimeout
		}

		frame, ok, err := c.receiveFrame()
		if err != nil {
			c.drop(err)
			return "", lost("receive", err)
		}
		if !ok {
			if !awaitReply {
				return "", nil
			}
			continue
		}

		reply, done, err := c.dispatch(frame, awaitReply)
		if err != nil {
			return "", err
		}
		if done {
			return reply, nil
		}
	}
}

// receiveFrame waits up to the poll interval for data and, when some is
// pending, reads one whole frame under the I/O deadline. ok is false when
// nothing arrived.
func (c *Connection) receiveFrame() (frame protocol.Frame, ok bool, err error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PollInterval)); err != nil {
		return protocol.Frame{}, false, fmt.Errorf("set poll deadline: %w", err)
	}
	if _, err := c.reader.Peek(1); err != nil {
		if isTimeout(err) {
			return protocol.Frame{}, false, nil
		}
		return protocol.Frame{}, false, err
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.IOTimeout)); err != nil {
		return protocol.Frame{}, false, fmt.Errorf("set read deadline: %w", err)
	}
	frame, err = protocol.ReadFrame(c.reader)
	if err != nil {
		return protocol.Frame{}, false, err
	}

	c.metrics.FrameReceived(frame.Type)
	c.logger.Trace().Str("frame_type", frame.Type).Int("length", len(frame.Payload)).Msg("frame received")
	return frame, true, nil
}

// dispatch handles one frame. done is true when the frame completes an
// await-reply loop, reply then holds the RETURN payload.
func (c *Connection) dispatch(frame protocol.Frame, awaitReply bool) (reply string, done bool, err error) {
	switch frame.Type {
	case protocol.TypeMessage:
		if frame.IsDisconnect() {
			c.logger.Info().Msg("review application sent disconnect")
			_ = c.shutdown()
			return "", false, ErrPeerDisconnected
		}
		if c.onMessage != nil {
			c.onMessage(frame.Body())
		}

	case protocol.TypePing:
		if err := c.writeFrame(protocol.TypePong, []byte("p")); err != nil {
			return "", false, err
		}

	case protocol.TypePong, protocol.TypeGreeting, protocol.TypeNewGreeting:
		c.logger.Debug().Str("frame_type", frame.Type).Str("payload", frame.Body()).Msg("acknowledged")

	case protocol.TypeReturn:
		if awaitReply {
			return frame.Body(), true, nil
		}
		c.logger.Debug().Str("payload", frame.Body()).Msg("unsolicited return ignored")

	default:
		c.logger.Debug().Str("frame_type", frame.Type).Msg("unknown frame type ignored")
	}

	return "", false, nil
}
