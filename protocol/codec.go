package protocol

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Wire format: TYPE<SP>LENGTH<SP>PAYLOAD, LENGTH is the ASCII decimal byte count.

const (
	// MaxTypeLength bounds the TYPE token so garbage input fails fast.
	MaxTypeLength = 32
	// MaxLengthDigits bounds the LENGTH token.
	MaxLengthDigits = 10
	// MaxPayloadSize prevents excessive memory allocation on a bad length.
	MaxPayloadSize = 10 * 1024 * 1024
)

const delimiter = ' '

// DecodeError reports a malformed frame header.
type DecodeError struct {
	Field  string // "type" or "length"
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame %s: %s", e.Field, e.Reason)
}

// ByteReader is what ReadFrame needs from its source, *bufio.Reader satisfies it.
type ByteReader interface {
	io.Reader
	io.ByteReader
}

// AppendFrame appends the wire encoding of a frame to dst.
func AppendFrame(dst []byte, frameType string, payload []byte) []byte {
	dst = append(dst, frameType...)
	dst = append(dst, delimiter)
	dst = strconv.AppendInt(dst, int64(len(payload)), 10)
	dst = append(dst, delimiter)
	return append(dst, payload...)
}

// WriteFrame writes a frame to w with a single Write call.
func WriteFrame(w io.Writer, frameType string, payload []byte) error {
	if err := validateType(frameType); err != nil {
		return err
	}

	buf := GetBufferWithSize(len(frameType) + len(payload) + MaxLengthDigits + 2)
	defer PutBuffer(buf)

	buf.Write(AppendFrame(buf.AvailableBuffer(), frameType, payload))

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write %s frame: %w", frameType, err)
	}
	return nil
}

// ReadFrame reads exactly one frame.
// io.EOF is returned unwrapped only when the stream ends cleanly between frames;
// a stream ending inside a frame yields io.ErrUnexpectedEOF.
func ReadFrame(r ByteReader) (Frame, error) {
	frameType, err := readToken(r, MaxTypeLength, "type")
	if err != nil {
		return Frame{}, err
	}
	if err := validateType(frameType); err != nil {
		return Frame{}, err
	}

	lengthToken, err := readToken(r, MaxLengthDigits, "length")
	if err != nil {
		return Frame{}, noEOF(err)
	}
	length, err := parseLength(lengthToken)
	if err != nil {
		return Frame{}, err
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("read %s payload: %w", frameType, noEOF(err))
	}

	return Frame{Type: frameType, Payload: payload}, nil
}

// readToken reads bytes up to the next delimiter, which is consumed and not returned.
func readToken(r io.ByteReader, limit int, field string) (string, error) {
	var token [MaxTypeLength]byte
	n := 0
	for {
		b, err := r.ReadByte()
		if err != nil {
			if n > 0 {
				return "", fmt.Errorf("read %s: %w", field, noEOF(err))
			}
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", fmt.Errorf("read %s: %w", field, err)
		}
		if b == delimiter {
			if n == 0 {
				return "", &DecodeError{Field: field, Reason: "empty token"}
			}
			return string(token[:n]), nil
		}
		if n == limit {
			return "", &DecodeError{Field: field, Reason: fmt.Sprintf("token longer than %d bytes", limit)}
		}
		token[n] = b
		n++
	}
}

func parseLength(token string) (int, error) {
	for i := 0; i < len(token); i++ {
		if token[i] < '0' || token[i] > '9' {
			return 0, &DecodeError{Field: "length", Reason: fmt.Sprintf("not a decimal number: %q", token)}
		}
	}
	length, err := strconv.Atoi(token)
	if err != nil {
		return 0, &DecodeError{Field: "length", Reason: err.Error()}
	}
	if length > MaxPayloadSize {
		return 0, &DecodeError{Field: "length", Reason: fmt.Sprintf("payload too large: %d bytes", length)}
	}
	return length, nil
}

func validateType(frameType string) error {
	if frameType == "" || len(frameType) > MaxTypeLength {
		return &DecodeError{Field: "type", Reason: fmt.Sprintf("invalid length %d", len(frameType))}
	}
	for i := 0; i < len(frameType); i++ {
		c := frameType[i]
		if c <= ' ' || c > '~' {
			return &DecodeError{Field: "type", Reason: fmt.Sprintf("invalid byte 0x%02x", c)}
		}
	}
	return nil
}

func noEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// WriteMessage writes a MESSAGE frame carrying body.
func WriteMessage(w io.Writer, body string) error {
	return WriteFrame(w, TypeMessage, []byte(body))
}

// WriteNewGreeting writes the client greeting, "<name> rvController".
func WriteNewGreeting(w io.Writer, name string) error {
	return WriteFrame(w, TypeNewGreeting, []byte(name+" "+ControllerRole))
}

// WriteGreeting writes the peer-side greeting.
func WriteGreeting(w io.Writer, name string) error {
	return WriteFrame(w, TypeGreeting, []byte(name+" "+ControllerRole))
}

// WritePingPongControl tells the peer whether it should send PINGs.
func WritePingPongControl(w io.Writer, enabled bool) error {
	flag := "0"
	if enabled {
		flag = "1"
	}
	return WriteFrame(w, TypePingPongControl, []byte(flag))
}

// WritePing writes "PING 1 p".
func WritePing(w io.Writer) error {
	return WriteFrame(w, TypePing, []byte("p"))
}

// WritePong writes "PONG 1 p".
func WritePong(w io.Writer) error {
	return WriteFrame(w, TypePong, []byte("p"))
}

// WriteReturn writes the reply to a RETURNEVENT.
func WriteReturn(w io.Writer, payload string) error {
	return WriteFrame(w, TypeReturn, []byte(payload))
}

// WriteDisconnect asks the other side to end the session.
func WriteDisconnect(w io.Writer) error {
	return WriteMessage(w, BodyDisconnect)
}
