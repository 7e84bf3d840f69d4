package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Handshake modes
const (
	// HandshakeGreeting waits for the peer's GREETING before reporting connected.
	HandshakeGreeting = "greeting"
	// HandshakeNone reports connected as soon as the greeting frames are written.
	HandshakeNone = "none"
)

// Client configures one control-port connection.
type Client struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Name string `yaml:"name"` // identifies this client to the peer

	ConnectTimeout time.Duration `yaml:"connect_timeout"` // budget for connect with retry
	IOTimeout      time.Duration `yaml:"io_timeout"`      // per dial / per frame deadline
	ReplyTimeout   time.Duration `yaml:"reply_timeout"`   // wall-clock cap while awaiting RETURN
	PollInterval   time.Duration `yaml:"poll_interval"`   // bounded wait when polling for data

	// CloseGrace is the pause after DISCONNECT before shutdown. Zero selects
	// DefaultCloseGrace; only CloseGraceEnv=0 disables the pause.
	CloseGrace time.Duration `yaml:"close_grace"`
	Handshake  string        `yaml:"handshake"`

	Backoff Backoff `yaml:"backoff"`
}

// Backoff configures retry delays: min(Base * 2^(k-1), Max) before retry k.
type Backoff struct {
	Base time.Duration `yaml:"base"`
	Max  time.Duration `yaml:"max"`
}

// Address returns host:port of the control port.
func (c *Client) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// WaitsForGreeting reports whether the handshake requires the peer's greeting.
func (c *Client) WaitsForGreeting() bool {
	return c.Handshake != HandshakeNone
}

// Validate checks the client configuration after defaults were applied.
func (c *Client) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if err := ValidatePort(c.Port); err != nil {
		return err
	}
	if c.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"connect_timeout", c.ConnectTimeout},
		{"io_timeout", c.IOTimeout},
		{"reply_timeout", c.ReplyTimeout},
		{"poll_interval", c.PollInterval},
		{"close_grace", c.CloseGrace},
		{"backoff.base", c.Backoff.Base},
		{"backoff.max", c.Backoff.Max},
	}
	for _, d := range durations {
		if d.value < 0 {
			return fmt.Errorf("%s must not be negative, got %v", d.name, d.value)
		}
	}

	if c.Backoff.Base > c.Backoff.Max {
		return fmt.Errorf("backoff.base (%v) must not exceed backoff.max (%v)", c.Backoff.Base, c.Backoff.Max)
	}

	switch c.Handshake {
	case HandshakeGreeting, HandshakeNone:
	default:
		return fmt.Errorf("unknown handshake mode %q", c.Handshake)
	}

	return nil
}
