package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Mmx233/rvlink/tools"
	"github.com/google/uuid"
)

// Default connection values
const (
	// DefaultHost is where the review application normally listens
	DefaultHost = "localhost"

	// DefaultPort is the review application's default control port
	DefaultPort = 45124

	// DefaultConnectTimeout is the budget for connecting with retries
	DefaultConnectTimeout = 5 * time.Second

	// DefaultIOTimeout bounds a single dial and a single frame read or write
	DefaultIOTimeout = 3 * time.Second

	// DefaultReplyTimeout caps the wait for a RETURN frame
	DefaultReplyTimeout = 30 * time.Second

	// DefaultPollInterval is the bounded wait used to check for incoming data
	DefaultPollInterval = 10 * time.Millisecond

	// DefaultCloseGrace lets the peer observe DISCONNECT before shutdown
	DefaultCloseGrace = 100 * time.Millisecond

	// DefaultBackoffBase is the delay before the first retry
	DefaultBackoffBase = 10 * time.Millisecond

	// DefaultBackoffMax caps the retry delay
	DefaultBackoffMax = 2 * time.Second

	// DefaultPingInterval is how often the peer pings clients that asked for it
	DefaultPingInterval = 10 * time.Second
)

// Default dispatch values
const (
	DefaultFramesLoader = "FramesLoader"
	DefaultMovieLoader  = "MovLoader"
	DefaultPeerName     = "rvlink-peer"
)

// DefaultLauncherArgs enables networking in the review application.
var DefaultLauncherArgs = []string{"-network"}

// GenerateClientName generates a client name unique to this process.
func GenerateClientName() string {
	return "rvlink-" + uuid.New().String()[:8]
}

// ApplyDefaults fills zero values and applies the close grace environment override.
func (c *Client) ApplyDefaults() error {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Name == "" {
		c.Name = GenerateClientName()
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.IOTimeout == 0 {
		c.IOTimeout = DefaultIOTimeout
	}
	if c.ReplyTimeout == 0 {
		c.ReplyTimeout = DefaultReplyTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.CloseGrace == 0 {
		c.CloseGrace = DefaultCloseGrace
	}
	if c.Handshake == "" {
		c.Handshake = HandshakeGreeting
	}
	if c.Backoff.Base == 0 {
		c.Backoff.Base = DefaultBackoffBase
	}
	if c.Backoff.Max == 0 {
		c.Backoff.Max = DefaultBackoffMax
	}

	ms, ok, err := tools.LookupenvInt(CloseGraceEnv)
	if err != nil {
		return fmt.Errorf("close grace override: %w", err)
	}
	if ok {
		c.CloseGrace = time.Duration(ms) * time.Millisecond
	}

	return nil
}

// ApplyDefaults fills the launcher arguments with the networking flags.
func (l *Launcher) ApplyDefaults(port int) {
	if len(l.Args) == 0 {
		l.Args = append(append([]string{}, DefaultLauncherArgs...), "-networkPort", strconv.Itoa(port))
	}
}

func (d *Dispatch) ApplyDefaults() {
	if d.FramesLoader == "" {
		d.FramesLoader = DefaultFramesLoader
	}
	if d.MovieLoader == "" {
		d.MovieLoader = DefaultMovieLoader
	}
}

func (p *Peer) ApplyDefaults(port int) {
	if p.Listen == "" {
		p.Listen = "127.0.0.1:" + strconv.Itoa(port)
	}
	if p.Name == "" {
		p.Name = DefaultPeerName
	}
	if p.PingInterval == 0 {
		p.PingInterval = DefaultPingInterval
	}
}
