package config

import (
	"fmt"
	"time"
)

// Peer configures the local control-port peer used for development and tests.
type Peer struct {
	Listen       string        `yaml:"listen"`
	Name         string        `yaml:"name"`
	PingInterval time.Duration `yaml:"ping_interval"` // used only when the client enables pings
	Catalog      string        `yaml:"catalog"`       // representation catalog file
	MetricsAddr  string        `yaml:"metrics_addr"`  // empty disables the metrics endpoint
}

func (p *Peer) Validate() error {
	if err := ValidateAddress(p.Listen); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	if p.MetricsAddr != "" {
		if err := ValidateAddress(p.MetricsAddr); err != nil {
			return fmt.Errorf("metrics_addr: %w", err)
		}
	}
	if p.PingInterval < 0 {
		return fmt.Errorf("ping_interval must not be negative, got %v", p.PingInterval)
	}
	return nil
}
