package config

import "fmt"

// Config is the on-disk configuration file.
type Config struct {
	Client   Client   `yaml:"client"`
	Launcher Launcher `yaml:"launcher"`
	Dispatch Dispatch `yaml:"dispatch"`
	Peer     Peer     `yaml:"peer"`
}

// ApplyDefaults fills every zero-valued field.
func (c *Config) ApplyDefaults() error {
	if err := c.Client.ApplyDefaults(); err != nil {
		return err
	}
	c.Launcher.ApplyDefaults(c.Client.Port)
	c.Dispatch.ApplyDefaults()
	c.Peer.ApplyDefaults(c.Client.Port)
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Client.Validate(); err != nil {
		return fmt.Errorf("client: %w", err)
	}
	if err := c.Peer.Validate(); err != nil {
		return fmt.Errorf("peer: %w", err)
	}
	return nil
}
