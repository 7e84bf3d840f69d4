package config

import (
	"fmt"
	"net"
	"strconv"
)

const (
	EnvPrefix = "RVLINK_"

	// CloseGraceEnv overrides Client.CloseGrace, value in milliseconds.
	CloseGraceEnv = "AYON_RV_SOCKET_CLOSE_TIMEOUT"
)

// ValidatePort checks that port is a usable TCP port.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// ValidateAddress validates that an address is in valid host:port format.
// An empty host is accepted for listen addresses such as ":45124".
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}

	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address format %q: %w", addr, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port in address %q: %w", addr, err)
	}

	if err := ValidatePort(port); err != nil {
		return fmt.Errorf("%w in address %q", err, addr)
	}

	return nil
}
