// Package rv holds the commands that talk to a running review application.
package rv

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mmx233/rvlink/cmd/options"
	"github.com/Mmx233/rvlink/config"
)

func loadConfig(flags *clientFlags) (*config.Config, error) {
	cfg, err := options.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := flags.Apply(&cfg.Client); err != nil {
		return nil, err
	}
	return cfg, nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
