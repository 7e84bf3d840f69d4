package rv

import (
	"fmt"
	"time"

	"github.com/Mmx233/rvlink/client"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	pingFlags clientFlags
	PingCmd   = &cobra.Command{
		Use:   "ping",
		Short: "Check that the review application accepts remote control",
		Args:  cobra.NoArgs,
		RunE:  runPing,
	}
)

func init() {
	pingFlags.AddFlags(PingCmd.Flags())
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(&pingFlags)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	logger := log.With().Str("com", "ping-cmd").Logger()
	return client.WithSession(ctx, cfg.Client, logger, func(conn *client.Connection) error {
		fmt.Fprintf(cmd.OutOrStdout(), "connected to %s as %s in %v\n",
			cfg.Client.Address(), cfg.Client.Name, conn.LastElapsed().Round(time.Millisecond))
		return conn.Drain(ctx)
	})
}
