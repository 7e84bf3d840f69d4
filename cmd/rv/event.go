package rv

import (
	"fmt"

	"github.com/Mmx233/rvlink/client"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	eventFlags clientFlags
	eventWait  bool
	EventCmd   = &cobra.Command{
		Use:   "event <name> [contents]",
		Short: "Send a remote event to the review application",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runEvent,
	}
)

func init() {
	eventFlags.AddFlags(EventCmd.Flags())
	EventCmd.Flags().BoolVarP(&eventWait, "wait", "w", false, "wait for the RETURN reply and print it")
}

func runEvent(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(&eventFlags)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	name, contents := args[0], ""
	if len(args) == 2 {
		contents = args[1]
	}

	logger := log.With().Str("com", "event-cmd").Str("event", name).Logger()
	return client.WithSession(ctx, cfg.Client, logger, func(conn *client.Connection) error {
		reply, err := conn.SendEvent(ctx, name, contents, eventWait)
		if err != nil {
			return err
		}
		if eventWait {
			fmt.Fprintln(cmd.OutOrStdout(), reply)
		}
		return nil
	})
}
