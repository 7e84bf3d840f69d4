package generate

import (
	"github.com/Mmx233/rvlink/cmd/generate/config"
	"github.com/spf13/cobra"
)

var (
	Cmd = &cobra.Command{
		Use:   "generate",
		Short: "Generate resources",
		Args:  cobra.NoArgs,
	}
)

func init() {
	Cmd.AddCommand(config.Cmd)
	Cmd.AddCommand(config.CatalogCmd)
}
