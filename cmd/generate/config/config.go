package config

import (
	"fmt"
	"os"

	"github.com/Mmx233/rvlink/examples"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configOutput  string
	catalogOutput string

	Cmd = &cobra.Command{
		Use:   "config",
		Short: "Generate configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeTemplate(configOutput, "configuration", examples.ConfigTemplate)
		},
	}

	CatalogCmd = &cobra.Command{
		Use:   "catalog",
		Short: "Generate representation catalog for the local peer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeTemplate(catalogOutput, "catalog", examples.CatalogTemplate)
		},
	}
)

func init() {
	Cmd.Flags().StringVarP(&configOutput, "output", "o", "config.yaml", "output config file path")
	CatalogCmd.Flags().StringVarP(&catalogOutput, "output", "o", "catalog.yaml", "output catalog file path")
}

// writeTemplate writes an embedded template to path, refusing to overwrite.
func writeTemplate(path, kind string, template func() ([]byte, error)) error {
	logger := log.With().Str("com", "generate").Logger()

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	}

	content, err := template()
	if err != nil {
		return fmt.Errorf("load %s template: %w", kind, err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}

	logger.Info().Str("file", path).Msgf("generated %s", kind)
	return nil
}
