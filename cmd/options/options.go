// Package options holds the flags shared by every command.
package options

import (
	"github.com/Mmx233/rvlink/config"
	"github.com/Mmx233/rvlink/tools"
	"github.com/spf13/pflag"
)

const defaultConfigFile = "config.yaml"

// ConfigFile is the --config flag value.
var ConfigFile = tools.GetenvDefault(config.EnvPrefix+"CONFIG", defaultConfigFile)

// AddConfigFlag registers --config on fs.
func AddConfigFlag(fs *pflag.FlagSet) {
	fs.StringVarP(&ConfigFile, "config", "c", ConfigFile, "path of config file")
}

// LoadConfig loads ConfigFile. The default file may be absent, an explicitly
// named one may not.
func LoadConfig() (*config.Config, error) {
	return config.Load(ConfigFile, ConfigFile == defaultConfigFile)
}
