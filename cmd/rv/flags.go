package rv

import (
	"time"

	"github.com/Mmx233/rvlink/config"
	"github.com/spf13/pflag"
)

// clientFlags override the connection settings of the config file.
type clientFlags struct {
	host    string
	port    int
	name    string
	timeout time.Duration
	flagSet *pflag.FlagSet
}

func (f *clientFlags) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.host, "host", config.DefaultHost, "review application host")
	fs.IntVarP(&f.port, "port", "p", config.DefaultPort, "review application control port")
	fs.StringVar(&f.name, "name", "", "client name announced to the review application")
	fs.DurationVar(&f.timeout, "timeout", config.DefaultConnectTimeout, "connect with retry budget")
	f.flagSet = fs
}

// Apply copies the flags the user set onto cfg.
func (f *clientFlags) Apply(cfg *config.Client) error {
	if f.flagSet == nil {
		return nil
	}
	if f.flagSet.Changed("host") {
		cfg.Host = f.host
	}
	if f.flagSet.Changed("port") {
		cfg.Port = f.port
	}
	if f.flagSet.Changed("name") {
		cfg.Name = f.name
	}
	if f.flagSet.Changed("timeout") {
		cfg.ConnectTimeout = f.timeout
	}
	return cfg.Validate()
}
