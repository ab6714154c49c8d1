package app

import (
	"github.com/spf13/pflag"

	"gitingest-mcp/server/internal/config"
)

// flagKeys maps command line flags to configuration keys. Flags are bound
// for the command being run only, since several subcommands share names.
var flagKeys = map[string]string{
	"log-level":   config.KeyLogLevel,
	"log-format":  config.KeyLogFormat,
	"port":        config.KeyPort,
	"auth-secret": config.KeyAuthSecret,
	"rate-limit":  config.KeyRateLimit,
}

func (c *cli) bindFlags(flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := c.v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}
