// Package app wires the gitingest-mcp command line.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/dig"

	"gitingest-mcp/server/internal/config"
	"gitingest-mcp/server/internal/observability"
)

// cli carries state shared by the subcommands.
type cli struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:          "gitingest-mcp",
		Short:        "MCP server that turns GitHub repositories into LLM-ready text",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.bindFlags(cmd.Flags()); err != nil {
				return err
			}
			return c.load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "Path to a YAML/TOML/.env configuration file")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text, json)")

	root.AddCommand(
		c.newServeCmd(),
		c.newAnalyzeCmd(),
		c.newTokenCmd(),
		newVersionCmd(),
	)
	return root
}

func (c *cli) load() error {
	cfg, err := config.Load(c.v, c.configFile)
	if err != nil {
		return err
	}
	if err := observability.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// container builds a DIG container over the loaded configuration.
func (c *cli) container() (*dig.Container, error) {
	container := dig.New()
	if err := RegisterProviders(container, c.cfg); err != nil {
		return nil, err
	}
	return container, nil
}
