package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gitingest-mcp/server/internal/middleware"
)

func (c *cli) newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the MCP endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := middleware.NewAuthenticator(c.cfg.AuthSecret).Sign(subject, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	cmd.Flags().String("auth-secret", "", "HS256 secret (defaults to the configured auth_secret)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
