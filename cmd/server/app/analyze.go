package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitingest-mcp/server/internal/analyzer"
	"gitingest-mcp/server/internal/telemetry"
)

func (c *cli) newAnalyzeCmd() *cobra.Command {
	var req analyzer.Request
	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Analyze a repository once and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.cfg.MetricsEnabled = false
			container, err := c.container()
			if err != nil {
				return err
			}
			req.URL = args[0]
			return container.Invoke(func(a *analyzer.Analyzer, tel *telemetry.Telemetry) error {
				defer func() { _ = tel.Shutdown(cmd.Context()) }()
				res, err := a.Analyze(cmd.Context(), &req)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Text())
				return err
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.Subdirectory, "subdirectory", "", "Only analyze this subdirectory")
	flags.StringVar(&req.Branch, "branch", "", "Branch to analyze")
	flags.StringVar(&req.Token, "token", "", "GitHub token for private repositories")
	flags.StringVar(&req.IncludePatterns, "include", "", `Comma-separated file patterns, or "all"`)
	flags.BoolVar(&req.ReadmeOnly, "readme-only", false, "Only read README files")
	flags.DurationVar(&req.Timeout, "timeout", 0, "Timeout per ingestion pass (default from config)")
	return cmd
}
