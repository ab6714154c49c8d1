package app

import (
	"fmt"
	"runtime"

	"github.com/go-faster/jx"
	"github.com/spf13/cobra"
)

// Build information, set with -ldflags "-X".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func newVersionCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// No configuration is needed to print the version.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if format != "json" {
				_, err := fmt.Fprintf(out, "gitingest-mcp %s (commit %s, built %s, %s)\n", Version, Commit, BuildDate, runtime.Version())
				return err
			}
			e := jx.GetEncoder()
			defer jx.PutEncoder(e)
			e.SetIdent(2)
			e.ObjStart()
			for _, kv := range [][2]string{
				{"version", Version},
				{"commit", Commit},
				{"built", BuildDate},
				{"go", runtime.Version()},
				{"platform", runtime.GOOS + "/" + runtime.GOARCH},
			} {
				e.FieldStart(kv[0])
				e.Str(kv[1])
			}
			e.ObjEnd()
			_, err := fmt.Fprintln(out, e.String())
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Output format (json)")
	return cmd
}
