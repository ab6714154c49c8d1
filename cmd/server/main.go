package main

import (
	"os"

	"gitingest-mcp/server/cmd/server/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
