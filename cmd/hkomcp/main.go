package main

import (
	"os"

	"github.com/petal-labs/hkomcp/cli"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	root := cli.NewRootCmd(version)
	if err := root.Execute(); err != nil {
		noColor, _ := root.PersistentFlags().GetBool("no-color")
		cli.PrintError(root.ErrOrStderr(), err, noColor)
		os.Exit(cli.ExitCode(err))
	}
}
