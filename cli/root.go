package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the hkomcp command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "hkomcp",
		Short: "Hong Kong Observatory open data as MCP tools",
		Long: "hkomcp serves the Hong Kong Observatory open-data API as Model Context Protocol tools " +
			"(weather, earthquakes, lunar calendar, hourly rainfall) over stdio or HTTP.",
		// SilenceUsage prevents printing usage on every error
		SilenceUsage: true,
		// main prints errors itself so they can be coloured
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "Path to hkomcp.yaml or hkomcp.toml")
	root.PersistentFlags().String("base-url", "", "Override the HKO open-data base URL")
	root.PersistentFlags().BoolP("verbose", "", false, "Enable verbose/debug logging")
	root.PersistentFlags().BoolP("quiet", "", false, "Suppress all output except errors")
	root.PersistentFlags().Bool("no-color", false, "Disable colored output")

	root.Version = version
	root.SetVersionTemplate(fmt.Sprintf("hkomcp version %s\n", version))

	root.AddCommand(NewServeCmd())
	root.AddCommand(NewToolsCmd())
	root.AddCommand(NewCallCmd())
	root.AddCommand(NewProbeCmd())
	return root
}
