package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/petal-labs/hkomcp/tool"
)

// NewToolsCmd creates the "tools" subcommand.
func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools this server exposes",
		Args:  cobra.NoArgs,
		RunE:  runTools,
	}
	cmd.Flags().String("format", "table", "Output format: table | json | yaml")
	return cmd
}

func runTools(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "table", "json", "yaml":
	default:
		return exitError(exitValidation, "unknown format %q (want table, json or yaml)", format)
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.shutdown()

	descs := a.registry.List()
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(descs)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(descs); err != nil {
			return exitError(exitRuntime, "encoding yaml: %v", err)
		}
		return enc.Close()
	}

	writer := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "NAME\tFORMAT\tPARAMETERS\tENDPOINT")
	for _, desc := range descs {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			desc.Name,
			desc.Format,
			displayParams(desc.Parameters),
			displayEndpoint(desc),
		)
	}
	return writer.Flush()
}

// displayParams renders parameters as "dataType*,lang=en": a star marks a
// required parameter and "=v" its default.
func displayParams(params []tool.ParamSpec) string {
	if len(params) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		switch {
		case p.Required:
			parts = append(parts, p.Name+"*")
		case p.Default != "":
			parts = append(parts, p.Name+"="+p.Default)
		default:
			parts = append(parts, p.Name)
		}
	}
	return strings.Join(parts, ",")
}

func displayEndpoint(desc tool.Descriptor) string {
	sep := desc.QuerySeparator
	if sep == "" || sep == tool.DefaultQuerySeparator {
		return desc.Endpoint
	}
	return desc.Endpoint + " (" + sep + ")"
}

func parseKeyValue(value string) (string, string, error) {
	key, val, ok := strings.Cut(value, "=")
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", fmt.Errorf("argument %q: key is required", value)
	}
	if !ok {
		return "", "", fmt.Errorf("argument %q: expected key=value", value)
	}
	return key, val, nil
}
