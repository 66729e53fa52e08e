package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/petal-labs/hkomcp/config"
	"github.com/petal-labs/hkomcp/tool/mcp"
)

// NewProbeCmd creates the "probe" subcommand.
func NewProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe [--url endpoint | -- command [args...]]",
		Short: "Smoke-test an MCP server",
		Long: "Connect to an MCP server, run initialize and tools/list, and optionally one tools/call. " +
			"By default this binary is started as \"serve --transport stdio\" with --config and --base-url " +
			"carried over, and its log lines are echoed to stderr. --url reaches a running HTTP server " +
			"instead, and arguments after -- launch any other stdio server.",
		Example: "  hkomcp probe --call weather-info --arg dataType=rhrread\n" +
			"  hkomcp probe -- ./bin/hkomcp serve --config ./hkomcp.toml\n" +
			"  hkomcp probe --url http://127.0.0.1:8080/mcp --call hourly-rainfall --arg lang=tc",
		RunE: runProbe,
	}
	cmd.Flags().String("url", "", "Streamable HTTP endpoint of the server")
	cmd.Flags().String("call", "", "Tool to call after listing")
	cmd.Flags().StringArrayP("arg", "a", nil, "Argument for --call as key=value (repeatable)")
	cmd.Flags().Duration("timeout", 30*time.Second, "Overall probe timeout")
	return cmd
}

func runProbe(cmd *cobra.Command, args []string) error {
	endpoint, _ := cmd.Flags().GetString("url")
	toolName, _ := cmd.Flags().GetString("call")
	pairs, _ := cmd.Flags().GetStringArray("arg")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	noColor, _ := cmd.Flags().GetBool("no-color")

	callArgs := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, err := parseKeyValue(pair)
		if err != nil {
			return exitError(exitValidation, "%v", err)
		}
		callArgs[key] = value
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	transport, err := probeTransport(ctx, cmd, endpoint, args, noColor)
	if err != nil {
		return err
	}
	client := mcp.NewClient(transport, mcp.Options{
		ClientInfo: mcp.ClientInfo{Name: "hkomcp-probe", Version: cmd.Root().Version},
	})
	defer client.Close(context.Background())

	initRes, err := client.Initialize(ctx)
	if err != nil {
		return exitError(exitRuntime, "initialize: %v", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Server: %s %s (protocol %s)\n", initRes.ServerInfo.Name, initRes.ServerInfo.Version, initRes.ProtocolVersion)

	list, err := client.ListTools(ctx)
	if err != nil {
		return exitError(exitRuntime, "tools/list: %v", err)
	}
	writer := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "TOOL\tREQUIRED")
	for _, tl := range list.Tools {
		fmt.Fprintf(writer, "%s\t%s\n", tl.Name, requiredList(tl.InputSchema))
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	if toolName == "" {
		return nil
	}
	result, err := client.CallTool(ctx, mcp.ToolsCallParams{Name: toolName, Arguments: callArgs})
	if err != nil {
		return exitError(exitRuntime, "tools/call %s: %v", toolName, err)
	}

	status := color.New(color.FgGreen)
	label := "ok"
	if result.IsError {
		status = color.New(color.FgRed)
		label = "error"
	}
	if noColor {
		status.DisableColor()
	}
	fmt.Fprintf(out, "Call %s: %s\n%s\n", toolName, status.Sprint(label), result.Text())
	if result.IsError {
		return exitError(exitToolFailure, "tool %s reported an error", toolName)
	}
	return nil
}

// selfCommand returns the program and leading arguments used to start this
// binary again. Tests point it at a helper process.
var selfCommand = func() (string, []string, error) {
	exe, err := os.Executable()
	return exe, nil, err
}

func probeTransport(ctx context.Context, cmd *cobra.Command, endpoint string, args []string, noColor bool) (mcp.Transport, error) {
	endpoint = strings.TrimSpace(endpoint)
	switch {
	case endpoint != "" && len(args) > 0:
		return nil, exitError(exitValidation, "use either --url or a server command, not both")
	case endpoint != "":
		transport, err := mcp.NewHTTPTransport(mcp.HTTPTransportConfig{Endpoint: endpoint})
		if err != nil {
			return nil, exitError(exitValidation, "%v", err)
		}
		return transport, nil
	}

	command, commandArgs := "", args
	if len(args) > 0 {
		command, commandArgs = args[0], args[1:]
	} else {
		exe, prefix, err := selfCommand()
		if err != nil {
			return nil, exitError(exitRuntime, "locating hkomcp binary: %v", err)
		}
		command, commandArgs = exe, append(prefix, serveArgs(cmd)...)
	}

	transport, err := mcp.StartProcess(ctx, mcp.ProcessConfig{
		Command: command,
		Args:    commandArgs,
		OnLog:   serverLogPrinter(cmd.ErrOrStderr(), noColor),
	})
	if err != nil {
		return nil, exitError(exitRuntime, "starting server: %v", err)
	}
	return transport, nil
}

// serveArgs builds "serve --transport stdio" for a child hkomcp, carrying over
// the flags that decide which config and upstream it uses.
func serveArgs(cmd *cobra.Command) []string {
	args := []string{"serve", "--transport", config.TransportStdio}
	for _, name := range []string{"config", "base-url"} {
		if v, _ := cmd.Flags().GetString(name); v != "" {
			args = append(args, "--"+name, v)
		}
	}
	for _, name := range []string{"verbose", "quiet"} {
		if v, _ := cmd.Flags().GetBool(name); v {
			args = append(args, "--"+name)
		}
	}
	return args
}

// serverLogPrinter writes child server log lines to w behind a "server |" tag.
func serverLogPrinter(w io.Writer, noColor bool) func(string) {
	tag := color.New(color.Faint)
	if noColor {
		tag.DisableColor()
	}
	prefix := tag.Sprint("server |")
	var mu sync.Mutex
	return func(line string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "%s %s\n", prefix, line)
	}
}

// requiredList returns the schema's required property names, or "-".
func requiredList(schema map[string]any) string {
	raw, _ := schema["required"].([]any)
	names := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			names = append(names, s)
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}
