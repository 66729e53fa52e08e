package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/petal-labs/hkomcp/tool"
)

// NewCallCmd creates the "call" subcommand.
func NewCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke one tool and print its result",
		Long: "Invoke one tool against the upstream API and print the payload. " +
			"Exit status is 1 for bad arguments and 3 when the upstream call fails.",
		Example: "  hkomcp call weather-info --arg dataType=rhrread --arg lang=tc\n" +
			"  hkomcp call lunar-date-conversion --arg date=2024-02-10 --url-only",
		Args: cobra.ExactArgs(1),
		RunE: runCall,
	}
	cmd.Flags().StringArrayP("arg", "a", nil, "Tool argument key=value (repeatable)")
	cmd.Flags().Bool("json", false, "Print the full result envelope as JSON")
	cmd.Flags().Bool("url-only", false, "Print the upstream URL without fetching it")
	cmd.Flags().String("request-id", "", "Request id recorded in logs and telemetry")
	return cmd
}

func runCall(cmd *cobra.Command, args []string) error {
	name := args[0]
	pairs, _ := cmd.Flags().GetStringArray("arg")
	toolArgs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, err := parseKeyValue(pair)
		if err != nil {
			return exitError(exitValidation, "%v", err)
		}
		toolArgs[key] = value
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.shutdown()

	out := cmd.OutOrStdout()
	if urlOnly, _ := cmd.Flags().GetBool("url-only"); urlOnly {
		url, err := a.dispatcher.BuildURL(name, toolArgs)
		if err != nil {
			return toolExitError(err)
		}
		_, err = fmt.Fprintln(out, url)
		return err
	}

	requestID, _ := cmd.Flags().GetString("request-id")
	res, err := a.dispatcher.Invoke(cmd.Context(), tool.Invocation{
		Tool:      name,
		Arguments: toolArgs,
		RequestID: requestID,
	})
	if err != nil {
		return toolExitError(err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return writePayload(out, res)
}

// writePayload prints JSON tools indented and text tools verbatim.
func writePayload(w io.Writer, res tool.Result) error {
	if res.Format != tool.FormatJSON {
		_, err := io.WriteString(w, res.Text)
		if err == nil && len(res.Text) > 0 && res.Text[len(res.Text)-1] != '\n' {
			_, err = io.WriteString(w, "\n")
		}
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(res.Text), "", "  "); err != nil {
		return fmt.Errorf("formatting %s result: %w", res.Tool, err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
