package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/petal-labs/hkomcp/tool"
)

// Process exit codes.
const (
	exitSuccess     = 0
	exitValidation  = 1
	exitRuntime     = 2
	exitToolFailure = 3
)

// ExitError is an error that carries a specific process exit code.
// Cobra's RunE returns this to signal the desired exit code to main.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// exitError creates a new ExitError with the given code and formatted message.
func exitError(code int, format string, args ...any) *ExitError {
	return &ExitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// toolExitError maps a dispatcher failure to an exit code: bad input is a
// validation failure, anything that reached the upstream is a tool failure.
func toolExitError(err error) *ExitError {
	switch kind := tool.ErrorKind(err); kind {
	case tool.ToolErrorCodeInvalidRequest, tool.ToolErrorCodeToolNotFound:
		return exitError(exitValidation, "%v", err)
	case tool.ToolErrorCodeTransportFailure, tool.ToolErrorCodeUpstreamFailure, tool.ToolErrorCodeDecodeFailure:
		return exitError(exitToolFailure, "%v", err)
	default:
		return exitError(exitRuntime, "%v", err)
	}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return exitValidation
}

// PrintError writes err to w as a single "Error: ..." line, in red unless
// noColor is set or w is not a terminal.
func PrintError(w io.Writer, err error, noColor bool) {
	if err == nil {
		return
	}
	label := color.New(color.FgRed, color.Bold)
	if noColor {
		label.DisableColor()
	}
	fmt.Fprintf(w, "%s %v\n", label.Sprint("Error:"), err)
}
