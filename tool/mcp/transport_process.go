package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// processCloseGrace is how long Close waits for the server to exit on its own
// after stdin is closed before killing it.
const processCloseGrace = 5 * time.Second

// ProcessConfig describes a server launched as a child process that speaks
// newline-delimited JSON-RPC on stdio, such as "hkomcp serve --transport stdio".
type ProcessConfig struct {
	Command string
	Args    []string
	// Env entries (KEY=VALUE) are appended to the parent environment.
	Env []string
	// OnLog receives each line the server writes to stderr. Nil drops them.
	OnLog func(line string)
}

// ProcessTransport is the client side of Server.ServeStdio run in a child
// process. Closing it closes the child's stdin, which ServeStdio treats as a
// clean shutdown.
type ProcessTransport struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	writeMu sync.Mutex
	recvCh  chan Message
	errCh   chan error
	stop    chan struct{}
	exited  chan struct{}
	exitErr error

	closeOnce sync.Once
}

// StartProcess launches cfg.Command and returns a transport bound to its
// stdio. Canceling ctx kills the process.
func StartProcess(ctx context.Context, cfg ProcessConfig) (*ProcessTransport, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, errors.New("mcp: server command is required")
	}

	// #nosec G204 -- the command is the operator's own hkomcp binary or argv.
	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("mcp: server stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("mcp: server stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("mcp: server stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("mcp: start %s: %w", cfg.Command, err)
	}

	t := &ProcessTransport{
		cmd:    cmd,
		stdin:  stdin,
		recvCh: make(chan Message, 16),
		errCh:  make(chan error, 1),
		stop:   make(chan struct{}),
		exited: make(chan struct{}),
	}

	var pipes sync.WaitGroup
	pipes.Add(2)
	go func() {
		defer pipes.Done()
		t.readResponses(stdout)
	}()
	go func() {
		defer pipes.Done()
		forwardLines(stderr, cfg.OnLog)
	}()
	go func() {
		// Wait must not run before both pipes are drained.
		pipes.Wait()
		t.exitErr = cmd.Wait()
		close(t.exited)
	}()
	return t, nil
}

func (t *ProcessTransport) readResponses(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStdioLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			t.fail(fmt.Errorf("mcp: server wrote a non JSON-RPC line: %w", err))
			continue
		}
		select {
		case t.recvCh <- msg:
		case <-t.stop:
			_, _ = io.Copy(io.Discard, stdout)
			return
		}
	}
	if err := scanner.Err(); err != nil {
		t.fail(fmt.Errorf("mcp: read server stdout: %w", err))
		_, _ = io.Copy(io.Discard, stdout)
	}
}

func forwardLines(r io.Reader, sink func(string)) {
	if sink == nil {
		_, _ = io.Copy(io.Discard, r)
		return
	}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
			sink(line)
		}
	}
	_, _ = io.Copy(io.Discard, r)
}

func (t *ProcessTransport) fail(err error) {
	select {
	case t.errCh <- err:
	default:
	}
}

// Send writes message as one line on the server's stdin.
func (t *ProcessTransport) Send(ctx context.Context, message Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-t.exited:
		return t.exitError()
	default:
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("mcp: encode request: %w", err)
	}
	data = append(data, '\n')

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.stdin.Write(data); err != nil {
		return fmt.Errorf("mcp: write request: %w", err)
	}
	return nil
}

// Receive returns the next response. Once the server has exited and every
// queued response is consumed it returns the exit error.
func (t *ProcessTransport) Receive(ctx context.Context) (Message, error) {
	select {
	case msg := <-t.recvCh:
		return msg, nil
	default:
	}
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case err := <-t.errCh:
		return Message{}, err
	case msg := <-t.recvCh:
		return msg, nil
	case <-t.exited:
		select {
		case msg := <-t.recvCh:
			return msg, nil
		default:
		}
		return Message{}, t.exitError()
	}
}

// Exited is closed once the server process has been reaped.
func (t *ProcessTransport) Exited() <-chan struct{} {
	return t.exited
}

func (t *ProcessTransport) exitError() error {
	if t.exitErr != nil {
		return fmt.Errorf("mcp: server process exited: %w", t.exitErr)
	}
	return errors.New("mcp: server process exited")
}

// Close closes the server's stdin and waits for it to exit, killing it after
// a grace period or when ctx ends first.
func (t *ProcessTransport) Close(ctx context.Context) error {
	t.closeOnce.Do(func() {
		close(t.stop)
		t.writeMu.Lock()
		_ = t.stdin.Close()
		t.writeMu.Unlock()
	})

	grace := time.NewTimer(processCloseGrace)
	defer grace.Stop()
	select {
	case <-t.exited:
		return nil
	case <-grace.C:
	case <-ctx.Done():
	}

	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	select {
	case <-t.exited:
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
