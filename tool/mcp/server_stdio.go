package mcp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
)

const maxStdioLine = 4 << 20

// ServeStdio reads newline-delimited JSON-RPC messages from r and writes each
// response as one line to w. Requests are handled in arrival order. It returns
// nil when r reaches EOF and ctx.Err() when ctx is canceled.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxStdioLine)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			select {
			case lines <- append([]byte(nil), line...):
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	out := bufio.NewWriter(w)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("mcp: read stdin: %w", err)
					}
				default:
				}
				return nil
			}
			resp := s.HandleRaw(ctx, line)
			if resp == nil {
				continue
			}
			resp = append(resp, '\n')
			if _, err := out.Write(resp); err != nil {
				return fmt.Errorf("mcp: write response: %w", err)
			}
			if err := out.Flush(); err != nil {
				return fmt.Errorf("mcp: write response: %w", err)
			}
		}
	}
}
