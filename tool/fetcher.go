package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// maxErrorBody caps how much of a failed upstream body is copied into error details.
const maxErrorBody = 4 << 10

// Response is one upstream reply, owned by the invocation that produced it.
type Response struct {
	StatusCode int
	Body       []byte
}

// Fetcher performs the single outbound request behind an invocation.
//
// Implementations return *ToolError values coded TRANSPORT_FAILURE when the
// upstream could not be reached and UPSTREAM_FAILURE for non-2xx replies.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) (Response, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string) (Response, error) {
	return f(ctx, url)
}

// HTTPFetcher issues plain GET requests with no extra headers and no retry.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a fetcher using client, or http.DefaultClient when nil.
// The client's own timeout policy is left untouched.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client}
}

// Fetch executes one GET against url.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (Response, error) {
	if f == nil || f.client == nil {
		return Response{}, newToolError(ToolErrorCodeTransportFailure, "tool: http fetcher is nil", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{}, withToolErrorDetails(
			newToolError(ToolErrorCodeTransportFailure, fmt.Sprintf("tool: build upstream request: %v", err), err),
			map[string]any{"url": url},
		)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Response{}, withToolErrorDetails(
			newToolError(ToolErrorCodeTransportFailure, fmt.Sprintf("tool: upstream fetch failed: %v", err), err),
			map[string]any{"url": url},
		)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, withToolErrorDetails(
			newToolError(ToolErrorCodeTransportFailure, fmt.Sprintf("tool: read upstream response: %v", err), err),
			map[string]any{"url": url, "status_code": resp.StatusCode},
		)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Response{StatusCode: resp.StatusCode, Body: body}, upstreamStatusError(url, resp.StatusCode, body)
	}
	return Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func upstreamStatusError(url string, status int, body []byte) *ToolError {
	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(status)
	}
	message = truncateUTF8(message, maxErrorBody)

	details := map[string]any{
		"url":         url,
		"status_code": status,
	}
	if len(body) > 0 {
		details["body"] = message
	}
	return withToolErrorDetails(
		newToolError(ToolErrorCodeUpstreamFailure, fmt.Sprintf("tool: upstream returned status %d: %s", status, message), nil),
		details,
	)
}

// truncateUTF8 cuts s to at most n bytes without splitting a character.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
