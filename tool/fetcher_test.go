package tool

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func stubClient(status int, body string) *http.Client {
	return &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: status,
				Body:       io.NopCloser(strings.NewReader(body)),
				Header:     make(http.Header),
				Request:    r,
			}, nil
		}),
	}
}

func TestHTTPFetcherIssuesPlainGet(t *testing.T) {
	var gotMethod, gotURL string
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotURL = r.URL.RequestURI()
		gotHeaders = r.Header.Clone()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	resp, err := NewHTTPFetcher(srv.Client()).Fetch(context.Background(), srv.URL+"/weather.php?dataType=flw&lang=en")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotMethod != http.MethodGet {
		t.Fatalf("method = %s, want GET", gotMethod)
	}
	if gotURL != "/weather.php?dataType=flw&lang=en" {
		t.Fatalf("request URI = %q", gotURL)
	}
	if gotHeaders.Get("Content-Type") != "" || gotHeaders.Get("Authorization") != "" {
		t.Fatalf("unexpected headers: %v", gotHeaders)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != `{"ok":true}` {
		t.Fatalf("response = %d %q", resp.StatusCode, resp.Body)
	}
}

func TestHTTPFetcherStatusError(t *testing.T) {
	fetcher := NewHTTPFetcher(stubClient(http.StatusBadGateway, "downstream failure"))

	resp, err := fetcher.Fetch(context.Background(), "http://unit-test.local/x")
	if err == nil {
		t.Fatal("Fetch() error = nil, want non-nil")
	}
	toolErr, ok := AsToolError(err)
	if !ok {
		t.Fatalf("error type = %T, want *ToolError", err)
	}
	if toolErr.Code != ToolErrorCodeUpstreamFailure {
		t.Fatalf("code = %q, want %q", toolErr.Code, ToolErrorCodeUpstreamFailure)
	}
	if toolErr.Details["status_code"] != http.StatusBadGateway {
		t.Fatalf("details.status_code = %v", toolErr.Details["status_code"])
	}
	if toolErr.Details["body"] != "downstream failure" {
		t.Fatalf("details.body = %v", toolErr.Details["body"])
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("resp.StatusCode = %d", resp.StatusCode)
	}
}

func TestHTTPFetcherStatusErrorWithoutBody(t *testing.T) {
	_, err := NewHTTPFetcher(stubClient(http.StatusNotFound, "")).Fetch(context.Background(), "http://unit-test.local/x")
	toolErr, ok := AsToolError(err)
	if !ok {
		t.Fatalf("error type = %T, want *ToolError", err)
	}
	if !strings.Contains(toolErr.Message, "Not Found") {
		t.Fatalf("message = %q, want status text", toolErr.Message)
	}
	if _, hasBody := toolErr.Details["body"]; hasBody {
		t.Fatal("details.body set for empty body")
	}
}

func TestHTTPFetcherStatusErrorKeepsCharactersWhole(t *testing.T) {
	// 3-byte characters never line up with the 4096-byte cap.
	body := strings.Repeat("天", 3000)
	_, err := NewHTTPFetcher(stubClient(http.StatusInternalServerError, body)).Fetch(context.Background(), "http://unit-test.local/x")
	toolErr, ok := AsToolError(err)
	if !ok {
		t.Fatalf("error type = %T, want *ToolError", err)
	}
	got, _ := toolErr.Details["body"].(string)
	if !utf8.ValidString(got) || !utf8.ValidString(toolErr.Message) {
		t.Fatalf("truncated body is not valid UTF-8 (len %d)", len(got))
	}
	if len(got) != 4095 || !strings.HasPrefix(body, got) {
		t.Fatalf("details.body len = %d, want 4095-byte prefix", len(got))
	}
}

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{in: "abc", n: 5, want: "abc"},
		{in: "abcdef", n: 3, want: "abc"},
		{in: "雨量", n: 4, want: "雨"},
		{in: "雨量", n: 2, want: ""},
	}
	for _, tt := range tests {
		if got := truncateUTF8(tt.in, tt.n); got != tt.want {
			t.Errorf("truncateUTF8(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestHTTPFetcherTransportError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	fetcher := NewHTTPFetcher(&http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, cause
		}),
	})

	_, err := fetcher.Fetch(context.Background(), "http://unit-test.local/x")
	if ErrorKind(err) != ToolErrorCodeTransportFailure {
		t.Fatalf("ErrorKind() = %q, want %q", ErrorKind(err), ToolErrorCodeTransportFailure)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(err, cause) = false; err = %v", err)
	}
}

func TestHTTPFetcherCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPFetcher(srv.Client()).Fetch(ctx, srv.URL)
	if ErrorKind(err) != ToolErrorCodeTransportFailure {
		t.Fatalf("ErrorKind() = %q, want %q", ErrorKind(err), ToolErrorCodeTransportFailure)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("errors.Is(err, context.Canceled) = false; err = %v", err)
	}
}

func TestHTTPFetcherInvalidURL(t *testing.T) {
	_, err := NewHTTPFetcher(nil).Fetch(context.Background(), "http://bad host/\x7f")
	if ErrorKind(err) != ToolErrorCodeTransportFailure {
		t.Fatalf("ErrorKind() = %q, want %q", ErrorKind(err), ToolErrorCodeTransportFailure)
	}
}
