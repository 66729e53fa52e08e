package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Invocation is one call against a registered tool.
type Invocation struct {
	Tool      string            `json:"tool"`
	Arguments map[string]string `json:"arguments,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// DispatcherOption configures a Dispatcher at construction.
type DispatcherOption func(*Dispatcher)

// WithFetcher replaces the default HTTP fetcher.
func WithFetcher(fetcher Fetcher) DispatcherOption {
	return func(d *Dispatcher) {
		if fetcher != nil {
			d.fetcher = fetcher
		}
	}
}

// WithObserver sets the invocation observer.
func WithObserver(observer Observer) DispatcherOption {
	return func(d *Dispatcher) {
		if observer != nil {
			d.observer = observer
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Dispatcher maps invocations to exactly one upstream fetch each.
//
// All fields are fixed by NewDispatcher, so a single Dispatcher may serve
// concurrent invocations without locking.
type Dispatcher struct {
	registry *Registry
	fetcher  Fetcher
	observer Observer
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) (*Dispatcher, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, errors.New("tool: dispatcher requires a non-empty registry")
	}
	d := &Dispatcher{
		registry: registry,
		fetcher:  NewHTTPFetcher(nil),
		observer: noopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Registry returns the registry the dispatcher serves.
func (d *Dispatcher) Registry() *Registry {
	if d == nil {
		return nil
	}
	return d.registry
}

// BuildURL resolves arguments for the named tool and returns its upstream URL
// without fetching it.
func (d *Dispatcher) BuildURL(name string, args map[string]string) (string, error) {
	desc, err := d.lookup(name)
	if err != nil {
		return "", err
	}
	resolved, err := ResolveArguments(desc, args)
	if err != nil {
		return "", err
	}
	return BuildURL(desc, resolved), nil
}

// Invoke resolves arguments, fetches the upstream once, and decodes the body
// according to the tool's response format. Failures are returned as
// *ToolError values and are never retried.
func (d *Dispatcher) Invoke(ctx context.Context, inv Invocation) (Result, error) {
	if d == nil {
		return Result{}, newToolError(ToolErrorCodeInvocationFailed, "tool: dispatcher is nil", nil)
	}

	requestID := strings.TrimSpace(inv.RequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	desc, err := d.lookup(inv.Tool)
	if err != nil {
		d.finish(ctx, inv.Tool, requestID, "", 0, time.Now(), err)
		return Result{}, err
	}
	format := desc.format()

	resolved, err := ResolveArguments(desc, inv.Arguments)
	if err != nil {
		d.finish(ctx, desc.Name, requestID, format, 0, time.Now(), err)
		return Result{}, err
	}
	if unknown := unknownArguments(desc, inv.Arguments); len(unknown) > 0 {
		d.logger.DebugContext(ctx, "ignoring undeclared arguments",
			"tool", desc.Name,
			"request_id", requestID,
			"arguments", unknown,
		)
	}

	url := BuildURL(desc, resolved)
	d.logger.DebugContext(ctx, "invoking tool",
		"tool", desc.Name,
		"request_id", requestID,
		"url", url,
	)

	start := time.Now()
	resp, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		if _, ok := AsToolError(err); !ok {
			err = withToolErrorDetails(
				newToolError(ToolErrorCodeTransportFailure, fmt.Sprintf("tool: upstream fetch failed: %v", err), err),
				map[string]any{"url": url},
			)
		}
		d.finish(ctx, desc.Name, requestID, format, resp.StatusCode, start, err)
		return Result{}, err
	}
	// Custom fetchers may hand back a non-2xx response without an error.
	if resp.StatusCode != 0 && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		err = upstreamStatusError(url, resp.StatusCode, resp.Body)
		d.finish(ctx, desc.Name, requestID, format, resp.StatusCode, start, err)
		return Result{}, err
	}

	value, err := decodeBody(format, resp.Body)
	if err != nil {
		if toolErr, ok := AsToolError(err); ok {
			withToolErrorDetails(toolErr, map[string]any{"url": url, "status_code": resp.StatusCode})
		}
		d.finish(ctx, desc.Name, requestID, format, resp.StatusCode, start, err)
		return Result{}, err
	}

	result := Result{
		Tool:       desc.Name,
		RequestID:  requestID,
		URL:        url,
		Format:     format,
		StatusCode: resp.StatusCode,
		DurationMS: elapsedMS(start),
		Value:      value,
		Text:       string(resp.Body),
	}
	d.finish(ctx, desc.Name, requestID, format, resp.StatusCode, start, nil)
	return result, nil
}

func (d *Dispatcher) lookup(name string) (Descriptor, error) {
	clean := strings.TrimSpace(name)
	if clean == "" {
		return Descriptor{}, newToolError(ToolErrorCodeToolNotFound, "tool: empty tool name", ErrToolNotFound)
	}
	desc, ok := d.registry.Lookup(clean)
	if !ok {
		return Descriptor{}, withToolErrorDetails(
			newToolError(ToolErrorCodeToolNotFound, fmt.Sprintf("tool: unknown tool %q", clean), ErrToolNotFound),
			map[string]any{"tool": clean},
		)
	}
	return desc, nil
}

func (d *Dispatcher) finish(ctx context.Context, name, requestID string, format ResponseFormat, status int, start time.Time, err error) {
	observation := InvokeObservation{
		ToolName:   name,
		RequestID:  requestID,
		Format:     format,
		StatusCode: status,
		DurationMS: elapsedMS(start),
		Success:    err == nil,
		ErrorCode:  ErrorKind(err),
	}
	d.observer.ObserveInvoke(observation)

	if err != nil {
		d.logger.WarnContext(ctx, "tool invocation failed",
			"tool", name,
			"request_id", requestID,
			"error_kind", observation.ErrorCode,
			"error", err,
		)
		return
	}
	d.logger.DebugContext(ctx, "tool invocation completed",
		"tool", name,
		"request_id", requestID,
		"status_code", status,
		"duration_ms", observation.DurationMS,
	)
}
