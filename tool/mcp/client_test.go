package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

type mockTransport struct {
	mu            sync.Mutex
	closed        bool
	sendErr       error
	responses     []Message
	notifications []Message
	requests      []Message
	handler       func(req Message) Message
}

func (m *mockTransport) Send(ctx context.Context, message Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendErr != nil {
		return m.sendErr
	}
	if message.IsNotification() {
		m.notifications = append(m.notifications, message)
		return nil
	}

	m.requests = append(m.requests, message)
	if m.handler != nil {
		m.responses = append(m.responses, m.handler(message))
	}
	return nil
}

func (m *mockTransport) Receive(ctx context.Context) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.responses) == 0 {
		return Message{}, errors.New("mock transport: no queued responses")
	}
	response := m.responses[0]
	m.responses = m.responses[1:]
	return response, nil
}

func (m *mockTransport) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func respond(t *testing.T, req Message, result any) Message {
	t.Helper()
	return Message{JSONRPC: jsonRPCVersion, ID: req.ID, Result: mustJSON(t, result)}
}

func TestClientInitialize(t *testing.T) {
	transport := &mockTransport{
		handler: func(req Message) Message {
			if req.Method != MethodInitialize {
				return Message{JSONRPC: jsonRPCVersion, ID: req.ID, Error: &RPCError{Code: CodeMethodNotFound, Message: "method not found"}}
			}
			params := paramsMap(t, req.Params)
			if params["protocolVersion"] != ProtocolVersion {
				t.Fatalf("protocolVersion = %v, want %s", params["protocolVersion"], ProtocolVersion)
			}
			clientInfo, _ := params["clientInfo"].(map[string]any)
			if clientInfo["name"] != defaultClientName {
				t.Fatalf("clientInfo.name = %v, want %s", clientInfo["name"], defaultClientName)
			}
			return respond(t, req, InitializeResult{
				ProtocolVersion: ProtocolVersion,
				ServerInfo:      ServerInfo{Name: "hko-weather", Version: "1.0.0"},
			})
		},
	}

	client := NewClient(transport, Options{})
	result, err := client.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if result.ServerInfo.Name != "hko-weather" {
		t.Fatalf("ServerInfo.Name = %q, want hko-weather", result.ServerInfo.Name)
	}

	if _, err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.requests) != 1 {
		t.Fatalf("initialize requests = %d, want 1", len(transport.requests))
	}
	if len(transport.notifications) != 1 || transport.notifications[0].Method != MethodInitialized {
		t.Fatalf("notifications = %+v, want one %s", transport.notifications, MethodInitialized)
	}
	if string(transport.requests[0].ID) != "1" {
		t.Fatalf("request id = %s, want 1", transport.requests[0].ID)
	}
}

func TestClientSkipsMismatchedResponses(t *testing.T) {
	transport := &mockTransport{}
	transport.handler = func(req Message) Message {
		// A stray notification and a stale response precede the real answer.
		transport.responses = append(transport.responses,
			Message{JSONRPC: jsonRPCVersion, Method: "notifications/message"},
			Message{JSONRPC: jsonRPCVersion, ID: json.RawMessage("99"), Result: mustJSON(t, map[string]any{})},
		)
		return respond(t, req, ToolsListResult{Tools: []Tool{{Name: "weather-info"}}})
	}

	client := NewClient(transport, Options{})
	result, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	if len(result.Tools) != 1 || result.Tools[0].Name != "weather-info" {
		t.Fatalf("Tools = %+v", result.Tools)
	}
}

func TestClientCallTool(t *testing.T) {
	transport := &mockTransport{
		handler: func(req Message) Message {
			params := paramsMap(t, req.Params)
			if params["name"] != "hourly-rainfall" {
				t.Fatalf("params.name = %v, want hourly-rainfall", params["name"])
			}
			args, _ := params["arguments"].(map[string]any)
			if args["lang"] != "tc" {
				t.Fatalf("arguments.lang = %v, want tc", args["lang"])
			}
			return respond(t, req, ToolsCallResult{
				Content: []ContentBlock{{Type: "text", Text: `{"rainfall":[]}`}},
			})
		},
	}

	client := NewClient(transport, Options{})
	result, err := client.CallTool(context.Background(), ToolsCallParams{
		Name:      "hourly-rainfall",
		Arguments: map[string]any{"lang": "tc"},
	})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if got := result.Text(); got != `{"rainfall":[]}` {
		t.Fatalf("Text() = %q", got)
	}
}

func TestClientRPCError(t *testing.T) {
	transport := &mockTransport{
		handler: func(req Message) Message {
			return Message{JSONRPC: jsonRPCVersion, ID: req.ID, Error: &RPCError{Code: CodeInvalidParams, Message: "unknown tool: nope"}}
		},
	}

	client := NewClient(transport, Options{})
	_, err := client.CallTool(context.Background(), ToolsCallParams{Name: "nope"})
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error type = %T, want *RequestError", err)
	}
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != CodeInvalidParams {
		t.Fatalf("error = %v, want rpc code %d", err, CodeInvalidParams)
	}
}

func TestClientSendError(t *testing.T) {
	transport := &mockTransport{sendErr: errors.New("broken pipe")}
	client := NewClient(transport, Options{})
	err := client.Ping(context.Background())
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Method != MethodPing {
		t.Fatalf("Ping() error = %v, want RequestError for ping", err)
	}
}

func TestClientClose(t *testing.T) {
	transport := &mockTransport{}
	client := NewClient(transport, Options{})
	if err := client.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if !transport.closed {
		t.Fatal("transport.closed = false, want true")
	}
}

func mustJSON(t *testing.T, value any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	return data
}

func paramsMap(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return obj
}
