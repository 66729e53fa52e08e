package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/petal-labs/hkomcp/tool"
)

const (
	defaultServerName    = "hkomcp"
	defaultServerVersion = "dev"
)

// ServerOptions configures server identity and logging.
type ServerOptions struct {
	Info         ServerInfo
	Instructions string
	Logger       *slog.Logger
}

// Server answers MCP requests by dispatching tools/call to a tool.Dispatcher.
// It holds no per-session state, so one Server can back any number of
// transports concurrently.
type Server struct {
	dispatcher   *tool.Dispatcher
	tools        []Tool
	info         ServerInfo
	instructions string
	logger       *slog.Logger
}

// NewServer builds a server over dispatcher. The tool list is computed once
// from the dispatcher's registry.
func NewServer(dispatcher *tool.Dispatcher, options ServerOptions) (*Server, error) {
	if dispatcher == nil {
		return nil, errors.New("mcp: dispatcher is nil")
	}
	if options.Info.Name == "" {
		options.Info.Name = defaultServerName
	}
	if options.Info.Version == "" {
		options.Info.Version = defaultServerVersion
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	descs := dispatcher.Registry().List()
	tools := make([]Tool, 0, len(descs))
	for _, desc := range descs {
		schema := desc.InputSchema
		if len(schema) == 0 {
			schema = schemaFromParams(desc.Parameters)
		}
		tools = append(tools, Tool{
			Name:        desc.Name,
			Description: desc.Description,
			InputSchema: schema,
		})
	}

	return &Server{
		dispatcher:   dispatcher,
		tools:        tools,
		info:         options.Info,
		instructions: options.Instructions,
		logger:       logger,
	}, nil
}

// Tools returns the advertised tools in registry order.
func (s *Server) Tools() []Tool {
	out := make([]Tool, len(s.tools))
	copy(out, s.tools)
	return out
}

// HandleMessage processes one decoded message. The boolean is false when the
// message is a notification and nothing should be written back.
func (s *Server) HandleMessage(ctx context.Context, msg Message) (Message, bool) {
	if msg.JSONRPC != jsonRPCVersion || msg.Method == "" {
		if msg.IsNotification() {
			return Message{}, false
		}
		return errorResponse(msg.ID, CodeInvalidRequest, "invalid request"), true
	}
	if msg.IsNotification() {
		s.logger.Debug("mcp notification", "method", msg.Method)
		return Message{}, false
	}

	result, rpcErr := s.dispatch(ctx, msg)
	if rpcErr != nil {
		s.logger.Debug("mcp request failed", "method", msg.Method, "code", rpcErr.Code, "error", rpcErr.Message)
		return Message{JSONRPC: jsonRPCVersion, ID: msg.ID, Error: rpcErr}, true
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return errorResponse(msg.ID, CodeInternalError, fmt.Sprintf("encode result: %v", err)), true
	}
	return Message{JSONRPC: jsonRPCVersion, ID: msg.ID, Result: raw}, true
}

// HandleRaw decodes one JSON-RPC message and returns the encoded response,
// or nil for notifications.
func (s *Server) HandleRaw(ctx context.Context, data []byte) []byte {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return mustEncode(errorResponse(json.RawMessage("null"), CodeParseError, "parse error"))
	}
	resp, ok := s.HandleMessage(ctx, msg)
	if !ok {
		return nil
	}
	return mustEncode(resp)
}

func (s *Server) dispatch(ctx context.Context, msg Message) (any, *RPCError) {
	switch msg.Method {
	case MethodInitialize:
		var params InitializeParams
		if err := decodeParams(msg.Params, &params); err != nil {
			return nil, err
		}
		s.logger.Info("mcp session initialized",
			"client", params.ClientInfo.Name,
			"client_version", params.ClientInfo.Version,
			"protocol_version", params.ProtocolVersion,
		)
		return InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    map[string]any{"tools": map[string]any{}},
			ServerInfo:      s.info,
			Instructions:    s.instructions,
		}, nil
	case MethodPing:
		return map[string]any{}, nil
	case MethodToolsList:
		return ToolsListResult{Tools: s.Tools()}, nil
	case MethodToolsCall:
		var params ToolsCallParams
		if err := decodeParams(msg.Params, &params); err != nil {
			return nil, err
		}
		return s.callTool(ctx, params)
	default:
		return nil, &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", msg.Method)}
	}
}

func (s *Server) callTool(ctx context.Context, params ToolsCallParams) (any, *RPCError) {
	if params.Name == "" {
		return nil, &RPCError{Code: CodeInvalidParams, Message: "tool name is required"}
	}
	if _, ok := s.dispatcher.Registry().Lookup(params.Name); !ok {
		return nil, &RPCError{Code: CodeInvalidParams, Message: fmt.Sprintf("unknown tool: %s", params.Name)}
	}

	args, err := tool.StringArguments(params.Arguments)
	if err != nil {
		return toolErrorResult(err), nil
	}
	res, err := s.dispatcher.Invoke(ctx, tool.Invocation{Tool: params.Name, Arguments: args})
	if err != nil {
		if errors.Is(err, tool.ErrToolNotFound) {
			return nil, &RPCError{Code: CodeInvalidParams, Message: fmt.Sprintf("unknown tool: %s", params.Name)}
		}
		return toolErrorResult(err), nil
	}
	return toolSuccessResult(res), nil
}

// toolSuccessResult passes the upstream body through as the text content.
// JSON bodies were already validated by the dispatcher, so key order, number
// spelling and escaping stay as the upstream wrote them.
func toolSuccessResult(res tool.Result) ToolsCallResult {
	text := res.Text
	if res.Format == tool.FormatJSON {
		text = strings.TrimSpace(text)
	}
	out := ToolsCallResult{Content: []ContentBlock{{Type: "text", Text: text}}}
	if obj, ok := res.Object(); ok {
		out.StructuredContent = obj
	}
	return out
}

func toolErrorResult(err error) ToolsCallResult {
	kind := tool.ErrorKind(err)
	message := err.Error()
	var details map[string]any
	if toolErr, ok := tool.AsToolError(err); ok {
		message = toolErr.Message
		details = toolErr.Details
	}
	structured := map[string]any{
		"errorKind": kind,
		"message":   message,
	}
	if len(details) > 0 {
		structured["details"] = details
	}
	return ToolsCallResult{
		Content:           []ContentBlock{{Type: "text", Text: kind + ": " + message}},
		StructuredContent: structured,
		IsError:           true,
	}
}

func decodeParams(raw json.RawMessage, out any) *RPCError {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &RPCError{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}

func errorResponse(id json.RawMessage, code int, message string) Message {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return Message{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	}
}

func mustEncode(msg Message) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		data, _ = json.Marshal(errorResponse(msg.ID, CodeInternalError, err.Error()))
	}
	return data
}

func schemaFromParams(params []tool.ParamSpec) map[string]any {
	props := make(map[string]any, len(params))
	required := make([]string, 0)
	for _, param := range params {
		prop := map[string]any{"type": "string"}
		if param.Description != "" {
			prop["description"] = param.Description
		}
		if param.Default != "" {
			prop["default"] = param.Default
		}
		if len(param.Enum) > 0 {
			prop["enum"] = append([]string(nil), param.Enum...)
		}
		props[param.Name] = prop
		if param.Required {
			required = append(required, param.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
