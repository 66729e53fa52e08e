package mcp

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// SessionHeader carries the session id assigned on initialize.
const SessionHeader = "Mcp-Session-Id"

// DefaultHTTPPath is where HTTPHandler is mounted unless configured otherwise.
const DefaultHTTPPath = "/mcp"

// HTTPHandler serves the server over HTTP POST: one JSON-RPC message per
// request body, the response in the reply body. Notifications are answered
// with 202 Accepted and no body.
func (s *Server) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "read request body", http.StatusBadRequest)
			return
		}

		resp := s.HandleRaw(r.Context(), body)
		if resp == nil {
			w.WriteHeader(http.StatusAccepted)
			return
		}

		sessionID := r.Header.Get(SessionHeader)
		if sessionID == "" && isInitialize(body) {
			sessionID = uuid.NewString()
			s.logger.Debug("mcp http session opened", slog.String("session_id", sessionID))
		}
		if sessionID != "" {
			w.Header().Set(SessionHeader, sessionID)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(resp)
	})
}

func isInitialize(body []byte) bool {
	var probe struct {
		Method string `json:"method"`
	}
	return json.Unmarshal(body, &probe) == nil && probe.Method == MethodInitialize
}
