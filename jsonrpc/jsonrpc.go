// Package jsonrpc defines the JSON-RPC 2.0 request/response envelope this
// gateway speaks, shared by the gateway's own dispatch (main.go) and by the
// fallback reverse proxy (proxy/rpc.go) so a request answered locally and a
// request forwarded upstream fail in exactly the same shape.
package jsonrpc

import (
	"context"
	"encoding/json"
	"net/http"
)

// Request is an inbound JSON-RPC 2.0 call.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is an outbound JSON-RPC 2.0 reply. Result and Error are mutually
// exclusive; exactly one is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// WriteResult writes a successful reply carrying result for id. A nil
// result is sent as "result": null rather than omitted.
func WriteResult(w http.ResponseWriter, id json.RawMessage, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  interface{}     `json:"result"`
	}{JSONRPC: "2.0", ID: id, Result: result})
}

// WriteError writes an error Response for id with the given JSON-RPC code
// and message, using the default 200 status (the JSON-RPC error lives in
// the body, per spec, not in the HTTP status line).
func WriteError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	WriteErrorStatus(w, http.StatusOK, id, code, message)
}

// WriteErrorStatus is WriteError with an explicit HTTP status, for callers
// (the reverse-proxy fallback) that want the transport-level failure
// reflected in the status line as well as the JSON-RPC body.
func WriteErrorStatus(w http.ResponseWriter, status int, id json.RawMessage, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{JSONRPC: "2.0", ID: id, Error: &Error{Code: code, Message: message}})
}

type contextKey int

const requestIDKey contextKey = 0

// WithRequestID returns a copy of ctx carrying id, so a handler that only
// sees a context (not the original request body) can still address an
// error response to the right JSON-RPC request id.
func WithRequestID(ctx context.Context, id json.RawMessage) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFrom returns the request id stashed by WithRequestID, or nil if
// none was stashed.
func RequestIDFrom(ctx context.Context) json.RawMessage {
	id, _ := ctx.Value(requestIDKey).(json.RawMessage)
	return id
}
