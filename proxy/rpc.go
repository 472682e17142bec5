// Package proxy forwards JSON-RPC methods the gateway does not transcode
// itself (eth_call, eth_getBalance, eth_blockNumber, ...) straight through
// to the full Godwoken-web3 JSON-RPC node. Only eth_sendRawTransaction and
// eth_getTransactionByHash are intercepted by the gateway entrypoint; every
// other method is this package's concern.
package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/godwoken-web3/gw-gateway/jsonrpc"
)

// RPC is a reverse proxy that forwards JSON-RPC requests to an upstream
// Godwoken-web3 node. It strips client-identifying headers before
// forwarding, and on upstream failure answers with this gateway's own
// JSON-RPC 2.0 error envelope rather than a bare HTTP error body, so a
// forwarded call fails the same way a locally-handled one does.
type RPC struct {
	proxy *httputil.ReverseProxy
}

// NewRPC creates a new RPC reverse proxy targeting upstreamURL.
func NewRPC(upstreamURL string) (*RPC, error) {
	target, err := url.Parse(upstreamURL)
	if err != nil {
		return nil, err
	}

	rp := httputil.NewSingleHostReverseProxy(target)

	base := rp.Director
	rp.Director = func(req *http.Request) {
		base(req)
		// Strip headers that could identify or correlate the originating client.
		req.Header.Del("X-Forwarded-For")
		req.Header.Del("X-Forwarded-Host")
		req.Header.Del("X-Forwarded-Proto")
		req.Header.Del("X-Real-Ip")
		req.Header.Del("Forwarded")
		req.Header.Del("Via")
		// Force the Host header to match the upstream to avoid leaking the
		// client's original Host and to prevent host-header routing issues.
		req.Host = target.Host

		// Stash the caller's JSON-RPC request id in the request context so
		// ErrorHandler, which only sees the (already-proxied) *http.Request,
		// can still address its error response to the right id.
		*req = *req.WithContext(jsonrpc.WithRequestID(req.Context(), peekRequestID(req)))
	}

	// Propagate upstream errors to the client as this gateway's own
	// JSON-RPC error envelope (§ jsonrpc.Response), matching every other
	// error this gateway returns, rather than a bare HTTP error body. The
	// full error is logged server-side; the client only sees a generic
	// message to avoid leaking the upstream RPC URL or internal connection
	// details.
	rp.ErrorHandler = func(w http.ResponseWriter, req *http.Request, err error) {
		slog.Error("upstream RPC error", "err", err)
		jsonrpc.WriteErrorStatus(w, http.StatusBadGateway, jsonrpc.RequestIDFrom(req.Context()), -32000, "upstream unavailable")
	}

	return &RPC{proxy: rp}, nil
}

// ServeHTTP forwards the request to the upstream RPC node.
func (r *RPC) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.proxy.ServeHTTP(w, req)
}

// peekRequestID reads req's JSON-RPC id without consuming its body for
// downstream readers: the reverse proxy still needs to forward the
// original bytes upstream, so the body reader is replaced with a fresh one
// over the same bytes before returning.
func peekRequestID(req *http.Request) json.RawMessage {
	if req.Body == nil {
		return nil
	}
	body, err := io.ReadAll(req.Body)
	req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var parsed jsonrpc.Request
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil
	}
	return parsed.ID
}
