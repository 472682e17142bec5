package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"

	"github.com/godwoken-web3/gw-gateway/account"
	"github.com/godwoken-web3/gw-gateway/cache"
	"github.com/godwoken-web3/gw-gateway/config"
	"github.com/godwoken-web3/gw-gateway/ethtx"
	"github.com/godwoken-web3/gw-gateway/jsonrpc"
	"github.com/godwoken-web3/gw-gateway/pending"
	"github.com/godwoken-web3/gw-gateway/proxy"
	"github.com/godwoken-web3/gw-gateway/rpcclient"
	"github.com/godwoken-web3/gw-gateway/transcoder"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()

	rollup, err := rpcclient.Dial(ctx, cfg.RollupRPCURL)
	if err != nil {
		slog.Error("failed to dial rollup RPC", "err", err)
		os.Exit(1)
	}
	defer rollup.Close()

	resolver, err := account.New(rollup, cfg)
	if err != nil {
		slog.Error("failed to build account resolver", "err", err)
		os.Exit(1)
	}

	tc := transcoder.New(resolver, rollup, cfg)
	cacheWriter := cache.NewWriter(cfg.RedisAddr)
	defer cacheWriter.Close()

	fallback, err := proxy.NewRPC(cfg.RollupRPCURL)
	if err != nil {
		slog.Error("failed to create RPC fallback proxy", "err", err)
		os.Exit(1)
	}

	gw := &gateway{
		cfg:      cfg,
		rollup:   rollup,
		tc:       tc,
		cache:    cacheWriter,
		fallback: fallback,
		pending:  newPendingRegistry(),
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("gateway starting", "addr", addr, "rollup_rpc", cfg.RollupRPCURL, "web3_chain_id", cfg.WEB3ChainID)

	if err := http.ListenAndServe(addr, gw); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

// gateway dispatches JSON-RPC 2.0 requests: eth_sendRawTransaction and
// eth_getTransactionByHash run the transcoding pipeline and pending-view
// projection locally; every other method is forwarded to the rollup's own
// JSON-RPC node via fallback.
type gateway struct {
	cfg      *config.ChainConfig
	rollup   *rpcclient.Client
	tc       *transcoder.Transcoder
	cache    *cache.Writer
	fallback *proxy.RPC
	pending  *pendingRegistry
}

func (g *gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	log := slog.With("request_id", requestID)

	if r.Method != http.MethodPost {
		g.fallback.ServeHTTP(w, r)
		return
	}

	body, err := readAndRestoreBody(r)
	if err != nil {
		log.Error("failed to read request body", "err", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var req jsonrpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		g.fallback.ServeHTTP(w, r)
		return
	}

	switch req.Method {
	case "eth_sendRawTransaction":
		g.handleSendRawTransaction(w, r.Context(), log, req)
	case "eth_getTransactionByHash":
		g.handleGetTransactionByHash(w, log, req)
	default:
		log.Debug("forwarding method upstream", "method", req.Method)
		g.fallback.ServeHTTP(w, r)
	}
}

func (g *gateway) handleSendRawTransaction(w http.ResponseWriter, ctx context.Context, log *slog.Logger, req jsonrpc.Request) {
	var params [1]hexutil.Bytes
	if err := json.Unmarshal(req.Params, &params); err != nil {
		jsonrpc.WriteError(w, req.ID, -32602, "invalid params")
		return
	}

	raw := []byte(params[0])
	result, err := g.tc.Transcode(ctx, raw)
	if err != nil {
		log.Warn("transcode rejected transaction", "err", err)
		jsonrpc.WriteError(w, req.ID, -32000, err.Error())
		return
	}

	serialized, err := result.L2Transaction.Bytes()
	if err != nil {
		log.Error("failed to serialize L2 transaction", "err", err)
		jsonrpc.WriteError(w, req.ID, -32603, "internal error")
		return
	}

	if _, err := g.rollup.SubmitL2Transaction(ctx, serialized); err != nil {
		log.Error("upstream submission failed", "err", err)
		jsonrpc.WriteError(w, req.ID, -32000, err.Error())
		return
	}

	if result.CacheEntry != nil {
		if err := g.cache.Put(ctx, result.CacheEntry); err != nil {
			// The transaction has already been submitted; a cache write
			// failure is logged but does not fail the request.
			log.Error("auto-create-account cache write failed", "err", err)
		}
	}

	g.pending.put(result.EthTxHash, result.EthTx, result.From)

	log.Info("transaction accepted", "hash", result.EthTxHash.Hex())
	jsonrpc.WriteResult(w, req.ID, result.EthTxHash)
}

func (g *gateway) handleGetTransactionByHash(w http.ResponseWriter, log *slog.Logger, req jsonrpc.Request) {
	var params [1]common.Hash
	if err := json.Unmarshal(req.Params, &params); err != nil {
		jsonrpc.WriteError(w, req.ID, -32602, "invalid params")
		return
	}

	entry, ok := g.pending.get(params[0])
	if !ok {
		jsonrpc.WriteResult(w, req.ID, nil)
		return
	}

	tipHash, err := g.rollup.GetTipBlockHash(context.Background())
	if err != nil {
		log.Error("failed to fetch tip block hash", "err", err)
		jsonrpc.WriteError(w, req.ID, -32000, err.Error())
		return
	}
	tipNumber, err := g.rollup.GetTipBlockNumber(context.Background())
	if err != nil {
		log.Error("failed to fetch tip block number", "err", err)
		jsonrpc.WriteError(w, req.ID, -32000, err.Error())
		return
	}

	view := pending.Project(params[0], tipHash, tipNumber, entry.from, entry.tx, g.cfg)
	jsonrpc.WriteResult(w, req.ID, view)
}

// pendingEntry is the in-process record backing eth_getTransactionByHash for
// a transaction this gateway has accepted but that has not yet appeared in a
// block.
type pendingEntry struct {
	tx   *ethtx.Tx
	from common.Address
}

// pendingRegistry is a bare in-memory map guarded by a mutex. It has no
// eviction: a real deployment would age entries out once the indexer reports
// the transaction included, which is out of scope here.
type pendingRegistry struct {
	mu      sync.RWMutex
	entries map[common.Hash]pendingEntry
}

func newPendingRegistry() *pendingRegistry {
	return &pendingRegistry{entries: make(map[common.Hash]pendingEntry)}
}

func (p *pendingRegistry) put(hash common.Hash, tx *ethtx.Tx, from common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[hash] = pendingEntry{tx: tx, from: from}
}

func (p *pendingRegistry) get(hash common.Hash) (pendingEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[hash]
	return e, ok
}

// readAndRestoreBody consumes r.Body and replaces it with a fresh reader
// over the same bytes, so the fallback proxy can still forward the full
// request after this handler has inspected it.
func readAndRestoreBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
