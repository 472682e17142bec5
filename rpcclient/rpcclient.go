// Package rpcclient is a thin adapter over go-ethereum's JSON-RPC 2.0
// client exposing the three Godwoken rollup node method shapes the
// transcoder consumes. Transport failures are wrapped as txerr.UpstreamError
// and never retried here — retry policy belongs to the caller.
package rpcclient

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/godwoken-web3/gw-gateway/txerr"
)

// Client talks to a Godwoken rollup node's JSON-RPC endpoint.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to url (http(s):// or ws(s)://).
func Dial(ctx context.Context, url string) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, txerr.NewUpstreamError("dialing rollup RPC", err)
	}
	return &Client{rpc: c}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() { c.rpc.Close() }

// GetAccountIDByScriptHash returns the account id registered for
// scriptHash, or (0, false) if none is registered yet.
func (c *Client) GetAccountIDByScriptHash(ctx context.Context, scriptHash common.Hash) (uint32, bool, error) {
	var result *hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &result, "gw_getAccountIdByScriptHash", scriptHash); err != nil {
		return 0, false, txerr.NewUpstreamError("gw_getAccountIdByScriptHash", err)
	}
	if result == nil {
		return 0, false, nil
	}
	return uint32(*result), true, nil
}

// GetScriptHash returns the on-chain script hash registered for accountID.
func (c *Client) GetScriptHash(ctx context.Context, accountID uint32) (common.Hash, error) {
	var result common.Hash
	if err := c.rpc.CallContext(ctx, &result, "gw_getScriptHash", hexutil.Uint64(accountID)); err != nil {
		return common.Hash{}, txerr.NewUpstreamError("gw_getScriptHash", err)
	}
	return result, nil
}

// GetBalance returns address's balance of the given sudt id.
func (c *Client) GetBalance(ctx context.Context, address common.Address, sudtID uint32) (*big.Int, error) {
	var result *hexutil.Big
	if err := c.rpc.CallContext(ctx, &result, "gw_getBalance", address, hexutil.Uint64(sudtID)); err != nil {
		return nil, txerr.NewUpstreamError("gw_getBalance", err)
	}
	if result == nil {
		return new(big.Int), nil
	}
	return (*big.Int)(result), nil
}

// SubmitL2Transaction submits a serialized, signed L2Transaction to the
// rollup node and returns the accepted transaction's hash.
func (c *Client) SubmitL2Transaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var result common.Hash
	if err := c.rpc.CallContext(ctx, &result, "gw_submitL2Transaction", hexutil.Bytes(raw)); err != nil {
		return common.Hash{}, txerr.NewUpstreamError("gw_submitL2Transaction", err)
	}
	return result, nil
}

// GetTipBlockHash returns the current tip block's hash, used by the
// pending-view projector's bump function.
func (c *Client) GetTipBlockHash(ctx context.Context) (common.Hash, error) {
	var hash common.Hash
	if err := c.rpc.CallContext(ctx, &hash, "gw_getTipBlockHash"); err != nil {
		return common.Hash{}, txerr.NewUpstreamError("gw_getTipBlockHash", err)
	}
	return hash, nil
}

// GetTipBlockNumber returns the current tip block's number.
func (c *Client) GetTipBlockNumber(ctx context.Context) (uint64, error) {
	var number hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &number, "gw_getTipBlockNumber"); err != nil {
		return 0, txerr.NewUpstreamError("gw_getTipBlockNumber", err)
	}
	return uint64(number), nil
}
