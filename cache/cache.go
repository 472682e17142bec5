// Package cache implements the handoff side of the auto-create-account
// cache contract (§6): the transcoder only ever returns a cache entry as a
// value, and this package is the one place in the repo that actually
// persists it, to Redis.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/godwoken-web3/gw-gateway/transcoder"
	"github.com/godwoken-web3/gw-gateway/txerr"
)

// record is the JSON value stored under an auto-create-account cache key.
type record struct {
	Tx          string `json:"tx"`
	FromAddress string `json:"fromAddress"`
}

// Writer persists AutoCreateAccountCacheEntry values to Redis. Lifetime and
// eviction are the cache owner's concern; this writer issues a plain SET
// with no TTL, which a production deployment would add on top.
type Writer struct {
	client *redis.Client
}

// NewWriter builds a Writer connected to addr.
func NewWriter(addr string) *Writer {
	return &Writer{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// Put stores entry under its cache key. The key is guaranteed unique per
// ethTxHash by the transcoder; Put does not attempt to detect or merge
// collisions.
func (w *Writer) Put(ctx context.Context, entry *transcoder.AutoCreateAccountCacheEntry) error {
	value := record{
		Tx:          "0x" + hex.EncodeToString(entry.Tx),
		FromAddress: entry.FromAddress.Hex(),
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return txerr.NewUpstreamError("marshalling auto-create-account cache entry", err)
	}
	if err := w.client.Set(ctx, entry.Key(), payload, 0).Err(); err != nil {
		return txerr.NewUpstreamError(fmt.Sprintf("writing cache key %s", entry.Key()), err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (w *Writer) Close() error { return w.client.Close() }
