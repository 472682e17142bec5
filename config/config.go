package config

import (
	"math/big"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/godwoken-web3/gw-gateway/txerr"
)

// ChainConfig is the immutable configuration snapshot borrowed by every
// component of the transcoder. It is loaded once at process start and passed
// by pointer; no component reads a process-wide global.
type ChainConfig struct {
	// RollupRPCURL is the Godwoken rollup node's JSON-RPC endpoint.
	RollupRPCURL string

	// WEB3ChainID is the chain id advertised to Ethereum-side clients and
	// emitted as RawL2Transaction.chain_id for EIP-155 transactions.
	WEB3ChainID uint64

	// PolyjuiceCreatorAccountID is the account id all contract creations and
	// native transfers are routed through.
	PolyjuiceCreatorAccountID uint32

	// EthAccountLockCodeHash is the code hash of the ETH-account-lock script,
	// used to derive an address's EOA script hash.
	EthAccountLockCodeHash common.Hash

	// SudtID is the fungible-token id getBalance is queried against.
	SudtID uint32

	// MaxTransactionSize bounds the RLP-encoded size of an accepted
	// transaction, in bytes.
	MaxTransactionSize uint64

	// MinGasPrice/MaxGasPrice bound the accepted gasPrice field.
	MinGasPrice *big.Int
	MaxGasPrice *big.Int

	// MinGasLimit/MaxGasLimit bound the accepted gasLimit field.
	MinGasLimit uint64
	MaxGasLimit uint64

	// AutoCreateAccountFromID is the sentinel from_id substituted when the
	// sender has no rollup account yet (default 0). Load-bearing: downstream
	// code recognizes auto-create submissions by this value.
	AutoCreateAccountFromID uint32

	// PendingTransactionIndex is the marker rendered as transactionIndex for
	// a transaction that has been accepted but not yet included.
	PendingTransactionIndex string

	// AccountCacheSize bounds the account resolver's LRU caches.
	AccountCacheSize int

	// Port is the HTTP listen port for the gateway entrypoint.
	Port int

	// RedisAddr is the address of the Redis instance backing the
	// auto-create-account cache writer.
	RedisAddr string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first if present (dev convenience).
func Load() (*ChainConfig, error) {
	_ = godotenv.Load() // no-op if .env absent; production uses real env vars

	cfg := &ChainConfig{
		RollupRPCURL:            getEnv("ROLLUP_RPC_URL", "http://127.0.0.1:8119"),
		WEB3ChainID:             getEnvUint64("WEB3_CHAIN_ID", 71401),
		PolyjuiceCreatorAccountID: uint32(getEnvUint64("POLYJUICE_CREATOR_ACCOUNT_ID", 3)),
		SudtID:                  uint32(getEnvUint64("SUDT_ID", 1)),
		MaxTransactionSize:      getEnvUint64("MAX_TRANSACTION_SIZE", 50_000),
		MinGasPrice:             big.NewInt(int64(getEnvUint64("MIN_GAS_PRICE", 0))),
		MaxGasPrice:             new(big.Int).SetUint64(getEnvUint64("MAX_GAS_PRICE", 1_000_000_000_000)),
		MinGasLimit:             getEnvUint64("MIN_GAS_LIMIT", 21_000),
		MaxGasLimit:             getEnvUint64("MAX_GAS_LIMIT", 12_500_000),
		AutoCreateAccountFromID: uint32(getEnvUint64("AUTO_CREATE_ACCOUNT_FROM_ID", 0)),
		PendingTransactionIndex: getEnv("PENDING_TRANSACTION_INDEX", "0x7fffffff"),
		AccountCacheSize:        int(getEnvUint64("ACCOUNT_CACHE_SIZE", 4096)),
		Port:                    int(getEnvUint64("PORT", 8119)),
		RedisAddr:               getEnv("REDIS_ADDR", "127.0.0.1:6379"),
	}

	lockHashHex := getEnv("ETH_ACCOUNT_LOCK_CODE_HASH", "")
	if lockHashHex == "" {
		return nil, txerr.NewConfigError("ETH_ACCOUNT_LOCK_CODE_HASH is required", nil)
	}
	if len(common.FromHex(lockHashHex)) != common.HashLength {
		return nil, txerr.NewConfigError("ETH_ACCOUNT_LOCK_CODE_HASH must be a 32-byte hex hash", nil)
	}
	cfg.EthAccountLockCodeHash = common.HexToHash(lockHashHex)

	if cfg.MaxTransactionSize == 0 {
		return nil, txerr.NewConfigError("MAX_TRANSACTION_SIZE must be positive", nil)
	}
	if cfg.MinGasLimit > cfg.MaxGasLimit {
		return nil, txerr.NewConfigError("MIN_GAS_LIMIT must not exceed MAX_GAS_LIMIT", nil)
	}
	if cfg.MinGasPrice.Cmp(cfg.MaxGasPrice) > 0 {
		return nil, txerr.NewConfigError("MIN_GAS_PRICE must not exceed MAX_GAS_PRICE", nil)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvUint64(key string, fallback uint64) uint64 {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
