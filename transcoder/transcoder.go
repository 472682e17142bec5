// Package transcoder implements the top-level Ethereum-to-Godwoken
// transaction transcoding operation: it validates a raw signed Ethereum
// transaction, resolves sender and recipient accounts, classifies the
// transaction as a native transfer, contract call, or contract creation,
// and assembles the L2Transaction Godwoken expects.
package transcoder

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/godwoken-web3/gw-gateway/account"
	"github.com/godwoken-web3/gw-gateway/config"
	"github.com/godwoken-web3/gw-gateway/ethtx"
	"github.com/godwoken-web3/gw-gateway/polyjuice"
	"github.com/godwoken-web3/gw-gateway/signer"
	"github.com/godwoken-web3/gw-gateway/txerr"
	"github.com/godwoken-web3/gw-gateway/validate"
)

// BalanceClient is the subset of the rollup RPC the transcoder needs
// directly (beyond what the account.Resolver already wraps).
type BalanceClient interface {
	GetBalance(ctx context.Context, address common.Address, sudtID uint32) (*big.Int, error)
}

// RawL2Transaction is the rollup-shaped transaction body. It is serialized
// only by L2Transaction.Bytes, which uses RLP (big-endian, minimal-length
// integers); no little-endian encoding of ChainID, FromID, ToID, or Nonce
// is produced anywhere in this repo.
type RawL2Transaction struct {
	ChainID uint64
	FromID  uint32
	ToID    uint32
	Nonce   uint32
	Args    []byte
}

// L2Transaction is a RawL2Transaction plus its 65-byte r||s||recoveryByte
// signature.
type L2Transaction struct {
	Raw       RawL2Transaction
	Signature [65]byte
}

// AutoCreateAccountCacheEntry is produced, never persisted, by Transcode
// when the sender has no rollup account yet. §6 specifies the handoff to a
// downstream cache.
type AutoCreateAccountCacheEntry struct {
	EthTxHash   common.Hash
	Tx          []byte // raw RLP of the original signed Ethereum transaction
	FromAddress common.Address
}

// Key returns the cache key this entry must be stored under.
func (e *AutoCreateAccountCacheEntry) Key() string {
	return "auto_create_account:0x" + e.EthTxHash.Hex()[2:]
}

// Bytes serializes the L2Transaction for submission to the rollup RPC's
// gw_submitL2Transaction. The rollup node's real wire format is a CKB
// Molecule encoding; this repo encodes the same fields with go-ethereum's
// rlp package, which the rest of the transcoder already depends on, rather
// than pulling in a Molecule codec the example pack does not carry.
func (tx *L2Transaction) Bytes() ([]byte, error) {
	return rlp.EncodeToBytes(tx)
}

// Transcoder orchestrates the pipeline described in §4.6. It borrows the
// account resolver, a balance-capable RPC client, and the chain
// configuration snapshot; it owns no mutable state of its own.
type Transcoder struct {
	resolver *account.Resolver
	balances BalanceClient
	cfg      *config.ChainConfig
}

// New builds a Transcoder.
func New(resolver *account.Resolver, balances BalanceClient, cfg *config.ChainConfig) *Transcoder {
	return &Transcoder{resolver: resolver, balances: balances, cfg: cfg}
}

// Result bundles everything a caller needs after a successful Transcode: the
// assembled L2Transaction, the decoded Ethereum transaction it was built
// from (for pending-view projection), the canonical Ethereum transaction
// hash, the sender's address, and an auto-create-account cache entry, which
// is nil when the sender already had a rollup account.
type Result struct {
	L2Transaction *L2Transaction
	EthTx         *ethtx.Tx
	EthTxHash     common.Hash
	From          common.Address
	CacheEntry    *AutoCreateAccountCacheEntry
}

// Transcode runs the full pipeline on raw. If it returns an error, no side
// effect has occurred and the returned Result is nil.
func (t *Transcoder) Transcode(ctx context.Context, raw []byte) (*Result, error) {
	tx, err := ethtx.Decode(raw)
	if err != nil {
		return nil, err
	}

	if err := validate.Size(tx, t.cfg); err != nil {
		return nil, err
	}
	if err := validate.GasLimit(tx, t.cfg); err != nil {
		return nil, err
	}
	if err := validate.GasPrice(tx, t.cfg); err != nil {
		return nil, err
	}

	rec, err := signer.Recover(tx)
	if err != nil {
		return nil, err
	}

	canonical, err := ethtx.EncodeSigned(tx)
	if err != nil {
		return nil, err
	}
	ethTxHash := crypto.Keccak256Hash(canonical)

	fromID, present, err := t.resolver.AccountIDOf(ctx, rec.From)
	if err != nil {
		return nil, err
	}

	// Steps 5 and 6's balance checks are the same predicate (§4.4
	// SufficientBalance) against the same account; it is only ever run
	// once per request rather than once per spec paragraph.
	balance, err := t.balances.GetBalance(ctx, rec.From, t.cfg.SudtID)
	if err != nil {
		return nil, err
	}
	if err := validate.SufficientBalance(tx, rec.From, balance); err != nil {
		return nil, err
	}

	var cacheEntry *AutoCreateAccountCacheEntry
	if !present {
		cacheEntry = &AutoCreateAccountCacheEntry{
			EthTxHash:   ethTxHash,
			Tx:          raw,
			FromAddress: rec.From,
		}
		fromID = t.cfg.AutoCreateAccountFromID
	}

	if err := validate.IntrinsicGas(tx); err != nil {
		return nil, err
	}

	toID, args, err := t.classifyRecipient(ctx, tx)
	if err != nil {
		return nil, err
	}

	v := tx.V.Uint64()
	chainID := t.cfg.WEB3ChainID
	if v == 27 || v == 28 {
		chainID = 0
	}

	l2tx := &L2Transaction{
		Raw: RawL2Transaction{
			ChainID: chainID,
			FromID:  fromID,
			ToID:    toID,
			Nonce:   uint32(tx.Nonce),
			Args:    args,
		},
		Signature: rec.Signature,
	}
	return &Result{
		L2Transaction: l2tx,
		EthTx:         tx,
		EthTxHash:     ethTxHash,
		From:          rec.From,
		CacheEntry:    cacheEntry,
	}, nil
}

// classifyRecipient implements §4.6 step 7: contract creation, native
// transfer, or regular contract call, returning the resolved to_id and the
// fully assembled Polyjuice args.
func (t *Transcoder) classifyRecipient(ctx context.Context, tx *ethtx.Tx) (uint32, []byte, error) {
	polyArgs := &polyjuice.Args{
		IsCreate: tx.IsContractCreation(),
		GasLimit: tx.GasLimit,
		GasPrice: tx.GasPrice,
		Value:    tx.Value,
		Input:    tx.Data,
	}

	if tx.IsContractCreation() {
		args, err := polyjuice.Encode(polyArgs, nil)
		if err != nil {
			return 0, nil, err
		}
		return t.cfg.PolyjuiceCreatorAccountID, args, nil
	}

	to := tx.ToAddress()
	toID, present, err := t.resolver.AccountIDOf(ctx, to)
	if err != nil {
		return 0, nil, err
	}

	nativeTransfer := !present
	if present {
		isEOA, err := t.resolver.IsEOA(ctx, to, toID)
		if err != nil {
			return 0, nil, err
		}
		nativeTransfer = isEOA
	}

	if nativeTransfer {
		toBytes := to.Bytes()
		args, err := polyjuice.Encode(polyArgs, toBytes)
		if err != nil {
			return 0, nil, err
		}
		return t.cfg.PolyjuiceCreatorAccountID, args, nil
	}

	if !present {
		return 0, nil, &txerr.RecipientNotFound{Address: to}
	}
	args, err := polyjuice.Encode(polyArgs, nil)
	if err != nil {
		return 0, nil, err
	}
	return toID, args, nil
}
