// Package pending projects a just-accepted Ethereum transaction into the
// JSON-RPC-shaped "pending" Ethereum view returned to clients before the
// transaction is included in a block.
package pending

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/godwoken-web3/gw-gateway/config"
	"github.com/godwoken-web3/gw-gateway/ethtx"
	"github.com/godwoken-web3/gw-gateway/signer"
)

// View is the Ethereum-shaped JSON-RPC record for a pending transaction.
// Numeric fields use go-ethereum's hexutil types, which already render
// minimally-prefixed hex and normalize a zero value to "0x0".
type View struct {
	Hash             common.Hash     `json:"hash"`
	BlockHash        common.Hash     `json:"blockHash"`
	BlockNumber      hexutil.Uint64  `json:"blockNumber"`
	TransactionIndex string          `json:"transactionIndex"`
	From             common.Address  `json:"from"`
	To               *common.Address `json:"to"`
	Gas              hexutil.Uint64  `json:"gas"`
	GasPrice         *hexutil.Big    `json:"gasPrice"`
	Input            hexutil.Bytes   `json:"input"`
	Nonce            hexutil.Uint64  `json:"nonce"`
	Value            *hexutil.Big    `json:"value"`
	V                string          `json:"v"`
	R                hexutil.Bytes   `json:"r"`
	S                hexutil.Bytes   `json:"s"`
}

// bump XORs the least-significant bit of tipHash's last byte with 0x01,
// producing a deterministic, non-colliding-in-expectation sentinel that is
// obviously not a real block hash. The exact bit pattern is load-bearing
// for external consumers that may key on it — it must never change.
func bump(tipHash common.Hash) common.Hash {
	bumped := tipHash
	bumped[31] ^= 0x01
	return bumped
}

// Project builds the pending view for a transaction whose sender address
// and assigned hash are already known (from the transcoder's output),
// against the rollup's current tip.
func Project(ethTxHash common.Hash, tipBlockHash common.Hash, tipBlockNumber uint64, from common.Address, tx *ethtx.Tx, cfg *config.ChainConfig) *View {
	var to *common.Address
	if !tx.IsContractCreation() {
		addr := tx.ToAddress()
		to = &addr
	}

	vHex := "0x0"
	if signer.RecoveryByte(tx.V.Uint64()) == 0x01 {
		vHex = "0x1"
	}

	return &View{
		Hash:             ethTxHash,
		BlockHash:        bump(tipBlockHash),
		BlockNumber:      hexutil.Uint64(tipBlockNumber + 1),
		TransactionIndex: cfg.PendingTransactionIndex,
		From:             from,
		To:               to,
		Gas:              hexutil.Uint64(tx.GasLimit),
		GasPrice:         (*hexutil.Big)(tx.GasPrice),
		Input:            tx.Data,
		Nonce:            hexutil.Uint64(tx.Nonce),
		Value:            (*hexutil.Big)(tx.Value),
		V:                vHex,
		R:                tx.R,
		S:                tx.S,
	}
}
