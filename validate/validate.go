// Package validate implements the pure gas-limit, gas-price, intrinsic-gas,
// size, and balance-sufficiency predicates every transcoded transaction must
// satisfy before any side effect occurs.
package validate

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/godwoken-web3/gw-gateway/config"
	"github.com/godwoken-web3/gw-gateway/ethtx"
	"github.com/godwoken-web3/gw-gateway/txerr"
)

// Homestead-era Yellow Paper intrinsic gas weights. Mirrored here (rather
// than imported from go-ethereum/params) so a reviewer can check them
// against the Yellow Paper table directly; validate_test.go cross-checks
// them against go-ethereum/params. txGasContractCreation is the creation
// surcharge added on top of txGas, so it is checked as
// txGas+txGasContractCreation against params.TxGasContractCreation, which
// holds the whole base cost of a creating transaction.
const (
	txGas                 = 21000
	txDataZeroGas         = 4
	txDataNonZeroGasFrontier = 68
	txGasContractCreation = 32000
)

// Size checks that the RLP-encoded size of tx does not exceed the
// configured maximum. It re-encodes tx canonically to measure it.
func Size(tx *ethtx.Tx, cfg *config.ChainConfig) error {
	enc, err := ethtx.EncodeSigned(tx)
	if err != nil {
		return txerr.NewValidationError(txerr.SubkindSize, "re-encoding transaction for size check").WithContext(err.Error())
	}
	if uint64(len(enc)) > cfg.MaxTransactionSize {
		return txerr.NewValidationError(txerr.SubkindSize, "transaction exceeds MAX_TRANSACTION_SIZE")
	}
	return nil
}

// GasLimit checks tx.GasLimit against the configured bounds.
func GasLimit(tx *ethtx.Tx, cfg *config.ChainConfig) error {
	if tx.GasLimit < cfg.MinGasLimit {
		return txerr.NewValidationError(txerr.SubkindGasLimit, "gas limit below configured minimum")
	}
	if tx.GasLimit > cfg.MaxGasLimit {
		return txerr.NewValidationError(txerr.SubkindGasLimit, "gas limit above configured maximum")
	}
	return nil
}

// GasPrice checks tx.GasPrice against the configured bounds. An empty-bytes
// field decodes to zero upstream (ethtx.Decode), so no special-casing of
// "0x" is needed here.
func GasPrice(tx *ethtx.Tx, cfg *config.ChainConfig) error {
	if tx.GasPrice.Cmp(cfg.MinGasPrice) < 0 {
		return txerr.NewValidationError(txerr.SubkindGasPrice, "gas price below configured minimum")
	}
	if tx.GasPrice.Cmp(cfg.MaxGasPrice) > 0 {
		return txerr.NewValidationError(txerr.SubkindGasPrice, "gas price above configured maximum")
	}
	return nil
}

// IntrinsicGas computes the minimum gas required to include tx and checks
// tx.GasLimit covers it, per the Homestead-era Yellow Paper weights.
func IntrinsicGas(tx *ethtx.Tx) error {
	required := uint64(txGas)
	for _, b := range tx.Data {
		if b == 0 {
			required += txDataZeroGas
		} else {
			required += txDataNonZeroGasFrontier
		}
	}
	if tx.IsContractCreation() {
		required += txGasContractCreation
	}
	if tx.GasLimit < required {
		return txerr.NewValidationError(txerr.SubkindIntrinsicGas, "gas limit below intrinsic gas requirement")
	}
	return nil
}

// RequiredBalance returns value + gasLimit*gasPrice, the amount from's
// balance must cover.
func RequiredBalance(tx *ethtx.Tx) *big.Int {
	cost := new(big.Int).Mul(new(big.Int).SetUint64(tx.GasLimit), tx.GasPrice)
	return cost.Add(cost, tx.Value)
}

// SufficientBalance checks that balance covers value + gasLimit*gasPrice,
// returning an InsufficientBalance error identifying from when it does not.
func SufficientBalance(tx *ethtx.Tx, from common.Address, balance *big.Int) error {
	required := RequiredBalance(tx)
	if balance.Cmp(required) < 0 {
		return &txerr.InsufficientBalance{Required: required, Got: balance, Address: from}
	}
	return nil
}
