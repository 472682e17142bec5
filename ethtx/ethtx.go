// Package ethtx decodes and re-encodes the nine-field RLP tuple of a signed
// Ethereum transaction, as submitted to eth_sendRawTransaction.
package ethtx

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/godwoken-web3/gw-gateway/txerr"
)

// Tx is the decoded nine-field signed Ethereum transaction. To, when empty,
// denotes contract creation. R and S are always left-padded to 32 bytes.
type Tx struct {
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	To       []byte // 20 bytes, or empty for contract creation
	Value    *big.Int
	Data     []byte
	V        *big.Int
	R        []byte // 32 bytes, zero-padded
	S        []byte // 32 bytes, zero-padded
}

// rlpTx mirrors the wire shape RLP decodes into: every field as a raw
// integer or byte string, before being folded into Tx's typed fields. An
// integer field given as the empty string decodes to zero.
type rlpTx struct {
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	To       []byte
	Value    *big.Int
	Data     []byte
	V        *big.Int
	R        *big.Int
	S        *big.Int
}

// IsContractCreation reports whether To denotes contract creation (empty).
func (tx *Tx) IsContractCreation() bool { return len(tx.To) == 0 }

// ToAddress returns To as a common.Address. Only meaningful when
// !IsContractCreation.
func (tx *Tx) ToAddress() common.Address { return common.BytesToAddress(tx.To) }

// Decode parses raw as the RLP encoding of a signed Ethereum transaction.
// The list must contain exactly nine elements; anything else is a
// DecodeError. R and S are normalized to 32-byte big-endian strings.
func Decode(raw []byte) (*Tx, error) {
	var fields []rlp.RawValue
	if err := rlp.DecodeBytes(raw, &fields); err != nil {
		return nil, txerr.NewDecodeError("not a valid RLP list", err)
	}
	if len(fields) != 9 {
		return nil, txerr.NewDecodeError("expected 9 fields, got "+strconv.Itoa(len(fields)), nil)
	}

	var parsed rlpTx
	if err := rlp.DecodeBytes(raw, &parsed); err != nil {
		return nil, txerr.NewDecodeError("malformed transaction fields", err)
	}
	if len(parsed.To) != 0 && len(parsed.To) != common.AddressLength {
		return nil, txerr.NewDecodeError("to must be 20 bytes or empty, got "+strconv.Itoa(len(parsed.To)), nil)
	}
	if nonNilBig(parsed.R).BitLen() > 256 || nonNilBig(parsed.S).BitLen() > 256 {
		return nil, txerr.NewDecodeError("r and s must fit in 32 bytes", nil)
	}

	tx := &Tx{
		Nonce:    parsed.Nonce,
		GasPrice: nonNilBig(parsed.GasPrice),
		GasLimit: parsed.GasLimit,
		To:       parsed.To,
		Value:    nonNilBig(parsed.Value),
		Data:     parsed.Data,
		V:        nonNilBig(parsed.V),
		R:        padTo32(nonNilBig(parsed.R)),
		S:        padTo32(nonNilBig(parsed.S)),
	}
	return tx, nil
}

// EncodeSigned re-encodes tx, including its signature fields, as canonical
// minimal-length RLP. Used to measure the transaction's on-wire size and to
// compute ethTxHash.
func EncodeSigned(tx *Tx) ([]byte, error) {
	return rlp.EncodeToBytes([]interface{}{
		tx.Nonce,
		tx.GasPrice,
		tx.GasLimit,
		toRLPTo(tx.To),
		tx.Value,
		tx.Data,
		tx.V,
		new(big.Int).SetBytes(tx.R),
		new(big.Int).SetBytes(tx.S),
	})
}

// EncodeUnsigned re-encodes the six message fields (no v/r/s), used as the
// pre-EIP-155 signing payload.
func EncodeUnsigned(tx *Tx) ([]byte, error) {
	return rlp.EncodeToBytes([]interface{}{
		tx.Nonce,
		tx.GasPrice,
		tx.GasLimit,
		toRLPTo(tx.To),
		tx.Value,
		tx.Data,
	})
}

// EncodeEIP155 re-encodes the nine-field EIP-155 signing payload
// (six message fields + chainId, 0, 0).
func EncodeEIP155(tx *Tx, chainID *big.Int) ([]byte, error) {
	return rlp.EncodeToBytes([]interface{}{
		tx.Nonce,
		tx.GasPrice,
		tx.GasLimit,
		toRLPTo(tx.To),
		tx.Value,
		tx.Data,
		chainID,
		uint(0),
		uint(0),
	})
}

func toRLPTo(to []byte) interface{} {
	if len(to) == 0 {
		return []byte{}
	}
	return to
}

func nonNilBig(b *big.Int) *big.Int {
	if b == nil {
		return new(big.Int)
	}
	return b
}

// padTo32 left-pads b's big-endian bytes to exactly 32 bytes, preserving its
// integer value.
func padTo32(b *big.Int) []byte {
	out := make([]byte, 32)
	raw := b.Bytes()
	copy(out[32-len(raw):], raw)
	return out
}
