// Package signer reconstructs the EIP-155 signing message for a decoded
// Ethereum transaction and recovers its sender's address from the secp256k1
// signature.
package signer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/godwoken-web3/gw-gateway/ethtx"
	"github.com/godwoken-web3/gw-gateway/txerr"
)

// Recovered holds the outcome of recovering a transaction's sender: its
// address, the EIP-155 chain id implied by v (0 for a pre-EIP-155 tx), and
// the 65-byte signature in the r||s||recoveryByte layout §4.2 requires.
type Recovered struct {
	From      common.Address
	ChainID   *big.Int // 0 for pre-EIP-155 transactions
	Signature [65]byte
}

// SigningMessage returns the keccak256 digest tx was signed over, following
// EIP-155 when v is not 27/28.
func SigningMessage(tx *ethtx.Tx) ([]byte, error) {
	v := tx.V.Uint64()
	if v == 27 || v == 28 {
		enc, err := ethtx.EncodeUnsigned(tx)
		if err != nil {
			return nil, txerr.NewSignatureError("encoding unsigned message", err)
		}
		h := crypto.Keccak256(enc)
		return h, nil
	}

	chainID, err := ChainIDFromV(v)
	if err != nil {
		return nil, err
	}
	enc, err := ethtx.EncodeEIP155(tx, chainID)
	if err != nil {
		return nil, txerr.NewSignatureError("encoding EIP-155 message", err)
	}
	return crypto.Keccak256(enc), nil
}

// ChainIDFromV derives the EIP-155 chain id folded into v. v must not be
// 27 or 28 (those are pre-EIP-155 and carry no chain id).
func ChainIDFromV(v uint64) (*big.Int, error) {
	if v < 35 {
		return nil, txerr.NewSignatureError("v too small to carry an EIP-155 chain id", nil)
	}
	var chainID uint64
	if v%2 == 1 {
		chainID = (v - 35) / 2
	} else {
		chainID = (v - 36) / 2
	}
	return new(big.Int).SetUint64(chainID), nil
}

// RecoveryByte returns the signature's trailing byte for the given v: odd v
// maps to recovery id 0 / byte 0x00, even v maps to recovery id 1 / byte
// 0x01. Every consumer of this parity (the transcoder, the pending-view
// projector) calls through this one function.
func RecoveryByte(v uint64) byte {
	if v%2 == 0 {
		return 0x01
	}
	return 0x00
}

// recoveryID is the secp256k1 recovery id used to recover the public key.
// It follows the same parity convention as RecoveryByte (odd v -> id 0,
// even v -> id 1) and is derived from it.
func recoveryID(v uint64) byte {
	return RecoveryByte(v)
}

// Recover reconstructs the EIP-155 signing message, recovers the public key
// via secp256k1 ECDSA recovery, and derives the sender's address.
func Recover(tx *ethtx.Tx) (*Recovered, error) {
	msg, err := SigningMessage(tx)
	if err != nil {
		return nil, err
	}

	v := tx.V.Uint64()
	var chainID *big.Int
	if v != 27 && v != 28 {
		chainID, err = ChainIDFromV(v)
		if err != nil {
			return nil, err
		}
	} else {
		chainID = new(big.Int)
	}

	if len(tx.R) != 32 || len(tx.S) != 32 {
		return nil, txerr.NewSignatureError("r/s must be 32 bytes", nil)
	}

	compact := make([]byte, 65)
	copy(compact[0:32], tx.R)
	copy(compact[32:64], tx.S)
	compact[64] = recoveryID(v)

	pub, err := crypto.Ecrecover(msg, compact)
	if err != nil {
		return nil, txerr.NewSignatureError("ecrecover failed", err)
	}
	pubKey, err := crypto.UnmarshalPubkey(pub)
	if err != nil {
		return nil, txerr.NewSignatureError("unmarshalling recovered public key", err)
	}

	var sig [65]byte
	copy(sig[0:32], tx.R)
	copy(sig[32:64], tx.S)
	sig[64] = RecoveryByte(v)

	return &Recovered{
		From:      crypto.PubkeyToAddress(*pubKey),
		ChainID:   chainID,
		Signature: sig,
	}, nil
}
