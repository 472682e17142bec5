package ethtx

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"
)

func signedTx(t *testing.T, to []byte, v, r, s int64) *Tx {
	t.Helper()
	return &Tx{
		Nonce:    1,
		GasPrice: big.NewInt(1_000),
		GasLimit: 21_000,
		To:       to,
		Value:    big.NewInt(500),
		Data:     []byte{},
		V:        big.NewInt(v),
		R:        padTo32(big.NewInt(r)),
		S:        padTo32(big.NewInt(s)),
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	to := make([]byte, 20)
	to[19] = 0x42
	tx := signedTx(t, to, 37, 111, 222)

	enc, err := EncodeSigned(tx)
	require.NoError(t, err)

	decoded, err := Decode(enc)
	require.NoError(t, err)

	require.Equal(t, tx.Nonce, decoded.Nonce)
	require.Equal(t, tx.GasPrice, decoded.GasPrice)
	require.Equal(t, tx.GasLimit, decoded.GasLimit)
	require.Equal(t, tx.To, decoded.To)
	require.Equal(t, tx.Value, decoded.Value)
	require.Equal(t, tx.V, decoded.V)
	require.Equal(t, tx.R, decoded.R)
	require.Equal(t, tx.S, decoded.S)
}

func TestDecodeContractCreation(t *testing.T) {
	tx := signedTx(t, nil, 27, 1, 1)
	enc, err := EncodeSigned(tx)
	require.NoError(t, err)

	decoded, err := Decode(enc)
	require.NoError(t, err)
	require.True(t, decoded.IsContractCreation())
}

func TestDecodeRejectsWrongFieldCount(t *testing.T) {
	enc, err := rlp.EncodeToBytes([]interface{}{uint64(1), uint64(2)})
	require.NoError(t, err)

	_, err = Decode(enc)
	require.Error(t, err)
}

func TestDecodeRejectsNonList(t *testing.T) {
	_, err := Decode([]byte{0x01, 0x02, 0x03})
	require.Error(t, err)
}

func TestEncodeUnsignedExcludesSignatureFields(t *testing.T) {
	to := make([]byte, 20)
	tx := signedTx(t, to, 27, 1, 1)

	unsigned, err := EncodeUnsigned(tx)
	require.NoError(t, err)

	var fields []rlp.RawValue
	require.NoError(t, rlp.DecodeBytes(unsigned, &fields))
	require.Len(t, fields, 6)
}

func TestEncodeEIP155AppendsChainIDAndZeros(t *testing.T) {
	to := make([]byte, 20)
	tx := signedTx(t, to, 27, 1, 1)

	enc, err := EncodeEIP155(tx, big.NewInt(71401))
	require.NoError(t, err)

	var fields []rlp.RawValue
	require.NoError(t, rlp.DecodeBytes(enc, &fields))
	require.Len(t, fields, 9)
}

func TestToAddress(t *testing.T) {
	to := crypto.Keccak256([]byte("recipient"))[:20]
	tx := signedTx(t, to, 27, 1, 1)
	require.Equal(t, to, tx.ToAddress().Bytes())
}
