package polyjuice

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTripCall(t *testing.T) {
	args := &Args{
		IsCreate: false,
		GasLimit: 21_000,
		GasPrice: big.NewInt(1_000),
		Value:    big.NewInt(500),
		Input:    []byte{0xde, 0xad, 0xbe, 0xef},
	}

	encoded, err := Encode(args, nil)
	require.NoError(t, err)
	require.Len(t, encoded, headerSize+len(args.Input))

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, args.IsCreate, decoded.IsCreate)
	require.Equal(t, args.GasLimit, decoded.GasLimit)
	require.Equal(t, args.GasPrice, decoded.GasPrice)
	require.Equal(t, args.Value, decoded.Value)
	require.Equal(t, args.Input, decoded.Input)
}

func TestEncodeDecodeRoundTripCreate(t *testing.T) {
	args := &Args{
		IsCreate: true,
		GasLimit: 1_000_000,
		GasPrice: big.NewInt(0),
		Value:    big.NewInt(0),
		Input:    []byte{0x60, 0x80},
	}

	encoded, err := Encode(args, nil)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.True(t, decoded.IsCreate)
}

func TestEncodeAppendsNativeTransferRecipient(t *testing.T) {
	args := &Args{GasLimit: 21_000, GasPrice: big.NewInt(0), Value: big.NewInt(1), Input: []byte{}}
	to := make([]byte, 20)
	to[19] = 0x09

	encoded, err := Encode(args, to)
	require.NoError(t, err)
	require.Len(t, encoded, headerSize+20)
	require.Equal(t, to, encoded[headerSize:])
}

func TestEncodeRejectsWrongLengthRecipient(t *testing.T) {
	args := &Args{GasLimit: 21_000, GasPrice: big.NewInt(0), Value: big.NewInt(0), Input: []byte{}}
	_, err := Encode(args, []byte{0x01, 0x02})
	require.Error(t, err)
}

func TestEncodeRejectsOversizedValue(t *testing.T) {
	tooLarge := new(big.Int).Lsh(big.NewInt(1), 129)
	args := &Args{GasLimit: 21_000, GasPrice: big.NewInt(0), Value: tooLarge, Input: []byte{}}
	_, err := Encode(args, nil)
	require.Error(t, err)
}

func TestEncodeRejectsNegativeGasPrice(t *testing.T) {
	args := &Args{GasLimit: 21_000, GasPrice: big.NewInt(-1), Value: big.NewInt(0), Input: []byte{}}
	_, err := Encode(args, nil)
	require.Error(t, err)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	buf := make([]byte, headerSize)
	_, err := Decode(buf)
	require.Error(t, err)
}

func TestDecodeRejectsShortInput(t *testing.T) {
	_, err := Decode(make([]byte, headerSize-1))
	require.Error(t, err)
}

func TestDecodeRejectsLengthMismatch(t *testing.T) {
	args := &Args{GasLimit: 1, GasPrice: big.NewInt(0), Value: big.NewInt(0), Input: []byte{0x01, 0x02}}
	encoded, err := Encode(args, nil)
	require.NoError(t, err)

	_, err = Decode(encoded[:len(encoded)-1])
	require.Error(t, err)
}

func TestIsPolyjuiceArgsPolarity(t *testing.T) {
	require.True(t, IsPolyjuiceArgs(magic[:]))
	require.False(t, IsPolyjuiceArgs([]byte{0x01, 0x02, 0x03}))
	require.False(t, IsPolyjuiceArgs(nil))
}

func TestUint128RoundTrip(t *testing.T) {
	values := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1)), // max u128
	}
	for _, v := range values {
		le, err := uint128ToLE(v)
		require.NoError(t, err)
		require.Equal(t, v.String(), leToUint128(le).String())
	}
}
