// Package polyjuice encodes and decodes the fixed 52-byte header plus
// payload that Godwoken's Polyjuice execution layer expects in
// RawL2Transaction.args.
package polyjuice

import (
	"encoding/binary"
	"math/big"

	"github.com/godwoken-web3/gw-gateway/txerr"
)

// headerSize is the length of the fixed Polyjuice args header, before the
// variable-length input and optional trailing recipient address.
const headerSize = 52

// magic is the 7-byte Polyjuice args marker: 0xFFFFFF followed by ASCII "POLY".
var magic = [7]byte{0xFF, 0xFF, 0xFF, 'P', 'O', 'L', 'Y'}

const (
	callKindCall   byte = 0x00
	callKindCreate byte = 0x03
)

// Args is the typed view of a Polyjuice RawL2Transaction.args payload.
type Args struct {
	IsCreate bool
	GasLimit uint64
	GasPrice *big.Int
	Value    *big.Int
	Input    []byte
}

// Encode lays out the 52-byte header exactly as specified, followed by
// Input and, when nativeTransferTo is non-nil, the 20-byte recipient
// address. gasLimit must fit in a uint64; gasPrice and value must be
// non-negative and fit in a uint128.
func Encode(a *Args, nativeTransferTo []byte) ([]byte, error) {
	gasPriceLE, err := uint128ToLE(a.GasPrice)
	if err != nil {
		return nil, txerr.NewDecodeError("gasPrice out of u128 range", err)
	}
	valueLE, err := uint128ToLE(a.Value)
	if err != nil {
		return nil, txerr.NewDecodeError("value out of u128 range", err)
	}
	if nativeTransferTo != nil && len(nativeTransferTo) != 20 {
		return nil, txerr.NewDecodeError("native transfer recipient must be 20 bytes", nil)
	}

	out := make([]byte, headerSize+len(a.Input)+len(nativeTransferTo))
	copy(out[0:7], magic[:])
	if a.IsCreate {
		out[7] = callKindCreate
	} else {
		out[7] = callKindCall
	}
	binary.LittleEndian.PutUint64(out[8:16], a.GasLimit)
	copy(out[16:32], gasPriceLE)
	copy(out[32:48], valueLE)
	binary.LittleEndian.PutUint32(out[48:52], uint32(len(a.Input)))
	copy(out[headerSize:headerSize+len(a.Input)], a.Input)
	if nativeTransferTo != nil {
		copy(out[headerSize+len(a.Input):], nativeTransferTo)
	}
	return out, nil
}

// Decode validates the 7-byte magic and parses the fixed header plus
// input. It requires len(args) >= 52 and len(args) == 52 + inputSize; the
// optional trailing 20-byte recipient address, when present, is ignored —
// native-transfer recognition on the decode side is the caller's
// responsibility, not this decoder's.
func Decode(args []byte) (*Args, error) {
	if len(args) < headerSize {
		return nil, txerr.NewDecodeError("polyjuice args shorter than header", nil)
	}
	if !IsPolyjuiceArgs(args) {
		return nil, txerr.NewDecodeError("bad polyjuice magic", nil)
	}

	inputSize := binary.LittleEndian.Uint32(args[48:52])
	if uint64(len(args)) != uint64(headerSize)+uint64(inputSize) {
		return nil, txerr.NewDecodeError("args length does not match header inputSize", nil)
	}

	gasLimit := binary.LittleEndian.Uint64(args[8:16])
	gasPrice := leToUint128(args[16:32])
	value := leToUint128(args[32:48])
	input := make([]byte, inputSize)
	copy(input, args[headerSize:headerSize+int(inputSize)])

	return &Args{
		IsCreate: args[7] == callKindCreate,
		GasLimit: gasLimit,
		GasPrice: gasPrice,
		Value:    value,
		Input:    input,
	}, nil
}

// IsPolyjuiceArgs reports whether args begins with the Polyjuice magic.
// Returns true on a match, false otherwise — the natural, non-inverted
// reading (see DESIGN.md for why this repo does not reproduce the inverted
// polarity the upstream source's isPolyjuiceTransactionArgs carried).
func IsPolyjuiceArgs(args []byte) bool {
	if len(args) < 7 {
		return false
	}
	for i := range magic {
		if args[i] != magic[i] {
			return false
		}
	}
	return true
}

// uint128ToLE encodes x as 16 little-endian bytes. x must be non-negative
// and fit in 128 bits.
func uint128ToLE(x *big.Int) ([]byte, error) {
	if x == nil || x.Sign() < 0 {
		return nil, txerr.NewDecodeError("value must be non-negative", nil)
	}
	if x.BitLen() > 128 {
		return nil, txerr.NewDecodeError("value exceeds u128 range", nil)
	}
	be := x.Bytes()
	out := make([]byte, 16)
	copy(out[16-len(be):], be)
	reverse(out)
	return out, nil
}

// leToUint128 decodes 16 little-endian bytes into a big.Int.
func leToUint128(b []byte) *big.Int {
	be := make([]byte, len(b))
	copy(be, b)
	reverse(be)
	return new(big.Int).SetBytes(be)
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
