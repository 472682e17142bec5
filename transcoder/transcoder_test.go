package transcoder

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/godwoken-web3/gw-gateway/account"
	"github.com/godwoken-web3/gw-gateway/config"
	"github.com/godwoken-web3/gw-gateway/ethtx"
	"github.com/godwoken-web3/gw-gateway/polyjuice"
)

type fakeRollupClient struct {
	idByScriptHash map[common.Hash]uint32
	scriptHashByID map[uint32]common.Hash
}

func (f *fakeRollupClient) GetAccountIDByScriptHash(ctx context.Context, scriptHash common.Hash) (uint32, bool, error) {
	id, ok := f.idByScriptHash[scriptHash]
	return id, ok, nil
}

func (f *fakeRollupClient) GetScriptHash(ctx context.Context, accountID uint32) (common.Hash, error) {
	return f.scriptHashByID[accountID], nil
}

type fakeBalanceClient struct {
	balances map[common.Address]*big.Int
}

func (f *fakeBalanceClient) GetBalance(ctx context.Context, address common.Address, sudtID uint32) (*big.Int, error) {
	if b, ok := f.balances[address]; ok {
		return b, nil
	}
	return new(big.Int), nil
}

func testConfig() *config.ChainConfig {
	return &config.ChainConfig{
		WEB3ChainID:               71401,
		PolyjuiceCreatorAccountID: 3,
		EthAccountLockCodeHash:    common.HexToHash("0xaaaa"),
		SudtID:                    1,
		MaxTransactionSize:        50_000,
		MinGasPrice:               big.NewInt(0),
		MaxGasPrice:               big.NewInt(1_000_000_000_000),
		MinGasLimit:               21_000,
		MaxGasLimit:               12_500_000,
		AutoCreateAccountFromID:   0,
		AccountCacheSize:          16,
	}
}

// buildSignedTx constructs and signs a raw Ethereum transaction, returning
// its encoded bytes and the sender's address.
func buildSignedTx(t *testing.T, key *ecdsa.PrivateKey, nonce uint64, to []byte, value *big.Int, data []byte, gasLimit uint64, chainID *big.Int) []byte {
	t.Helper()
	tx := &ethtx.Tx{
		Nonce:    nonce,
		GasPrice: big.NewInt(1_000),
		GasLimit: gasLimit,
		To:       to,
		Value:    value,
		Data:     data,
	}

	var msg []byte
	var err error
	if chainID == nil {
		msg, err = ethtx.EncodeUnsigned(tx)
	} else {
		msg, err = ethtx.EncodeEIP155(tx, chainID)
	}
	require.NoError(t, err)
	digest := crypto.Keccak256(msg)

	sig, err := crypto.Sign(digest, key)
	require.NoError(t, err)
	tx.R = pad32(sig[0:32])
	tx.S = pad32(sig[32:64])
	recID := uint64(sig[64])

	if chainID == nil {
		tx.V = new(big.Int).SetUint64(27 + recID)
	} else {
		tx.V = new(big.Int).SetUint64(chainID.Uint64()*2 + 35 + recID)
	}

	enc, err := ethtx.EncodeSigned(tx)
	require.NoError(t, err)
	return enc
}

func pad32(b []byte) []byte {
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

func newTranscoder(t *testing.T, cfg *config.ChainConfig, rollup *fakeRollupClient, balances *fakeBalanceClient) *Transcoder {
	t.Helper()
	resolver, err := account.New(rollup, cfg)
	require.NoError(t, err)
	return New(resolver, balances, cfg)
}

func TestTranscodeEIP155TransferToUnknownAccountAutoCreates(t *testing.T) {
	cfg := testConfig()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)

	to := common.HexToAddress("0x0000000000000000000000000000000000000099")
	rollup := &fakeRollupClient{idByScriptHash: map[common.Hash]uint32{}}
	balances := &fakeBalanceClient{balances: map[common.Address]*big.Int{from: big.NewInt(1_000_000_000)}}
	tc := newTranscoder(t, cfg, rollup, balances)

	raw := buildSignedTx(t, key, 0, to.Bytes(), big.NewInt(100), nil, 21_000, big.NewInt(71401))

	result, err := tc.Transcode(context.Background(), raw)
	require.NoError(t, err)
	require.NotNil(t, result.CacheEntry)
	require.Equal(t, from, result.CacheEntry.FromAddress)
	require.Equal(t, cfg.AutoCreateAccountFromID, result.L2Transaction.Raw.FromID)
	require.Equal(t, cfg.WEB3ChainID, result.L2Transaction.Raw.ChainID)
}

func TestTranscodePreEIP155UsesZeroChainID(t *testing.T) {
	cfg := testConfig()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)

	fromScriptHash := account.EOAScriptHash(from, cfg.EthAccountLockCodeHash)
	to := common.HexToAddress("0x0000000000000000000000000000000000000099")

	rollup := &fakeRollupClient{idByScriptHash: map[common.Hash]uint32{fromScriptHash: 5}}
	balances := &fakeBalanceClient{balances: map[common.Address]*big.Int{from: big.NewInt(1_000_000_000)}}
	tc := newTranscoder(t, cfg, rollup, balances)

	raw := buildSignedTx(t, key, 0, to.Bytes(), big.NewInt(100), nil, 21_000, nil)

	result, err := tc.Transcode(context.Background(), raw)
	require.NoError(t, err)
	require.Nil(t, result.CacheEntry)
	require.Equal(t, uint64(0), result.L2Transaction.Raw.ChainID)
	require.Equal(t, uint32(5), result.L2Transaction.Raw.FromID)
}

func TestTranscodeContractCreation(t *testing.T) {
	cfg := testConfig()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)
	fromScriptHash := account.EOAScriptHash(from, cfg.EthAccountLockCodeHash)

	rollup := &fakeRollupClient{idByScriptHash: map[common.Hash]uint32{fromScriptHash: 5}}
	balances := &fakeBalanceClient{balances: map[common.Address]*big.Int{from: big.NewInt(1_000_000_000)}}
	tc := newTranscoder(t, cfg, rollup, balances)

	raw := buildSignedTx(t, key, 0, nil, big.NewInt(0), []byte{0x60, 0x80}, 60_000, big.NewInt(71401))

	result, err := tc.Transcode(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, cfg.PolyjuiceCreatorAccountID, result.L2Transaction.Raw.ToID)

	args, err := polyjuice.Decode(result.L2Transaction.Raw.Args)
	require.NoError(t, err)
	require.True(t, args.IsCreate)
}

func TestTranscodeCallToKnownContract(t *testing.T) {
	cfg := testConfig()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)
	fromScriptHash := account.EOAScriptHash(from, cfg.EthAccountLockCodeHash)

	to := common.HexToAddress("0x0000000000000000000000000000000000000077")
	toScriptHash := account.EOAScriptHash(to, cfg.EthAccountLockCodeHash)
	rollup := &fakeRollupClient{
		idByScriptHash: map[common.Hash]uint32{fromScriptHash: 5, toScriptHash: 42},
		scriptHashByID: map[uint32]common.Hash{42: common.HexToHash("0xbeef")}, // not an EOA script hash
	}
	balances := &fakeBalanceClient{balances: map[common.Address]*big.Int{from: big.NewInt(1_000_000_000)}}
	tc := newTranscoder(t, cfg, rollup, balances)

	raw := buildSignedTx(t, key, 0, to.Bytes(), big.NewInt(0), []byte{0x01}, 21_000+68, big.NewInt(71401))

	result, err := tc.Transcode(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, uint32(42), result.L2Transaction.Raw.ToID)

	args, err := polyjuice.Decode(result.L2Transaction.Raw.Args)
	require.NoError(t, err)
	require.False(t, args.IsCreate)
}

func TestTranscodeRejectsInsufficientBalance(t *testing.T) {
	cfg := testConfig()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)
	fromScriptHash := account.EOAScriptHash(from, cfg.EthAccountLockCodeHash)

	to := common.HexToAddress("0x0000000000000000000000000000000000000099")
	rollup := &fakeRollupClient{idByScriptHash: map[common.Hash]uint32{fromScriptHash: 5}}
	balances := &fakeBalanceClient{balances: map[common.Address]*big.Int{from: big.NewInt(1)}}
	tc := newTranscoder(t, cfg, rollup, balances)

	raw := buildSignedTx(t, key, 0, to.Bytes(), big.NewInt(1_000_000), nil, 21_000, big.NewInt(71401))

	_, err = tc.Transcode(context.Background(), raw)
	require.Error(t, err)
}

func TestTranscodeRejectsOversizedTransaction(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTransactionSize = 10
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)

	to := common.HexToAddress("0x0000000000000000000000000000000000000099")
	rollup := &fakeRollupClient{idByScriptHash: map[common.Hash]uint32{}}
	balances := &fakeBalanceClient{balances: map[common.Address]*big.Int{from: big.NewInt(1_000_000_000)}}
	tc := newTranscoder(t, cfg, rollup, balances)

	raw := buildSignedTx(t, key, 0, to.Bytes(), big.NewInt(1), nil, 21_000, big.NewInt(71401))

	_, err = tc.Transcode(context.Background(), raw)
	require.Error(t, err)
}
