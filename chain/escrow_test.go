package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strings"
	"testing"

	"wingman/events"
	"wingman/service"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const escrowAddress = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) ChainID(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *mockBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *mockBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	args := m.Called(ctx, txHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Receipt), args.Error(1)
}

func (m *mockBackend) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*types.Transaction), args.Bool(1), args.Error(2)
}

type depositFixture struct {
	chainID  *big.Int
	key      *ecdsa.PrivateKey
	wallet   string
	marketID uuid.UUID
	client   *EscrowClient
}

func newDepositFixture(t *testing.T, backend *mockBackend) *depositFixture {
	t.Helper()

	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	client, err := NewEscrowClient(backend, escrowAddress, "", 6)
	require.NoError(t, err)

	return &depositFixture{
		chainID:  big.NewInt(84532),
		key:      key,
		wallet:   ethcrypto.PubkeyToAddress(key.PublicKey).Hex(),
		marketID: uuid.New(),
		client:   client,
	}
}

// depositTx signs a placeBet call from the fixture wallet
func (f *depositFixture) depositTx(t *testing.T, to common.Address, marketID uuid.UUID, position bool, units int64) *types.Transaction {
	t.Helper()

	data, err := f.client.abi.Pack("placeBet", MarketKey(marketID), position, big.NewInt(units))
	require.NoError(t, err)

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    1,
		To:       &to,
		Gas:      80000,
		GasPrice: big.NewInt(1),
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(f.chainID), f.key)
	require.NoError(t, err)
	return signed
}

func (f *depositFixture) deposit(txHash string) service.Deposit {
	return service.Deposit{
		TxHash:   txHash,
		Wallet:   f.wallet,
		MarketID: f.marketID,
		Position: true,
		Amount:   decimal.RequireFromString("12.5"),
	}
}

func TestEscrowClient_VerifyDeposit(t *testing.T) {
	ctx := context.Background()
	txHash := "0x" + common.Bytes2Hex(ethcrypto.Keccak256([]byte("deposit")))
	hash := common.HexToHash(txHash)
	escrow := common.HexToAddress(escrowAddress)

	tests := []struct {
		name      string
		setup     func(t *testing.T, b *mockBackend, f *depositFixture)
		deposit   func(d *service.Deposit)
		expectErr error
	}{
		{
			name: "matching deposit",
			setup: func(t *testing.T, b *mockBackend, f *depositFixture) {
				b.On("TransactionByHash", ctx, hash).Return(f.depositTx(t, escrow, f.marketID, true, 12_500_000), false, nil)
				b.On("ChainID", ctx).Return(f.chainID, nil)
				b.On("TransactionReceipt", ctx, hash).Return(&types.Receipt{Status: types.ReceiptStatusSuccessful}, nil)
			},
		},
		{
			name: "unknown transaction",
			setup: func(t *testing.T, b *mockBackend, f *depositFixture) {
				b.On("TransactionByHash", ctx, hash).Return(nil, false, ethereum.NotFound)
			},
			expectErr: service.ErrInvalidInput,
		},
		{
			name: "pending transaction",
			setup: func(t *testing.T, b *mockBackend, f *depositFixture) {
				b.On("TransactionByHash", ctx, hash).Return(f.depositTx(t, escrow, f.marketID, true, 12_500_000), true, nil)
			},
			expectErr: service.ErrInvalidInput,
		},
		{
			name: "sent somewhere else",
			setup: func(t *testing.T, b *mockBackend, f *depositFixture) {
				b.On("TransactionByHash", ctx, hash).Return(f.depositTx(t, common.HexToAddress("0x01"), f.marketID, true, 12_500_000), false, nil)
			},
			expectErr: service.ErrInvalidInput,
		},
		{
			name: "amount smaller than the stake",
			setup: func(t *testing.T, b *mockBackend, f *depositFixture) {
				b.On("TransactionByHash", ctx, hash).Return(f.depositTx(t, escrow, f.marketID, true, 1), false, nil)
				b.On("ChainID", ctx).Return(f.chainID, nil)
			},
			expectErr: service.ErrInvalidInput,
		},
		{
			name: "deposit for another market",
			setup: func(t *testing.T, b *mockBackend, f *depositFixture) {
				b.On("TransactionByHash", ctx, hash).Return(f.depositTx(t, escrow, uuid.New(), true, 12_500_000), false, nil)
				b.On("ChainID", ctx).Return(f.chainID, nil)
			},
			expectErr: service.ErrInvalidInput,
		},
		{
			name: "deposit on the other side",
			setup: func(t *testing.T, b *mockBackend, f *depositFixture) {
				b.On("TransactionByHash", ctx, hash).Return(f.depositTx(t, escrow, f.marketID, false, 12_500_000), false, nil)
				b.On("ChainID", ctx).Return(f.chainID, nil)
			},
			expectErr: service.ErrInvalidInput,
		},
		{
			name: "someone else's deposit",
			setup: func(t *testing.T, b *mockBackend, f *depositFixture) {
				b.On("TransactionByHash", ctx, hash).Return(f.depositTx(t, escrow, f.marketID, true, 12_500_000), false, nil)
				b.On("ChainID", ctx).Return(f.chainID, nil)
			},
			deposit: func(d *service.Deposit) {
				d.Wallet = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
			},
			expectErr: service.ErrInvalidInput,
		},
		{
			name: "plain transfer is not a deposit call",
			setup: func(t *testing.T, b *mockBackend, f *depositFixture) {
				tx, err := types.SignTx(types.NewTx(&types.LegacyTx{
					Nonce:    1,
					To:       &escrow,
					Value:    big.NewInt(1_000_000),
					Gas:      21000,
					GasPrice: big.NewInt(1),
				}), types.LatestSignerForChainID(f.chainID), f.key)
				require.NoError(t, err)
				b.On("TransactionByHash", ctx, hash).Return(tx, false, nil)
				b.On("ChainID", ctx).Return(f.chainID, nil)
			},
			expectErr: service.ErrInvalidInput,
		},
		{
			name: "reverted deposit",
			setup: func(t *testing.T, b *mockBackend, f *depositFixture) {
				b.On("TransactionByHash", ctx, hash).Return(f.depositTx(t, escrow, f.marketID, true, 12_500_000), false, nil)
				b.On("ChainID", ctx).Return(f.chainID, nil)
				b.On("TransactionReceipt", ctx, hash).Return(&types.Receipt{Status: types.ReceiptStatusFailed}, nil)
			},
			expectErr: service.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := new(mockBackend)
			f := newDepositFixture(t, backend)
			tt.setup(t, backend, f)

			deposit := f.deposit(txHash)
			if tt.deposit != nil {
				tt.deposit(&deposit)
			}

			err := f.client.VerifyDeposit(ctx, deposit)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
			} else {
				assert.NoError(t, err)
			}
			backend.AssertExpectations(t)
		})
	}

	t.Run("rpc failure is not a validation error", func(t *testing.T) {
		backend := new(mockBackend)
		f := newDepositFixture(t, backend)
		backend.On("TransactionByHash", ctx, hash).Return(nil, false, errors.New("connection refused"))

		err := f.client.VerifyDeposit(ctx, f.deposit(txHash))
		require.Error(t, err)
		assert.NotErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("malformed hashes are rejected before any lookup", func(t *testing.T) {
		backend := new(mockBackend)
		f := newDepositFixture(t, backend)

		for _, bad := range []string{
			"0x1234",
			"0x" + strings.Repeat("zz", 32),
			strings.Repeat("g", 64),
			"0x" + strings.Repeat("ab", 33),
		} {
			err := f.client.VerifyDeposit(ctx, f.deposit(bad))
			assert.ErrorIs(t, err, service.ErrInvalidInput, bad)
			assert.ErrorContains(t, err, "malformed", bad)
		}
		backend.AssertNotCalled(t, "TransactionByHash", mock.Anything, mock.Anything)
	})

	t.Run("hash without prefix is accepted", func(t *testing.T) {
		parsed, err := parseTxHash(strings.TrimPrefix(txHash, "0x"))
		require.NoError(t, err)
		assert.Equal(t, hash, parsed)
	})

	t.Run("invalid wallet", func(t *testing.T) {
		backend := new(mockBackend)
		f := newDepositFixture(t, backend)
		deposit := f.deposit(txHash)
		deposit.Wallet = "not-a-wallet"

		assert.ErrorIs(t, f.client.VerifyDeposit(ctx, deposit), service.ErrInvalidInput)
		backend.AssertNotCalled(t, "TransactionByHash", mock.Anything, mock.Anything)
	})
}

func TestEscrowClient_ResolveMarket(t *testing.T) {
	ctx := context.Background()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	from := ethcrypto.PubkeyToAddress(key.PublicKey)
	chainID := big.NewInt(84532)
	marketID := uuid.New()

	backend := new(mockBackend)
	backend.On("ChainID", ctx).Return(chainID, nil)
	backend.On("PendingNonceAt", ctx, from).Return(uint64(7), nil)
	backend.On("SuggestGasPrice", ctx).Return(big.NewInt(1_000_000_000), nil)
	backend.On("EstimateGas", ctx, mock.AnythingOfType("ethereum.CallMsg")).Return(uint64(60_000), nil)

	var sent *types.Transaction
	backend.On("SendTransaction", ctx, mock.AnythingOfType("*types.Transaction")).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*types.Transaction) }).
		Return(nil)

	client, err := NewEscrowClient(backend, escrowAddress, "0x"+common.Bytes2Hex(ethcrypto.FromECDSA(key)), 6)
	require.NoError(t, err)

	hash, err := client.ResolveMarket(ctx, marketID, true)
	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, sent.Hash(), hash)

	assert.Equal(t, uint64(7), sent.Nonce())
	assert.Equal(t, uint64(60_000), sent.Gas())
	assert.Equal(t, common.HexToAddress(escrowAddress), *sent.To())

	sender, err := types.Sender(types.LatestSignerForChainID(chainID), sent)
	require.NoError(t, err)
	assert.Equal(t, from, sender)

	method := client.abi.Methods["resolveMarket"]
	assert.Equal(t, method.ID, sent.Data()[:4])

	decoded, err := method.Inputs.Unpack(sent.Data()[4:])
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, MarketKey(marketID), decoded[0].([32]byte))
	assert.Equal(t, true, decoded[1].(bool))

	backend.AssertExpectations(t)
}

func TestEscrowClient_ResolveWithoutKey(t *testing.T) {
	client, err := NewEscrowClient(new(mockBackend), escrowAddress, "", 6)
	require.NoError(t, err)

	_, err = client.ResolveMarket(context.Background(), uuid.New(), false)
	assert.Error(t, err)
}

func TestEscrowClient_RelayIgnoresOtherEvents(t *testing.T) {
	backend := new(mockBackend)
	client, err := NewEscrowClient(backend, escrowAddress, "", 6)
	require.NoError(t, err)

	client.handleMarketResolved(context.Background(), events.MarketClosedEvent{MarketID: uuid.New()})
	backend.AssertNotCalled(t, "ChainID", mock.Anything)
}

func TestNewEscrowClient_InvalidConfig(t *testing.T) {
	_, err := NewEscrowClient(new(mockBackend), "not-an-address", "", 6)
	assert.Error(t, err)

	_, err = NewEscrowClient(new(mockBackend), escrowAddress, "zz", 6)
	assert.Error(t, err)
}
