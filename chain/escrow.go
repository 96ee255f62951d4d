// Package chain talks to the on-chain escrow contract that holds bet deposits.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"wingman/events"
	"wingman/service"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const escrowABI = `[
	{
		"name": "placeBet",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "marketId", "type": "bytes32"},
			{"name": "position", "type": "bool"},
			{"name": "amount", "type": "uint256"}
		],
		"outputs": []
	},
	{
		"name": "resolveMarket",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "marketId", "type": "bytes32"},
			{"name": "outcome", "type": "bool"}
		],
		"outputs": []
	}
]`

// Backend is the subset of ethclient.Client the escrow client needs
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
}

// Config holds escrow connection settings
type Config struct {
	RPCURL        string
	EscrowAddress string
	PrivateKey    string // hex, with or without 0x
	TokenDecimals int32  // decimals of the staked token
}

// EscrowClient verifies deposits into the escrow contract and relays resolutions to it
type EscrowClient struct {
	backend Backend
	escrow  common.Address
	key     *ecdsa.PrivateKey
	from     common.Address
	abi      abi.ABI
	decimals int32
}

// Dial connects to the RPC endpoint and builds an EscrowClient
func Dial(ctx context.Context, cfg Config) (*EscrowClient, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain RPC: %w", err)
	}
	return NewEscrowClient(client, cfg.EscrowAddress, cfg.PrivateKey, cfg.TokenDecimals)
}

// NewEscrowClient builds a client over an existing backend. An empty private
// key gives a verify-only client.
func NewEscrowClient(backend Backend, escrowAddress, privateKeyHex string, tokenDecimals int32) (*EscrowClient, error) {
	if !common.IsHexAddress(escrowAddress) {
		return nil, fmt.Errorf("invalid escrow address %q", escrowAddress)
	}

	parsed, err := abi.JSON(strings.NewReader(escrowABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse escrow ABI: %w", err)
	}

	c := &EscrowClient{
		backend:  backend,
		escrow:   common.HexToAddress(escrowAddress),
		abi:      parsed,
		decimals: tokenDecimals,
	}

	if privateKeyHex != "" {
		key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid escrow private key: %w", err)
		}
		c.key = key
		c.from = ethcrypto.PubkeyToAddress(key.PublicKey)
	}

	return c, nil
}

// MarketKey maps a market ID onto the contract's bytes32 key
func MarketKey(marketID uuid.UUID) [32]byte {
	return common.BytesToHash(marketID[:])
}

// VerifyDeposit checks that the deposit is a successful placeBet call to the
// escrow, sent from the bettor's wallet, for the same market, side and amount
func (c *EscrowClient) VerifyDeposit(ctx context.Context, deposit service.Deposit) error {
	hash, err := parseTxHash(deposit.TxHash)
	if err != nil {
		return err
	}
	if !common.IsHexAddress(deposit.Wallet) {
		return fmt.Errorf("%w: invalid wallet address %q", service.ErrInvalidInput, deposit.Wallet)
	}
	txHash := hash.Hex()

	tx, pending, err := c.backend.TransactionByHash(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return fmt.Errorf("%w: deposit transaction %s not found", service.ErrInvalidInput, txHash)
	}
	if err != nil {
		return fmt.Errorf("failed to get deposit transaction: %w", err)
	}
	if pending {
		return fmt.Errorf("%w: deposit transaction %s is still pending", service.ErrInvalidInput, txHash)
	}
	if tx.To() == nil || *tx.To() != c.escrow {
		return fmt.Errorf("%w: transaction %s is not a deposit to the escrow", service.ErrInvalidInput, txHash)
	}

	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain ID: %w", err)
	}
	sender, err := types.Sender(types.LatestSignerForChainID(chainID), tx)
	if err != nil {
		return fmt.Errorf("%w: cannot recover sender of %s: %v", service.ErrInvalidInput, txHash, err)
	}
	if sender != common.HexToAddress(deposit.Wallet) {
		return fmt.Errorf("%w: deposit %s was not sent from the bettor's wallet", service.ErrInvalidInput, txHash)
	}

	if err := c.checkDepositCall(tx.Data(), deposit); err != nil {
		return fmt.Errorf("%w: deposit %s: %v", service.ErrInvalidInput, txHash, err)
	}

	receipt, err := c.backend.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return fmt.Errorf("%w: deposit transaction %s not mined", service.ErrInvalidInput, txHash)
	}
	if err != nil {
		return fmt.Errorf("failed to get deposit receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: deposit transaction %s reverted", service.ErrInvalidInput, txHash)
	}

	return nil
}

// checkDepositCall decodes placeBet calldata and compares it with the bet
func (c *EscrowClient) checkDepositCall(data []byte, deposit service.Deposit) error {
	if len(data) < 4 {
		return errors.New("not a placeBet call")
	}
	method, err := c.abi.MethodById(data[:4])
	if err != nil || method.Name != "placeBet" {
		return errors.New("not a placeBet call")
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return fmt.Errorf("malformed placeBet arguments: %v", err)
	}
	marketKey, _ := args[0].([32]byte)
	position, _ := args[1].(bool)
	amount, _ := args[2].(*big.Int)

	if marketKey != MarketKey(deposit.MarketID) {
		return errors.New("deposit is for a different market")
	}
	if position != deposit.Position {
		return errors.New("deposit backs the other side")
	}
	if amount == nil || amount.Cmp(c.baseUnits(deposit.Amount)) != 0 {
		return errors.New("deposit amount does not match the bet")
	}
	return nil
}

// baseUnits converts a token amount to the integer units the contract stores
func (c *EscrowClient) baseUnits(amount decimal.Decimal) *big.Int {
	return amount.Shift(c.decimals).BigInt()
}

// parseTxHash accepts a 32-byte hex hash with or without the 0x prefix
func parseTxHash(txHash string) (common.Hash, error) {
	if !strings.HasPrefix(txHash, "0x") && !strings.HasPrefix(txHash, "0X") {
		txHash = "0x" + txHash
	}
	raw, err := hexutil.Decode(txHash)
	if err != nil || len(raw) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: malformed transaction hash", service.ErrInvalidInput)
	}
	return common.BytesToHash(raw), nil
}

// ResolveMarket sends resolveMarket(marketId, outcome) to the escrow and returns the tx hash
func (c *EscrowClient) ResolveMarket(ctx context.Context, marketID uuid.UUID, outcome bool) (common.Hash, error) {
	if c.key == nil {
		return common.Hash{}, fmt.Errorf("escrow client has no signing key")
	}

	data, err := c.abi.Pack("resolveMarket", MarketKey(marketID), outcome)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode resolveMarket call: %w", err)
	}

	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get chain ID: %w", err)
	}
	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: c.from, To: &c.escrow, Data: data})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.escrow,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), c.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send resolveMarket transaction: %w", err)
	}
	return signed.Hash(), nil
}

// Register relays every market resolution to the escrow contract
func (c *EscrowClient) Register(bus *events.Bus) {
	bus.Subscribe(events.EventTypeMarketResolved, c.handleMarketResolved)
}

func (c *EscrowClient) handleMarketResolved(ctx context.Context, event events.Event) {
	resolved, ok := event.(events.MarketResolvedEvent)
	if !ok {
		return
	}

	fields := log.Fields{"marketID": resolved.MarketID, "outcome": resolved.Outcome}
	hash, err := c.ResolveMarket(ctx, resolved.MarketID, resolved.Outcome)
	if err != nil {
		log.WithFields(fields).WithError(err).Error("Failed to relay resolution to escrow")
		return
	}
	log.WithFields(fields).WithField("txHash", hash.Hex()).Info("Relayed resolution to escrow")
}

var _ service.DepositVerifier = (*EscrowClient)(nil)
