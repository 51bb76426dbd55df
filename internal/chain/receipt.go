// Package chain reads what the registry contract and the chain report about
// publish transactions: receipts by hash and decoded registry events.
package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/apperr"
)

// ErrReceiptNotFound means the transaction has not been mined yet.
var ErrReceiptNotFound = errors.New("transaction receipt not found")

// Receipt statuses.
const (
	ReceiptStatusFailed     uint64 = 0
	ReceiptStatusSuccessful uint64 = 1
)

type Receipt struct {
	TxHash      string
	Status      uint64
	BlockNumber uint64
}

func (r *Receipt) Failed() bool {
	return r.Status == ReceiptStatusFailed
}

// ReceiptClient looks up transaction receipts by hash.
type ReceiptClient interface {
	TransactionReceipt(ctx context.Context, txHash string) (*Receipt, error)
}

// ReceiptBackend is satisfied by *ethclient.Client.
type ReceiptBackend interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// EthClient adapts a JSON-RPC node to ReceiptClient.
type EthClient struct {
	backend ReceiptBackend
	close   func()
}

// Dial connects to the node at rpcURL.
func Dial(ctx context.Context, rpcURL string) (*EthClient, error) {
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dialing chain rpc: %w", err)
	}
	return &EthClient{backend: c, close: c.Close}, nil
}

func NewEthClient(backend ReceiptBackend) *EthClient {
	return &EthClient{backend: backend}
}

func (c *EthClient) Close() {
	if c.close != nil {
		c.close()
	}
}

func (c *EthClient) TransactionReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	if !ValidTxHash(txHash) {
		return nil, apperr.Validation("transaction receipt", "malformed transaction hash %q", txHash)
	}

	r, err := c.backend.TransactionReceipt(ctx, common.HexToHash(txHash))
	if errors.Is(err, ethereum.NotFound) {
		return nil, ErrReceiptNotFound
	}
	if err != nil {
		return nil, apperr.External("transaction receipt", err)
	}

	out := &Receipt{TxHash: txHash, Status: r.Status}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	return out, nil
}

// ValidTxHash reports whether s is a 0x prefixed 32 byte hex string.
func ValidTxHash(s string) bool {
	b, err := hexutil.Decode(s)
	return err == nil && len(b) == common.HashLength
}
