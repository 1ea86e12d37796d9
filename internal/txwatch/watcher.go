package txwatch

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

var (
	// ErrEventNotFound means the receipt carries no log for the expected event.
	ErrEventNotFound = errors.New("event not found")
	// ErrTransactionFailed means the transaction was mined but reverted.
	ErrTransactionFailed = errors.New("transaction failed")
)

// TransferTopic is the ERC-721 Transfer(address,address,uint256) signature hash.
var TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// TransferTokenIDSlot is the topic index holding the ERC-721 token id.
const TransferTokenIDSlot = 3

// Outcome is a confirmed transaction and its receipt.
type Outcome struct {
	Hash    common.Hash
	Tx      *types.Transaction
	Receipt *types.Receipt
}

// Watcher confirms transactions against a backend.
type Watcher struct {
	backend bind.DeployBackend
	logger  *zap.Logger
}

func NewWatcher(backend bind.DeployBackend, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{backend: backend, logger: logger}
}

// SubmitAndConfirm broadcasts via submit, waits until the transaction is
// mined and returns the receipt.
func (w *Watcher) SubmitAndConfirm(ctx context.Context, submit func(context.Context) (*types.Transaction, error)) (*Outcome, error) {
	tx, err := submit(ctx)
	if err != nil {
		return nil, err
	}
	w.logger.Info("transaction submitted", zap.String("tx_hash", tx.Hash().Hex()))

	if _, err := bind.WaitMined(ctx, w.backend, tx); err != nil {
		return nil, fmt.Errorf("wait mined %s: %w", tx.Hash().Hex(), err)
	}
	receipt, err := w.backend.TransactionReceipt(ctx, tx.Hash())
	if err != nil {
		return nil, fmt.Errorf("fetch receipt %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s reverted in block %s", ErrTransactionFailed, tx.Hash().Hex(), receipt.BlockNumber)
	}

	w.logger.Info("transaction confirmed",
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.Uint64("gas_used", receipt.GasUsed),
	)
	return &Outcome{Hash: tx.Hash(), Tx: tx, Receipt: receipt}, nil
}

// ExtractEvent decodes topic slot of every log emitted by emitter whose
// first topic is topic0.
func ExtractEvent(receipt *types.Receipt, emitter common.Address, topic0 common.Hash, slot int) ([]*big.Int, error) {
	if receipt == nil {
		return nil, fmt.Errorf("%w: nil receipt", ErrEventNotFound)
	}
	if slot < 1 {
		return nil, fmt.Errorf("invalid topic slot %d", slot)
	}

	var out []*big.Int
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != emitter || len(lg.Topics) == 0 || lg.Topics[0] != topic0 {
			continue
		}
		if len(lg.Topics) <= slot {
			return nil, fmt.Errorf("log %d of %s has %d topics, want slot %d", lg.Index, lg.TxHash.Hex(), len(lg.Topics), slot)
		}
		out = append(out, new(big.Int).SetBytes(lg.Topics[slot].Bytes()))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: topic %s from %s in tx %s", ErrEventNotFound, topic0.Hex(), emitter.Hex(), receipt.TxHash.Hex())
	}
	return out, nil
}

// MintedTokenIDs returns the token ids of ERC-721 Transfer logs emitted by nft.
func MintedTokenIDs(receipt *types.Receipt, nft common.Address) ([]*big.Int, error) {
	return ExtractEvent(receipt, nft, TransferTopic, TransferTokenIDSlot)
}
