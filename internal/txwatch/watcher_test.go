package txwatch

import (
	"context"
	"errors"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

type fakeBackend struct {
	receipt *types.Receipt
	calls   int
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.calls++
	if f.receipt == nil {
		return nil, ethereum.NotFound
	}
	r := *f.receipt
	r.TxHash = hash
	return &r, nil
}

func (f *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return nil, nil
}

func transferLog(emitter common.Address, tokenID int64) *types.Log {
	return &types.Log{
		Address: emitter,
		Topics: []common.Hash{
			TransferTopic,
			{},
			common.BytesToHash(common.HexToAddress("0x00000000000000000000000000000000000000bb").Bytes()),
			common.BigToHash(big.NewInt(tokenID)),
		},
	}
}

func TestTransferTopic(t *testing.T) {
	want := common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	if TransferTopic != want {
		t.Fatalf("topic mismatch: %s", TransferTopic.Hex())
	}
}

func TestExtractEventFiltersByEmitterAndTopic(t *testing.T) {
	nft := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	token := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	approval := common.HexToHash("0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925")

	receipt := &types.Receipt{Logs: []*types.Log{
		transferLog(token, 99), // erc20 payment from a different emitter
		{Address: nft, Topics: []common.Hash{approval, {}, {}, common.BigToHash(big.NewInt(42))}},
		transferLog(nft, 0),
		transferLog(nft, 1),
	}}

	ids, err := MintedTokenIDs(receipt, nft)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got := idStrings(ids); !reflect.DeepEqual(got, []string{"0", "1"}) {
		t.Fatalf("ids mismatch: %v", ids)
	}
}

func TestExtractEventNotFound(t *testing.T) {
	nft := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	receipt := &types.Receipt{Logs: []*types.Log{transferLog(common.HexToAddress("0x01"), 1)}}

	if _, err := MintedTokenIDs(receipt, nft); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
	if _, err := MintedTokenIDs(&types.Receipt{}, nft); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound for empty receipt, got %v", err)
	}
	if _, err := MintedTokenIDs(nil, nft); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound for nil receipt, got %v", err)
	}
}

func TestExtractEventShortTopics(t *testing.T) {
	nft := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	receipt := &types.Receipt{Logs: []*types.Log{{Address: nft, Topics: []common.Hash{TransferTopic}}}}

	_, err := ExtractEvent(receipt, nft, TransferTopic, TransferTokenIDSlot)
	if err == nil || errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected malformed log error, got %v", err)
	}
}

func TestSubmitAndConfirm(t *testing.T) {
	backend := &fakeBackend{receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(7)}}
	w := NewWatcher(backend, zap.NewNop())
	tx := types.NewTx(&types.LegacyTx{Nonce: 1, GasPrice: big.NewInt(1), Gas: 21000})

	outcome, err := w.SubmitAndConfirm(context.Background(), func(context.Context) (*types.Transaction, error) {
		return tx, nil
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Hash != tx.Hash() || outcome.Receipt.TxHash != tx.Hash() {
		t.Fatalf("outcome mismatch: %+v", outcome)
	}
	if backend.calls < 2 {
		t.Fatalf("receipt must be fetched after mining, calls=%d", backend.calls)
	}
}

func TestSubmitAndConfirmFailures(t *testing.T) {
	submitErr := errors.New("nonce too low")
	w := NewWatcher(&fakeBackend{}, nil)
	_, err := w.SubmitAndConfirm(context.Background(), func(context.Context) (*types.Transaction, error) {
		return nil, submitErr
	})
	if !errors.Is(err, submitErr) {
		t.Fatalf("expected submit error, got %v", err)
	}

	reverted := &fakeBackend{receipt: &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(7)}}
	w = NewWatcher(reverted, nil)
	tx := types.NewTx(&types.LegacyTx{Nonce: 2, GasPrice: big.NewInt(1), Gas: 21000})
	_, err = w.SubmitAndConfirm(context.Background(), func(context.Context) (*types.Transaction, error) {
		return tx, nil
	})
	if !errors.Is(err, ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got %v", err)
	}
}

func idStrings(ids []*big.Int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
