package workflow

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"nftops/internal/contracts"
	"nftops/internal/model"
	"nftops/internal/txwatch"
)

// MintResult is a confirmed public mint.
type MintResult struct {
	TxHash   common.Hash
	Deadline *big.Int
	TokenIDs []*big.Int
}

// PublicMintWithPermit mints the configured quantity from the recorded NFT,
// paying with a permit instead of a prior approval.
func (r *Runner) PublicMintWithPermit(ctx context.Context) (*MintResult, error) {
	nft, err := r.requireNFT()
	if err != nil {
		return nil, err
	}
	return r.mint(ctx, nft, r.settings.Mint.Quantity)
}

func (r *Runner) mint(ctx context.Context, nft common.Address, quantity string) (*MintResult, error) {
	s := r.settings
	if s.NFT.PaymentToken == (common.Address{}) {
		return nil, fmt.Errorf("payment token address is required")
	}
	qty, err := contracts.AsBigInt(quantity)
	if err != nil {
		return nil, fmt.Errorf("mint quantity: %w", err)
	}
	price, err := contracts.AsBigInt(s.Mint.Price)
	if err != nil {
		return nil, fmt.Errorf("mint price: %w", err)
	}
	round, err := contracts.AsBigInt(s.Mint.Round)
	if err != nil {
		return nil, fmt.Errorf("mint round: %w", err)
	}

	auth, err := r.signer.Sign(ctx, s.NFT.PaymentToken, nft, mul(price, qty), s.Mint.PermitDeadline)
	if err != nil {
		return nil, err
	}

	outcome, err := r.watcher.SubmitAndConfirm(ctx, func(ctx context.Context) (*types.Transaction, error) {
		return r.chain.Transact(ctx, contracts.NFT, nft, "publicMintWithPermit",
			qty,
			round,
			s.NFT.PaymentToken,
			price,
			auth.Message.Deadline,
			auth.V,
			auth.R,
			auth.S,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("publicMintWithPermit: %w", err)
	}
	r.logger.Info("mint confirmed", zap.String("tx_hash", outcome.Hash.Hex()))

	ids, err := txwatch.MintedTokenIDs(outcome.Receipt, nft)
	if err != nil {
		return nil, fmt.Errorf("minted token ids: %w", err)
	}

	tokenIDs := make([]string, len(ids))
	for i, id := range ids {
		tokenIDs[i] = id.String()
		r.logger.Info("token minted", zap.String("token_id", tokenIDs[i]))
	}

	record := model.MintRecord{
		ChainID:  s.ChainID,
		Contract: nft.Hex(),
		TxHash:   outcome.Hash.Hex(),
		Minter:   r.chain.Address().Hex(),
		Round:    round.Uint64(),
		Quantity: qty.Uint64(),
		Price:    price.String(),
		Deadline: auth.Message.Deadline.Uint64(),
		TokenIDs: tokenIDs,
		MintedAt: r.now().UTC().Format(time.RFC3339Nano),
	}
	if err := r.history.PutMints(ctx, []model.MintRecord{record}); err != nil {
		r.logger.Warn("record mint history", zap.Error(err))
	}

	return &MintResult{TxHash: outcome.Hash, Deadline: auth.Message.Deadline, TokenIDs: ids}, nil
}
