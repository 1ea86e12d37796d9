package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"nftops/internal/addressbook"
	"nftops/internal/contracts"
)

// roundTypePublic is the addRound type id of an open public sale.
const roundTypePublic = 1

// publicRoundEnd is 2100-01-01T00:00:00Z.
var publicRoundEnd = time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC)

func (s NFTSettings) validate() error {
	switch {
	case s.Team == (common.Address{}):
		return fmt.Errorf("team address is required")
	case s.PaymentToken == (common.Address{}):
		return fmt.Errorf("payment token address is required")
	case s.TrustedForwarder == (common.Address{}):
		return fmt.Errorf("trusted forwarder address is required")
	case s.UnrevealedURI == "":
		return fmt.Errorf("unrevealed uri is required")
	case s.BaseURI == "":
		return fmt.Errorf("base uri is required")
	}
	return nil
}

// DeployNFT deploys the NFT, sets its base URI, opens a public round and
// records the address for the current chain.
func (r *Runner) DeployNFT(ctx context.Context) (common.Address, error) {
	nft, err := r.deployNFT(ctx, r.settings.NFT.MaxMintPerAccount, r.settings.NFT.MaxMint)
	if err != nil {
		return common.Address{}, err
	}

	if err := r.book.Save(r.chainKey(), addressbook.ChainConfig{NFT: nft.Hex()}); err != nil {
		return common.Address{}, err
	}
	r.logger.Info("nft recorded", zap.String("chain_id", r.chainKey()), zap.String("nft", nft.Hex()))
	return nft, nil
}

func (r *Runner) deployNFT(ctx context.Context, maxMintPerAccount, maxMint string) (common.Address, error) {
	s := r.settings.NFT
	if err := s.validate(); err != nil {
		return common.Address{}, err
	}

	nft, err := r.ledger.Deploy(ctx, contracts.NFT,
		s.Name,
		s.Symbol,
		s.MaxTotalSupply,
		s.TeamSupply,
		s.Team,
		s.PaymentToken,
		s.UnrevealedURI,
		s.TrustedForwarder,
	)
	if err != nil {
		return common.Address{}, err
	}

	if _, err := r.confirm(ctx, contracts.NFT, nft, "setBaseURI", s.BaseURI); err != nil {
		return common.Address{}, err
	}

	if _, err := r.confirm(ctx, contracts.NFT, nft, "addRound",
		roundTypePublic,
		maxMintPerAccount,
		maxMint,
		r.settings.Mint.Price,
		common.Hash{},
		r.now().Unix(),
		publicRoundEnd.Unix(),
	); err != nil {
		return common.Address{}, err
	}

	return nft, nil
}

// SetBaseURI updates the revealed metadata base URI of the recorded NFT.
func (r *Runner) SetBaseURI(ctx context.Context, uri string) error {
	return r.setURI(ctx, "setBaseURI", uri)
}

// SetUnrevealedURI updates the placeholder metadata URI of the recorded NFT.
func (r *Runner) SetUnrevealedURI(ctx context.Context, uri string) error {
	return r.setURI(ctx, "setUnRevealedURI", uri)
}

func (r *Runner) setURI(ctx context.Context, method, uri string) error {
	if uri == "" {
		return fmt.Errorf("uri is required")
	}
	nft, err := r.requireNFT()
	if err != nil {
		return err
	}
	outcome, err := r.confirm(ctx, contracts.NFT, nft, method, uri)
	if err != nil {
		return err
	}
	r.logger.Info("uri updated",
		zap.String("method", method),
		zap.String("uri", uri),
		zap.String("tx_hash", outcome.Hash.Hex()),
	)
	return nil
}

// RequestRandomSeed triggers the reveal of the recorded NFT.
func (r *Runner) RequestRandomSeed(ctx context.Context) error {
	nft, err := r.requireNFT()
	if err != nil {
		return err
	}
	return r.requestRandomSeed(ctx, nft)
}

func (r *Runner) requestRandomSeed(ctx context.Context, nft common.Address) error {
	outcome, err := r.confirm(ctx, contracts.NFT, nft, "requestRandomSeed")
	if err != nil {
		return err
	}
	r.logger.Info("random seed requested", zap.String("nft", nft.Hex()), zap.String("tx_hash", outcome.Hash.Hex()))
	return nil
}
