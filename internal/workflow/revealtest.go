package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"nftops/internal/contracts"
	"nftops/internal/model"
	"nftops/internal/reveal"
)

// RevealReport summarises an end-to-end reveal run.
type RevealReport struct {
	NFT        common.Address
	Mint       *MintResult
	Minted     reveal.Snapshot
	Settled    reveal.Snapshot
	Final      reveal.Snapshot
	StartedAt  time.Time
	FinishedAt time.Time
}

// RevealTest deploys a throwaway NFT, mints the whole supply, triggers the
// reveal and polls the indexer until it reports revealed metadata. The NFT
// is not recorded in the address book.
func (r *Runner) RevealTest(ctx context.Context) (*RevealReport, error) {
	if r.indexer == nil {
		return nil, fmt.Errorf("metadata indexer is not configured")
	}
	supply, err := contracts.AsBigInt(r.settings.NFT.MaxTotalSupply)
	if err != nil {
		return nil, fmt.Errorf("max total supply: %w", err)
	}
	if !supply.IsInt64() || supply.Sign() <= 0 {
		return nil, fmt.Errorf("max total supply out of range: %s", supply)
	}

	nft, err := r.deployNFT(ctx, supply.String(), supply.String())
	if err != nil {
		return nil, err
	}
	report := &RevealReport{NFT: nft, StartedAt: r.now()}

	poller, err := reveal.NewPoller(r.indexer, reveal.Config{
		ChainID:       r.settings.ChainID,
		Contract:      nft.Hex(),
		Interval:      r.settings.Reveal.Interval,
		MaxIterations: r.settings.Reveal.MaxIterations,
		TotalSupply:   int(supply.Int64()),
		OnSnapshot:    r.recordSnapshot(nft),
	}, r.logger)
	if err != nil {
		return nil, err
	}

	report.Mint, err = r.mint(ctx, nft, supply.String())
	if err != nil {
		return nil, err
	}

	first := []string{"0"}
	report.Minted = poller.Observe(ctx, first)
	r.logger.Info("waiting before second unrevealed check", zap.Duration("delay", r.settings.Reveal.SettleDelay))
	if err := r.sleep(ctx, r.settings.Reveal.SettleDelay); err != nil {
		return nil, err
	}
	report.Settled = poller.Observe(ctx, first)

	if err := r.requestRandomSeed(ctx, nft); err != nil {
		return nil, err
	}

	report.Final, err = poller.Poll(ctx, first)
	report.FinishedAt = r.now()
	r.logger.Info("reveal test finished",
		zap.Time("started_at", report.StartedAt),
		zap.Time("finished_at", report.FinishedAt),
		zap.Int("iterations", report.Final.Iteration),
	)
	return report, err
}

func (r *Runner) recordSnapshot(nft common.Address) func(context.Context, reveal.Snapshot) {
	return func(ctx context.Context, snap reveal.Snapshot) {
		records := make([]model.RevealObservation, len(snap.States))
		for i, st := range snap.States {
			records[i] = model.RevealObservation{
				ChainID:    r.settings.ChainID,
				Contract:   nft.Hex(),
				Iteration:  snap.Iteration,
				TokenID:    st.TokenID,
				Status:     st.Status.String(),
				Value:      st.Value,
				ObservedAt: snap.ObservedAt.UTC().Format(time.RFC3339Nano),
			}
		}
		if err := r.history.PutRevealObservations(ctx, records); err != nil {
			r.logger.Warn("record reveal history", zap.Error(err))
		}
	}
}
