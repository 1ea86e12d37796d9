package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nftops/internal/addressbook"
	"nftops/internal/chain"
	"nftops/internal/config"
	"nftops/internal/contracts"
	"nftops/internal/nftapi"
	"nftops/internal/storage"
	"nftops/internal/storage/postgres"
	"nftops/internal/workflow"
)

// session holds everything a command needs and releases it on close.
type session struct {
	cfg     config.Config
	logger  *zap.Logger
	chainID uint64
	runner  *workflow.Runner
	closers []func()
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func newSession(ctx context.Context, cmd *cobra.Command, withIndexer bool) (*session, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(cfgFile, envFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, logger: logger}
	s.closers = append(s.closers, func() { _ = logger.Sync() })

	if err := s.open(ctx, withIndexer); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *session) open(ctx context.Context, withIndexer bool) error {
	cfg := s.cfg
	if err := cfg.RequireChain(); err != nil {
		return err
	}
	if withIndexer {
		if err := cfg.RequireIndexer(); err != nil {
			return err
		}
	}

	settings, err := buildSettings(cfg)
	if err != nil {
		return err
	}

	account, err := chain.NewAccount(cfg.PrivateKey)
	if err != nil {
		return err
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	s.closers = append(s.closers, client.Close)

	transactor, err := chain.NewTransactor(ctx, client.Backend(), contracts.NewRegistry(cfg.ArtifactsDir), account, s.logger)
	if err != nil {
		return err
	}
	chainID, err := transactor.ChainID(ctx)
	if err != nil {
		return err
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id out of range: %s", chainID)
	}
	s.chainID = chainID.Uint64()
	settings.ChainID = s.chainID

	history, err := s.openHistory(ctx)
	if err != nil {
		return err
	}

	deps := workflow.Deps{
		Chain:   transactor,
		Backend: transactor.Backend(),
		Book:    addressbook.NewStore(cfg.ContractsFile, s.logger),
		History: history,
		Logger:  s.logger,
	}
	if withIndexer {
		deps.Indexer = nftapi.NewClient(cfg.IndexerAPIKey, cfg.IndexerAPISecret,
			nftapi.WithBaseURL(cfg.IndexerURL),
			nftapi.WithTimeout(cfg.IndexerTimeout),
		)
	}

	s.runner, err = workflow.NewRunner(deps, settings)
	if err != nil {
		return err
	}

	s.logger.Info("session ready",
		zap.String("network", cfg.Network),
		zap.Uint64("chain_id", s.chainID),
		zap.String("account", account.Address().Hex()),
		zap.String("contracts_file", cfg.ContractsFile),
	)
	return nil
}

func (s *session) openHistory(ctx context.Context) (storage.Storage, error) {
	if s.cfg.PGDSN == "" {
		return storage.NewJsonlStorage(s.cfg.History), nil
	}

	store, err := postgres.NewStore(ctx, s.cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s.closers = append(s.closers, store.Close)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func buildSettings(cfg config.Config) (workflow.Settings, error) {
	team, err := optionalAddress("team-address", cfg.TeamAddress)
	if err != nil {
		return workflow.Settings{}, err
	}
	paymentToken, err := optionalAddress("payment-token", cfg.PaymentToken)
	if err != nil {
		return workflow.Settings{}, err
	}
	forwarder, err := optionalAddress("trusted-forwarder", cfg.TrustedForwarder)
	if err != nil {
		return workflow.Settings{}, err
	}

	return workflow.Settings{
		Network:    cfg.Network,
		OutputDir:  cfg.OutputDir,
		VerifyTool: cfg.VerifyTool,
		NFT: workflow.NFTSettings{
			Name:              cfg.NFTName,
			Symbol:            cfg.NFTSymbol,
			MaxTotalSupply:    cfg.MaxTotalSupply,
			TeamSupply:        cfg.TeamSupply,
			Team:              team,
			PaymentToken:      paymentToken,
			TrustedForwarder:  forwarder,
			UnrevealedURI:     cfg.UnrevealedURI,
			BaseURI:           cfg.BaseURI,
			MaxMintPerAccount: cfg.MaxMintPerAccount,
			MaxMint:           cfg.MaxMint,
		},
		Mint: workflow.MintSettings{
			Quantity:       cfg.MintQuantity,
			Round:          cfg.MintRound,
			Price:          cfg.MintPrice,
			PermitDeadline: cfg.PermitDeadline,
		},
		Market: workflow.MarketSettings{
			RoyaltyFeeLimit: cfg.RoyaltyFeeLimit,
			ProtocolFee:     cfg.ProtocolFee,
		},
		Reveal: workflow.RevealSettings{
			Interval:      cfg.PollInterval,
			MaxIterations: cfg.PollMaxIterations,
			SettleDelay:   cfg.SettleDelay,
		},
	}, nil
}

func optionalAddress(name, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, nil
	}
	addr, err := contracts.AsAddress(value)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	return addr, nil
}
