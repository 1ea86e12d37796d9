package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"nftops/internal/addressbook"
	"nftops/internal/ledger"
	"nftops/internal/permit"
	"nftops/internal/reveal"
	"nftops/internal/storage"
	"nftops/internal/txwatch"
)

// ErrPrerequisiteMissing is returned when a workflow depends on a contract
// that has not been deployed on the current chain.
var ErrPrerequisiteMissing = errors.New("prerequisite missing")

// Chain is the account-bound execution environment the workflows drive.
type Chain interface {
	ledger.Deployer
	permit.TokenReader
	permit.KeySigner
	Transact(ctx context.Context, contract string, address common.Address, method string, args ...any) (*types.Transaction, error)
}

// NFTSettings are the constructor and round parameters of the NFT.
type NFTSettings struct {
	Name              string
	Symbol            string
	MaxTotalSupply    string
	TeamSupply        string
	Team              common.Address
	PaymentToken      common.Address
	TrustedForwarder  common.Address
	UnrevealedURI     string
	BaseURI           string
	MaxMintPerAccount string
	MaxMint           string
}

// MintSettings are the public mint parameters.
type MintSettings struct {
	Quantity       string
	Round          string
	Price          string
	PermitDeadline time.Duration
}

// MarketSettings are the marketplace constructor parameters.
type MarketSettings struct {
	RoyaltyFeeLimit string
	ProtocolFee     string
}

// RevealSettings control the reveal integration test.
type RevealSettings struct {
	Interval      time.Duration
	MaxIterations int
	SettleDelay   time.Duration
}

// Settings is everything a Runner needs besides its collaborators.
type Settings struct {
	ChainID    uint64
	Network    string
	OutputDir  string
	VerifyTool string

	NFT    NFTSettings
	Mint   MintSettings
	Market MarketSettings
	Reveal RevealSettings
}

// Deps are the collaborators of a Runner. History and Indexer are optional.
type Deps struct {
	Chain   Chain
	Backend bind.DeployBackend
	Book    *addressbook.Store
	History storage.Storage
	Indexer reveal.Fetcher
	Logger  *zap.Logger
}

// Runner executes the named workflows.
type Runner struct {
	chain    Chain
	book     *addressbook.Store
	history  storage.Storage
	indexer  reveal.Fetcher
	ledger   *ledger.Ledger
	watcher  *txwatch.Watcher
	signer   *permit.Signer
	settings Settings
	logger   *zap.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func NewRunner(deps Deps, settings Settings) (*Runner, error) {
	if deps.Chain == nil {
		return nil, fmt.Errorf("chain is nil")
	}
	if deps.Backend == nil {
		return nil, fmt.Errorf("backend is nil")
	}
	if deps.Book == nil {
		return nil, fmt.Errorf("address book is nil")
	}
	if deps.History == nil {
		deps.History = storage.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Runner{
		chain:   deps.Chain,
		book:    deps.Book,
		history: deps.History,
		indexer: deps.Indexer,
		ledger: ledger.New(deps.Chain, ledger.Options{
			Network:   settings.Network,
			ChainID:   settings.ChainID,
			OutputDir: settings.OutputDir,
			Tool:      settings.VerifyTool,
			History:   deps.History,
			Logger:    deps.Logger,
		}),
		watcher:  txwatch.NewWatcher(deps.Backend, deps.Logger),
		signer:   permit.NewSigner(deps.Chain, deps.Chain, deps.Logger),
		settings: settings,
		logger:   deps.Logger,
		now:      time.Now,
		sleep:    sleepContext,
	}, nil
}

// Accounts returns the accounts available to the workflows.
func (r *Runner) Accounts() []common.Address {
	return []common.Address{r.chain.Address()}
}

func (r *Runner) chainKey() string {
	return strconv.FormatUint(r.settings.ChainID, 10)
}

// requireNFT returns the NFT address recorded for the current chain.
func (r *Runner) requireNFT() (common.Address, error) {
	cfg := r.book.Load(r.chainKey())
	if cfg.NFT == "" {
		return common.Address{}, fmt.Errorf("%w: no nft deployed on chain %s, run deploy-nft first", ErrPrerequisiteMissing, r.chainKey())
	}
	if !common.IsHexAddress(cfg.NFT) {
		return common.Address{}, fmt.Errorf("invalid nft address %q in %s", cfg.NFT, r.book.Path())
	}
	return common.HexToAddress(cfg.NFT), nil
}

// confirm sends method on the contract at to and waits for a successful receipt.
func (r *Runner) confirm(ctx context.Context, contract string, to common.Address, method string, args ...any) (*txwatch.Outcome, error) {
	outcome, err := r.watcher.SubmitAndConfirm(ctx, func(ctx context.Context) (*types.Transaction, error) {
		return r.chain.Transact(ctx, contract, to, method, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", contract, method, err)
	}
	return outcome, nil
}

func mul(a, b *big.Int) *big.Int {
	return new(big.Int).Mul(a, b)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
