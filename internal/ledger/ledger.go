package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"nftops/internal/model"
	"nftops/internal/storage"
)

// ErrDeploymentFailed is returned when the chain rejects or never confirms a
// contract creation.
var ErrDeploymentFailed = errors.New("deployment failed")

// Deployer creates contracts on chain.
type Deployer interface {
	Address() common.Address
	Deploy(ctx context.Context, name string, args ...any) (*types.Transaction, common.Address, error)
	WaitDeployed(ctx context.Context, tx *types.Transaction) (common.Address, error)
}

// Options configures a Ledger.
type Options struct {
	Network   string
	ChainID   uint64
	OutputDir string
	Tool      string
	History   storage.Storage
	Logger    *zap.Logger
}

// Ledger deploys contracts, blocking until they are confirmed, and records a
// verification command for each one.
type Ledger struct {
	deployer Deployer
	opts     Options
	now      func() time.Time

	mu          sync.Mutex
	initialized map[string]bool
}

func New(deployer Deployer, opts Options) *Ledger {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.History == nil {
		opts.History = storage.Nop{}
	}
	if opts.Tool == "" {
		opts.Tool = "hardhat"
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	return &Ledger{
		deployer:    deployer,
		opts:        opts,
		now:         time.Now,
		initialized: make(map[string]bool),
	}
}

// ScriptPath returns the verification script for the ledger's network.
func (l *Ledger) ScriptPath() string {
	return scriptPath(l.opts.OutputDir, l.opts.Network)
}

// Deploy creates contract name with args and returns its address once the
// creation transaction is mined and code is present.
func (l *Ledger) Deploy(ctx context.Context, name string, args ...any) (common.Address, error) {
	if err := l.ensureScript(); err != nil {
		return common.Address{}, err
	}

	tx, _, err := l.deployer.Deploy(ctx, name, args...)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %s: %v", ErrDeploymentFailed, name, err)
	}
	l.opts.Logger.Info("deploying contract",
		zap.String("contract", name),
		zap.String("tx_hash", tx.Hash().Hex()),
	)

	address, err := l.deployer.WaitDeployed(ctx, tx)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %s (tx %s): %v", ErrDeploymentFailed, name, tx.Hash().Hex(), err)
	}

	rendered := renderArgs(args)
	if err := appendLine(l.ScriptPath(), verifyLine(l.opts.Tool, l.opts.Network, address, rendered)); err != nil {
		return common.Address{}, err
	}

	l.opts.Logger.Info("contract deployed",
		zap.String("contract", name),
		zap.String("address", address.Hex()),
	)

	record := model.DeploymentRecord{
		ChainID:    l.opts.ChainID,
		Network:    l.opts.Network,
		Contract:   name,
		Address:    address.Hex(),
		TxHash:     tx.Hash().Hex(),
		Deployer:   l.deployer.Address().Hex(),
		Args:       rendered,
		DeployedAt: l.now().UTC().Format(time.RFC3339Nano),
	}
	if err := l.opts.History.PutDeployments(ctx, []model.DeploymentRecord{record}); err != nil {
		l.opts.Logger.Warn("record deployment history", zap.String("contract", name), zap.Error(err))
	}

	return address, nil
}

func (l *Ledger) ensureScript() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized[l.opts.Network] {
		return nil
	}
	if err := initScript(l.ScriptPath()); err != nil {
		return err
	}
	l.initialized[l.opts.Network] = true
	return nil
}
