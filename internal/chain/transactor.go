package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"nftops/internal/contracts"
)

// Transactor deploys and drives contracts by artifact name on behalf of one account.
type Transactor struct {
	backend  Backend
	registry *contracts.Registry
	account  *Account
	chainID  *big.Int
	logger   *zap.Logger
}

// NewTransactor resolves the chain id once and binds the account to it.
func NewTransactor(ctx context.Context, backend Backend, registry *contracts.Registry, account *Account, logger *zap.Logger) (*Transactor, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	if account == nil {
		return nil, fmt.Errorf("account is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}

	return &Transactor{
		backend:  backend,
		registry: registry,
		account:  account,
		chainID:  chainID,
		logger:   logger,
	}, nil
}

// Address returns the sending account.
func (t *Transactor) Address() common.Address {
	return t.account.Address()
}

// ChainID returns the chain id the transactor signs for.
func (t *Transactor) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(t.chainID), nil
}

// SignHash signs a digest with the sending account.
func (t *Transactor) SignHash(hash []byte) ([]byte, error) {
	return t.account.SignHash(hash)
}

// Backend returns the underlying RPC backend.
func (t *Transactor) Backend() Backend {
	return t.backend
}

// Deploy broadcasts a creation transaction for the named artifact. The
// returned address is not usable until WaitDeployed succeeds.
func (t *Transactor) Deploy(ctx context.Context, name string, args ...any) (*types.Transaction, common.Address, error) {
	art, err := t.registry.Artifact(name)
	if err != nil {
		return nil, common.Address{}, err
	}
	if !art.Deployable() {
		return nil, common.Address{}, fmt.Errorf("artifact %s has no bytecode", name)
	}

	params, err := contracts.CoerceArgs(art.ABI.Constructor.Inputs, args)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("%s constructor: %w", name, err)
	}

	opts, err := t.transactOpts(ctx)
	if err != nil {
		return nil, common.Address{}, err
	}

	address, tx, _, err := bind.DeployContract(opts, art.ABI, art.Bytecode, t.backend, params...)
	if err != nil {
		return nil, common.Address{}, err
	}

	t.logger.Debug("creation transaction sent",
		zap.String("contract", name),
		zap.String("address", address.Hex()),
		zap.String("tx_hash", tx.Hash().Hex()),
	)
	return tx, address, nil
}

// WaitDeployed blocks until the creation transaction is mined and code exists at the address.
func (t *Transactor) WaitDeployed(ctx context.Context, tx *types.Transaction) (common.Address, error) {
	return bind.WaitDeployed(ctx, t.backend, tx)
}

// Transact sends a state-changing call to method on the contract at address.
func (t *Transactor) Transact(ctx context.Context, contract string, address common.Address, method string, args ...any) (*types.Transaction, error) {
	bound, params, err := t.bind(contract, address, method, args)
	if err != nil {
		return nil, err
	}

	opts, err := t.transactOpts(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := bound.Transact(opts, method, params...)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", contract, method, err)
	}

	t.logger.Debug("transaction sent",
		zap.String("contract", contract),
		zap.String("method", method),
		zap.String("tx_hash", tx.Hash().Hex()),
	)
	return tx, nil
}

// Call performs a read-only call and returns the unpacked outputs.
func (t *Transactor) Call(ctx context.Context, contract string, address common.Address, method string, args ...any) ([]any, error) {
	bound, params, err := t.bind(contract, address, method, args)
	if err != nil {
		return nil, err
	}

	var out []any
	opts := &bind.CallOpts{Context: ctx, From: t.account.Address()}
	if err := bound.Call(opts, &out, method, params...); err != nil {
		return nil, fmt.Errorf("%s.%s: %w", contract, method, err)
	}
	return out, nil
}

func (t *Transactor) bind(contract string, address common.Address, method string, args []any) (*bind.BoundContract, []any, error) {
	art, err := t.registry.Artifact(contract)
	if err != nil {
		return nil, nil, err
	}
	m, ok := art.ABI.Methods[method]
	if !ok {
		return nil, nil, fmt.Errorf("method %s not found in %s", method, contract)
	}
	params, err := contracts.CoerceArgs(m.Inputs, args)
	if err != nil {
		return nil, nil, fmt.Errorf("%s.%s: %w", contract, method, err)
	}
	return bind.NewBoundContract(address, art.ABI, t.backend, t.backend, t.backend), params, nil
}

func (t *Transactor) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := t.account.transactOpts(t.chainID)
	if err != nil {
		return nil, fmt.Errorf("create transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}
