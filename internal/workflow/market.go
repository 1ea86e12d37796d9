package workflow

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"nftops/internal/addressbook"
	"nftops/internal/contracts"
)

// DeployAsksV1 deploys the marketplace module set against the recorded NFT,
// wires the modules together and records all addresses as one patch.
// Contracts deployed before a failure are not recorded.
func (r *Runner) DeployAsksV1(ctx context.Context) (addressbook.ChainConfig, error) {
	nft, err := r.requireNFT()
	if err != nil {
		return addressbook.ChainConfig{}, err
	}
	paymentToken := r.settings.NFT.PaymentToken
	if paymentToken == (common.Address{}) {
		return addressbook.ChainConfig{}, fmt.Errorf("payment token address is required")
	}
	m := r.settings.Market

	moduleManager, err := r.ledger.Deploy(ctx, contracts.ModuleManager)
	if err != nil {
		return addressbook.ChainConfig{}, err
	}
	erc721Helper, err := r.ledger.Deploy(ctx, contracts.ERC721TransferHelper, moduleManager)
	if err != nil {
		return addressbook.ChainConfig{}, err
	}
	erc20Helper, err := r.ledger.Deploy(ctx, contracts.ERC20TransferHelper, moduleManager)
	if err != nil {
		return addressbook.ChainConfig{}, err
	}
	royaltyRegistry, err := r.ledger.Deploy(ctx, contracts.RoyaltyFeeRegistry, m.RoyaltyFeeLimit)
	if err != nil {
		return addressbook.ChainConfig{}, err
	}
	royaltyManager, err := r.ledger.Deploy(ctx, contracts.RoyaltyFeeManager, royaltyRegistry)
	if err != nil {
		return addressbook.ChainConfig{}, err
	}
	currencyManager, err := r.ledger.Deploy(ctx, contracts.CurrencyManager)
	if err != nil {
		return addressbook.ChainConfig{}, err
	}
	collectionManager, err := r.ledger.Deploy(ctx, contracts.CollectionManager)
	if err != nil {
		return addressbook.ChainConfig{}, err
	}
	asks, err := r.ledger.Deploy(ctx, contracts.AsksV1,
		m.ProtocolFee,
		r.chain.Address(),
		erc20Helper,
		erc721Helper,
		royaltyManager,
		currencyManager,
		collectionManager,
		common.Address{},
		nft,
	)
	if err != nil {
		return addressbook.ChainConfig{}, err
	}

	steps := []struct {
		contract string
		address  common.Address
		method   string
		args     []any
	}{
		{contracts.ModuleManager, moduleManager, "setModuleRegistration", []any{asks, true}},
		{contracts.CurrencyManager, currencyManager, "addCurrency", []any{paymentToken}},
		{contracts.CollectionManager, collectionManager, "addToken", []any{nft}},
		{contracts.ERC721, nft, "setApprovalForAll", []any{erc721Helper, true}},
	}
	for _, step := range steps {
		if _, err := r.confirm(ctx, step.contract, step.address, step.method, step.args...); err != nil {
			return addressbook.ChainConfig{}, err
		}
	}

	patch := addressbook.ChainConfig{
		ModuleManager:        moduleManager.Hex(),
		ERC721TransferHelper: erc721Helper.Hex(),
		ERC20TransferHelper:  erc20Helper.Hex(),
		RoyaltyFeeRegistry:   royaltyRegistry.Hex(),
		RoyaltyFeeManager:    royaltyManager.Hex(),
		CurrencyManager:      currencyManager.Hex(),
		CollectionManager:    collectionManager.Hex(),
		AsksV1:               asks.Hex(),
	}
	if err := r.book.Save(r.chainKey(), patch); err != nil {
		return addressbook.ChainConfig{}, err
	}

	r.logger.Info("marketplace modules recorded", zap.String("chain_id", r.chainKey()), zap.String("asks_v1", asks.Hex()))
	return patch, nil
}
