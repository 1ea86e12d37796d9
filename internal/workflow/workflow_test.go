package workflow

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"nftops/internal/addressbook"
	"nftops/internal/contracts"
	"nftops/internal/model"
	"nftops/internal/nftapi"
	"nftops/internal/txwatch"
)

type sentTx struct {
	contract string
	to       common.Address
	method   string
	args     []any
}

type fakeChain struct {
	mu       sync.Mutex
	key      *ecdsa.PrivateKey
	nonce    uint64
	calls    []string
	deployed map[common.Hash]common.Address
	sent     map[common.Hash]sentTx
	mintIDs  []int64
	seeded   bool
}

func newFakeChain(t *testing.T) *fakeChain {
	t.Helper()
	key, err := crypto.HexToECDSA("8f2a55949038a9610f50fb23b5883af3b4ecb3c3bb792cbcefbd1542c692be63")
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	return &fakeChain{
		key:      key,
		deployed: make(map[common.Hash]common.Address),
		sent:     make(map[common.Hash]sentTx),
		mintIDs:  []int64{0, 1},
	}
}

func (f *fakeChain) nextTx(to *common.Address) *types.Transaction {
	f.nonce++
	return types.NewTx(&types.LegacyTx{Nonce: f.nonce, To: to, GasPrice: big.NewInt(1), Gas: 100000})
}

func (f *fakeChain) Address() common.Address { return crypto.PubkeyToAddress(f.key.PublicKey) }

func (f *fakeChain) ChainID(context.Context) (*big.Int, error) { return big.NewInt(80001), nil }

func (f *fakeChain) SignHash(hash []byte) ([]byte, error) { return crypto.Sign(hash, f.key) }

func (f *fakeChain) Deploy(_ context.Context, name string, _ ...any) (*types.Transaction, common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "deploy:"+name)
	tx := f.nextTx(nil)
	addr := common.BigToAddress(new(big.Int).SetUint64(0x1000 + f.nonce))
	f.deployed[tx.Hash()] = addr
	return tx, addr, nil
}

func (f *fakeChain) WaitDeployed(_ context.Context, tx *types.Transaction) (common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deployed[tx.Hash()], nil
}

func (f *fakeChain) Transact(_ context.Context, contract string, to common.Address, method string, args ...any) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, contract+"."+method)
	tx := f.nextTx(&to)
	f.sent[tx.Hash()] = sentTx{contract: contract, to: to, method: method, args: args}
	if method == "requestRandomSeed" {
		f.seeded = true
	}
	return tx, nil
}

func (f *fakeChain) Call(_ context.Context, _ string, _ common.Address, method string, _ ...any) ([]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "call:"+method)
	switch method {
	case "nonces":
		return []any{big.NewInt(0)}, nil
	case "name":
		return []any{"CYK"}, nil
	}
	return nil, errors.New("unexpected call " + method)
}

func (f *fakeChain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	receipt := &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash, BlockNumber: big.NewInt(1)}
	if tx, ok := f.sent[hash]; ok && tx.method == "publicMintWithPermit" {
		for _, id := range f.mintIDs {
			receipt.Logs = append(receipt.Logs, &types.Log{
				Address: tx.to,
				Topics:  []common.Hash{txwatch.TransferTopic, {}, {}, common.BigToHash(big.NewInt(id))},
			})
		}
	}
	return receipt, nil
}

func (f *fakeChain) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{1}, nil
}

func (f *fakeChain) transactions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if !strings.HasPrefix(c, "call:") {
			out = append(out, c)
		}
	}
	return out
}

type memHistory struct {
	mu     sync.Mutex
	mints  []model.MintRecord
	deploy []model.DeploymentRecord
	reveal []model.RevealObservation
}

func (m *memHistory) PutDeployments(_ context.Context, r []model.DeploymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deploy = append(m.deploy, r...)
	return nil
}

func (m *memHistory) PutMints(_ context.Context, r []model.MintRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mints = append(m.mints, r...)
	return nil
}

func (m *memHistory) PutRevealObservations(_ context.Context, r []model.RevealObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reveal = append(m.reveal, r...)
	return nil
}

type seededIndexer struct {
	chain *fakeChain
}

func (s *seededIndexer) Token(context.Context, uint64, string, string) (*nftapi.Token, error) {
	s.chain.mu.Lock()
	seeded := s.chain.seeded
	s.chain.mu.Unlock()

	value := `"Unrevealed"`
	if seeded {
		value = `"Sunny"`
	}
	return &nftapi.Token{Metadata: &nftapi.Metadata{Attributes: []nftapi.Attribute{{Value: json.RawMessage(value)}}}}, nil
}

func testSettings(dir string) Settings {
	return Settings{
		ChainID:    80001,
		Network:    "mumbai",
		OutputDir:  dir,
		VerifyTool: "hardhat",
		NFT: NFTSettings{
			Name:              "CYK721",
			Symbol:            "CYK721",
			MaxTotalSupply:    "2",
			TeamSupply:        "0",
			Team:              common.HexToAddress("0x00000000000000000000000000000000000000a1"),
			PaymentToken:      common.HexToAddress("0x00000000000000000000000000000000000000a2"),
			TrustedForwarder:  common.HexToAddress("0x00000000000000000000000000000000000000a3"),
			UnrevealedURI:     "ipfs://unrevealed",
			BaseURI:           "ipfs://base/",
			MaxMintPerAccount: "10",
			MaxMint:           "10",
		},
		Mint:   MintSettings{Quantity: "2", Round: "1", Price: "1", PermitDeadline: time.Hour},
		Market: MarketSettings{RoyaltyFeeLimit: "5000", ProtocolFee: "500"},
		Reveal: RevealSettings{MaxIterations: 5},
	}
}

type harness struct {
	runner  *Runner
	chain   *fakeChain
	book    *addressbook.Store
	history *memHistory
	dir     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	chain := newFakeChain(t)
	book := addressbook.NewStore(filepath.Join(dir, "contract.json"), zap.NewNop())
	history := &memHistory{}
	runner, err := NewRunner(Deps{
		Chain:   chain,
		Backend: chain,
		Book:    book,
		History: history,
		Indexer: &seededIndexer{chain: chain},
		Logger:  zap.NewNop(),
	}, testSettings(dir))
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	runner.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return &harness{runner: runner, chain: chain, book: book, history: history, dir: dir}
}

func TestDeployNFT(t *testing.T) {
	h := newHarness(t)

	nft, err := h.runner.DeployNFT(context.Background())
	if err != nil {
		t.Fatalf("deploy nft: %v", err)
	}

	want := []string{
		"deploy:" + contracts.NFT,
		contracts.NFT + ".setBaseURI",
		contracts.NFT + ".addRound",
	}
	if got := h.chain.transactions(); !reflect.DeepEqual(got, want) {
		t.Fatalf("call order mismatch: %v", got)
	}
	if got := h.book.Load("80001").NFT; got != nft.Hex() {
		t.Fatalf("nft not recorded: %q", got)
	}

	script, err := os.ReadFile(filepath.Join(h.dir, "verify-script.mumbai"))
	if err != nil {
		t.Fatalf("read script: %v", err)
	}
	if !strings.Contains(string(script), "npx hardhat verify --network mumbai "+nft.Hex()+" CYK721 CYK721 2 0 ") {
		t.Fatalf("script line mismatch:\n%s", script)
	}
}

func TestDeployNFTRequiresAddresses(t *testing.T) {
	h := newHarness(t)
	h.runner.settings.NFT.PaymentToken = common.Address{}

	if _, err := h.runner.DeployNFT(context.Background()); err == nil {
		t.Fatalf("expected error for missing payment token")
	}
	if len(h.chain.transactions()) != 0 {
		t.Fatalf("nothing should be sent")
	}
}

func TestPrerequisiteMissing(t *testing.T) {
	ctx := context.Background()
	steps := map[string]func(*Runner) error{
		"deploy-asks-v1": func(r *Runner) error { _, err := r.DeployAsksV1(ctx); return err },
		"set-base-uri":   func(r *Runner) error { return r.SetBaseURI(ctx, "ipfs://x/") },
		"set-unrevealed": func(r *Runner) error { return r.SetUnrevealedURI(ctx, "ipfs://y") },
		"public-mint":    func(r *Runner) error { _, err := r.PublicMintWithPermit(ctx); return err },
		"random-seed":    func(r *Runner) error { return r.RequestRandomSeed(ctx) },
	}

	for name, step := range steps {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			if err := step(h.runner); !errors.Is(err, ErrPrerequisiteMissing) {
				t.Fatalf("expected ErrPrerequisiteMissing, got %v", err)
			}
			if len(h.chain.calls) != 0 {
				t.Fatalf("no chain calls expected, got %v", h.chain.calls)
			}
			if _, err := os.Stat(filepath.Join(h.dir, "verify-script.mumbai")); !os.IsNotExist(err) {
				t.Fatalf("verify script must not be created")
			}
		})
	}
}

func TestDeployAsksV1(t *testing.T) {
	h := newHarness(t)
	nft := common.HexToAddress("0x00000000000000000000000000000000000000ee")
	if err := h.book.Save("80001", addressbook.ChainConfig{NFT: nft.Hex()}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	patch, err := h.runner.DeployAsksV1(context.Background())
	if err != nil {
		t.Fatalf("deploy asks: %v", err)
	}

	want := []string{
		"deploy:" + contracts.ModuleManager,
		"deploy:" + contracts.ERC721TransferHelper,
		"deploy:" + contracts.ERC20TransferHelper,
		"deploy:" + contracts.RoyaltyFeeRegistry,
		"deploy:" + contracts.RoyaltyFeeManager,
		"deploy:" + contracts.CurrencyManager,
		"deploy:" + contracts.CollectionManager,
		"deploy:" + contracts.AsksV1,
		contracts.ModuleManager + ".setModuleRegistration",
		contracts.CurrencyManager + ".addCurrency",
		contracts.CollectionManager + ".addToken",
		contracts.ERC721 + ".setApprovalForAll",
	}
	if got := h.chain.transactions(); !reflect.DeepEqual(got, want) {
		t.Fatalf("call order mismatch:\n%v\n%v", got, want)
	}

	stored := h.book.Load("80001")
	if stored.NFT != nft.Hex() {
		t.Fatalf("nft must survive merge: %+v", stored)
	}
	patch.NFT = nft.Hex()
	if !reflect.DeepEqual(stored, patch) {
		t.Fatalf("stored config mismatch:\n%+v\n%+v", stored, patch)
	}

	for _, tx := range h.chain.sent {
		if tx.method == "setApprovalForAll" {
			if tx.to != nft || tx.args[0] != common.HexToAddress(patch.ERC721TransferHelper) {
				t.Fatalf("approval target mismatch: %+v", tx)
			}
		}
	}

	script, err := os.ReadFile(filepath.Join(h.dir, "verify-script.mumbai"))
	if err != nil {
		t.Fatalf("read script: %v", err)
	}
	if got := strings.Count(string(script), "npx hardhat verify"); got != 8 {
		t.Fatalf("expected 8 verify lines, got %d", got)
	}
	if len(h.history.deploy) != 8 {
		t.Fatalf("expected 8 deployment records, got %d", len(h.history.deploy))
	}
}

func TestPublicMintWithPermit(t *testing.T) {
	h := newHarness(t)
	nft := common.HexToAddress("0x00000000000000000000000000000000000000ee")
	if err := h.book.Save("80001", addressbook.ChainConfig{NFT: nft.Hex()}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	result, err := h.runner.PublicMintWithPermit(context.Background())
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := idStrings(result.TokenIDs); !reflect.DeepEqual(got, []string{"0", "1"}) {
		t.Fatalf("token ids mismatch: %v", result.TokenIDs)
	}

	var mintTx sentTx
	for _, tx := range h.chain.sent {
		if tx.method == "publicMintWithPermit" {
			mintTx = tx
		}
	}
	if mintTx.to != nft || len(mintTx.args) != 8 {
		t.Fatalf("mint tx mismatch: %+v", mintTx)
	}
	if mintTx.args[2] != h.runner.settings.NFT.PaymentToken {
		t.Fatalf("payment token mismatch: %v", mintTx.args[2])
	}
	if v, ok := mintTx.args[5].(uint8); !ok || (v != 27 && v != 28) {
		t.Fatalf("v mismatch: %v", mintTx.args[5])
	}

	if len(h.history.mints) != 1 || !reflect.DeepEqual(h.history.mints[0].TokenIDs, []string{"0", "1"}) {
		t.Fatalf("mint history mismatch: %+v", h.history.mints)
	}
	if h.history.mints[0].Price != "1" || h.history.mints[0].Quantity != 2 {
		t.Fatalf("mint record mismatch: %+v", h.history.mints[0])
	}
}

func TestPublicMintEventNotFound(t *testing.T) {
	h := newHarness(t)
	h.chain.mintIDs = nil
	if err := h.book.Save("80001", addressbook.ChainConfig{NFT: "0x00000000000000000000000000000000000000ee"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := h.runner.PublicMintWithPermit(context.Background())
	if !errors.Is(err, txwatch.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
	if len(h.history.mints) != 0 {
		t.Fatalf("no mint record expected")
	}
}

func TestRevealTest(t *testing.T) {
	h := newHarness(t)

	report, err := h.runner.RevealTest(context.Background())
	if err != nil {
		t.Fatalf("reveal test: %v", err)
	}

	if got := report.Minted.Values(); !reflect.DeepEqual(got, map[string]string{"0": "Unrevealed"}) {
		t.Fatalf("minted snapshot mismatch: %v", got)
	}
	if got := report.Settled.Values(); !reflect.DeepEqual(got, map[string]string{"0": "Unrevealed"}) {
		t.Fatalf("settled snapshot mismatch: %v", got)
	}
	if report.Final.Iteration != 1 || len(report.Final.Revealed()) != 2 {
		t.Fatalf("final snapshot mismatch: %+v", report.Final)
	}

	txs := h.chain.transactions()
	if txs[len(txs)-1] != contracts.NFT+".requestRandomSeed" {
		t.Fatalf("reveal must be requested last: %v", txs)
	}
	if h.book.Load("80001").NFT != "" {
		t.Fatalf("reveal test must not record its nft")
	}
	if len(h.history.reveal) != 2 {
		t.Fatalf("expected 2 reveal observations, got %d", len(h.history.reveal))
	}
}

func TestRevealTestRequiresIndexer(t *testing.T) {
	h := newHarness(t)
	h.runner.indexer = nil
	if _, err := h.runner.RevealTest(context.Background()); err == nil {
		t.Fatalf("expected error without indexer")
	}
	if len(h.chain.calls) != 0 {
		t.Fatalf("no chain calls expected")
	}
}

func idStrings(ids []*big.Int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
