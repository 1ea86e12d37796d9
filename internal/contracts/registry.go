package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Contract names as they appear in the compiled artifacts.
const (
	NFT                  = "BlockhashNeowizERC721"
	ERC721               = "ERC721"
	PermitToken          = "CYK"
	ModuleManager        = "ModuleManager"
	ERC721TransferHelper = "ERC721TransferHelper"
	ERC20TransferHelper  = "ERC20TransferHelper"
	RoyaltyFeeRegistry   = "RoyaltyFeeRegistry"
	RoyaltyFeeManager    = "RoyaltyFeeManager"
	CurrencyManager      = "CurrencyManager"
	CollectionManager    = "CollectionManager"
	AsksV1               = "AsksV1"
)

// Artifact is a parsed contract ABI with optional creation bytecode.
type Artifact struct {
	Name     string
	ABI      abi.ABI
	Bytecode []byte
}

// Deployable reports whether the artifact carries creation bytecode.
func (a Artifact) Deployable() bool {
	return len(a.Bytecode) > 0
}

// Registry resolves artifacts by contract name. Compiled artifacts under dir
// take precedence over the embedded interface ABIs.
type Registry struct {
	dir string

	mu    sync.Mutex
	index map[string]string
	cache map[string]Artifact
}

func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir, cache: make(map[string]Artifact)}
}

// Artifact returns the artifact for name.
func (r *Registry) Artifact(name string) (Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if art, ok := r.cache[name]; ok {
		return art, nil
	}

	if err := r.buildIndex(); err != nil {
		return Artifact{}, err
	}

	if path, ok := r.index[name]; ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return Artifact{}, fmt.Errorf("read artifact %s: %w", name, err)
		}
		art, err := parseArtifact(name, data)
		if err != nil {
			return Artifact{}, err
		}
		r.cache[name] = art
		return art, nil
	}

	raw, ok := interfaceABIs[name]
	if !ok {
		return Artifact{}, fmt.Errorf("artifact not found: %s", name)
	}
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		return Artifact{}, fmt.Errorf("parse %s abi: %w", name, err)
	}
	art := Artifact{Name: name, ABI: parsed}
	r.cache[name] = art
	return art, nil
}

func (r *Registry) buildIndex() error {
	if r.index != nil {
		return nil
	}
	r.index = make(map[string]string)
	if r.dir == "" {
		return nil
	}

	err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		base := d.Name()
		if !strings.HasSuffix(base, ".json") || strings.HasSuffix(base, ".dbg.json") {
			return nil
		}
		name := strings.TrimSuffix(base, ".json")
		if _, ok := r.index[name]; !ok {
			r.index[name] = path
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.index = nil
		return fmt.Errorf("scan artifacts: %w", err)
	}
	return nil
}

// parseArtifact accepts hardhat ("bytecode": "0x...") and foundry
// ("bytecode": {"object": "0x..."}) artifact layouts.
func parseArtifact(name string, data []byte) (Artifact, error) {
	var raw struct {
		ABI      json.RawMessage `json:"abi"`
		Bytecode json.RawMessage `json:"bytecode"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Artifact{}, fmt.Errorf("parse artifact %s: %w", name, err)
	}
	if len(raw.ABI) == 0 {
		return Artifact{}, fmt.Errorf("artifact %s has no abi", name)
	}

	parsed, err := abi.JSON(strings.NewReader(string(raw.ABI)))
	if err != nil {
		return Artifact{}, fmt.Errorf("parse %s abi: %w", name, err)
	}

	var bytecodeHex string
	if len(raw.Bytecode) > 0 {
		if err := json.Unmarshal(raw.Bytecode, &bytecodeHex); err != nil {
			var object struct {
				Object string `json:"object"`
			}
			if err := json.Unmarshal(raw.Bytecode, &object); err != nil {
				return Artifact{}, fmt.Errorf("parse %s bytecode: %w", name, err)
			}
			bytecodeHex = object.Object
		}
	}

	return Artifact{
		Name:     name,
		ABI:      parsed,
		Bytecode: common.FromHex(bytecodeHex),
	}, nil
}
