package addressbook

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// ErrConfigWrite is returned when the address book cannot be persisted.
var ErrConfigWrite = errors.New("address book write failed")

// ChainConfig holds the contract addresses deployed on one chain. A field is
// set only once its contract has been deployed and confirmed.
type ChainConfig struct {
	NFT                  string `json:"nft,omitempty"`
	ModuleManager        string `json:"moduleManager,omitempty"`
	ERC721TransferHelper string `json:"erc721TransferHelper,omitempty"`
	ERC20TransferHelper  string `json:"erc20TransferHelper,omitempty"`
	RoyaltyFeeRegistry   string `json:"royaltyFeeRegistry,omitempty"`
	RoyaltyFeeManager    string `json:"royaltyFeeManager,omitempty"`
	CurrencyManager      string `json:"currencyManager,omitempty"`
	CollectionManager    string `json:"collectionManager,omitempty"`
	AsksV1               string `json:"asksV1,omitempty"`
}

func (c ChainConfig) fields() (map[string]string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromFields(fields map[string]string) ChainConfig {
	var c ChainConfig
	data, err := json.Marshal(fields)
	if err != nil {
		return c
	}
	_ = json.Unmarshal(data, &c)
	return c
}

// Store persists chain configs to a single JSON file keyed by chain id.
// Keys it does not know about are carried through rewrites untouched.
type Store struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the config for chainID. A missing or unreadable file yields an
// empty config.
func (s *Store) Load(chainID string) ChainConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := decodeRecord(s.readAll()[chainID])
	if err != nil {
		s.logger.Warn("address book record malformed, using empty config", zap.String("chain_id", chainID), zap.Error(err))
		return ChainConfig{}
	}
	fields := make(map[string]string, len(record))
	for key, raw := range record {
		var value string
		if err := json.Unmarshal(raw, &value); err == nil {
			fields[key] = value
		}
	}
	return fromFields(fields)
}

// Save merges patch into the config stored for chainID and rewrites the file.
// Empty patch fields leave existing values in place. Other chains and keys
// are written back as read.
func (s *Store) Save(chainID string, patch ChainConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updates, err := patch.fields()
	if err != nil {
		return fmt.Errorf("%w: encode patch: %v", ErrConfigWrite, err)
	}

	all := s.readAll()
	record, err := decodeRecord(all[chainID])
	if err != nil {
		return fmt.Errorf("%w: chain %s: %v", ErrConfigWrite, chainID, err)
	}
	for key, value := range updates {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("%w: encode %s: %v", ErrConfigWrite, key, err)
		}
		record[key] = raw
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: encode chain %s: %v", ErrConfigWrite, chainID, err)
	}
	all[chainID] = encoded

	return s.writeAll(all)
}

// decodeRecord parses one chain entry. An absent or null entry is empty.
func decodeRecord(raw json.RawMessage) (map[string]json.RawMessage, error) {
	record := make(map[string]json.RawMessage)
	if len(raw) == 0 || string(raw) == "null" {
		return record, nil
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("record is not an object: %w", err)
	}
	if record == nil {
		record = make(map[string]json.RawMessage)
	}
	return record, nil
}

func (s *Store) readAll() map[string]json.RawMessage {
	all := make(map[string]json.RawMessage)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("address book unreadable, using empty config", zap.String("path", s.path), zap.Error(err))
		}
		return all
	}

	if err := json.Unmarshal(data, &all); err != nil {
		s.logger.Warn("address book malformed, using empty config", zap.String("path", s.path), zap.Error(err))
		return make(map[string]json.RawMessage)
	}
	if all == nil {
		all = make(map[string]json.RawMessage)
	}
	return all
}

func (s *Store) writeAll(all map[string]json.RawMessage) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create dir: %v", ErrConfigWrite, err)
		}
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrConfigWrite, err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("%w: write tmp: %v", ErrConfigWrite, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrConfigWrite, err)
	}

	return nil
}
