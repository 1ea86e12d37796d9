package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"nftops/internal/model"
)

// Record kinds written to the JSONL history.
const (
	KindDeployment = "deployment"
	KindMint       = "mint"
	KindReveal     = "reveal"
)

// Envelope is one line of the JSONL history.
type Envelope struct {
	Kind   string          `json:"kind"`
	Record json.RawMessage `json:"record"`
}

// JsonlStorage appends history records to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

func (s *JsonlStorage) PutDeployments(_ context.Context, records []model.DeploymentRecord) error {
	return appendRecords(s, KindDeployment, records)
}

func (s *JsonlStorage) PutMints(_ context.Context, records []model.MintRecord) error {
	return appendRecords(s, KindMint, records)
}

func (s *JsonlStorage) PutRevealObservations(_ context.Context, records []model.RevealObservation) error {
	return appendRecords(s, KindReveal, records)
}

func appendRecords[T any](s *JsonlStorage, kind string, records []T) error {
	if len(records) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		raw, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal %s record: %w", kind, err)
		}
		line, err := json.Marshal(Envelope{Kind: kind, Record: raw})
		if err != nil {
			return fmt.Errorf("marshal %s envelope: %w", kind, err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write %s record: %w", kind, err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush history: %w", err)
	}

	return nil
}
