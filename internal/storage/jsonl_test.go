package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"nftops/internal/model"
)

func TestJsonlStorageAppendsEnvelopes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "history.jsonl")
	store := NewJsonlStorage(path)
	ctx := context.Background()

	deploy := model.DeploymentRecord{
		ChainID:    80001,
		Network:    "mumbai",
		Contract:   "BlockhashNeowizERC721",
		Address:    "0x1111111111111111111111111111111111111111",
		TxHash:     "0xabc",
		Args:       []string{"CYK721", "10"},
		DeployedAt: "2024-01-01T00:00:00Z",
	}
	mint := model.MintRecord{ChainID: 80001, TxHash: "0xdef", TokenIDs: []string{"0", "1"}}

	if err := store.PutDeployments(ctx, []model.DeploymentRecord{deploy}); err != nil {
		t.Fatalf("put deployments: %v", err)
	}
	if err := store.PutMints(ctx, []model.MintRecord{mint}); err != nil {
		t.Fatalf("put mints: %v", err)
	}
	if err := store.PutRevealObservations(ctx, nil); err != nil {
		t.Fatalf("put empty batch: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var lines []Envelope
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var env Envelope
		if err := json.Unmarshal(scanner.Bytes(), &env); err != nil {
			t.Fatalf("parse line: %v", err)
		}
		lines = append(lines, env)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Kind != KindDeployment || lines[1].Kind != KindMint {
		t.Fatalf("kind mismatch: %s %s", lines[0].Kind, lines[1].Kind)
	}

	var decoded model.DeploymentRecord
	if err := json.Unmarshal(lines[0].Record, &decoded); err != nil {
		t.Fatalf("decode deployment: %v", err)
	}
	if !reflect.DeepEqual(decoded, deploy) {
		t.Fatalf("deployment mismatch: %+v", decoded)
	}
}
