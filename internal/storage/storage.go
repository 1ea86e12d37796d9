package storage

import (
	"context"

	"nftops/internal/model"
)

// Storage defines a sink for deployment, mint and reveal history.
type Storage interface {
	PutDeployments(ctx context.Context, records []model.DeploymentRecord) error
	PutMints(ctx context.Context, records []model.MintRecord) error
	PutRevealObservations(ctx context.Context, records []model.RevealObservation) error
}

// Nop discards every record.
type Nop struct{}

func (Nop) PutDeployments(context.Context, []model.DeploymentRecord) error { return nil }

func (Nop) PutMints(context.Context, []model.MintRecord) error { return nil }

func (Nop) PutRevealObservations(context.Context, []model.RevealObservation) error { return nil }
