package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nftops/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Store provides Postgres persistence for deployment history.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the history tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutDeployments upserts confirmed deployments keyed by chain and address.
func (s *Store) PutDeployments(ctx context.Context, records []model.DeploymentRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		deployedAt, err := parseTime(r.DeployedAt)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO deployments (
				chain_id, address, network, contract, tx_hash, deployer, args, deployed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (chain_id, address)
			DO UPDATE SET
				network = EXCLUDED.network,
				contract = EXCLUDED.contract,
				tx_hash = EXCLUDED.tx_hash,
				deployer = EXCLUDED.deployer,
				args = EXCLUDED.args,
				deployed_at = EXCLUDED.deployed_at
		`,
			int64(r.ChainID),
			r.Address,
			r.Network,
			r.Contract,
			r.TxHash,
			r.Deployer,
			nonNil(r.Args),
			deployedAt,
		)
	}
	return s.send(ctx, batch)
}

// PutMints upserts confirmed mints keyed by chain and transaction hash.
func (s *Store) PutMints(ctx context.Context, records []model.MintRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		mintedAt, err := parseTime(r.MintedAt)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO mints (
				chain_id, tx_hash, contract, minter, round, quantity, price, deadline, token_ids, minted_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10)
			ON CONFLICT (chain_id, tx_hash)
			DO UPDATE SET
				token_ids = EXCLUDED.token_ids,
				minted_at = EXCLUDED.minted_at
		`,
			int64(r.ChainID),
			r.TxHash,
			r.Contract,
			r.Minter,
			int64(r.Round),
			int64(r.Quantity),
			r.Price,
			int64(r.Deadline),
			nonNil(r.TokenIDs),
			mintedAt,
		)
	}
	return s.send(ctx, batch)
}

// PutRevealObservations appends reveal poll observations.
func (s *Store) PutRevealObservations(ctx context.Context, records []model.RevealObservation) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		observedAt, err := parseTime(r.ObservedAt)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO reveal_observations (
				chain_id, contract, token_id, iteration, status, value, observed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (chain_id, contract, token_id, observed_at) DO NOTHING
		`,
			int64(r.ChainID),
			r.Contract,
			r.TokenID,
			r.Iteration,
			r.Status,
			r.Value,
			observedAt,
		)
	}
	return s.send(ctx, batch)
}

func (s *Store) send(ctx context.Context, batch *pgx.Batch) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return ts, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
