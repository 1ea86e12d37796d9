package reveal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nftops/internal/nftapi"
)

// ErrNotConverged is returned when the iteration ceiling is reached before
// any token is seen revealed.
var ErrNotConverged = errors.New("reveal not observed")

// DefaultPlaceholder is the attribute value of an unrevealed token.
const DefaultPlaceholder = "Unrevealed"

// Status is the indexer state of one token.
type Status int

const (
	StatusUnknown Status = iota
	StatusUnrevealed
	StatusRevealed
)

func (s Status) String() string {
	switch s {
	case StatusUnrevealed:
		return "unrevealed"
	case StatusRevealed:
		return "revealed"
	default:
		return "unknown"
	}
}

// State is one token's observed state.
type State struct {
	TokenID string
	Status  Status
	Value   string
}

// Snapshot is the state of every tracked token at one tick.
type Snapshot struct {
	Iteration  int
	ObservedAt time.Time
	States     []State
}

// Revealed returns the tokens seen with a non-placeholder value.
func (s Snapshot) Revealed() []State {
	var out []State
	for _, st := range s.States {
		if st.Status == StatusRevealed {
			out = append(out, st)
		}
	}
	return out
}

// Values maps token id to attribute value for tokens with a known value.
func (s Snapshot) Values() map[string]string {
	out := make(map[string]string)
	for _, st := range s.States {
		if st.Status != StatusUnknown {
			out[st.TokenID] = st.Value
		}
	}
	return out
}

// Fetcher looks up a token in the metadata indexer.
type Fetcher interface {
	Token(ctx context.Context, chainID uint64, tokenAddress, tokenID string) (*nftapi.Token, error)
}

// Config controls a Poller.
type Config struct {
	ChainID  uint64
	Contract string
	Interval time.Duration
	// MaxIterations bounds the number of ticks and must be positive.
	MaxIterations int
	// TotalSupply enables growth of the tracked set, one id per tick, up to
	// this size. Zero keeps the set fixed.
	TotalSupply int
	Placeholder string
	OnSnapshot  func(context.Context, Snapshot)
}

// Poller watches the indexer until it reports a revealed token.
type Poller struct {
	fetcher Fetcher
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
}

func NewPoller(fetcher Fetcher, cfg Config, logger *zap.Logger) (*Poller, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is nil")
	}
	if cfg.Contract == "" {
		return nil, fmt.Errorf("contract address is required")
	}
	if cfg.MaxIterations <= 0 {
		return nil, fmt.Errorf("max iterations must be positive, got %d", cfg.MaxIterations)
	}
	if cfg.Interval < 0 {
		return nil, fmt.Errorf("interval must not be negative")
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = DefaultPlaceholder
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		sleep:   sleepContext,
	}, nil
}

// Poll ticks until a tracked token is revealed, the tracked set reaches the
// total supply, or MaxIterations ticks pass. On exhaustion the last snapshot
// is returned with ErrNotConverged.
func (p *Poller) Poll(ctx context.Context, tokenIDs []string) (Snapshot, error) {
	tracked := append([]string(nil), tokenIDs...)
	next := len(tracked)

	var last Snapshot
	for iter := 1; iter <= p.cfg.MaxIterations; iter++ {
		p.logger.Info("waiting for indexer", zap.Int("iteration", iter), zap.Duration("interval", p.cfg.Interval))
		if err := p.sleep(ctx, p.cfg.Interval); err != nil {
			return last, err
		}

		if p.cfg.TotalSupply > 0 && len(tracked) < p.cfg.TotalSupply {
			tracked = append(tracked, strconv.Itoa(next))
			next++
		}

		last = p.observe(ctx, iter, tracked)
		if p.cfg.OnSnapshot != nil {
			p.cfg.OnSnapshot(ctx, last)
		}

		if revealed := last.Revealed(); len(revealed) > 0 {
			p.logger.Info("reveal observed",
				zap.Int("iteration", iter),
				zap.String("token_id", revealed[0].TokenID),
				zap.String("value", revealed[0].Value),
			)
			return last, nil
		}
		if p.cfg.TotalSupply > 0 && len(tracked) >= p.cfg.TotalSupply {
			p.logger.Info("tracked set reached total supply", zap.Int("iteration", iter), zap.Int("tracked", len(tracked)))
			return last, nil
		}
	}

	return last, fmt.Errorf("%w after %d iterations", ErrNotConverged, p.cfg.MaxIterations)
}

// Observe queries every token once, in parallel. Lookup failures are
// reported as StatusUnknown.
func (p *Poller) Observe(ctx context.Context, tokenIDs []string) Snapshot {
	return p.observe(ctx, 0, tokenIDs)
}

func (p *Poller) observe(ctx context.Context, iter int, tokenIDs []string) Snapshot {
	states := make([]State, len(tokenIDs))

	var g errgroup.Group
	for i, id := range tokenIDs {
		i, id := i, id
		g.Go(func() error {
			states[i] = p.lookup(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return Snapshot{Iteration: iter, ObservedAt: p.now(), States: states}
}

func (p *Poller) lookup(ctx context.Context, tokenID string) State {
	state := State{TokenID: tokenID}

	token, err := p.fetcher.Token(ctx, p.cfg.ChainID, p.cfg.Contract, tokenID)
	if err != nil {
		p.logger.Warn("metadata lookup failed", zap.String("token_id", tokenID), zap.Error(err))
		return state
	}
	value, ok := token.FirstAttributeValue()
	if !ok || value == "" {
		p.logger.Info("metadata attributes missing", zap.String("token_id", tokenID))
		return state
	}

	state.Value = value
	if value == p.cfg.Placeholder {
		state.Status = StatusUnrevealed
	} else {
		state.Status = StatusRevealed
	}
	p.logger.Info("metadata attribute",
		zap.String("token_id", tokenID),
		zap.String("status", state.Status.String()),
		zap.String("value", value),
	)
	return state
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
