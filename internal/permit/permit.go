// Package permit builds and signs EIP-2612 Permit authorizations so a token
// spend can be approved in the same transaction that consumes it.
package permit

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nftops/internal/contracts"
)

// ErrSigningFailed wraps any failure while reading permit inputs or signing.
var ErrSigningFailed = errors.New("permit signing failed")

// Version is the EIP-712 domain version used by the permit token.
const Version = "1"

// TokenReader performs read-only contract calls.
type TokenReader interface {
	Call(ctx context.Context, contract string, address common.Address, method string, args ...any) ([]any, error)
}

// KeySigner is the account that owns the tokens being permitted.
type KeySigner interface {
	Address() common.Address
	ChainID(ctx context.Context) (*big.Int, error)
	SignHash(hash []byte) ([]byte, error)
}

// Domain is the EIP-712 domain of the permit token.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// Message is the Permit struct in field order owner, spender, value, nonce, deadline.
type Message struct {
	Owner    common.Address
	Spender  common.Address
	Value    *big.Int
	Nonce    *big.Int
	Deadline *big.Int
}

// Authorization is a signed permit ready to be passed to a contract.
type Authorization struct {
	Domain  Domain
	Message Message
	Digest  common.Hash
	V       uint8
	R       [32]byte
	S       [32]byte
}

// Signature returns the 65-byte [R || S || V] form.
func (a *Authorization) Signature() []byte {
	sig := make([]byte, 0, 65)
	sig = append(sig, a.R[:]...)
	sig = append(sig, a.S[:]...)
	return append(sig, a.V)
}

// TypedData returns the EIP-712 payload for a permit.
func TypedData(domain Domain, msg Message) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Permit": {
				{Name: "owner", Type: "address"},
				{Name: "spender", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(domain.ChainID),
			VerifyingContract: domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"owner":    msg.Owner.Hex(),
			"spender":  msg.Spender.Hex(),
			"value":    (*math.HexOrDecimal256)(msg.Value),
			"nonce":    (*math.HexOrDecimal256)(msg.Nonce),
			"deadline": (*math.HexOrDecimal256)(msg.Deadline),
		},
	}
}

// Digest returns the EIP-712 hash that is signed for a permit.
func Digest(domain Domain, msg Message) (common.Hash, error) {
	hash, _, err := apitypes.TypedDataAndHash(TypedData(domain, msg))
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(hash), nil
}

// Signer produces permit authorizations for one account.
type Signer struct {
	reader   TokenReader
	key      KeySigner
	contract string
	now      func() time.Time
	logger   *zap.Logger
}

func NewSigner(reader TokenReader, key KeySigner, logger *zap.Logger) *Signer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Signer{
		reader:   reader,
		key:      key,
		contract: contracts.PermitToken,
		now:      time.Now,
		logger:   logger,
	}
}

// Sign authorizes spender to pull value of token until now+deadlineOffset.
// No validity checks are made; the token contract is the judge.
func (s *Signer) Sign(ctx context.Context, token, spender common.Address, value *big.Int, deadlineOffset time.Duration) (*Authorization, error) {
	if value == nil {
		return nil, fmt.Errorf("%w: value is nil", ErrSigningFailed)
	}
	owner := s.key.Address()

	var (
		nonce   *big.Int
		name    string
		chainID *big.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.reader.Call(gctx, s.contract, token, "nonces", owner)
		if err != nil {
			return fmt.Errorf("read nonce: %w", err)
		}
		v, err := single[*big.Int](out)
		if err != nil {
			return fmt.Errorf("read nonce: %w", err)
		}
		nonce = v
		return nil
	})
	g.Go(func() error {
		out, err := s.reader.Call(gctx, s.contract, token, "name")
		if err != nil {
			return fmt.Errorf("read name: %w", err)
		}
		v, err := single[string](out)
		if err != nil {
			return fmt.Errorf("read name: %w", err)
		}
		name = v
		return nil
	})
	g.Go(func() error {
		id, err := s.key.ChainID(gctx)
		if err != nil {
			return fmt.Errorf("read chain id: %w", err)
		}
		chainID = id
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	deadline := big.NewInt(s.now().Add(deadlineOffset).Unix())
	domain := Domain{Name: name, Version: Version, ChainID: chainID, VerifyingContract: token}
	msg := Message{Owner: owner, Spender: spender, Value: new(big.Int).Set(value), Nonce: nonce, Deadline: deadline}

	digest, err := Digest(domain, msg)
	if err != nil {
		return nil, fmt.Errorf("%w: hash typed data: %v", ErrSigningFailed, err)
	}
	sig, err := s.key.SignHash(digest.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	if len(sig) != 65 {
		return nil, fmt.Errorf("%w: signature length %d", ErrSigningFailed, len(sig))
	}

	auth := &Authorization{Domain: domain, Message: msg, Digest: digest}
	copy(auth.R[:], sig[:32])
	copy(auth.S[:], sig[32:64])
	auth.V = sig[64]
	if auth.V < 27 {
		auth.V += 27
	}

	s.logger.Debug("permit signed",
		zap.String("token", token.Hex()),
		zap.String("spender", spender.Hex()),
		zap.String("value", value.String()),
		zap.String("nonce", nonce.String()),
		zap.Int64("deadline", deadline.Int64()),
	)
	return auth, nil
}

func single[T any](out []any) (T, error) {
	var zero T
	if len(out) != 1 {
		return zero, fmt.Errorf("expected 1 output, got %d", len(out))
	}
	v, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("unexpected output type %T", out[0])
	}
	return v, nil
}
