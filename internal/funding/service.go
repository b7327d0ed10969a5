package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/pdavault/internal/ledger"
	"github.com/congo-pay/pdavault/internal/metrics"
	"github.com/congo-pay/pdavault/internal/pubkey"
)

var (
	// ErrAirdropDisabled is returned when airdrops are switched off for the environment.
	ErrAirdropDisabled = errors.New("airdrop disabled")
	// ErrAirdropTooLarge is returned when an airdrop exceeds the configured cap.
	ErrAirdropTooLarge = errors.New("airdrop exceeds maximum")
	// ErrNotExternalHolder is returned when the recipient is a derived address. Only keys
	// that can sign hold external funds.
	ErrNotExternalHolder = errors.New("recipient is not an external holder")
)

// Options configures the funding service.
type Options struct {
	Enabled     bool
	MaxLamports uint64
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Service credits external holders and reports raw holdings.
type Service struct {
	store  ledger.Store
	faucet Faucet
	engine ledger.Engine
	opts   Options
	logger *slog.Logger
}

// NewService prepares a funding service.
func NewService(store ledger.Store, faucet Faucet, opts Options) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if faucet == nil {
		faucet = StaticFaucet{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, faucet: faucet, opts: opts, logger: logger}, nil
}

// AirdropInput captures the data needed to mint lamports to a holder.
type AirdropInput struct {
	Recipient pubkey.Pubkey
	Amount    uint64
}

// AirdropResult represents the domain outcome of an airdrop.
type AirdropResult struct {
	ID          string
	Recipient   pubkey.Pubkey
	Amount      uint64
	Holdings    uint64
	Reference   string
	CompletedAt time.Time
}

// Airdrop mints amount lamports into the recipient's external holdings.
func (s *Service) Airdrop(ctx context.Context, input AirdropInput) (AirdropResult, error) {
	if !s.opts.Enabled {
		return AirdropResult{}, ErrAirdropDisabled
	}
	if input.Amount == 0 {
		return AirdropResult{}, ledger.ErrInvalidAmount
	}
	if s.opts.MaxLamports > 0 && input.Amount > s.opts.MaxLamports {
		return AirdropResult{}, fmt.Errorf("%w: %d > %d", ErrAirdropTooLarge, input.Amount, s.opts.MaxLamports)
	}
	if input.Recipient.IsZero() || !input.Recipient.IsOnCurve() {
		return AirdropResult{}, ErrNotExternalHolder
	}

	decision, err := s.faucet.Authorize(ctx, Grant{Recipient: input.Recipient, Amount: input.Amount})
	if err != nil {
		return AirdropResult{}, err
	}

	var held uint64
	err = s.store.Atomic(ctx, []pubkey.Pubkey{input.Recipient}, func(tx ledger.Tx) error {
		var err error
		held, err = s.engine.Mint(ctx, tx, input.Recipient, input.Amount)
		return err
	})
	if err != nil {
		return AirdropResult{}, err
	}

	s.opts.Metrics.IncAirdrops()
	result := AirdropResult{
		ID:          uuid.NewString(),
		Recipient:   input.Recipient,
		Amount:      input.Amount,
		Holdings:    held,
		Reference:   decision.Reference,
		CompletedAt: time.Now().UTC(),
	}
	s.logger.InfoContext(ctx, "funding.airdrop completed",
		slog.String("airdrop_id", result.ID),
		slog.String("recipient", input.Recipient.String()),
		slog.Uint64("amount", input.Amount),
		slog.Uint64("holdings", held),
		slog.String("reference", decision.Reference),
	)
	return result, nil
}

// Holdings returns the raw lamports held at addr, for owners and derived addresses alike.
func (s *Service) Holdings(ctx context.Context, addr pubkey.Pubkey) (uint64, error) {
	return s.store.Holdings(ctx, addr)
}
