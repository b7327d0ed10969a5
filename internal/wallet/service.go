package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/pdavault/internal/auth"
	"github.com/congo-pay/pdavault/internal/derive"
	"github.com/congo-pay/pdavault/internal/ledger"
	"github.com/congo-pay/pdavault/internal/metrics"
	"github.com/congo-pay/pdavault/internal/notification"
	"github.com/congo-pay/pdavault/internal/pubkey"
)

// Options carries the optional collaborators of a Service.
type Options struct {
	// Reserve is the floor paid into a new account on top of the first deposit.
	Reserve  uint64
	Notifier notification.Notifier
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Service exposes deposit, withdraw and balance operations on owner-derived accounts.
type Service struct {
	store    ledger.Store
	deriver  *derive.Deriver
	checker  *auth.Checker
	engine   ledger.Engine
	reserve  uint64
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewService builds a wallet service instance.
func NewService(store ledger.Store, deriver *derive.Deriver, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		deriver:  deriver,
		checker:  auth.NewChecker(deriver),
		reserve:  opts.Reserve,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		logger:   logger,
	}
}

// Address derives the ledger address of owner.
func (s *Service) Address(owner pubkey.Pubkey) (derive.Address, error) {
	return s.deriver.Find(owner)
}

// Deposit moves amount from the owner's external holdings into the owner's ledger
// account, creating the account on first use.
func (s *Service) Deposit(ctx context.Context, signer auth.Signer, owner pubkey.Pubkey, amount uint64) (receipt Receipt, err error) {
	started := time.Now()
	defer func() { s.metrics.Observe(string(auth.OpDeposit), started, err) }()

	addr, err := s.deriver.Find(owner)
	if err != nil {
		return Receipt{}, err
	}
	target := auth.Target{Owner: owner, Address: addr.Pubkey, Bump: addr.Bump}
	if err := s.checker.Authorize(signer, auth.OpDeposit, amount, target); err != nil {
		return Receipt{}, err
	}
	// Checked after authorization: only the owner learns that a zero amount is invalid.
	if amount == 0 {
		return Receipt{}, ledger.ErrInvalidAmount
	}

	var (
		rec    ledger.Record
		opened bool
	)
	err = s.store.Atomic(ctx, []pubkey.Pubkey{owner, addr.Pubkey}, func(tx ledger.Tx) error {
		current, err := tx.Record(ctx, addr.Pubkey)
		switch {
		case errors.Is(err, ledger.ErrAccountNotFound):
			current = ledger.Record{
				Address:   addr.Pubkey,
				Owner:     owner,
				Bump:      addr.Bump,
				Reserve:   s.reserve,
				CreatedAt: time.Now().UTC(),
			}
			if err := s.engine.Open(ctx, tx, owner, current); err != nil {
				return err
			}
			opened = true
		case err != nil:
			return err
		default:
			if err := s.authorizeRecord(signer, auth.OpDeposit, amount, current); err != nil {
				return err
			}
		}

		if err := s.engine.Credit(ctx, tx, owner, &current, amount); err != nil {
			return err
		}
		rec = current
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "wallet.deposit failed",
			slog.String("owner", owner.String()),
			slog.Uint64("amount", amount),
			slog.Any("error", err),
		)
		return Receipt{}, err
	}

	receipt = s.receipt(auth.OpDeposit, rec, amount, opened)
	if opened {
		s.metrics.IncAccountsCreated()
		s.notify(ctx, notification.Message{
			Kind:        notification.KindAccountOpened,
			Destination: owner.String(),
			Body:        fmt.Sprintf("Ledger account %s opened with reserve %d", rec.Address, rec.Reserve),
		})
	}
	s.notify(ctx, notification.Message{
		Kind:        notification.KindDeposit,
		Destination: owner.String(),
		Amount:      amount,
		Balance:     rec.Balance,
		Body:        fmt.Sprintf("Deposited %d into %s", amount, rec.Address),
	})
	s.logger.InfoContext(ctx, "wallet.deposit completed",
		slog.String("receipt_id", receipt.ID),
		slog.String("owner", owner.String()),
		slog.String("address", rec.Address.String()),
		slog.Uint64("amount", amount),
		slog.Uint64("balance", rec.Balance),
		slog.Bool("opened", opened),
	)
	return receipt, nil
}

// Withdraw moves amount from the owner's ledger account back to the owner's external
// holdings.
func (s *Service) Withdraw(ctx context.Context, signer auth.Signer, owner pubkey.Pubkey, amount uint64) (receipt Receipt, err error) {
	started := time.Now()
	defer func() { s.metrics.Observe(string(auth.OpWithdraw), started, err) }()

	addr, err := s.deriver.Find(owner)
	if err != nil {
		return Receipt{}, err
	}
	target := auth.Target{Owner: owner, Address: addr.Pubkey, Bump: addr.Bump}
	if err := s.checker.Authorize(signer, auth.OpWithdraw, amount, target); err != nil {
		return Receipt{}, err
	}
	// Checked after authorization: only the owner learns that a zero amount is invalid.
	if amount == 0 {
		return Receipt{}, ledger.ErrInvalidAmount
	}

	var rec ledger.Record
	err = s.store.Atomic(ctx, []pubkey.Pubkey{owner, addr.Pubkey}, func(tx ledger.Tx) error {
		current, err := tx.Record(ctx, addr.Pubkey)
		if err != nil {
			return err
		}
		if err := s.authorizeRecord(signer, auth.OpWithdraw, amount, current); err != nil {
			return err
		}
		if current.Balance < amount {
			return ledger.ErrInsufficientBalance
		}
		if err := s.engine.Debit(ctx, tx, &current, owner, amount); err != nil {
			return err
		}
		rec = current
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "wallet.withdraw failed",
			slog.String("owner", owner.String()),
			slog.Uint64("amount", amount),
			slog.Any("error", err),
		)
		return Receipt{}, err
	}

	receipt = s.receipt(auth.OpWithdraw, rec, amount, false)
	s.notify(ctx, notification.Message{
		Kind:        notification.KindWithdraw,
		Destination: owner.String(),
		Amount:      amount,
		Balance:     rec.Balance,
		Body:        fmt.Sprintf("Withdrew %d from %s", amount, rec.Address),
	})
	s.logger.InfoContext(ctx, "wallet.withdraw completed",
		slog.String("receipt_id", receipt.ID),
		slog.String("owner", owner.String()),
		slog.String("address", rec.Address.String()),
		slog.Uint64("amount", amount),
		slog.Uint64("balance", rec.Balance),
	)
	return receipt, nil
}

// Balance returns the logical balance of the owner's account. No signature is needed;
// owner is only used to derive the address.
func (s *Service) Balance(ctx context.Context, owner pubkey.Pubkey) (bal Balance, err error) {
	started := time.Now()
	defer func() { s.metrics.Observe("balance", started, err) }()

	rec, err := s.record(ctx, owner)
	if err != nil {
		return Balance{}, err
	}
	return Balance{Owner: owner, Address: rec.Address, Amount: rec.Balance, AsOf: time.Now().UTC()}, nil
}

// Account returns the derivation and, when it exists, the stored state of the owner's
// account together with its raw holdings.
func (s *Service) Account(ctx context.Context, owner pubkey.Pubkey) (Account, error) {
	addr, err := s.deriver.Find(owner)
	if err != nil {
		return Account{}, err
	}
	view := Account{Owner: owner, Address: addr.Pubkey, Bump: addr.Bump}

	holdings, err := s.store.Holdings(ctx, addr.Pubkey)
	if err != nil {
		return Account{}, err
	}
	view.Holdings = holdings

	rec, err := s.store.Record(ctx, addr.Pubkey)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return view, nil
	}
	if err != nil {
		return Account{}, err
	}
	view.Exists = true
	view.Balance = rec.Balance
	view.Reserve = rec.Reserve
	view.CreatedAt = rec.CreatedAt
	return view, nil
}

func (s *Service) record(ctx context.Context, owner pubkey.Pubkey) (ledger.Record, error) {
	addr, err := s.deriver.Find(owner)
	if err != nil {
		return ledger.Record{}, err
	}
	rec, err := s.store.Record(ctx, addr.Pubkey)
	if err != nil {
		return ledger.Record{}, err
	}
	if err := s.deriver.Verify(owner, rec.Address, rec.Bump); err != nil {
		return ledger.Record{}, fmt.Errorf("record %s: %w", rec.Address, err)
	}
	return rec, nil
}

// authorizeRecord re-checks authority against the stored owner and bump.
func (s *Service) authorizeRecord(signer auth.Signer, op auth.Operation, amount uint64, rec ledger.Record) error {
	if rec.Owner != signer.Key() {
		return fmt.Errorf("%w: record owner mismatch", auth.ErrUnauthorized)
	}
	return s.checker.Authorize(signer, op, amount, auth.Target{Owner: rec.Owner, Address: rec.Address, Bump: rec.Bump})
}

func (s *Service) receipt(op auth.Operation, rec ledger.Record, amount uint64, opened bool) Receipt {
	return Receipt{
		ID:          uuid.NewString(),
		Op:          op,
		Owner:       rec.Owner,
		Address:     rec.Address,
		Amount:      amount,
		Balance:     rec.Balance,
		Opened:      opened,
		CompletedAt: time.Now().UTC(),
	}
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}
