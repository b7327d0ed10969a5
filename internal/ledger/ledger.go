package ledger

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/congo-pay/pdavault/internal/pubkey"
)

var (
	// ErrInvalidAmount is returned for a zero amount, before any state is touched.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientBalance occurs when a withdrawal exceeds the logical balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientExternalFunds occurs when the external holder cannot cover a deposit
	// or the reserve of a new account.
	ErrInsufficientExternalFunds = errors.New("insufficient external funds")

	// ErrInsufficientAccountFunds occurs when an account's holdings net of reserve cannot
	// cover a debit.
	ErrInsufficientAccountFunds = errors.New("insufficient account funds")

	// ErrBalanceOverflow indicates an addition would exceed the uint64 range.
	ErrBalanceOverflow = errors.New("balance overflow")

	// ErrAccountNotFound is returned when no record exists for an address.
	ErrAccountNotFound = errors.New("account not found")

	// ErrOutOfSync means an account's holdings differ from reserve + balance.
	ErrOutOfSync = errors.New("account holdings out of sync with balance")

	// ErrNotLocked is returned when a transaction touches an address it did not lock.
	ErrNotLocked = errors.New("address not locked by transaction")
)

// Record is the persisted state of one derived ledger account.
type Record struct {
	Address   pubkey.Pubkey
	Owner     pubkey.Pubkey
	Bump      uint8
	Balance   uint64
	Reserve   uint64
	CreatedAt time.Time
}

// Tx is the view of a store transaction. Only addresses passed to Store.Atomic may be
// read or written.
type Tx interface {
	Holdings(ctx context.Context, addr pubkey.Pubkey) (uint64, error)
	SetHoldings(ctx context.Context, addr pubkey.Pubkey, amount uint64) error
	Record(ctx context.Context, addr pubkey.Pubkey) (Record, error)
	PutRecord(ctx context.Context, rec Record) error
}

// Store holds account records and the underlying holdings of every address.
type Store interface {
	// Atomic runs fn with every address in addrs exclusively locked. Writes made through
	// the Tx become visible together if fn returns nil and are discarded otherwise.
	Atomic(ctx context.Context, addrs []pubkey.Pubkey, fn func(tx Tx) error) error
	Record(ctx context.Context, addr pubkey.Pubkey) (Record, error)
	Holdings(ctx context.Context, addr pubkey.Pubkey) (uint64, error)
}

// lockOrder sorts and de-duplicates addresses so concurrent transactions always acquire
// locks in the same order.
func lockOrder(addrs []pubkey.Pubkey) []pubkey.Pubkey {
	out := slices.Clone(addrs)
	slices.SortFunc(out, func(a, b pubkey.Pubkey) int { return a.Compare(b) })
	return slices.Compact(out)
}
