package wallet

import (
	"time"

	"github.com/congo-pay/pdavault/internal/auth"
	"github.com/congo-pay/pdavault/internal/pubkey"
)

// Account is the full view of an owner's derived ledger account.
type Account struct {
	Owner     pubkey.Pubkey
	Address   pubkey.Pubkey
	Bump      uint8
	Exists    bool
	Balance   uint64
	Reserve   uint64
	Holdings  uint64
	CreatedAt time.Time
}

// Balance encapsulates the logical balance of an owner's account.
type Balance struct {
	Owner   pubkey.Pubkey
	Address pubkey.Pubkey
	Amount  uint64
	AsOf    time.Time
}

// Receipt describes a committed deposit or withdrawal.
type Receipt struct {
	ID          string
	Op          auth.Operation
	Owner       pubkey.Pubkey
	Address     pubkey.Pubkey
	Amount      uint64
	Balance     uint64
	Opened      bool
	CompletedAt time.Time
}
