package auth

import (
	"fmt"

	"github.com/congo-pay/pdavault/internal/derive"
	"github.com/congo-pay/pdavault/internal/pubkey"
)

// Target is the account a mutation is aimed at.
type Target struct {
	Owner   pubkey.Pubkey
	Address pubkey.Pubkey
	Bump    uint8
}

// Checker decides whether a verified signer may mutate a derived account.
type Checker struct {
	deriver *derive.Deriver
}

// NewChecker builds a Checker bound to the deriver's program id and seed.
func NewChecker(deriver *derive.Deriver) *Checker {
	return &Checker{deriver: deriver}
}

// Authorize succeeds iff signer signed exactly this operation and amount, signer is the
// target's owner, and the target address re-derives from that owner with its bump.
func (c *Checker) Authorize(signer Signer, op Operation, amount uint64, target Target) error {
	if !signer.Covers(op, amount) {
		return fmt.Errorf("%w: signature does not cover %s of %d", ErrUnauthorized, op, amount)
	}
	if signer.Key() != target.Owner {
		return fmt.Errorf("%w: signer is not the account owner", ErrUnauthorized)
	}
	if err := c.deriver.Verify(target.Owner, target.Address, target.Bump); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return nil
}
