package ledger

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/congo-pay/pdavault/internal/pubkey"
)

// Engine moves lamports between external holders and ledger accounts. It only works on a
// Tx, so the holdings of both sides and the record's balance change in one commit.
type Engine struct{}

// Open pays the reserve of a new record from payer and stores the record.
func (Engine) Open(ctx context.Context, tx Tx, payer pubkey.Pubkey, rec Record) error {
	if rec.Balance != 0 {
		return fmt.Errorf("open %s: new record must start with zero balance", rec.Address)
	}
	held, err := tx.Holdings(ctx, rec.Address)
	if err != nil {
		return err
	}
	if held != 0 {
		return fmt.Errorf("open %s: %w: address already holds %d", rec.Address, ErrOutOfSync, held)
	}

	payerHeld, err := tx.Holdings(ctx, payer)
	if err != nil {
		return err
	}
	if payerHeld < rec.Reserve {
		return ErrInsufficientExternalFunds
	}

	if err := tx.SetHoldings(ctx, payer, payerHeld-rec.Reserve); err != nil {
		return err
	}
	if err := tx.SetHoldings(ctx, rec.Address, rec.Reserve); err != nil {
		return err
	}
	return tx.PutRecord(ctx, rec)
}

// Credit moves amount from an external holder into the account and raises its balance.
func (Engine) Credit(ctx context.Context, tx Tx, from pubkey.Pubkey, rec *Record, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if from == rec.Address {
		return fmt.Errorf("credit %s: source and destination are the same address", rec.Address)
	}
	held, err := syncedHoldings(ctx, tx, *rec)
	if err != nil {
		return err
	}

	fromHeld, err := tx.Holdings(ctx, from)
	if err != nil {
		return err
	}
	if fromHeld < amount {
		return ErrInsufficientExternalFunds
	}

	balance, err := checkedAdd(rec.Balance, amount)
	if err != nil {
		return err
	}
	newHeld, err := checkedAdd(held, amount)
	if err != nil {
		return err
	}

	if err := tx.SetHoldings(ctx, from, fromHeld-amount); err != nil {
		return err
	}
	if err := tx.SetHoldings(ctx, rec.Address, newHeld); err != nil {
		return err
	}
	updated := *rec
	updated.Balance = balance
	if err := tx.PutRecord(ctx, updated); err != nil {
		return err
	}
	*rec = updated
	return nil
}

// Debit moves amount from the account back to an external holder and lowers its balance.
// The reserve is never paid out.
func (Engine) Debit(ctx context.Context, tx Tx, rec *Record, to pubkey.Pubkey, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if to == rec.Address {
		return fmt.Errorf("debit %s: source and destination are the same address", rec.Address)
	}
	held, err := syncedHoldings(ctx, tx, *rec)
	if err != nil {
		return err
	}
	if held-rec.Reserve < amount {
		return ErrInsufficientAccountFunds
	}

	balance, err := checkedSub(rec.Balance, amount)
	if err != nil {
		return err
	}
	toHeld, err := tx.Holdings(ctx, to)
	if err != nil {
		return err
	}
	newToHeld, err := checkedAdd(toHeld, amount)
	if err != nil {
		return err
	}

	if err := tx.SetHoldings(ctx, rec.Address, held-amount); err != nil {
		return err
	}
	if err := tx.SetHoldings(ctx, to, newToHeld); err != nil {
		return err
	}
	updated := *rec
	updated.Balance = balance
	if err := tx.PutRecord(ctx, updated); err != nil {
		return err
	}
	*rec = updated
	return nil
}

// syncedHoldings returns the account's holdings after checking they equal
// reserve + balance.
func syncedHoldings(ctx context.Context, tx Tx, rec Record) (uint64, error) {
	held, err := tx.Holdings(ctx, rec.Address)
	if err != nil {
		return 0, err
	}
	want, err := checkedAdd(rec.Reserve, rec.Balance)
	if err != nil || held != want {
		return 0, fmt.Errorf("%w: %s holds %d, reserve %d, balance %d", ErrOutOfSync, rec.Address, held, rec.Reserve, rec.Balance)
	}
	return held, nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrBalanceOverflow
	}
	return sum, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrInsufficientBalance
	}
	return diff, nil
}

// Mint raises the holdings of an external holder with lamports from outside the ledger.
func (Engine) Mint(ctx context.Context, tx Tx, to pubkey.Pubkey, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	held, err := tx.Holdings(ctx, to)
	if err != nil {
		return 0, err
	}
	newHeld, err := checkedAdd(held, amount)
	if err != nil {
		return 0, err
	}
	if err := tx.SetHoldings(ctx, to, newHeld); err != nil {
		return 0, err
	}
	return newHeld, nil
}
