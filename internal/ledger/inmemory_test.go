package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/congo-pay/pdavault/internal/pubkey"
)

func key(b byte) pubkey.Pubkey {
	var pk pubkey.Pubkey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

func TestInMemoryStore_AtomicCommitsAllWrites(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	a, b := key(1), key(2)

	err := s.Atomic(ctx, []pubkey.Pubkey{a, b}, func(tx Tx) error {
		if err := tx.SetHoldings(ctx, a, 700); err != nil {
			return err
		}
		if err := tx.SetHoldings(ctx, b, 300); err != nil {
			return err
		}
		return tx.PutRecord(ctx, Record{Address: b, Owner: a, Bump: 254, Balance: 300})
	})
	if err != nil {
		t.Fatalf("atomic: %v", err)
	}

	if got, _ := s.Holdings(ctx, a); got != 700 {
		t.Fatalf("expected holdings 700, got %d", got)
	}
	rec, err := s.Record(ctx, b)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.Balance != 300 || rec.Owner != a || rec.Bump != 254 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestInMemoryStore_AtomicDiscardsOnError(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	a := key(1)
	SeedHoldings(s, a, 1_000)

	boom := errors.New("boom")
	err := s.Atomic(ctx, []pubkey.Pubkey{a}, func(tx Tx) error {
		if err := tx.SetHoldings(ctx, a, 0); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got, _ := s.Holdings(ctx, a); got != 1_000 {
		t.Fatalf("expected holdings untouched at 1000, got %d", got)
	}
}

func TestInMemoryStore_RejectsUnlockedAddress(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	err := s.Atomic(ctx, []pubkey.Pubkey{key(1)}, func(tx Tx) error {
		return tx.SetHoldings(ctx, key(2), 5)
	})
	if !errors.Is(err, ErrNotLocked) {
		t.Fatalf("expected not locked error, got %v", err)
	}
}

func TestInMemoryStore_RecordNotFound(t *testing.T) {
	s := NewInMemory()
	if _, err := s.Record(context.Background(), key(3)); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
}

func TestInMemoryStore_CanceledContext(t *testing.T) {
	s := NewInMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Atomic(ctx, []pubkey.Pubkey{key(1)}, func(tx Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if called {
		t.Fatal("fn must not run on a canceled context")
	}
}

func TestInMemoryStore_ConcurrentIncrementsAreLinearized(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	a := key(1)

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Atomic(ctx, []pubkey.Pubkey{a}, func(tx Tx) error {
				held, err := tx.Holdings(ctx, a)
				if err != nil {
					return err
				}
				return tx.SetHoldings(ctx, a, held+10)
			})
			if err != nil {
				t.Errorf("increment failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got, _ := s.Holdings(ctx, a); got != workers*10 {
		t.Fatalf("lost update: expected %d, got %d", workers*10, got)
	}
}

func TestInMemoryStore_OppositeLockOrderDoesNotDeadlock(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	a, b := key(1), key(2)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Atomic(ctx, []pubkey.Pubkey{a, b}, func(Tx) error { return nil })
		}()
		go func() {
			defer wg.Done()
			_ = s.Atomic(ctx, []pubkey.Pubkey{b, a, b}, func(Tx) error { return nil })
		}()
	}
	wg.Wait()

	mem := s.(*inMemoryStore)
	mem.locks.mu.Lock()
	defer mem.locks.mu.Unlock()
	if len(mem.locks.locks) != 0 {
		t.Fatalf("expected idle lock table, got %d entries", len(mem.locks.locks))
	}
}
