package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/congo-pay/pdavault/internal/pubkey"
)

type inMemoryStore struct {
	mu       sync.RWMutex
	holdings map[pubkey.Pubkey]uint64
	records  map[pubkey.Pubkey]Record
	locks    *keyedMutex
}

// NewInMemory creates a concurrency-safe in-memory store. Each address is its own unit
// of locking, so transactions on different accounts do not wait on each other.
func NewInMemory() Store {
	return &inMemoryStore{
		holdings: make(map[pubkey.Pubkey]uint64),
		records:  make(map[pubkey.Pubkey]Record),
		locks:    newKeyedMutex(),
	}
}

func (s *inMemoryStore) Atomic(ctx context.Context, addrs []pubkey.Pubkey, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ordered := lockOrder(addrs)
	for _, addr := range ordered {
		s.locks.Lock(addr)
	}
	defer func() {
		for i := len(ordered) - 1; i >= 0; i-- {
			s.locks.Unlock(ordered[i])
		}
	}()

	tx := &memoryTx{
		store:    s,
		locked:   make(map[pubkey.Pubkey]struct{}, len(ordered)),
		holdings: make(map[pubkey.Pubkey]uint64),
		records:  make(map[pubkey.Pubkey]Record),
	}
	for _, addr := range ordered {
		tx.locked[addr] = struct{}{}
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for addr, amount := range tx.holdings {
		s.holdings[addr] = amount
	}
	for addr, rec := range tx.records {
		s.records[addr] = rec
	}
	return nil
}

func (s *inMemoryStore) Record(_ context.Context, addr pubkey.Pubkey) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[addr]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return rec, nil
}

func (s *inMemoryStore) Holdings(_ context.Context, addr pubkey.Pubkey) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holdings[addr], nil
}

// memoryTx stages writes until the enclosing Atomic call commits them.
type memoryTx struct {
	store    *inMemoryStore
	locked   map[pubkey.Pubkey]struct{}
	holdings map[pubkey.Pubkey]uint64
	records  map[pubkey.Pubkey]Record
}

func (tx *memoryTx) checkLocked(addr pubkey.Pubkey) error {
	if _, ok := tx.locked[addr]; !ok {
		return fmt.Errorf("%w: %s", ErrNotLocked, addr)
	}
	return nil
}

func (tx *memoryTx) Holdings(ctx context.Context, addr pubkey.Pubkey) (uint64, error) {
	if err := tx.checkLocked(addr); err != nil {
		return 0, err
	}
	if amount, ok := tx.holdings[addr]; ok {
		return amount, nil
	}
	return tx.store.Holdings(ctx, addr)
}

func (tx *memoryTx) SetHoldings(_ context.Context, addr pubkey.Pubkey, amount uint64) error {
	if err := tx.checkLocked(addr); err != nil {
		return err
	}
	tx.holdings[addr] = amount
	return nil
}

func (tx *memoryTx) Record(ctx context.Context, addr pubkey.Pubkey) (Record, error) {
	if err := tx.checkLocked(addr); err != nil {
		return Record{}, err
	}
	if rec, ok := tx.records[addr]; ok {
		return rec, nil
	}
	return tx.store.Record(ctx, addr)
}

func (tx *memoryTx) PutRecord(_ context.Context, rec Record) error {
	if err := tx.checkLocked(rec.Address); err != nil {
		return err
	}
	tx.records[rec.Address] = rec
	return nil
}

// keyedMutex hands out one mutex per address and forgets it once nobody holds or waits
// for it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[pubkey.Pubkey]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[pubkey.Pubkey]*refMutex)}
}

func (k *keyedMutex) Lock(key pubkey.Pubkey) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
}

func (k *keyedMutex) Unlock(key pubkey.Pubkey) {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		return
	}
	m.Unlock()
	m.refs--
	if m.refs == 0 {
		delete(k.locks, key)
	}
}
