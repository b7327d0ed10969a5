package ledger

import "github.com/congo-pay/pdavault/internal/pubkey"

// SeedHoldings is a test helper that sets the raw holdings of an address when using the
// in-memory store.
func SeedHoldings(s Store, addr pubkey.Pubkey, amount uint64) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.holdings[addr] = amount
	}
}

// SeedRecord is a test helper that writes a record directly into the in-memory store,
// bypassing the transfer engine.
func SeedRecord(s Store, rec Record) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.records[rec.Address] = rec
	}
}
