package derive

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/congo-pay/pdavault/internal/pubkey"
)

const (
	// MaxSeedLength is the longest single seed accepted by CreateAddress.
	MaxSeedLength = 32
	// MaxSeeds bounds the number of seeds, bump included.
	MaxSeeds = 16

	addressMarker = "ProgramDerivedAddress"
)

var (
	// ErrDerivationExhausted means no bump in 255..1 produced an off-curve address.
	ErrDerivationExhausted = errors.New("derivation exhausted: no valid bump")
	// ErrOnCurve means the candidate address is a valid ed25519 point and could be signed for.
	ErrOnCurve = errors.New("derived address lies on the ed25519 curve")
	// ErrMaxSeedLength is returned for seeds longer than MaxSeedLength.
	ErrMaxSeedLength = errors.New("seed exceeds maximum length")
	// ErrMaxSeeds is returned when more than MaxSeeds seeds are supplied.
	ErrMaxSeeds = errors.New("too many seeds")
	// ErrAddressMismatch is returned by Verify when the stored address does not re-derive.
	ErrAddressMismatch = errors.New("address does not match owner derivation")
)

// Address is a derived ledger address together with the bump that produced it.
type Address struct {
	Pubkey pubkey.Pubkey
	Bump   uint8
}

// CreateAddress hashes seeds with the program id into a candidate address. The result
// is rejected if it is on the curve, so no private key can ever control it.
func CreateAddress(seeds [][]byte, programID pubkey.Pubkey) (pubkey.Pubkey, error) {
	if len(seeds) > MaxSeeds {
		return pubkey.Zero, ErrMaxSeeds
	}
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return pubkey.Zero, fmt.Errorf("%w: %d bytes", ErrMaxSeedLength, len(seed))
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(addressMarker))

	var candidate pubkey.Pubkey
	copy(candidate[:], h.Sum(nil))
	if candidate.IsOnCurve() {
		return pubkey.Zero, ErrOnCurve
	}
	return candidate, nil
}

// Deriver maps owners to their ledger addresses under one program id and seed.
type Deriver struct {
	programID pubkey.Pubkey
	seed      []byte
}

// New builds a Deriver. The seed acts as a domain separator between account kinds.
func New(programID pubkey.Pubkey, seed []byte) (*Deriver, error) {
	if programID.IsZero() {
		return nil, fmt.Errorf("program id is required")
	}
	if len(seed) == 0 {
		return nil, fmt.Errorf("seed is required")
	}
	if len(seed) > MaxSeedLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrMaxSeedLength, len(seed))
	}
	return &Deriver{programID: programID, seed: append([]byte(nil), seed...)}, nil
}

// ProgramID returns the namespace the deriver was configured with.
func (d *Deriver) ProgramID() pubkey.Pubkey {
	return d.programID
}

// Seed returns a copy of the domain seed.
func (d *Deriver) Seed() []byte {
	return append([]byte(nil), d.seed...)
}

// Find searches bumps from 255 downwards and returns the first off-curve address.
func (d *Deriver) Find(owner pubkey.Pubkey) (Address, error) {
	for bump := 255; bump > 0; bump-- {
		addr, err := d.create(owner, uint8(bump))
		if err == nil {
			return Address{Pubkey: addr, Bump: uint8(bump)}, nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return Address{}, err
		}
	}
	return Address{}, ErrDerivationExhausted
}

// Verify recomputes the address for owner with the stored bump, without searching.
func (d *Deriver) Verify(owner, address pubkey.Pubkey, bump uint8) error {
	addr, err := d.create(owner, bump)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAddressMismatch, err)
	}
	if addr != address {
		return ErrAddressMismatch
	}
	return nil
}

func (d *Deriver) create(owner pubkey.Pubkey, bump uint8) (pubkey.Pubkey, error) {
	return CreateAddress([][]byte{d.seed, owner[:], {bump}}, d.programID)
}
