package pubkey

import (
	"bytes"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Size is the length in bytes of an ed25519 public key and of a derived address.
const Size = 32

// ErrInvalidKey is returned when text or bytes do not decode to a 32-byte key.
var ErrInvalidKey = errors.New("invalid public key")

// Pubkey identifies an owner (an ed25519 public key) or a derived ledger address.
type Pubkey [Size]byte

// Zero is the all-zero key. It is never a valid owner.
var Zero Pubkey

// FromBytes copies b into a Pubkey.
func FromBytes(b []byte) (Pubkey, error) {
	var pk Pubkey
	if len(b) != Size {
		return pk, fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// Parse decodes a base58 encoded key.
func Parse(s string) (Pubkey, error) {
	if s == "" {
		return Zero, fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return FromBytes(raw)
}

// MustParse is Parse for package-level constants; it panics on bad input.
func MustParse(s string) Pubkey {
	pk, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// String returns the base58 form.
func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// Bytes returns a copy of the raw key bytes.
func (p Pubkey) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, p[:])
	return out
}

// IsZero reports whether p is the all-zero key.
func (p Pubkey) IsZero() bool {
	return p == Zero
}

// Compare orders keys bytewise. Used to take locks in a stable order.
func (p Pubkey) Compare(other Pubkey) int {
	return bytes.Compare(p[:], other[:])
}

// IsOnCurve reports whether p decodes to a point on the ed25519 curve, i.e. whether
// someone could in principle hold a private key for it.
func (p Pubkey) IsOnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(p[:])
	return err == nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Pubkey) UnmarshalText(text []byte) error {
	pk, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = pk
	return nil
}
