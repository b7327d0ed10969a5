package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/congo-pay/pdavault/internal/pubkey"
)

// ErrUnauthorized is returned for any signature or ownership failure. The reason is
// wrapped but callers only ever need to match this sentinel.
var ErrUnauthorized = errors.New("unauthorized")

// Operation names a mutating ledger operation covered by a signature.
type Operation string

const (
	OpDeposit  Operation = "deposit"
	OpWithdraw Operation = "withdraw"

	messagePrefix = "pdavault:v1"
)

// Message returns the canonical bytes an owner signs for one operation.
func Message(op Operation, owner pubkey.Pubkey, amount uint64, timestamp int64) []byte {
	return []byte(messagePrefix + "|" + string(op) + "|" + owner.String() + "|" +
		strconv.FormatUint(amount, 10) + "|" + strconv.FormatInt(timestamp, 10))
}

// Sign produces the signature an owner attaches to a request. Used by clients and tests.
func Sign(key ed25519.PrivateKey, op Operation, amount uint64, timestamp int64) ([]byte, error) {
	owner, err := pubkey.FromBytes(key.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(key, Message(op, owner, amount, timestamp)), nil
}

// SignedRequest is a mutating request as received from a caller.
type SignedRequest struct {
	Op        Operation
	Owner     pubkey.Pubkey
	Amount    uint64
	Timestamp int64
	Signature []byte
}

// Signer is proof that an owner signed a specific operation and amount. The zero value
// carries no authority; only Verifier.Verify produces a usable Signer.
type Signer struct {
	key    pubkey.Pubkey
	op     Operation
	amount uint64
}

// Key returns the verified signing key.
func (s Signer) Key() pubkey.Pubkey {
	return s.key
}

// Covers reports whether the signature was made for op and amount.
func (s Signer) Covers(op Operation, amount uint64) bool {
	return !s.key.IsZero() && s.op == op && s.amount == amount
}

// Verifier checks request signatures and their freshness.
type Verifier struct {
	maxAge time.Duration
	now    func() time.Time
}

// NewVerifier builds a Verifier. A zero maxAge disables the freshness check.
func NewVerifier(maxAge time.Duration) *Verifier {
	return &Verifier{maxAge: maxAge, now: time.Now}
}

// Verify validates the ed25519 signature over the canonical message and returns the
// Signer capability for it.
func (v *Verifier) Verify(req SignedRequest) (Signer, error) {
	if req.Owner.IsZero() {
		return Signer{}, fmt.Errorf("%w: missing owner", ErrUnauthorized)
	}
	if len(req.Signature) != ed25519.SignatureSize {
		return Signer{}, fmt.Errorf("%w: malformed signature", ErrUnauthorized)
	}
	if v.maxAge > 0 {
		age := v.now().Sub(time.Unix(req.Timestamp, 0))
		if age > v.maxAge || age < -v.maxAge {
			return Signer{}, fmt.Errorf("%w: stale signature", ErrUnauthorized)
		}
	}
	msg := Message(req.Op, req.Owner, req.Amount, req.Timestamp)
	if !ed25519.Verify(ed25519.PublicKey(req.Owner[:]), msg, req.Signature) {
		return Signer{}, fmt.Errorf("%w: signature mismatch", ErrUnauthorized)
	}
	return Signer{key: req.Owner, op: req.Op, amount: req.Amount}, nil
}
