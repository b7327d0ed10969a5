package funding

import (
	"context"

	"github.com/google/uuid"

	"github.com/congo-pay/pdavault/internal/pubkey"
)

// Faucet represents the upstream that authorizes minting lamports for an airdrop.
type Faucet interface {
	Authorize(ctx context.Context, grant Grant) (Decision, error)
}

// Grant is a request to mint lamports to an external holder.
type Grant struct {
	Recipient pubkey.Pubkey
	Amount    uint64
}

// Decision captures the faucet response.
type Decision struct {
	Reference string
	Status    string
}

// StaticFaucet approves every grant, like a local test validator.
type StaticFaucet struct{}

// Authorize approves the grant with a synthetic reference.
func (StaticFaucet) Authorize(_ context.Context, _ Grant) (Decision, error) {
	return Decision{Reference: uuid.NewString(), Status: "approved"}, nil
}
