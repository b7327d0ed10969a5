package funding

import "time"

// AirdropRequest captures an airdrop submitted over HTTP.
type AirdropRequest struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

// AirdropResponse represents the API response for an airdrop.
type AirdropResponse struct {
	ID          string    `json:"id"`
	Recipient   string    `json:"recipient"`
	Amount      uint64    `json:"amount"`
	Holdings    uint64    `json:"holdings"`
	Reference   string    `json:"reference"`
	CompletedAt time.Time `json:"completed_at"`
}

// HoldingsResponse reports the raw lamports held at an address.
type HoldingsResponse struct {
	Address  string `json:"address"`
	Holdings uint64 `json:"holdings"`
}
