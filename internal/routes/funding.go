package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/pdavault/internal/funding"
)

// RegisterFundingRoutes wires airdrop and raw holdings endpoints.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler) {
	r.Post("/airdrop", h.Airdrop)
	r.Get("/holdings/:address", h.Holdings)
}
