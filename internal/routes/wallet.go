package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/pdavault/internal/wallet"
)

// RegisterWalletRoutes wires account endpoints. The guards run in front of deposit and
// withdraw only.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, guards ...fiber.Handler) {
	r.Get("/accounts/:owner/address", h.Address)
	r.Get("/accounts/:owner/balance", h.Balance)
	r.Get("/accounts/:owner", h.Account)

	r.Post("/accounts/:owner/deposit", guarded(guards, h.Deposit)...)
	r.Post("/accounts/:owner/withdraw", guarded(guards, h.Withdraw)...)
}

func guarded(guards []fiber.Handler, h fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(guards)+1)
	out = append(out, guards...)
	return append(out, h)
}
