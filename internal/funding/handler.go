package funding

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/pdavault/internal/pubkey"
	"github.com/congo-pay/pdavault/internal/wallet"
)

// Handler exposes HTTP endpoints for external funds.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Airdrop credits an external holder.
func (h *Handler) Airdrop(c *fiber.Ctx) error {
	var req AirdropRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	recipient, err := pubkey.Parse(req.Recipient)
	if err != nil {
		return wallet.WriteError(c, err)
	}

	result, err := h.service.Airdrop(c.UserContext(), AirdropInput{Recipient: recipient, Amount: req.Amount})
	if err != nil {
		switch {
		case errors.Is(err, ErrAirdropDisabled):
			return c.Status(http.StatusForbidden).JSON(fiber.Map{"error": "airdrop_disabled", "message": err.Error()})
		case errors.Is(err, ErrAirdropTooLarge), errors.Is(err, ErrNotExternalHolder):
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid_airdrop", "message": err.Error()})
		default:
			return wallet.WriteError(c, err)
		}
	}

	return c.Status(http.StatusOK).JSON(AirdropResponse{
		ID:          result.ID,
		Recipient:   result.Recipient.String(),
		Amount:      result.Amount,
		Holdings:    result.Holdings,
		Reference:   result.Reference,
		CompletedAt: result.CompletedAt,
	})
}

// Holdings returns the raw lamports at an address.
func (h *Handler) Holdings(c *fiber.Ctx) error {
	addr, err := pubkey.Parse(c.Params("address"))
	if err != nil {
		return wallet.WriteError(c, err)
	}
	held, err := h.service.Holdings(c.UserContext(), addr)
	if err != nil {
		return wallet.WriteError(c, err)
	}
	return c.Status(http.StatusOK).JSON(HoldingsResponse{Address: addr.String(), Holdings: held})
}
