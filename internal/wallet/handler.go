package wallet

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mr-tron/base58"

	"github.com/congo-pay/pdavault/internal/auth"
	"github.com/congo-pay/pdavault/internal/derive"
	"github.com/congo-pay/pdavault/internal/ledger"
	"github.com/congo-pay/pdavault/internal/pubkey"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service  *Service
	verifier *auth.Verifier
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service, verifier *auth.Verifier) *Handler {
	return &Handler{service: service, verifier: verifier}
}

type mutationRequest struct {
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

type receiptResponse struct {
	ID          string    `json:"id"`
	Op          string    `json:"op"`
	Owner       string    `json:"owner"`
	Address     string    `json:"address"`
	Amount      uint64    `json:"amount"`
	Balance     uint64    `json:"balance"`
	Opened      bool      `json:"opened"`
	CompletedAt time.Time `json:"completed_at"`
}

type accountResponse struct {
	Owner     string     `json:"owner"`
	Address   string     `json:"address"`
	Bump      uint8      `json:"bump"`
	Exists    bool       `json:"exists"`
	Balance   uint64     `json:"balance"`
	Reserve   uint64     `json:"reserve"`
	Holdings  uint64     `json:"holdings"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Address returns the derived address of an owner without touching the store.
func (h *Handler) Address(c *fiber.Ctx) error {
	owner, err := pubkey.Parse(c.Params("owner"))
	if err != nil {
		return WriteError(c, err)
	}
	addr, err := h.service.Address(owner)
	if err != nil {
		return WriteError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"owner":      owner.String(),
		"address":    addr.Pubkey.String(),
		"bump":       addr.Bump,
		"program_id": h.service.deriver.ProgramID().String(),
		"seed":       string(h.service.deriver.Seed()),
	})
}

// Account returns the full account view.
func (h *Handler) Account(c *fiber.Ctx) error {
	owner, err := pubkey.Parse(c.Params("owner"))
	if err != nil {
		return WriteError(c, err)
	}
	view, err := h.service.Account(c.UserContext(), owner)
	if err != nil {
		return WriteError(c, err)
	}
	resp := accountResponse{
		Owner:    view.Owner.String(),
		Address:  view.Address.String(),
		Bump:     view.Bump,
		Exists:   view.Exists,
		Balance:  view.Balance,
		Reserve:  view.Reserve,
		Holdings: view.Holdings,
	}
	if view.Exists {
		created := view.CreatedAt
		resp.CreatedAt = &created
	}
	return c.Status(http.StatusOK).JSON(resp)
}

// Balance returns the logical balance of an initialized account.
func (h *Handler) Balance(c *fiber.Ctx) error {
	owner, err := pubkey.Parse(c.Params("owner"))
	if err != nil {
		return WriteError(c, err)
	}
	balance, err := h.service.Balance(c.UserContext(), owner)
	if err != nil {
		return WriteError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"owner":     owner.String(),
		"address":   balance.Address.String(),
		"balance":   balance.Amount,
		"timestamp": balance.AsOf,
	})
}

// Deposit handles a signed deposit request.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	return h.mutate(c, auth.OpDeposit, h.service.Deposit)
}

// Withdraw handles a signed withdraw request.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	return h.mutate(c, auth.OpWithdraw, h.service.Withdraw)
}

type mutation func(ctx context.Context, signer auth.Signer, owner pubkey.Pubkey, amount uint64) (Receipt, error)

func (h *Handler) mutate(c *fiber.Ctx, op auth.Operation, run mutation) error {
	owner, err := pubkey.Parse(c.Params("owner"))
	if err != nil {
		return WriteError(c, err)
	}
	var req mutationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	sig, err := base58.Decode(req.Signature)
	if err != nil {
		return WriteError(c, auth.ErrUnauthorized)
	}

	signer, err := h.verifier.Verify(auth.SignedRequest{
		Op:        op,
		Owner:     owner,
		Amount:    req.Amount,
		Timestamp: req.Timestamp,
		Signature: sig,
	})
	if err != nil {
		return WriteError(c, err)
	}

	receipt, err := run(c.UserContext(), signer, owner, req.Amount)
	if err != nil {
		return WriteError(c, err)
	}
	status := http.StatusOK
	if receipt.Opened {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(receiptResponse{
		ID:          receipt.ID,
		Op:          string(receipt.Op),
		Owner:       receipt.Owner.String(),
		Address:     receipt.Address.String(),
		Amount:      receipt.Amount,
		Balance:     receipt.Balance,
		Opened:      receipt.Opened,
		CompletedAt: receipt.CompletedAt,
	})
}

// WriteError maps domain errors to a status code and a JSON error body.
func WriteError(c *fiber.Ctx, err error) error {
	status, kind := classify(err)
	return c.Status(status).JSON(errorResponse{Error: kind, Message: err.Error()})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, pubkey.ErrInvalidKey):
		return http.StatusBadRequest, "invalid_key"
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, ledger.ErrAccountNotFound):
		return http.StatusNotFound, "account_not_found"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, "insufficient_balance"
	case errors.Is(err, ledger.ErrInsufficientExternalFunds):
		return http.StatusUnprocessableEntity, "insufficient_external_funds"
	case errors.Is(err, ledger.ErrBalanceOverflow):
		return http.StatusConflict, "balance_overflow"
	case errors.Is(err, derive.ErrDerivationExhausted):
		return http.StatusInternalServerError, "derivation_exhausted"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
