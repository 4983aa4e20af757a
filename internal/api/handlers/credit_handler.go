package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/internal/service"
	"github.com/maheshrc27/autopost/internal/transfer"
)

// CostEstimator prices the next run for an account.
type CostEstimator interface {
	RunCost(ctx context.Context, ownerID int64) (int, error)
}

type CreditHandler struct {
	s    service.CreditService
	cost CostEstimator
}

func NewCreditHandler(service service.CreditService, cost CostEstimator) *CreditHandler {
	return &CreditHandler{s: service, cost: cost}
}

func (h *CreditHandler) GetStatus(c *fiber.Ctx) error {
	userID := GetUserID(c)

	balance, err := h.s.Balance(c.Context(), userID)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	status := transfer.CreditStatus{Balance: balance}
	if cost, err := h.cost.RunCost(c.Context(), userID); err == nil && cost > 0 {
		status.NextRunCost = cost
		status.RunsAffordable = balance / cost
	}
	return c.JSON(status)
}

func (h *CreditHandler) GetHistory(c *fiber.Ctx) error {
	entries, err := h.s.History(c.Context(), GetUserID(c), c.QueryInt("limit", 50))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Unable to list credit history")
	}
	return c.JSON(entries)
}

func (h *CreditHandler) GrantCredit(c *fiber.Ctx) error {
	if !IsAdmin(c) {
		return errorJSON(c, fiber.StatusForbidden, "Admin only")
	}

	var req transfer.CreditGrant
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Unable to parse json")
	}

	details := map[string]any{"reason": req.Reason, "granted_by": GetUserID(c)}
	balance, err := h.s.Grant(c.Context(), nil, req.AccountID, req.Amount, models.ActionAdjustment, details)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			return errorJSON(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrInvalidAmount):
			return errorJSON(c, fiber.StatusBadRequest, err.Error())
		}
		return errorJSON(c, fiber.StatusInternalServerError, "Unable to grant credit")
	}

	return c.JSON(fiber.Map{"account_id": req.AccountID, "balance": balance})
}
