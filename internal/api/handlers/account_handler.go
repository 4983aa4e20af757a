package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/autopost/internal/service"
)

type AccountHandler struct {
	s service.AccountService
}

func NewAccountHandler(service service.AccountService) *AccountHandler {
	return &AccountHandler{s: service}
}

func (h *AccountHandler) GetAccountInfo(c *fiber.Ctx) error {
	account, err := h.s.Info(c.Context(), GetUserID(c))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(account)
}
