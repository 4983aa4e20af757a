package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/autopost/internal/service"
	"github.com/maheshrc27/autopost/internal/transfer"
)

type KeywordHandler struct {
	s service.KeywordService
}

func NewKeywordHandler(service service.KeywordService) *KeywordHandler {
	return &KeywordHandler{s: service}
}

func (h *KeywordHandler) ListKeywords(c *fiber.Ctx) error {
	keywords, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Unable to list keywords")
	}
	return c.JSON(keywords)
}

func (h *KeywordHandler) RegisterKeywords(c *fiber.Ctx) error {
	var req transfer.KeywordBulkRegister
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Unable to parse json")
	}
	if len(req.Keywords) == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "No keywords given")
	}

	inserted, err := h.s.BulkRegister(c.Context(), GetUserID(c), req.Keywords)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "Unable to register keywords")
	}

	return c.Status(fiber.StatusCreated).JSON(transfer.KeywordBulkResult{
		Inserted: inserted,
		Skipped:  len(req.Keywords) - inserted,
	})
}
