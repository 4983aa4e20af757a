package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/autopost/internal/service"
	"github.com/maheshrc27/autopost/internal/transfer"
)

type ChannelHandler struct {
	s service.ChannelService
}

func NewChannelHandler(service service.ChannelService) *ChannelHandler {
	return &ChannelHandler{s: service}
}

func (h *ChannelHandler) AddChannel(c *fiber.Ctx) error {
	var req transfer.ChannelCreation
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Unable to parse json")
	}

	channel, err := h.s.AddChannel(c.Context(), GetUserID(c), &req)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(channel)
}

func (h *ChannelHandler) ListChannels(c *fiber.Ctx) error {
	channels, err := h.s.ListChannels(c.Context(), GetUserID(c))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Unable to list channels")
	}
	return c.JSON(channels)
}

func (h *ChannelHandler) RemoveChannel(c *fiber.Ctx) error {
	id := c.QueryInt("id", 0)
	if err := h.s.RemoveChannel(c.Context(), GetUserID(c), int64(id)); err != nil {
		if errors.Is(err, service.ErrChannelNotFound) {
			return errorJSON(c, fiber.StatusNotFound, err.Error())
		}
		return errorJSON(c, fiber.StatusInternalServerError, "Unable to remove channel")
	}
	return c.SendStatus(fiber.StatusOK)
}
