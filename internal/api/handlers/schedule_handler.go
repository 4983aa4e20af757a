package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/autopost/internal/service"
	"github.com/maheshrc27/autopost/internal/transfer"
)

type ScheduleHandler struct {
	s service.ScheduleService
}

func NewScheduleHandler(service service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{s: service}
}

func (h *ScheduleHandler) GetSchedule(c *fiber.Ctx) error {
	schedule, err := h.s.GetSchedule(c.Context(), GetUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrScheduleNotFound) {
			return errorJSON(c, fiber.StatusNotFound, err.Error())
		}
		return errorJSON(c, fiber.StatusBadRequest, "Unable to find schedule for given account")
	}
	return c.JSON(schedule)
}

func (h *ScheduleHandler) UpdateSchedule(c *fiber.Ctx) error {
	var update transfer.ScheduleUpdate
	if err := c.BodyParser(&update); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Unable to parse json")
	}

	schedule, err := h.s.UpdateSchedule(c.Context(), GetUserID(c), &update)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(schedule)
}
