package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	job "github.com/maheshrc27/autopost/internal/jobs"
	"github.com/maheshrc27/autopost/internal/queue"
	"github.com/maheshrc27/autopost/internal/service"
)

type PostHandler struct {
	s       service.PostService
	assets  service.AssetService
	credits service.CreditService
	cost    CostEstimator
	tasks   queue.Enqueuer
}

func NewPostHandler(s service.PostService, assets service.AssetService, credits service.CreditService, cost CostEstimator, tasks queue.Enqueuer) *PostHandler {
	return &PostHandler{s: s, assets: assets, credits: credits, cost: cost, tasks: tasks}
}

// Generate queues a manual run. The debit happens when the worker starts
// the run; this only rejects accounts that cannot cover it now.
func (h *PostHandler) Generate(c *fiber.Ctx) error {
	userID := GetUserID(c)

	cost, err := h.cost.RunCost(c.Context(), userID)
	if err != nil {
		if errors.Is(err, job.ErrNoChannel) {
			return errorJSON(c, fiber.StatusBadRequest, err.Error())
		}
		return errorJSON(c, fiber.StatusInternalServerError, "Unable to price run")
	}

	balance, err := h.credits.Balance(c.Context(), userID)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "Unable to read balance")
	}
	if balance < cost {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":   "insufficient credit",
			"balance": balance,
			"cost":    cost,
		})
	}

	info, err := queue.EnqueueGenerate(c.Context(), h.tasks, queue.GenerateContentPayload{OwnerID: userID})
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return errorJSON(c, fiber.StatusConflict, "A run is already queued")
		}
		slog.Error("queue manual run failed", "owner_id", userID, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Unable to queue run")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Run queued",
		"task_id": info.ID,
		"cost":    cost,
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	if postID := c.QueryInt("id", 0); postID != 0 {
		post, err := h.s.PostInfo(c.Context(), userID, int64(postID))
		if err != nil {
			return errorJSON(c, fiber.StatusNotFound, "Post not found")
		}
		return c.JSON(post)
	}

	posts, err := h.s.List(c.Context(), userID, c.QueryInt("limit", 50))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Unable to list posts")
	}
	return c.JSON(posts)
}

func (h *PostHandler) QueueStatus(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := int64(c.QueryInt("id", 0))

	if _, err := h.s.PostInfo(c.Context(), userID, postID); err != nil {
		return errorJSON(c, fiber.StatusNotFound, "Post not found")
	}

	status, err := h.assets.Status(c.Context(), postID)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "Unable to read asset queue")
	}
	return c.JSON(status)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	if err := h.s.Remove(c.Context(), GetUserID(c), int64(c.QueryInt("id", 0))); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	return c.SendStatus(fiber.StatusOK)
}
