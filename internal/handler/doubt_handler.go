package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/campuslink/campuslink-api/internal/dto"
	"github.com/campuslink/campuslink-api/internal/service"
	"github.com/campuslink/campuslink-api/internal/utils"
)

// DoubtHandler provides HTTP endpoints for the doubts feed and reply threads.
type DoubtHandler struct {
	feed    service.FeedService
	replies service.ReplyService
	logger  zerolog.Logger
}

// NewDoubtHandler constructs a handler instance.
func NewDoubtHandler(feed service.FeedService, replies service.ReplyService, logger zerolog.Logger) *DoubtHandler {
	return &DoubtHandler{
		feed:    feed,
		replies: replies,
		logger:  logger.With().Str("component", "doubt_handler").Logger(),
	}
}

// Register binds the doubt routes.
func (h *DoubtHandler) Register(router fiber.Router) {
	router.Get("/doubts", h.loadFeed)
	router.Post("/doubts", h.createDoubt)
	router.Get("/doubts/:id", h.getThread)
	router.Delete("/doubts/:id", h.deleteDoubt)
	router.Post("/doubts/:id/like", h.toggleLike)
	router.Post("/doubts/:id/report", h.reportDoubt)
	router.Post("/doubts/:id/replies", h.createReply)
	router.Delete("/replies/:id", h.deleteReply)
}

func (h *DoubtHandler) loadFeed(c *fiber.Ctx) error {
	userID := userIDFromContext(c)

	ctx := withRequestContext(c)

	posts, err := h.feed.Load(ctx, userID)
	if err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "doubts", posts)
}

func (h *DoubtHandler) createDoubt(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.DoubtCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	ctx := withRequestContext(c)

	post, err := h.feed.CreateDoubt(ctx, userID, payload)
	if err != nil {
		status := fiber.StatusInternalServerError
		if isValidationError(err) || errors.Is(err, service.ErrEmptyContent) || errors.Is(err, service.ErrContentTooLong) {
			status = fiber.StatusBadRequest
		}
		return utils.SendError(c, status, err.Error())
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "doubt created", post)
}

func (h *DoubtHandler) getThread(c *fiber.Ctx) error {
	doubtID := strings.TrimSpace(c.Params("id"))
	if doubtID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "id required")
	}

	ctx := withRequestContext(c)

	thread, err := h.replies.Thread(ctx, doubtID, userIDFromContext(c))
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = fiber.StatusNotFound
		}
		return utils.SendError(c, status, err.Error())
	}

	return utils.SendSuccess(c, "thread", thread)
}

func (h *DoubtHandler) deleteDoubt(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	doubtID := strings.TrimSpace(c.Params("id"))
	if doubtID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "id required")
	}

	ctx := withRequestContext(c)

	if err := h.feed.DeleteDoubt(ctx, userID, doubtID); err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, service.ErrForbidden) {
			status = fiber.StatusForbidden
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = fiber.StatusNotFound
		}
		return utils.SendError(c, status, err.Error())
	}

	return utils.SendSuccess(c, "doubt deleted", nil)
}

func (h *DoubtHandler) toggleLike(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	doubtID := strings.TrimSpace(c.Params("id"))
	if doubtID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "id required")
	}

	ctx := withRequestContext(c)

	result, err := h.feed.ToggleLike(ctx, userID, doubtID)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = fiber.StatusNotFound
		}
		return utils.SendError(c, status, err.Error())
	}

	return utils.SendSuccess(c, "like toggled", result)
}

func (h *DoubtHandler) reportDoubt(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	doubtID := strings.TrimSpace(c.Params("id"))
	if doubtID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "id required")
	}

	ctx := withRequestContext(c)

	ack, err := h.feed.Report(ctx, userID, doubtID)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = fiber.StatusNotFound
		}
		return utils.SendError(c, status, err.Error())
	}

	return utils.SendSuccess(c, "report received", ack)
}

func (h *DoubtHandler) createReply(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	doubtID := strings.TrimSpace(c.Params("id"))
	if doubtID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "id required")
	}

	var payload dto.ReplyCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	ctx := withRequestContext(c)

	reply, err := h.replies.Add(ctx, userID, doubtID, payload)
	if err != nil {
		status := fiber.StatusInternalServerError
		if isValidationError(err) || errors.Is(err, service.ErrEmptyContent) {
			status = fiber.StatusBadRequest
		} else if errors.Is(err, gorm.ErrRecordNotFound) {
			status = fiber.StatusNotFound
		}
		return utils.SendError(c, status, err.Error())
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "reply created", reply)
}

func (h *DoubtHandler) deleteReply(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	replyID := strings.TrimSpace(c.Params("id"))
	if replyID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "id required")
	}

	ctx := withRequestContext(c)

	if err := h.replies.Remove(ctx, userID, replyID); err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, service.ErrForbidden) {
			status = fiber.StatusForbidden
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = fiber.StatusNotFound
		}
		return utils.SendError(c, status, err.Error())
	}

	return utils.SendSuccess(c, "reply deleted", nil)
}
