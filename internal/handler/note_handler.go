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

// NoteHandler provides HTTP endpoints for the notes archive.
type NoteHandler struct {
	service service.NoteService
	logger  zerolog.Logger
}

// NewNoteHandler constructs a handler instance.
func NewNoteHandler(service service.NoteService, logger zerolog.Logger) *NoteHandler {
	return &NoteHandler{
		service: service,
		logger:  logger.With().Str("component", "note_handler").Logger(),
	}
}

// Register binds the note routes.
func (h *NoteHandler) Register(router fiber.Router) {
	router.Get("/notes", h.browse)
	router.Get("/notes/mine", h.mine)
	router.Post("/notes", h.upload)
	router.Post("/notes/:id/like", h.toggleLike)
	router.Delete("/notes/:id", h.remove)
	router.Get("/subjects", h.subjects)
}

func (h *NoteHandler) browse(c *fiber.Ctx) error {
	year, err := parseQueryInt(c, "academic_year")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid academic_year")
	}

	filter := service.NoteFilter{
		Search:       c.Query("search"),
		AcademicYear: year,
		Sort:         service.NoteSortOption(strings.ToLower(strings.TrimSpace(c.Query("sort")))),
	}

	ctx := withRequestContext(c)

	result, err := h.service.Browse(ctx, filter)
	if err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "notes", result)
}

func (h *NoteHandler) mine(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	ctx := withRequestContext(c)

	grouped, err := h.service.Mine(ctx, userID)
	if err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "my notes", grouped)
}

func (h *NoteHandler) upload(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.NoteUploadRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if len(payload.Tags) == 0 {
		if raw := strings.TrimSpace(c.FormValue("tags")); raw != "" {
			payload.Tags = splitAndTrim(raw)
		}
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	ctx := withRequestContext(c)

	note, err := h.service.Upload(ctx, userID, payload, file)
	if err != nil {
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, service.ErrUploadTooLarge):
			status = fiber.StatusRequestEntityTooLarge
		case errors.Is(err, service.ErrUploadTypeNotAllowed):
			status = fiber.StatusUnsupportedMediaType
		case isValidationError(err):
			status = fiber.StatusBadRequest
		}
		return utils.SendError(c, status, err.Error())
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "note uploaded", note)
}

func (h *NoteHandler) toggleLike(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	noteID := strings.TrimSpace(c.Params("id"))
	if noteID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "id required")
	}

	ctx := withRequestContext(c)

	result, err := h.service.ToggleLike(ctx, userID, noteID)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = fiber.StatusNotFound
		}
		return utils.SendError(c, status, err.Error())
	}

	return utils.SendSuccess(c, "like toggled", result)
}

func (h *NoteHandler) remove(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	noteID := strings.TrimSpace(c.Params("id"))
	if noteID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "id required")
	}

	ctx := withRequestContext(c)

	if err := h.service.Delete(ctx, userID, noteID); err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, service.ErrForbidden) {
			status = fiber.StatusForbidden
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = fiber.StatusNotFound
		}
		return utils.SendError(c, status, err.Error())
	}

	return utils.SendSuccess(c, "note deleted", nil)
}

func (h *NoteHandler) subjects(c *fiber.Ctx) error {
	year, err := parseQueryInt(c, "academic_year")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid academic_year")
	}
	semester, err := parseQueryInt(c, "semester")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid semester")
	}

	ctx := withRequestContext(c)

	subjects, err := h.service.Subjects(ctx, year, semester)
	if err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "subjects", subjects)
}
