package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/browoko/assessment-api/internal/dto"
	"github.com/browoko/assessment-api/internal/models"
	"github.com/browoko/assessment-api/internal/service"
	"github.com/browoko/assessment-api/internal/utils"
)

// CommentHandler manages review annotation endpoints.
type CommentHandler struct {
	service service.CommentService
	logger  zerolog.Logger
}

// NewCommentHandler builds a comment handler instance.
func NewCommentHandler(service service.CommentService, logger zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		service: service,
		logger:  logger.With().Str("component", "comment_handler").Logger(),
	}
}

// RegisterNested attaches the per-submission comment routes.
func (h *CommentHandler) RegisterNested(submissions fiber.Router, reviewGuard fiber.Handler) {
	submissions.Get("/:id/comments", h.list)
	submissions.Post("/:id/comments", reviewGuard, h.add)
}

// Register attaches the top-level comment routes.
func (h *CommentHandler) Register(comments fiber.Router) {
	comments.Delete("/:id", h.delete)
}

func (h *CommentHandler) list(c *fiber.Ctx) error {
	submissionID, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	filter := dto.CommentFilter{}
	blockID, err := parseUUIDQuery(c, "blockId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	filter.BlockID = blockID
	if kind := c.Query("type"); kind != "" {
		parsed := models.CommentType(kind)
		filter.Type = &parsed
	}

	comments, err := h.service.List(c.Context(), identityFromContext(c), submissionID, filter)
	if err != nil {
		return handleDomainError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "comments retrieved", comments)
}

func (h *CommentHandler) add(c *fiber.Ctx) error {
	submissionID, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CommentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	comment, err := h.service.Add(c.Context(), identityFromContext(c), submissionID, payload)
	if err != nil {
		return handleDomainError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "comment added", comment)
}

func (h *CommentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), identityFromContext(c), id); err != nil {
		return handleDomainError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "comment deleted", nil)
}
