package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/browoko/assessment-api/internal/service"
	"github.com/browoko/assessment-api/internal/utils"
)

// UploadHandler manages practical artifact uploads.
type UploadHandler struct {
	service service.UploadService
	logger  zerolog.Logger
}

// NewUploadHandler builds an upload handler instance.
func NewUploadHandler(service service.UploadService, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Register attaches the upload route to the submissions group.
func (h *UploadHandler) Register(submissions fiber.Router) {
	submissions.Post("/:id/upload", h.upload)
}

func (h *UploadHandler) upload(c *fiber.Ctx) error {
	submissionID, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	blockID, err := uuid.Parse(c.FormValue("blockId"))
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid blockId")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	result, err := h.service.Upload(c.Context(), identityFromContext(c), submissionID, blockID, file)
	if err != nil {
		return handleDomainError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "artifact uploaded", result)
}
