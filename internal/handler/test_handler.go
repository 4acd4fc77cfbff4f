package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/browoko/assessment-api/internal/dto"
	"github.com/browoko/assessment-api/internal/service"
	"github.com/browoko/assessment-api/internal/utils"
)

// TestHandler manages test definition endpoints.
type TestHandler struct {
	service service.TestService
	logger  zerolog.Logger
}

// NewTestHandler builds a test handler instance.
func NewTestHandler(service service.TestService, logger zerolog.Logger) *TestHandler {
	return &TestHandler{
		service: service,
		logger:  logger.With().Str("component", "test_handler").Logger(),
	}
}

// Register attaches test routes. Mutating routes carry the admin guard
// supplied by the router.
func (h *TestHandler) Register(router fiber.Router, adminGuard fiber.Handler) {
	router.Get("", h.list)
	router.Post("", adminGuard, h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", adminGuard, h.update)
	router.Delete("/:id", adminGuard, h.delete)
	router.Post("/:id/blocks", adminGuard, h.createBlock)
	router.Patch("/:id/blocks/:blockId", adminGuard, h.updateBlock)
	router.Delete("/:id/blocks/:blockId", adminGuard, h.deleteBlock)
}

func (h *TestHandler) list(c *fiber.Ctx) error {
	organizationID, err := parseUUIDQuery(c, "organizationId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	tests, err := h.service.List(c.Context(), organizationID)
	if err != nil {
		return handleDomainError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "tests retrieved", tests)
}

func (h *TestHandler) get(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	test, err := h.service.Get(c.Context(), id)
	if err != nil {
		return handleDomainError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "test retrieved", test)
}

func (h *TestHandler) create(c *fiber.Ctx) error {
	var payload dto.TestCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	test, err := h.service.Create(c.Context(), identityFromContext(c), payload)
	if err != nil {
		return handleDomainError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "test created", test)
}

func (h *TestHandler) update(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.TestUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	test, err := h.service.Update(c.Context(), identityFromContext(c), id, payload)
	if err != nil {
		return handleDomainError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "test updated", test)
}

func (h *TestHandler) delete(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), identityFromContext(c), id); err != nil {
		return handleDomainError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "test deleted", nil)
}

func (h *TestHandler) createBlock(c *fiber.Ctx) error {
	testID, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.TestBlockCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	block, err := h.service.CreateBlock(c.Context(), identityFromContext(c), testID, payload)
	if err != nil {
		return handleDomainError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "block created", block)
}

func (h *TestHandler) updateBlock(c *fiber.Ctx) error {
	blockID, err := parseUUIDParam(c, "blockId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.TestBlockUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	block, err := h.service.UpdateBlock(c.Context(), identityFromContext(c), blockID, payload)
	if err != nil {
		return handleDomainError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "block updated", block)
}

func (h *TestHandler) deleteBlock(c *fiber.Ctx) error {
	blockID, err := parseUUIDParam(c, "blockId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteBlock(c.Context(), identityFromContext(c), blockID); err != nil {
		return handleDomainError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "block deleted", nil)
}
