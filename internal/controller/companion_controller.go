package controller

import (
	"errors"

	"sarathi-be/internal/dto"
	"sarathi-be/internal/pkg/serverutils"
	"sarathi-be/internal/service"
	"sarathi-be/pkg/session"

	"github.com/gofiber/fiber/v2"
)

type ICompanionController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
	ShowSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
}

type companionController struct {
	companionService service.ICompanionService
}

func NewCompanionController(companionService service.ICompanionService) ICompanionController {
	return &companionController{
		companionService: companionService,
	}
}

func (c *companionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/companion/v1")
	h.Use(serverutils.OptionalJwtMiddleware)
	h.Post("chat", c.Chat)
	h.Get("session/:id", c.ShowSession)
	h.Delete("session", c.DeleteSession)
}

func (c *companionController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.companionService.Chat(ctx.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrSessionBusy) {
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(serverutils.ErrorResponse(503, err.Error()))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("Turn processed", res))
}

func (c *companionController) ShowSession(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	if id == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Session id is required"))
	}

	res, err := c.companionService.GetSession(ctx.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "Session not found"))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("Session detail", res))
}

func (c *companionController) DeleteSession(ctx *fiber.Ctx) error {
	var req dto.DeleteSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	if err := c.companionService.DeleteSession(ctx.Context(), &req); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Session deleted", nil))
}
