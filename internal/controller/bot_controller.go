// FILE: internal/controller/bot_controller.go
package controller

import (
	"errors"

	"geoassist-be/internal/dto"
	"geoassist-be/internal/pkg/serverutils"
	"geoassist-be/internal/service"
	"geoassist-be/pkg/store"
	"geoassist-be/pkg/workflow"

	"github.com/gofiber/fiber/v2"
)

type IBotController interface {
	RegisterRoutes(r fiber.Router)
	HandleEvent(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	ExitSession(ctx *fiber.Ctx) error
	GetResults(ctx *fiber.Ctx) error
	GetStats(ctx *fiber.Ctx) error
}

type botController struct {
	botService      service.IBotService
	resultService   service.IResultService
	activityService service.IActivityService
}

func NewBotController(
	botService service.IBotService,
	resultService service.IResultService,
	activityService service.IActivityService,
) IBotController {
	return &botController{
		botService:      botService,
		resultService:   resultService,
		activityService: activityService,
	}
}

func (c *botController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/bot", serverutils.JwtMiddleware)
	h.Post("/events", c.HandleEvent)
	h.Get("/sessions/:userId", c.GetSession)
	h.Delete("/sessions/:userId", c.ExitSession)
	h.Get("/users/:userId/results", c.GetResults)
	h.Get("/stats", c.GetStats)
}

func (c *botController) HandleEvent(ctx *fiber.Ctx) error {
	var req dto.BotEventRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateStruct(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.botService.HandleRequest(ctx.UserContext(), &req)
	if err != nil {
		var invalid *workflow.InvalidInputError
		if errors.As(err, &invalid) {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Event handled", res))
}

func (c *botController) GetSession(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Session retrieved", c.botService.Session(ctx.Params("userId"))))
}

func (c *botController) ExitSession(ctx *fiber.Ctx) error {
	res, err := c.botService.Exit(ctx.UserContext(), ctx.Params("userId"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Session closed", res))
}

func (c *botController) GetResults(ctx *fiber.Ctx) error {
	mode := ctx.Query("mode", "")
	if mode != "" {
		m, err := store.ParseMode(mode)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
		}
		mode = m.String()
	}

	results, total, err := c.resultService.List(
		ctx.UserContext(),
		ctx.Params("userId"),
		mode,
		ctx.QueryInt("limit", 0),
		ctx.QueryInt("offset", 0),
	)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Results retrieved", fiber.Map{
		"results": results,
		"total":   total,
	}))
}

func (c *botController) GetStats(ctx *fiber.Ctx) error {
	stats, err := c.activityService.Stats(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Stats retrieved", stats))
}
