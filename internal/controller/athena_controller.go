package controller

import (
	"errors"

	"athena-be/internal/dto"
	"athena-be/internal/pkg/serverutils"
	"athena-be/internal/service"
	"athena-be/pkg/athena/conversation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAthenaController interface {
	RegisterRoutes(r fiber.Router)
	GetModel(ctx *fiber.Ctx) error
	GetSessions(ctx *fiber.Ctx) error
	NewSession(ctx *fiber.Ctx) error
	SelectSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	Compose(ctx *fiber.Ctx) error
	Send(ctx *fiber.Ctx) error
	GetView(ctx *fiber.Ctx) error
}

type athenaController struct {
	service service.IAthenaService
	auth    fiber.Handler
}

func NewAthenaController(service service.IAthenaService, auth fiber.Handler) IAthenaController {
	return &athenaController{
		service: service,
		auth:    auth,
	}
}

func (c *athenaController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/athena/v1")
	h.Use(c.auth)
	h.Get("/model", c.GetModel)
	h.Get("/sessions", c.GetSessions)
	h.Post("/sessions/new", c.NewSession)
	h.Post("/sessions/:id/select", c.SelectSession)
	h.Delete("/sessions/:id", c.DeleteSession)
	h.Put("/draft", c.Compose)
	h.Post("/send", c.Send)
	h.Get("/view", c.GetView)
}

func (c *athenaController) GetModel(ctx *fiber.Ctx) error {
	res := c.service.GetActiveModel(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Active model", res))
}

func (c *athenaController) GetSessions(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	res, err := c.service.ListSessions(ctx.UserContext(), userId)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get all sessions", res))
}

func (c *athenaController) NewSession(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	res, err := c.service.NewConversation(ctx.UserContext(), userId)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("New conversation started", res))
}

func (c *athenaController) SelectSession(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	sessionId, err := sessionIdParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.SelectSession(ctx.UserContext(), userId, sessionId)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Session selected", res))
}

func (c *athenaController) DeleteSession(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	sessionId, err := sessionIdParam(ctx)
	if err != nil {
		return err
	}

	var query dto.DeleteSessionQuery
	if err := ctx.QueryParser(&query); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := c.service.DeleteSession(ctx.UserContext(), userId, sessionId, query.Confirm)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Session deleted", res))
}

func (c *athenaController) Compose(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	var req dto.ComposeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Compose(ctx.UserContext(), userId, *req.Chat)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Draft updated", res))
}

// Send accepts an optional body; without one the current draft is sent.
func (c *athenaController) Send(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	var req dto.ComposeRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}

	res, err := c.service.Send(ctx.UserContext(), userId, req.Chat)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Message sent", res))
}

func (c *athenaController) GetView(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	res, err := c.service.GetView(ctx.UserContext(), userId)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Conversation view", res))
}

// currentUserId yields uuid.Nil when the token carried no usable id; the
// service treats that as a missing identity.
func currentUserId(ctx *fiber.Ctx) uuid.UUID {
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil
	}
	return userId
}

func sessionIdParam(ctx *fiber.Ctx) (uuid.UUID, error) {
	var params dto.SessionPathParams
	if err := ctx.ParamsParser(&params); err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(params); err != nil {
		return uuid.Nil, err
	}
	return uuid.MustParse(params.Id), nil
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, conversation.ErrAuthMissing):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, conversation.ErrSendInFlight):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, conversation.ErrEmptyInput),
		errors.Is(err, conversation.ErrNotConfirmed),
		errors.Is(err, service.ErrInvalidRole):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return err
	}
}
