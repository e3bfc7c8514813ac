package handler

import (
	"geoassist-be/internal/pkg/logger"
	"geoassist-be/internal/pkg/serverutils"
	internalWS "geoassist-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ReplyStreamHandler upgrades chat gateways to a websocket that carries bot
// replies.
type ReplyStreamHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewReplyStreamHandler(hub *internalWS.Hub, log logger.ILogger) *ReplyStreamHandler {
	return &ReplyStreamHandler{hub: hub, logger: log}
}

func (h *ReplyStreamHandler) RegisterRoutes(r fiber.Router) {
	// outside /bot: the group middleware only reads the Authorization header
	r.Get("/replies/ws", h.Authorize, websocket.New(h.Stream))
}

// Authorize checks the gateway token before the upgrade. Browsers cannot set
// headers on websocket requests, so the token may come as ?token=.
func (h *ReplyStreamHandler) Authorize(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token (Query 'token' or Header 'Authorization')"))
	}

	claims, err := serverutils.ParseToken(tokenStr)
	if err != nil {
		h.logger.Warn("ReplyStream", "Rejected reply stream token", map[string]interface{}{"ip": c.IP()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
	}

	sub, _ := claims.GetSubject()
	c.Locals("gateway_id", sub)
	// empty user_id subscribes to every user
	c.Locals("target", c.Query("user_id", internalWS.AllUsers))
	return c.Next()
}

func (h *ReplyStreamHandler) Stream(c *websocket.Conn) {
	target, _ := c.Locals("target").(string)
	gateway, _ := c.Locals("gateway_id").(string)
	h.logger.Info("ReplyStream", "Reply stream opened", map[string]interface{}{
		"gateway_id": gateway,
		"target":     target,
	})
	internalWS.ServeWs(h.hub, c, target)
}
