package handler

import (
	"github.com/KayTeo/mimir-extension/internal/pkg/logger"
	internalWS "github.com/KayTeo/mimir-extension/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// EventsHandler upgrades surface connections onto the broadcast hub.
type EventsHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewEventsHandler(hub *internalWS.Hub, log logger.ILogger) *EventsHandler {
	return &EventsHandler{
		hub:    hub,
		logger: log,
	}
}

func (h *EventsHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/events", h.ServeWs)
}

// ServeWs handles websocket requests from a surface. Surfaces attach before
// sign-in so they can receive REAUTH_REQUIRED; no credential is required for
// the event stream.
func (h *EventsHandler) ServeWs(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("EventsHandler", "Starting surface event stream", nil)
			internalWS.ServeWs(h.hub, conn)
			h.logger.Info("EventsHandler", "Surface event stream ended", nil)
		})(c)
	}
	return fiber.ErrUpgradeRequired
}
