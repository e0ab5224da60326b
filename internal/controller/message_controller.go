// FILE: internal/controller/message_controller.go
package controller

import (
	"github.com/KayTeo/mimir-extension/internal/dispatch"

	"github.com/gofiber/fiber/v2"
)

type IMessageController interface {
	RegisterRoutes(r fiber.Router)
	Handle(ctx *fiber.Ctx) error
}

type messageController struct {
	dispatcher dispatch.IDispatcher
}

func NewMessageController(dispatcher dispatch.IDispatcher) IMessageController {
	return &messageController{dispatcher: dispatcher}
}

func (c *messageController) RegisterRoutes(r fiber.Router) {
	r.Post("/messages", c.Handle)
}

// Handle feeds one command envelope to the dispatcher and holds the request
// open until the responder resolves, so asynchronously-handled commands
// still reply on the same round-trip.
func (c *messageController) Handle(ctx *fiber.Ctx) error {
	responder := c.dispatcher.Submit(ctx.UserContext(), ctx.Body())

	select {
	case resp := <-responder.Done():
		return ctx.JSON(resp)
	case <-ctx.UserContext().Done():
		return ctx.UserContext().Err()
	}
}
