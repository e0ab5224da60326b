// FILE: internal/pkg/serverutils/error_middleware.go
package serverutils

import (
	"errors"
	"fmt"
	"log"

	"github.com/KayTeo/mimir-extension/internal/errs"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts every handler error or panic into the
// structured {data: null, error} envelope so a raw failure never crosses the
// surface boundary.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[ERROR] Panic in %s %s: %v", ctx.Method(), ctx.Path(), rec)
				err = ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"data":  nil,
					"error": fiber.Map{"message": "internal server error"},
				})
			}
		}()

		if err := ctx.Next(); err != nil {
			return respondError(ctx, err)
		}
		return nil
	}
}

func respondError(ctx *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	var validationErr *errs.ValidationError
	var authErr *errs.AuthError
	var storeErr *errs.StoreError

	switch {
	case errors.As(err, &fiberErr):
		status = fiberErr.Code
	case errors.As(err, &validationErr):
		status = fiber.StatusBadRequest
	case errors.As(err, &authErr):
		status = fiber.StatusUnauthorized
	case errors.As(err, &storeErr):
		if storeErr.Kind == errs.StoreNotFound {
			status = fiber.StatusNotFound
		} else {
			status = fiber.StatusBadGateway
		}
	}

	return ctx.Status(status).JSON(fiber.Map{
		"data":  nil,
		"error": fiber.Map{"message": fmt.Sprint(err)},
	})
}
