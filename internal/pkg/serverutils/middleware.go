// FILE: internal/pkg/serverutils/middleware.go
package serverutils

import (
	"atmo-chat-be/internal/dto"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware is the last line of defense: any panic or error
// that escapes a handler becomes a generic 500, never a stack trace.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = ctx.Status(fiber.StatusInternalServerError).
					JSON(dto.ErrorResponse{Error: "An unexpected error occurred."})
			}
		}()

		if nextErr := ctx.Next(); nextErr != nil {
			return ctx.Status(fiber.StatusInternalServerError).
				JSON(dto.ErrorResponse{Error: "An unexpected error occurred."})
		}
		return nil
	}
}
