package rayid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// New returns a middleware assigning a unique ray id to every request.
// The id is stored in locals under "ray_id" and echoed in the X-Ray-Id
// response header for log correlation.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get("X-Ray-Id")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Locals("ray_id", rid)
		c.Set("X-Ray-Id", rid)
		return c.Next()
	}
}
