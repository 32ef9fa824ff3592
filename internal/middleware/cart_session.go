package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	CartCookie       = "cart_session"
	LocalCartSession = "cart_session"
)

// CartSession makes sure every request carries a cart session id, issuing a
// fresh cookie when the client has none.
func CartSession(ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Cookies(CartCookie)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
			c.Cookie(&fiber.Cookie{
				Name:     CartCookie,
				Value:    id,
				Path:     "/",
				Expires:  time.Now().Add(ttl),
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		c.Locals(LocalCartSession, id)
		return c.Next()
	}
}

// CartSessionID returns the session id set by CartSession.
func CartSessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalCartSession).(string)
	return id
}
