package handlers

import (
	"time"

	"mindvibe/internal/middleware"
	"mindvibe/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

// Services bundles what the HTTP layer depends on.
type Services struct {
	Auth     *services.AuthService
	Catalog  *services.CatalogService
	Carts    *services.CartService
	Checkout *services.CheckoutService
	Orders   *services.OrderService
	Media    *MediaStore
	CartTTL  time.Duration
	Log      *zap.Logger
	// Health reports dependency states for /health. It may be nil.
	Health func() fiber.Map
}

// NewApp builds the Fiber application with every route registered.
func NewApp(s Services, accessLog bool) *fiber.App {
	app := fiber.New(fiber.Config{BodyLimit: 8 << 20})
	if accessLog {
		app.Use(logger.New())
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		}
		if s.Health != nil {
			for k, v := range s.Health() {
				body[k] = v
			}
		}
		return c.JSON(body)
	})

	apiV1 := app.Group("/api/v1", middleware.CartSession(s.CartTTL))

	authHandler := NewAuthHandler(s.Auth, s.Log)
	catalogHandler := NewCatalogHandler(s.Catalog, s.Log)
	cartHandler := NewCartHandler(s.Carts, s.Log)
	checkoutHandler := NewCheckoutHandler(s.Checkout, s.Auth, s.Log)
	orderHandler := NewOrderHandler(s.Orders, s.Media, s.Log)

	// Public routes
	authHandler.RegisterRoutes(apiV1)
	catalogHandler.RegisterRoutes(apiV1)
	cartHandler.RegisterRoutes(apiV1)

	// Operator routes
	admin := apiV1.Group("/admin", middleware.AuthRequired(s.Auth, s.Log), middleware.StaffRequired())
	catalogHandler.RegisterAdminRoutes(admin)
	orderHandler.RegisterAdminRoutes(admin)

	// Authenticated customer routes
	protected := apiV1.Group("", middleware.AuthRequired(s.Auth, s.Log))
	authHandler.RegisterProfileRoutes(protected)
	checkoutHandler.RegisterRoutes(protected)
	orderHandler.RegisterRoutes(protected)

	return app
}
