package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/library-service/internal/api/http/handlers"
	"github.com/spec-kit/library-service/internal/auth"
	"github.com/spec-kit/library-service/internal/domain"
	"github.com/spec-kit/library-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Authors        *handlers.AuthorsHandler
	Categories     *handlers.CategoriesHandler
	Books          *handlers.BooksHandler
	Borrows        *handlers.BorrowsHandler
	Statistics     *handlers.StatisticsHandler
	AuthMiddleware *auth.AuthMiddleware
	RateLimiter    *RateLimiter
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Literal segments are registered before
// parameterised ones sharing a prefix.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Handler())
	}

	gate := cfg.AuthMiddleware
	member := auth.RequireRoles(domain.RoleUser)
	admin := auth.RequireRoles(domain.RoleAdmin)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.RateLimiter.Handle, cfg.Auth.Register)
	authGroup.Post("/login", cfg.RateLimiter.Handle, cfg.Auth.Login)
	authGroup.Get("/me", gate.Handle, cfg.Auth.Me)

	authors := api.Group("/authors", gate.Attach)
	authors.Get("/", cfg.Authors.List)
	authors.Get("/:id", cfg.Authors.Get)
	authors.Post("/", admin, cfg.Authors.Create)

	categories := api.Group("/categories", gate.Attach)
	categories.Get("/", cfg.Categories.List)
	categories.Get("/:id", cfg.Categories.Get)
	categories.Post("/", admin, cfg.Categories.Create)

	books := api.Group("/books", gate.Attach)
	books.Get("/", cfg.Books.List)
	books.Get("/search", cfg.Books.Search)
	books.Get("/borrowed", cfg.Books.Borrowed)
	books.Get("/available", cfg.Books.Available)
	books.Get("/title/:title", cfg.Books.GetByTitle)
	books.Get("/author/:authorId", cfg.Books.ByAuthor)
	books.Get("/category/:categoryId", cfg.Books.ByCategory)
	books.Get("/release-year/:year", cfg.Books.ByReleaseYear)
	books.Get("/:id", cfg.Books.Get)
	books.Post("/", admin, cfg.Books.Create)
	books.Put("/:id", admin, cfg.Books.Update)
	books.Delete("/:id", admin, cfg.Books.Delete)

	borrows := api.Group("/borrows", gate.Handle)
	borrows.Post("/", member, cfg.Borrows.Borrow)
	borrows.Put("/:id/return", member, cfg.Borrows.Return)
	borrows.Get("/active", member, cfg.Borrows.MyActive)
	borrows.Get("/history", member, cfg.Borrows.MyHistory)
	borrows.Get("/all/active", admin, cfg.Borrows.AllActive)
	borrows.Get("/all/returned", admin, cfg.Borrows.AllReturned)
	borrows.Get("/book/:bookId", admin, cfg.Borrows.ByBook)
	borrows.Get("/user/:userId", admin, cfg.Borrows.ByUser)
	borrows.Get("/:id", admin, cfg.Borrows.Get)

	adminGroup := api.Group("/admin", gate.Handle, admin)
	adminGroup.Get("/statistics", cfg.Statistics.Get)
}
