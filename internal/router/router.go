// Package router wires handlers, middleware and URL paths together.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-cinema/internal/handler"
	"github.com/iliyamo/online-cinema/internal/middleware"
	"github.com/iliyamo/online-cinema/internal/model"
)

// Deps carries everything route registration needs.
type Deps struct {
	Accounts       *handler.AccountHandler
	Movies         *handler.MovieHandler
	Genres         *handler.EntityHandler
	Stars          *handler.EntityHandler
	Directors      *handler.EntityHandler
	Certifications *handler.EntityHandler
	Payments       *handler.PaymentHandler

	// Auth validates bearer tokens and loads the principal.
	Auth echo.MiddlewareFunc
	// RateLimit throttles the abuse-prone public endpoints.
	RateLimit echo.MiddlewareFunc
}

// Register mounts every route on the Echo instance.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	staff := middleware.RequireRole(model.RoleModerator, model.RoleAdmin)
	admin := middleware.RequireRole(model.RoleAdmin)

	// Account lifecycle. The unauthenticated flows are rate limited since
	// they drive emails and bcrypt work off attacker-controlled input.
	accounts := e.Group("/accounts", d.RateLimit)
	accounts.POST("/register/", d.Accounts.Register)
	accounts.GET("/activate/", d.Accounts.Activate)
	accounts.POST("/activate/resend/", d.Accounts.ResendActivation)
	accounts.POST("/login/", d.Accounts.Login)
	accounts.POST("/refresh/", d.Accounts.Refresh)
	accounts.POST("/password-reset/request/", d.Accounts.RequestPasswordReset)
	accounts.POST("/password-reset/complete/", d.Accounts.CompletePasswordReset)

	me := e.Group("/accounts", d.Auth)
	me.POST("/logout/", d.Accounts.Logout)
	me.POST("/password-change/", d.Accounts.ChangePassword)
	me.GET("/me/", d.Accounts.Me)
	me.PATCH("/me/profile/", d.Accounts.UpdateProfile)

	users := e.Group("/accounts/users", d.Auth, admin)
	users.PATCH("/:id/group/", d.Accounts.SetRole)
	users.PATCH("/:id/status/", d.Accounts.SetActiveStatus)

	// Catalog. Browsing is public; mutation is staff only.
	cinema := e.Group("/cinema")
	cinema.GET("/movies/", d.Movies.List)
	cinema.GET("/movies/:id/", d.Movies.Get)
	cinema.POST("/movies/", d.Movies.Create, d.Auth, staff)
	cinema.PATCH("/movies/:id/", d.Movies.Update, d.Auth, staff)
	cinema.DELETE("/movies/:id/", d.Movies.Delete, d.Auth, staff)

	cinema.POST("/movies/:id/favorite/", d.Movies.ToggleFavorite, d.Auth)
	cinema.GET("/favorites/", d.Movies.ListFavorites, d.Auth)

	cinema.GET("/movies/:id/reviews/", d.Movies.ListReviews)
	cinema.POST("/movies/:id/reviews/", d.Movies.CreateReview, d.Auth)
	cinema.DELETE("/movies/:id/reviews/", d.Movies.DeleteReview, d.Auth)

	for path, h := range map[string]*handler.EntityHandler{
		"genres":         d.Genres,
		"stars":          d.Stars,
		"directors":      d.Directors,
		"certifications": d.Certifications,
	} {
		g := cinema.Group("/" + path)
		g.GET("/", h.List)
		g.GET("/:id/", h.Get)
		g.POST("/", h.Create, d.Auth, staff)
		g.PATCH("/:id/", h.Update, d.Auth, staff)
		g.DELETE("/:id/", h.Delete, d.Auth, staff)
	}

	// Orders and payments. The webhook is signed by Stripe, not by a user.
	payments := e.Group("/payments")
	payments.POST("/orders/checkout/:movie_id/", d.Payments.Checkout, d.Auth)
	payments.POST("/orders/:order_id/pay/", d.Payments.Pay, d.Auth)
	payments.GET("/orders/", d.Payments.ListOrders, d.Auth)
	payments.GET("/me/library/", d.Payments.Library, d.Auth)
	payments.POST("/webhook/", d.Payments.Webhook)
	payments.GET("/success/", d.Payments.Success)
	payments.GET("/cancel/", d.Payments.Cancel)
}
