package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/namma-finance/ledger-core/internal/domain"
	"github.com/namma-finance/ledger-core/internal/middleware"
)

// Handlers bundles every handler the router wires in, so cmd/api/main.go
// only has to construct one value after assembling the service layer.
type Handlers struct {
	Auth       *AuthHandler
	Loans      *LoanHandler
	Collections *CollectionHandler
	Customers  *CustomerHandler
	Users      *UserHandler
	Capital    *CapitalHandler
	Analytics  *AnalyticsHandler
}

// RegisterRoutes wires every §6 endpoint onto e, gating each group with
// Authenticate and, where the spec names specific roles, RequireRole.
// agentLimiter throttles the loan/collection write paths per authenticated
// user so a single runaway agent script can't hammer the ledger.
func RegisterRoutes(e *echo.Echo, h *Handlers, authMw *middleware.AuthMiddleware, loginLimiter echo.MiddlewareFunc, agentLimiter echo.MiddlewareFunc) {
	auth := e.Group("/auth")
	auth.POST("/login", h.Auth.Login, loginLimiter)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.GET("/me", h.Auth.Me, authMw.Authenticate())
	auth.POST("/logout", h.Auth.Logout, authMw.Authenticate())

	staff := e.Group("", authMw.Authenticate())

	loans := staff.Group("/loans")
	loans.POST("", h.Loans.CreateLoan, middleware.RequireRole(domain.RoleAdmin, domain.RoleManager), agentLimiter)
	loans.GET("", h.Loans.GetLoans)
	loans.GET("/:id", h.Loans.GetLoan)
	loans.PATCH("/:id", h.Loans.PatchLoan, middleware.RequireRole(domain.RoleAdmin, domain.RoleManager), agentLimiter)
	loans.DELETE("/:id", h.Loans.DeleteLoan, middleware.RequireRole(domain.RoleAdmin, domain.RoleManager), agentLimiter)
	loans.POST("/topup", h.Loans.TopUp, middleware.RequireRole(domain.RoleAdmin, domain.RoleManager), agentLimiter)

	collections := staff.Group("/collections")
	collections.POST("", h.Collections.Record, middleware.RequireRole(domain.RoleAdmin, domain.RoleManager, domain.RoleAgent), agentLimiter)
	collections.GET("", h.Collections.List)

	customers := staff.Group("/customers")
	customers.POST("", h.Customers.Create, middleware.RequireRole(domain.RoleAdmin, domain.RoleManager))
	customers.GET("", h.Customers.List, middleware.RequireRole(domain.RoleAdmin, domain.RoleManager))
	customers.GET("/:id", h.Customers.GetByID)
	customers.DELETE("/:id", h.Customers.Delete, middleware.RequireRole(domain.RoleAdmin, domain.RoleManager))

	users := staff.Group("/users", middleware.RequireRole(domain.RoleAdmin))
	users.POST("", h.Users.Create)
	users.GET("", h.Users.List)
	users.DELETE("/:id", h.Users.Deactivate)

	capital := staff.Group("", middleware.RequireRole(domain.RoleAdmin, domain.RoleManager))
	capital.POST("/investments", h.Capital.CreateInvestment)
	capital.GET("/investments", h.Capital.ListInvestments)
	capital.POST("/borrowings", h.Capital.CreateBorrowing)
	capital.GET("/borrowings", h.Capital.ListBorrowings)

	staff.GET("/analytics", h.Analytics.Summary, middleware.RequireRole(domain.RoleAdmin, domain.RoleManager))
}
