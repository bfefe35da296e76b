package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/namma-finance/ledger-core/internal/middleware"
)

// setupAuthContext injects the user id AuthMiddleware.Authenticate() would
// have set (the role is not set), mirroring the teacher's setupAuthContextWithWorkspace helper so
// handler tests can exercise a handler directly without running the real
// middleware chain.
func setupAuthContext(c echo.Context, userID uuid.UUID) {
	ctx := context.WithValue(c.Request().Context(), middleware.UserIDKey, userID)
	c.SetRequest(c.Request().WithContext(ctx))
}
