package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskhub/task-tracker/internal/api/middleware"
	"github.com/taskhub/task-tracker/internal/core/domain"
)

// ctxPrincipal returns the caller resolved by the Identity middleware and
// fails fast when the request is anonymous. Routes are normally behind
// RequireAuth already; this guards handlers mounted without it.
func ctxPrincipal(c echo.Context) (*domain.Principal, error) {
	p := middleware.PrincipalFrom(c)
	if p == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, domain.ErrNotAuthenticated.Error())
	}
	return p, nil
}
