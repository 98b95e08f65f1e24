package controller

import (
	"net/http"
	"tender-marketplace-api/internal/service"

	"github.com/labstack/echo"
)

type diagnosticRoutesHandler struct {
	diagnosticService service.Diagnostics
}

func newDiagnosticRoutesHandler(outer *echo.Group, services *service.Services) *diagnosticRoutesHandler {
	h := &diagnosticRoutesHandler{services.Diagnostics}
	outer.GET("/ping", h.Ping)

	return h
}

func (h *diagnosticRoutesHandler) Ping(c echo.Context) error {
	if err := h.diagnosticService.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Reason: "database is unreachable"})
	}

	return c.JSON(http.StatusOK, "ok")
}
