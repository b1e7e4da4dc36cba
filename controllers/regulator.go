package controllers

import (
	"net/http"
	"time"

	"wardrobeapi/regulator"

	"github.com/labstack/echo/v4"
)

// RegulatorController exposes the error regulator to admins.
type RegulatorController struct {
	Regulator *regulator.Regulator
}

type ResolveErrorIn struct {
	Resolution string `json:"resolution" validate:"required,max=500"`
}

func (controller *RegulatorController) RegulatorRoutes(g *echo.Group) {
	g.GET("/status", func(c echo.Context) error {
		return c.JSON(http.StatusOK, controller.Regulator.GetRegulationStatus())
	})
	g.GET("/summary", func(c echo.Context) error {
		return c.JSON(http.StatusOK, controller.Regulator.GetErrorSummary())
	})
	g.GET("/metrics", func(c echo.Context) error {
		return c.JSON(http.StatusOK, controller.Regulator.GetMetrics())
	})
	g.GET("/breakers", func(c echo.Context) error {
		return c.JSON(http.StatusOK, controller.Regulator.Breakers())
	})
	g.GET("/regulations", func(c echo.Context) error {
		return c.JSON(http.StatusOK, controller.Regulator.Regulations())
	})
	g.GET("/errors", controller.ListErrors)
	g.POST("/errors/:errorId/resolve", controller.ResolveError)
	g.DELETE("/errors", func(c echo.Context) error {
		controller.Regulator.ClearHistory()
		return c.NoContent(http.StatusNoContent)
	})
}

// ListErrors accepts window_minutes, code, severity and source query filters.
func (controller *RegulatorController) ListErrors(c echo.Context) error {
	var windowMinutes int
	var code, severity, source string
	err := echo.QueryParamsBinder(c).
		Int("window_minutes", &windowMinutes).
		String("code", &code).
		String("severity", &severity).
		String("source", &source).
		BindError()
	if err != nil || windowMinutes < 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid filter"})
	}
	filter := regulator.RecentFilter{
		Window: time.Duration(windowMinutes) * time.Minute,
		Code:   code,
		Source: regulator.Source(source),
	}
	if severity != "" {
		filter.Severity = regulator.ParseSeverity(severity)
	}
	return c.JSON(http.StatusOK, controller.Regulator.GetRecentErrors(filter))
}

func (controller *RegulatorController) ResolveError(c echo.Context) error {
	var req ResolveErrorIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if !controller.Regulator.MarkAsResolved(c.Param("errorId"), req.Resolution) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Error not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "resolved"})
}
