package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupSignals(base *echo.Group) {
	base.POST("/signals/check", h.checkSignals)
	base.GET("/positions", h.listPositions)
	base.GET("/positions/history", h.positionHistory)
	base.GET("/orders", h.listOrders)
	base.GET("/risk/summary", h.riskSummary)
}

func (h *HttpAPIHandler) checkSignals(c echo.Context) error {
	result, err := h.service.SignalService.CheckSignals(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to check signals"})
	}
	return c.JSON(http.StatusOK, result)
}

func (h *HttpAPIHandler) listPositions(c echo.Context) error {
	positions, err := h.service.SignalService.GetOpenPositions(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load positions"})
	}
	return c.JSON(http.StatusOK, positions)
}

func (h *HttpAPIHandler) positionHistory(c echo.Context) error {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "symbol query param is required"})
	}
	positions, err := h.service.SignalService.GetPositionHistory(c.Request().Context(), symbol)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load position history"})
	}
	return c.JSON(http.StatusOK, positions)
}

func (h *HttpAPIHandler) listOrders(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	orders, err := h.service.TraderService.ListOrders(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load orders"})
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *HttpAPIHandler) riskSummary(c echo.Context) error {
	summary, err := h.service.SignalService.GetRiskSummary(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to build risk summary"})
	}
	return c.JSON(http.StatusOK, summary)
}
