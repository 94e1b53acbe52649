package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kiwiprop/transfer-system/internal/core/ports"
)

// TransferHandler serves the two read endpoints. Responses come back from the
// QueryService as fully serialized bodies (the unit the response cache
// stores), so they are written verbatim with JSONBlob.
type TransferHandler struct {
	service ports.QueryService
}

func NewTransferHandler(service ports.QueryService) *TransferHandler {
	return &TransferHandler{service: service}
}

// Week handles GET /week/:date and GET /week/:date/:bounds.
//
// @Summary      Transfers for one week as a GeoJSON FeatureCollection
// @Tags         transfers
// @Produce      json
// @Param        date    path      string  true   "Week start date (YYYY-MM-DD, a Saturday)"
// @Param        bounds  path      string  false  "west,south,east,north in signed decimal degrees"
// @Success      200     {object}  map[string]interface{}
// @Failure      400     {object}  map[string]string
// @Router       /week/{date}/{bounds} [get]
func (h *TransferHandler) Week(c echo.Context) error {
	body, err := h.service.WeekFeatures(c.Request().Context(), c.Param("date"), c.Param("bounds"))
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, body)
}

// Stats handles GET /stats and GET /stats/:bounds.
//
// @Summary      Weekly transfer counts, keyed by week start date
// @Tags         transfers
// @Produce      json
// @Param        bounds  path      string  false  "west,south,east,north in signed decimal degrees"
// @Success      200     {object}  map[string]int64
// @Failure      400     {object}  map[string]string
// @Router       /stats/{bounds} [get]
func (h *TransferHandler) Stats(c echo.Context) error {
	body, err := h.service.WeeklyStats(c.Request().Context(), c.Param("bounds"))
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, body)
}
