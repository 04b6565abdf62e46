package clinical

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/chartdesk/chartdesk/internal/platform/auth"
	"github.com/chartdesk/chartdesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	read := auth.RequireRole("admin", "physician", "nurse", "reception")
	g.GET("/patients/:id/records/:table", h.listByPatient, read)
}

func (h *Handler) listByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	table := c.Param("table")
	p := pagination.FromContext(c)

	items, total, err := h.svc.ListByPatient(c.Request().Context(), table, patientID, p.Limit, p.Offset)
	if err != nil {
		if _, serr := h.svc.Store(table); serr != nil {
			return echo.NewHTTPError(http.StatusNotFound, serr.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}
