package matching

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/chartdesk/chartdesk/internal/platform/auth"
)

type Handler struct {
	matcher *Matcher
}

func NewHandler(matcher *Matcher) *Handler {
	return &Handler{matcher: matcher}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("admin", "physician", "nurse", "reception")

	g := api.Group("", role)
	g.POST("/patients/match", h.Match)
	g.POST("/patients/confirm-new", h.ConfirmNew)
}

type matchRequest struct {
	Demographics
	AllTiers bool `json:"all_tiers"`
}

func (h *Handler) Match(c echo.Context) error {
	var req matchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cands, err := h.matcher.Match(c.Request().Context(), req.Demographics, Options{AllTiers: req.AllTiers})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if cands == nil {
		cands = []Candidate{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"candidates": cands})
}

type confirmNewRequest struct {
	Demographics
	SourceDocumentID *uuid.UUID `json:"source_document_id,omitempty"`
	Confirmed        bool       `json:"confirmed"`
}

func (h *Handler) ConfirmNew(c echo.Context) error {
	var req confirmNewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.matcher.ConfirmNewPatient(c.Request().Context(), req.Demographics, req.SourceDocumentID, req.Confirmed)
	if err != nil {
		if errors.Is(err, ErrAmbiguous) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}
