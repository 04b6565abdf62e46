package extraction

import (
	"encoding/base64"
	"errors"
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
	review := auth.RequireRole("admin", "physician", "nurse")

	g.POST("/documents", h.upload, review)
	g.GET("/documents", h.list, read)
	g.GET("/documents/:id", h.get, read)
	g.POST("/documents/:id/populate", h.populate, review)
	g.GET("/documents/:id/history", h.historyList, read)
	g.POST("/documents/:id/modifications", h.recordModification, review)
	g.POST("/documents/:id/finalize", h.finalize, review)
}

type uploadRequest struct {
	FileName     string `json:"file_name"`
	DocumentType string `json:"document_type"`
	Content      string `json:"content"` // base64
}

func (h *Handler) upload(c echo.Context) error {
	var req uploadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.FileName == "" || req.DocumentType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "file_name and document_type are required")
	}
	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "content must be base64 encoded")
	}

	doc, err := h.svc.Upload(c.Request().Context(), req.FileName, req.DocumentType, content)
	if err != nil {
		if doc != nil && doc.Status == DocStatusFailed {
			// extraction failed but the document record exists
			return c.JSON(http.StatusBadGateway, doc)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, doc)
}

func (h *Handler) list(c echo.Context) error {
	p := pagination.FromContext(c)
	docs, total, err := h.svc.ListDocuments(c.Request().Context(), c.QueryParam("status"), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(docs, total, p.Limit, p.Offset))
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}
	doc, err := h.svc.GetDocument(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "document not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, doc)
}

type populateRequest struct {
	PatientID   uuid.UUID  `json:"patient_id"`
	EncounterID *uuid.UUID `json:"encounter_id,omitempty"`
	TemplateID  *uuid.UUID `json:"template_id,omitempty"`
}

func (h *Handler) populate(c echo.Context) error {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}
	var req populateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}

	out, err := h.svc.PopulateDocument(c.Request().Context(), docID, req.PatientID, req.EncounterID, req.TemplateID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "document not found")
		case errors.Is(err, ErrPopulateInProgress):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		var unavailable *StoreUnavailableError
		if errors.As(err, &unavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) historyList(c echo.Context) error {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}
	histories, err := h.svc.HistoryForDocument(c.Request().Context(), docID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, histories)
}

type modificationRequest struct {
	FieldPath        string `json:"field_path"`
	OriginalValue    string `json:"original_value"`
	NewValue         string `json:"new_value"`
	ModificationType string `json:"modification_type"`
}

func (h *Handler) recordModification(c echo.Context) error {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}
	var req modificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	err = h.svc.RecordModification(c.Request().Context(), docID, req.FieldPath, req.OriginalValue, req.NewValue, req.ModificationType)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no extraction history for document")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type finalizeRequest struct {
	Notes *string `json:"notes,omitempty"`
}

func (h *Handler) finalize(c echo.Context) error {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}
	var req finalizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	reviewer := auth.UserIDFromContext(c.Request().Context())
	if reviewer == "" {
		reviewer = "unknown"
	}
	if err := h.svc.FinalizeValidation(c.Request().Context(), docID, reviewer, req.Notes); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no extraction history for document")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
