package batch

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
	upload := auth.RequireRole("admin", "physician", "nurse")
	read := auth.RequireRole("admin", "physician", "nurse", "reception")

	g.POST("/batch-uploads", h.run, upload)
	g.GET("/batch-uploads", h.list, read)
	g.GET("/batch-uploads/:id", h.get, read)
}

type batchRequest struct {
	DocumentType string `json:"document_type"`
	Files        []struct {
		FileName string `json:"file_name"`
		Content  string `json:"content"` // base64
	} `json:"files"`
}

func (h *Handler) run(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.DocumentType == "" || len(req.Files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "document_type and files are required")
	}

	inputs := make([]FileInput, 0, len(req.Files))
	for _, f := range req.Files {
		content, err := base64.StdEncoding.DecodeString(f.Content)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "file content must be base64 encoded")
		}
		inputs = append(inputs, FileInput{FileName: f.FileName, Content: content})
	}

	createdBy := auth.UserIDFromContext(c.Request().Context())
	job, err := h.svc.Run(c.Request().Context(), req.DocumentType, createdBy, inputs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, job)
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid job id")
	}
	job, files, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "job not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"job": job, "files": files})
}

func (h *Handler) list(c echo.Context) error {
	p := pagination.FromContext(c)
	jobs, total, err := h.svc.List(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(jobs, total, p.Limit, p.Offset))
}
