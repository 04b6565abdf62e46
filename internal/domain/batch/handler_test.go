package batch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestHandlerList_PaginationEnvelope(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockUploader{}, zerolog.Nop())
	if _, err := svc.Run(context.Background(), "lab_report", "admin", inputs("a.pdf")); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	h := NewHandler(svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/batch-uploads?limit=5&offset=0", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.list(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Data    []Job `json:"data"`
		Total   int   `json:"total"`
		Limit   int   `json:"limit"`
		Offset  int   `json:"offset"`
		HasMore bool  `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Data) != 1 {
		t.Errorf("total=%d data=%d, want 1/1", resp.Total, len(resp.Data))
	}
	if resp.Limit != 5 || resp.Offset != 0 {
		t.Errorf("limit=%d offset=%d, want 5/0", resp.Limit, resp.Offset)
	}
	if resp.HasMore {
		t.Error("has_more should be false for a single job")
	}
}
