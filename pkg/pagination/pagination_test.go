package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/"+query, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor(t, "")
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("got limit=%d offset=%d, want %d/0", p.Limit, p.Offset, DefaultLimit)
	}
}

func TestFromContext_Explicit(t *testing.T) {
	p := paramsFor(t, "?limit=50&offset=10")
	if p.Limit != 50 || p.Offset != 10 {
		t.Errorf("got limit=%d offset=%d, want 50/10", p.Limit, p.Offset)
	}
}

func TestFromContext_ClampsAndSanitizes(t *testing.T) {
	p := paramsFor(t, "?limit=9999&offset=-5")
	if p.Limit != MaxLimit {
		t.Errorf("limit = %d, want capped at %d", p.Limit, MaxLimit)
	}
	if p.Offset != 0 {
		t.Errorf("offset = %d, want 0", p.Offset)
	}

	p = paramsFor(t, "?limit=abc&offset=xyz")
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("non-numeric params: got limit=%d offset=%d", p.Limit, p.Offset)
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	r := NewResponse([]int{1, 2, 3}, 10, 3, 0)
	if !r.HasMore {
		t.Error("expected has_more with 7 rows remaining")
	}
	if r.Total != 10 || r.Limit != 3 || r.Offset != 0 {
		t.Errorf("envelope = %+v", r)
	}

	r = NewResponse([]int{1}, 10, 3, 9)
	if r.HasMore {
		t.Error("expected no more rows past the last page")
	}
}
