package coding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSuggest_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/suggest" {
			t.Errorf("path = %s, want /v1/suggest", r.URL.Path)
		}
		var req struct {
			Text   string `json:"text"`
			System string `json:"system"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Text != "asthma, mild persistent" || req.System != "icd10" {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": "J45.30", "display": "Mild persistent asthma", "confidence": 0.93,
		})
	}))
	defer srv.Close()

	c := NewSuggestClient(srv.URL, 5*time.Second, zerolog.Nop())
	code, err := c.Suggest(context.Background(), "asthma, mild persistent", "icd10")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if code.Code != "J45.30" || code.System != "icd10" || code.Confidence != 0.93 {
		t.Errorf("code = %+v", code)
	}
}

func TestSuggest_NotFoundIsNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no suggestion", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewSuggestClient(srv.URL, 5*time.Second, zerolog.Nop())
	_, err := c.Suggest(context.Background(), "gibberish", "icd10")
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestSuggest_EmptyCodeIsNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"code": "", "confidence": 0.1})
	}))
	defer srv.Close()

	c := NewSuggestClient(srv.URL, 5*time.Second, zerolog.Nop())
	_, err := c.Suggest(context.Background(), "something", "icd10")
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch for empty code, got %v", err)
	}
}

func TestSuggest_ServerErrorIsNotNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewSuggestClient(srv.URL, 5*time.Second, zerolog.Nop())
	_, err := c.Suggest(context.Background(), "asthma", "icd10")
	if err == nil || errors.Is(err, ErrNoMatch) {
		t.Fatalf("a 500 must surface as an error, not a no-match: %v", err)
	}
}
