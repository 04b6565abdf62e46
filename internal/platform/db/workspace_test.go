package db

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestExtractWorkspaceID_FromHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Workspace-ID", "practice_abc")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	wid := extractWorkspaceID(c, "default")
	if wid != "practice_abc" {
		t.Errorf("expected practice_abc, got %s", wid)
	}
}

func TestExtractWorkspaceID_FromQuery(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?workspace_id=clinic_xyz", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	wid := extractWorkspaceID(c, "default")
	if wid != "clinic_xyz" {
		t.Errorf("expected clinic_xyz, got %s", wid)
	}
}

func TestExtractWorkspaceID_FromJWT(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("jwt_workspace_id", "jwt_workspace")

	wid := extractWorkspaceID(c, "default")
	if wid != "jwt_workspace" {
		t.Errorf("expected jwt_workspace, got %s", wid)
	}
}

func TestExtractWorkspaceID_Default(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	wid := extractWorkspaceID(c, "default")
	if wid != "default" {
		t.Errorf("expected default, got %s", wid)
	}
}

func TestExtractWorkspaceID_Priority(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?workspace_id=query", nil)
	req.Header.Set("X-Workspace-ID", "header")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("jwt_workspace_id", "jwt")

	// JWT claim takes highest priority
	wid := extractWorkspaceID(c, "default")
	if wid != "jwt" {
		t.Errorf("expected jwt (highest priority), got %s", wid)
	}
}

func TestWorkspaceIDPattern(t *testing.T) {
	valid := []string{"abc", "practice_1", "workspace_abc_123", "A1B2"}
	for _, v := range valid {
		if !workspaceIDPattern.MatchString(v) {
			t.Errorf("expected %s to be valid", v)
		}
	}

	invalid := []string{"a-b", "a.b", "a b", "'; DROP TABLE", "a/b", ""}
	for _, v := range invalid {
		if workspaceIDPattern.MatchString(v) {
			t.Errorf("expected %s to be invalid", v)
		}
	}
}

func TestConnFromContext_Nil(t *testing.T) {
	if conn := ConnFromContext(context.Background()); conn != nil {
		t.Error("expected nil conn from empty context")
	}
}

func TestTxFromContext_Nil(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil tx from empty context")
	}
}

func TestWorkspaceFromContext(t *testing.T) {
	ctx := WithWorkspace(context.Background(), "test_ws")
	if wid := WorkspaceFromContext(ctx); wid != "test_ws" {
		t.Errorf("expected test_ws, got %s", wid)
	}
	if empty := WorkspaceFromContext(context.Background()); empty != "" {
		t.Errorf("expected empty string, got %s", empty)
	}
}

func TestCreateWorkspaceSchema_InvalidID(t *testing.T) {
	if err := CreateWorkspaceSchema(context.Background(), nil, "invalid-id!", ""); err == nil {
		t.Error("expected error for invalid workspace ID")
	}
}
