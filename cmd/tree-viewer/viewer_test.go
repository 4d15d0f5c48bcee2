package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"chatting-demo-backend/internal/store"

	"github.com/rs/zerolog"
)

func setupViewer(t *testing.T) http.Handler {
	t.Helper()
	st := store.New(store.NewMemoryBackend(), store.NewLocalNotifier(), zerolog.New(io.Discard))
	ctx := context.Background()
	if err := st.Set(ctx, "users", []interface{}{map[string]interface{}{"name": "Ada", "email": "ada@example,com"}}); err != nil {
		t.Fatalf("seed users: %v", err)
	}
	if err := st.Set(ctx, "ada@example,com/firstName", "Ada"); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return newViewer(st, "memory", zerolog.New(io.Discard)).routes()
}

func getJSON(t *testing.T, h http.Handler, target string) (int, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s: %v", target, err)
	}
	return rec.Code, body
}

func TestRootsSorted(t *testing.T) {
	h := setupViewer(t)
	code, body := getJSON(t, h, "/api/roots")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	roots, _ := body["roots"].([]interface{})
	if len(roots) != 2 || roots[0] != "ada@example,com" || roots[1] != "users" {
		t.Fatalf("unexpected roots %v", roots)
	}
}

func TestTreeAtPath(t *testing.T) {
	h := setupViewer(t)
	code, body := getJSON(t, h, "/api/tree?path=ada@example,com/firstName")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["value"] != "Ada" {
		t.Fatalf("unexpected value %v", body["value"])
	}
}

func TestWholeTree(t *testing.T) {
	h := setupViewer(t)
	_, body := getJSON(t, h, "/api/tree")
	tree, ok := body["value"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected object, got %T", body["value"])
	}
	if _, ok := tree["users"]; !ok {
		t.Fatalf("users root missing from %v", tree)
	}
}

func TestTreeErrors(t *testing.T) {
	h := setupViewer(t)
	if code, _ := getJSON(t, h, "/api/tree?path=nobody"); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if code, _ := getJSON(t, h, "/api/tree?path=a.b"); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tree", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
