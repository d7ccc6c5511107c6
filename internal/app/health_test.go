package app

import (
	"net/http"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t, nil)

	rr := app.get(t, "/api/health", nil)
	expectStatus(t, rr, http.StatusOK)
	if ok := decodeMap(t, rr)["ok"]; ok != true {
		t.Errorf("expected ok=true, got %v", ok)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated request id")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	app := newTestApp(t, nil)
	rr := app.get(t, "/api/health", header{"X-Request-ID": "req-123"})
	if got := rr.Header().Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}
}

func TestReadyEndpoint_Success(t *testing.T) {
	app := newTestApp(t, nil)

	rr := app.get(t, "/api/ready", nil)
	expectStatus(t, rr, http.StatusOK)
	body := decodeMap(t, rr)
	if body["status"] != "ready" {
		t.Errorf("expected status=ready, got %v", body["status"])
	}
}

func TestReadyEndpoint_DatabaseDown(t *testing.T) {
	app := newTestApp(t, nil)
	_ = app.store.DB().Close()

	rr := app.get(t, "/api/ready", nil)
	expectStatus(t, rr, http.StatusServiceUnavailable)
	body := decodeMap(t, rr)
	if body["ok"] != false || body["status"] != "not_ready" {
		t.Errorf("unexpected body %v", body)
	}
	checks := body["checks"].(map[string]any)
	database := checks["database"].(map[string]any)
	if database["status"] != "error" {
		t.Errorf("expected database status=error, got %v", database["status"])
	}
}

func TestPreflightAndUnknownRoutes(t *testing.T) {
	app := newTestApp(t, nil)

	rr := app.do(t, http.MethodOptions, "/api/boards/free/posts", nil, "", nil)
	expectStatus(t, rr, http.StatusNoContent)
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("expected CORS header, got %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}

	rr = app.get(t, "/api/nope", nil)
	expectStatus(t, rr, http.StatusNotFound)
	if decodeMap(t, rr)["code"] != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND envelope, got %s", rr.Body.String())
	}

	wrongMethod := []struct {
		method string
		path   string
	}{
		{method: http.MethodDelete, path: "/api/posts/1"},
		{method: http.MethodGet, path: "/api/posts/1/delete"},
		{method: http.MethodGet, path: "/api/auth/signin"},
		{method: http.MethodPost, path: "/api/admin/backup"},
		{method: http.MethodPost, path: "/sitemap.xml"},
	}
	for _, tc := range wrongMethod {
		rr = app.do(t, tc.method, tc.path, nil, "", nil)
		expectStatus(t, rr, http.StatusMethodNotAllowed)
		if decodeMap(t, rr)["code"] != "METHOD_NOT_ALLOWED" {
			t.Errorf("%s %s: expected METHOD_NOT_ALLOWED envelope, got %s", tc.method, tc.path, rr.Body.String())
		}
	}
}
