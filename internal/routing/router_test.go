package routing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testRouter(t *testing.T) *Router {
	t.Helper()
	return NewRouter(testClassifier(t), nil)
}

func TestRouter_Dispatch(t *testing.T) {
	t.Parallel()

	r := testRouter(t)
	r.Handle(RouteClassPublicAPI, http.MethodGet, "/p/api/proposal", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/p/api/proposal?tenant_slug=acme&token=tok", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestRouter_NotFoundIsJSONForPublicAPI(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/p/api/missing", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error != "not_found" {
		t.Fatalf("error = %q", env.Error)
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	r := testRouter(t)
	r.Handle(RouteClassPublicAPI, http.MethodGet, "/p/api/proposal", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/p/api/proposal", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rr.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error != "method_not_allowed" {
		t.Fatalf("error = %q", env.Error)
	}
}

func TestRouter_PanicBecomes500JSON(t *testing.T) {
	t.Parallel()

	r := testRouter(t)
	r.Handle(RouteClassPublicAPI, http.MethodGet, "/p/api/proposal", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/p/api/proposal", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error != "internal_error" {
		t.Fatalf("error = %q", env.Error)
	}
}
