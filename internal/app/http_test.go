package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"hypda/entry/internal/store"
)

func loginRecorder(t *testing.T, server *HTTPServer, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/users/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func cookieNamed(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestLoginSetsCookies(t *testing.T) {
	server := NewHTTPServer(newTestService(userWithPassword(t, "avery@hypda.test", "correct horse", "operator")), "http://localhost:3000")

	rr := loginRecorder(t, server, `{"email":"avery@hypda.test","password":"correct horse"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	access := cookieNamed(rr, accessCookieName)
	csrf := cookieNamed(rr, csrfCookieName)
	if access == nil || !access.HttpOnly || access.Value == "" {
		t.Fatalf("expected HttpOnly access cookie, got %+v", access)
	}
	if csrf == nil || csrf.HttpOnly || csrf.Value == "" {
		t.Fatalf("expected readable csrf cookie, got %+v", csrf)
	}

	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["message"] != "Login successful" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials allowed, got %q", got)
	}
}

func TestLoginFailureCarriesMessage(t *testing.T) {
	server := NewHTTPServer(newTestService(userWithPassword(t, "avery@hypda.test", "correct horse", "operator")), "*")

	rr := loginRecorder(t, server, `{"email":"avery@hypda.test","password":"nope"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload["message"] != "Invalid email or password" || payload["code"] != "INVALID_CREDENTIALS" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if cookieNamed(rr, accessCookieName) != nil {
		t.Fatal("failed login must not set cookies")
	}
}

func TestLoginRejectsInvalidBody(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "*")
	rr := loginRecorder(t, server, `{"email":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCheckReportsRole(t *testing.T) {
	cases := []struct {
		name      string
		role      string
		superuser bool
	}{
		{name: "operator", role: "operator", superuser: false},
		{name: "superuser", role: "superuser", superuser: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := NewHTTPServer(newTestService(userWithPassword(t, "avery@hypda.test", "correct horse", tc.role)), "*")
			login := loginRecorder(t, server, `{"email":"avery@hypda.test","password":"correct horse"}`)

			req := httptest.NewRequest(http.MethodGet, "/users/check", nil)
			req.AddCookie(cookieNamed(login, accessCookieName))
			rr := httptest.NewRecorder()
			server.Handler().ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rr.Code)
			}
			var payload struct {
				IsSuperuser bool `json:"is_superuser"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
				t.Fatalf("parse response: %v", err)
			}
			if payload.IsSuperuser != tc.superuser {
				t.Fatalf("is_superuser = %v, want %v", payload.IsSuperuser, tc.superuser)
			}
		})
	}
}

func TestCheckWithoutCookie(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "*")
	req := httptest.NewRequest(http.MethodGet, "/users/check", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestReferenceRoutesRequireCSRFHeader(t *testing.T) {
	fs := userWithPassword(t, "avery@hypda.test", "correct horse", "operator")
	fs.listReviewsFn = func(context.Context) ([]store.Review, error) {
		return []store.Review{{ID: 1, Level: "Not reviewed"}, {ID: 2, Level: "Peer reviewed"}}, nil
	}
	server := NewHTTPServer(newTestService(fs), "*")
	login := loginRecorder(t, server, `{"email":"avery@hypda.test","password":"correct horse"}`)
	access := cookieNamed(login, accessCookieName)
	csrf := cookieNamed(login, csrfCookieName)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "wrong header", header: "forged", status: http.StatusUnauthorized},
		{name: "matching header", header: csrf.Value, status: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/reviews", nil)
			req.AddCookie(access)
			if tc.header != "" {
				req.Header.Set(csrfHeader, tc.header)
			}
			rr := httptest.NewRecorder()
			server.Handler().ServeHTTP(rr, req)
			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d body=%s", tc.status, rr.Code, rr.Body.String())
			}
			if tc.status != http.StatusOK {
				return
			}
			var payload []map[string]any
			if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
				t.Fatalf("parse response: %v", err)
			}
			if len(payload) != 2 || payload[1]["review_level"] != "Peer reviewed" {
				t.Fatalf("unexpected payload %v", payload)
			}
		})
	}
}

func TestEnvironmentsEmptyListIsArray(t *testing.T) {
	server := NewHTTPServer(newTestService(userWithPassword(t, "avery@hypda.test", "correct horse", "operator")), "*")
	login := loginRecorder(t, server, `{"email":"avery@hypda.test","password":"correct horse"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/environments", nil)
	req.AddCookie(cookieNamed(login, accessCookieName))
	req.Header.Set(csrfHeader, cookieNamed(login, csrfCookieName).Value)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if body := bytes.TrimSpace(rr.Body.Bytes()); string(body) != "[]" {
		t.Fatalf("expected empty JSON array, got %s", body)
	}
}

func TestLogoutInvalidatesCookie(t *testing.T) {
	server := NewHTTPServer(newTestService(userWithPassword(t, "avery@hypda.test", "correct horse", "operator")), "*")
	login := loginRecorder(t, server, `{"email":"avery@hypda.test","password":"correct horse"}`)
	access := cookieNamed(login, accessCookieName)

	req := httptest.NewRequest(http.MethodPost, "/users/logout", nil)
	req.AddCookie(access)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if expired := cookieNamed(rr, accessCookieName); expired == nil || expired.MaxAge >= 0 {
		t.Fatalf("expected expired access cookie, got %+v", expired)
	}

	check := httptest.NewRequest(http.MethodGet, "/users/check", nil)
	check.AddCookie(access)
	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, check)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected revoked token to be rejected, got %d", rr.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "*")
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestReadyEndpointReportsDatabaseFailure(t *testing.T) {
	fs := &fakeStore{pingFn: func(context.Context) error { return errors.New("connection refused") }}
	server := NewHTTPServer(newTestService(fs), "*")
	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	var response struct {
		OK     bool                      `json:"ok"`
		Status string                    `json:"status"`
		Checks map[string]map[string]any `json:"checks"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.OK || response.Status != "not_ready" || response.Checks["database"]["status"] != "error" {
		t.Fatalf("unexpected response %+v", response)
	}
	if response.Checks["sessions"]["status"] != "ok" {
		t.Fatalf("expected sessions ok, got %v", response.Checks["sessions"])
	}
}

func TestUnknownRoute(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}), "*")
	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
