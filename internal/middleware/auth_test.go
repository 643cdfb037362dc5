package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xelth-com/eckdocs/internal/models"
	"github.com/xelth-com/eckdocs/internal/utils"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func tokens(t *testing.T, role string) (string, string) {
	t.Helper()
	access, refresh, err := utils.GenerateTokens(&models.UserAuth{ID: 7, Email: "a@b.c", Role: role}, testSecret)
	if err != nil {
		t.Fatalf("GenerateTokens: %v", err)
	}
	return access, refresh
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	if id := UserID(r.Context()); id != nil && *id == 7 {
		w.WriteHeader(http.StatusOK)
		return
	}
	if internal, _ := r.Context().Value(InternalContextKey).(bool); internal {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.WriteHeader(http.StatusTeapot)
}

func TestAuth(t *testing.T) {
	access, refresh := tokens(t, models.RoleAdmin)
	h := Auth(testSecret)(http.HandlerFunc(echoUser))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token " + access, http.StatusUnauthorized},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + access, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestInternalOrAuth(t *testing.T) {
	access, _ := tokens(t, models.RoleViewer)
	h := InternalOrAuth("internal", testSecret)(http.HandlerFunc(echoUser))

	run := func(target, header, internal string) int {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		if internal != "" {
			req.Header.Set("X-Internal-Key", internal)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := run("/?key=internal", "", ""); got != http.StatusAccepted {
		t.Errorf("query key: status = %d", got)
	}
	if got := run("/", "", "internal"); got != http.StatusAccepted {
		t.Errorf("header key: status = %d", got)
	}
	if got := run("/?key=wrong", "", ""); got != http.StatusForbidden {
		t.Errorf("wrong key: status = %d", got)
	}
	if got := run("/", "Bearer "+access, ""); got != http.StatusOK {
		t.Errorf("token: status = %d", got)
	}
	if got := run("/", "", ""); got != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d", got)
	}

	disabled := InternalOrAuth("", testSecret)(http.HandlerFunc(echoUser))
	req := httptest.NewRequest(http.MethodGet, "/?key=", nil)
	req.Header.Set("X-Internal-Key", "anything")
	rec := httptest.NewRecorder()
	disabled.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("empty configured key must reject, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	h := Auth(testSecret)(RequireRole(models.RoleAdmin, models.RoleManager)(http.HandlerFunc(echoUser)))

	for role, want := range map[string]int{
		models.RoleAdmin:   http.StatusOK,
		models.RoleManager: http.StatusOK,
		models.RoleViewer:  http.StatusForbidden,
	} {
		access, _ := tokens(t, role)
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("role %s: status = %d, want %d", role, rec.Code, want)
		}
	}
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestRequestLoggerKeepsStatus(t *testing.T) {
	h := RequestLogger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusCreated || rec.Body.String() != "ok" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := ClientIP(req); got != "10.0.0.1" {
		t.Errorf("remote addr: %q", got)
	}
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	if got := ClientIP(req); got != "1.2.3.4" {
		t.Errorf("forwarded: %q", got)
	}
}
