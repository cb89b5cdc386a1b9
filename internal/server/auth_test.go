package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/scribehq/scribe/internal/clock"
	"github.com/scribehq/scribe/internal/config"
)

const testSecret = "test-signing-secret"

func testAuthServer(at time.Time) *Server {
	return &Server{
		cfg:   config.Config{AuthJWTSecret: testSecret},
		clock: clock.NewFakeClock(at),
	}
}

func signToken(t *testing.T, subject, role string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func runAuth(t *testing.T, s *Server, decorate func(*http.Request)) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	var reached bool
	engine.GET("/protected", s.AuthRequired(), func(c *gin.Context) {
		reached = true
		c.JSON(http.StatusOK, gin.H{
			"owner_id": ownerID(c),
			"role":     c.GetString(contextRoleKey),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if decorate != nil {
		decorate(req)
	}
	engine.ServeHTTP(recorder, req)
	return recorder, reached
}

func TestAuthRequiredAcceptsBearerToken(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s := testAuthServer(now)
	token := signToken(t, "owner-1", "user", now.Add(time.Hour))

	recorder, reached := runAuth(t, s, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})
	if !reached {
		t.Fatalf("expected handler to run, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
}

func TestAuthRequiredAcceptsQueryToken(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s := testAuthServer(now)
	token := signToken(t, "owner-1", "user", now.Add(time.Hour))

	_, reached := runAuth(t, s, func(req *http.Request) {
		q := req.URL.Query()
		q.Set("token", token)
		req.URL.RawQuery = q.Encode()
	})
	if !reached {
		t.Fatalf("expected query token accepted for websocket-style handshakes")
	}
}

func TestAuthRequiredRejectsBadTokens(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s := testAuthServer(now)

	cases := []struct {
		name     string
		decorate func(*http.Request)
	}{
		{"missing", nil},
		{"malformed", func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer not-a-token")
		}},
		{"expired", func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+signToken(t, "owner-1", "user", now.Add(-time.Hour)))
		}},
		{"empty subject", func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+signToken(t, "   ", "user", now.Add(time.Hour)))
		}},
		{"wrong scheme", func(req *http.Request) {
			req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		}},
	}
	for _, tc := range cases {
		recorder, reached := runAuth(t, s, tc.decorate)
		if reached {
			t.Fatalf("%s: handler must not run", tc.name)
		}
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", tc.name, recorder.Code)
		}
	}
}

func TestAuthRequiredDefaultsRole(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s := testAuthServer(now)
	token := signToken(t, "owner-1", "", now.Add(time.Hour))

	recorder, _ := runAuth(t, s, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if body := recorder.Body.String(); !strings.Contains(body, `"role":"user"`) {
		t.Fatalf("expected default user role, got %s", body)
	}
}
