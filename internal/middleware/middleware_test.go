package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"healthcare-portal-server/internal/config"
	"healthcare-portal-server/internal/models"
	"healthcare-portal-server/internal/utils"
)

const testSecret = "access-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func issueToken(t *testing.T, role models.Role) string {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:                 testSecret,
		JWTRefreshSecret:          "refresh-secret",
		JWTExpirationMinutes:      5,
		JWTRefreshExpirationHours: 1,
	}
	user := &models.User{BaseModel: models.BaseModel{ID: "user-42"}, Role: role}
	access, _, err := utils.GenerateTokens(user, cfg)
	if err != nil {
		t.Fatalf("GenerateTokens: %v", err)
	}
	return access
}

func newProtectedRouter(roles ...models.Role) *gin.Engine {
	router := gin.New()
	handlers := []gin.HandlerFunc{AuthMiddleware(testSecret)}
	if len(roles) > 0 {
		handlers = append(handlers, RoleAuthMiddleware(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		id, _ := GetUserIDFromContext(c)
		role, _ := GetUserRoleFromContext(c)
		c.String(http.StatusOK, id+":"+string(role))
	})
	router.GET("/protected", handlers...)
	return router
}

func TestAuthMiddleware(t *testing.T) {
	valid := issueToken(t, models.RolePatient)
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
		{"lowercase scheme", "bearer " + valid, http.StatusOK},
	}

	router := newProtectedRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			if tt.want == http.StatusOK && w.Body.String() != "user-42:patient" {
				t.Fatalf("unexpected identity %q", w.Body.String())
			}
		})
	}
}

func TestRoleAuthMiddleware(t *testing.T) {
	router := newProtectedRouter(models.RoleDoctor, models.RoleAdmin)

	for role, want := range map[models.Role]int{
		models.RolePatient: http.StatusForbidden,
		models.RoleDoctor:  http.StatusOK,
		models.RoleAdmin:   http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+issueToken(t, role))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("role %s: expected %d, got %d", role, want, w.Code)
		}
	}
}

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	clock := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return clock }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("burst should be allowed")
	}
	if rl.Allow("a") {
		t.Fatal("third request in the same instant should be rejected")
	}
	if !rl.Allow("b") {
		t.Fatal("callers must not share buckets")
	}

	clock = clock.Add(time.Second)
	if !rl.Allow("a") {
		t.Fatal("one token per second should refill")
	}
}

func TestRateLimiterEvictsIdleCallers(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	clock := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return clock }

	rl.Allow("old")
	clock = clock.Add(time.Hour)
	rl.Allow("new")

	if _, ok := rl.limiters["old"]; ok {
		t.Fatal("expected idle caller to be evicted")
	}
}

func TestRateLimiterZeroRateDisables(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if !rl.Allow("a") {
			t.Fatalf("request %d rejected with limiting disabled", i)
		}
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	router := gin.New()
	router.POST("/predictions", func(c *gin.Context) {
		SetUser(c, c.GetHeader("X-User"), models.RolePatient)
		c.Next()
	}, rl.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	do := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/predictions", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	if got := do("u1"); got != http.StatusCreated {
		t.Fatalf("expected first request to pass, got %d", got)
	}
	if got := do("u1"); got != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", got)
	}
	if got := do("u2"); got != http.StatusCreated {
		t.Fatalf("expected other user to pass, got %d", got)
	}
}
