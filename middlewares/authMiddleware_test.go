package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/revenue_backend/utils"
	"github.com/gin-gonic/gin"
)

func newAuthTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, utils.ActorFromContext(c.Request.Context()))
	})
	return r
}

func TestAuthMiddleware_MalformedHeaderIsRejected(t *testing.T) {
	r := newAuthTestRouter()
	for _, header := range []string{"Basic abc", "Bear", "Bearer", "token-without-scheme"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Authorization", header)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("Authorization %q: status %d, expected 401", header, w.Code)
		}
	}
}

func TestAuthMiddleware_NoHeaderFallsBackToSystemActor(t *testing.T) {
	r := newAuthTestRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, expected 200", w.Code)
	}
	if got := w.Body.String(); got != utils.SystemActor {
		t.Fatalf("actor %q, expected %q", got, utils.SystemActor)
	}
}

func TestAuthMiddleware_ValidTokenSetsActor(t *testing.T) {
	t.Setenv("API_SECRET", "test-secret")
	token, err := utils.JwtGenerate("admin-7", "Ops Admin", "admin", time.Hour)
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}

	r := newAuthTestRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, expected 200", w.Code)
	}
	if got := w.Body.String(); got != "admin-7" {
		t.Fatalf("actor %q, expected admin-7", got)
	}
}
