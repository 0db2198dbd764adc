package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mentix-trading/mentix-api/internal/models"
	appErrors "github.com/mentix-trading/mentix-api/pkg/errors"
)

type validatorStub struct{ seen string }

func (v *validatorStub) ValidateToken(token string) (*models.AdminClaims, error) {
	v.seen = token
	if token != "good-token" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session")
	}
	return &models.AdminClaims{Role: models.AdminRole}, nil
}

func newSessionRouter(v SessionValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AdminSession(v))
	router.GET("/admin", func(c *gin.Context) {
		if _, ok := c.Get(ContextAdminKey); !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestAdminSessionAcceptsBearerAndCookie(t *testing.T) {
	v := &validatorStub{}
	router := newSessionRouter(v)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("bearer: unexpected status %d", recorder.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good-token"})
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("cookie: unexpected status %d", recorder.Code)
	}
	if v.seen != "good-token" {
		t.Fatalf("validator saw %q", v.seen)
	}
}

func TestAdminSessionRejects(t *testing.T) {
	router := newSessionRouter(&validatorStub{})

	cases := map[string]func(*http.Request){
		"missing":      func(*http.Request) {},
		"wrong scheme": func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") },
		"bad token":    func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
		"bad cookie":   func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "nope"}) },
	}
	for name, prepare := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			prepare(req)
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)
			if recorder.Code != http.StatusUnauthorized {
				t.Fatalf("unexpected status %d", recorder.Code)
			}
		})
	}
}
