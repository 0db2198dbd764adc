package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentix-trading/mentix-api/internal/middleware"
	"github.com/mentix-trading/mentix-api/internal/models"
	appErrors "github.com/mentix-trading/mentix-api/pkg/errors"
)

type fakeAuth struct {
	session  *models.AdminSession
	err      error
	password string
}

func (f *fakeAuth) Login(_ context.Context, req models.AdminLoginRequest) (*models.AdminSession, error) {
	f.password = req.Password
	return f.session, f.err
}

func (f *fakeAuth) SessionTTL() time.Duration { return 2 * time.Hour }

func (f *fakeAuth) ValidateToken(token string) (*models.AdminClaims, error) {
	if f.session == nil || token != f.session.Token {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session")
	}
	return &models.AdminClaims{Role: models.AdminRole}, nil
}

func TestAdminHandlerLoginSetsSessionCookie(t *testing.T) {
	auth := &fakeAuth{session: &models.AdminSession{Token: "signed-token", ExpiresAt: time.Now().Add(2 * time.Hour)}}
	h := NewAdminHandler(auth, true)

	c, rec := newTestContext(http.MethodPost, "/admin/login", map[string]string{"password": "hunter2"})
	h.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hunter2", auth.password)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookie, cookies[0].Name)
	assert.Equal(t, "signed-token", cookies[0].Value)
	assert.Equal(t, 7200, cookies[0].MaxAge)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), "signed-token")
}

func TestAdminHandlerLoginWrongPassword(t *testing.T) {
	auth := &fakeAuth{err: appErrors.Clone(appErrors.ErrUnauthorized, "invalid password")}
	h := NewAdminHandler(auth, false)

	c, rec := newTestContext(http.MethodPost, "/admin/login", map[string]string{"password": "nope"})
	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestAdminHandlerLogoutClearsCookie(t *testing.T) {
	h := NewAdminHandler(&fakeAuth{}, false)

	c, rec := newTestContext(http.MethodPost, "/admin/logout", nil)
	h.Logout(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookie, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}
