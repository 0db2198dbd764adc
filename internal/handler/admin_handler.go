package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mentix-trading/mentix-api/internal/middleware"
	"github.com/mentix-trading/mentix-api/internal/models"
	appErrors "github.com/mentix-trading/mentix-api/pkg/errors"
	"github.com/mentix-trading/mentix-api/pkg/response"
)

type adminAuthenticator interface {
	Login(ctx context.Context, req models.AdminLoginRequest) (*models.AdminSession, error)
	SessionTTL() time.Duration
}

// AdminHandler opens and closes dashboard sessions.
type AdminHandler struct {
	auth         adminAuthenticator
	secureCookie bool
}

// NewAdminHandler creates a new handler. secureCookie marks the session
// cookie HTTPS-only.
func NewAdminHandler(auth adminAuthenticator, secureCookie bool) *AdminHandler {
	return &AdminHandler{auth: auth, secureCookie: secureCookie}
}

// Login godoc
// @Summary Open an admin session
// @Description Checks the shared dashboard password and sets the session cookie
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body models.AdminLoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /admin/login [post]
func (h *AdminHandler) Login(c *gin.Context) {
	var req models.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrInvalidRequest, "invalid login payload"))
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setCookie(c, session.Token, int(h.auth.SessionTTL().Seconds()))
	response.JSON(c, http.StatusOK, session, nil)
}

// Logout godoc
// @Summary Close the admin session
// @Tags Admin
// @Success 204
// @Router /admin/logout [post]
func (h *AdminHandler) Logout(c *gin.Context) {
	h.setCookie(c, "", -1)
	response.NoContent(c)
}

func (h *AdminHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, value, maxAge, "/", "", h.secureCookie, true)
}
