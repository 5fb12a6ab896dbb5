package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/tokenlife/internal/application/dto"
	"github.com/turtacn/tokenlife/internal/application/service"
	"github.com/turtacn/tokenlife/internal/config"
	"github.com/turtacn/tokenlife/internal/interfaces/http/middleware"
	"github.com/turtacn/tokenlife/pkg/errors"
)

// UserHandler serves the signed-in user's own profile.
type UserHandler struct {
	authService service.AuthAppService
	cookie      refreshCookie
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(authService service.AuthAppService, jwtCfg *config.JWTConfig) *UserHandler {
	return &UserHandler{authService: authService, cookie: newRefreshCookie(jwtCfg)}
}

// Me handles GET /user/.
func (h *UserHandler) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		dto.SendError(c, errors.ErrMissingCredential("access token"))
		return
	}

	user, err := h.authService.CurrentUser(c.Request.Context(), claims.UserID())
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, dto.FromUser(user))
}

// ChangePassword handles PUT /user/change_password. Every session of the
// user ends, so the caller's cookie is cleared too.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		dto.SendError(c, errors.ErrMissingCredential("access token"))
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest("request body must be a JSON object").WithCause(err))
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), *claims.User, &req); err != nil {
		dto.SendError(c, err)
		return
	}

	h.cookie.clear(c)
	c.Status(http.StatusNoContent)
}

//Personal.AI order the ending
