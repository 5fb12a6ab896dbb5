package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/tokenlife/internal/application/dto"
	"github.com/turtacn/tokenlife/internal/application/service"
	"github.com/turtacn/tokenlife/internal/config"
	"github.com/turtacn/tokenlife/internal/domain/models"
	"github.com/turtacn/tokenlife/internal/interfaces/http/middleware"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/errors"
	"github.com/turtacn/tokenlife/pkg/logger"
	"github.com/turtacn/tokenlife/pkg/utils"
)

// AuthHandler handles HTTP requests for login, refresh rotation, logout and sessions.
// The access token travels in the response body and the Authorization header,
// the refresh token only in the refresh_token cookie.
type AuthHandler struct {
	authService    service.AuthAppService
	sessionService service.SessionAppService
	cookie         refreshCookie
	logger         logger.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthAppService, sessionService service.SessionAppService, jwtCfg *config.JWTConfig, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		sessionService: sessionService,
		cookie:         newRefreshCookie(jwtCfg),
		logger:         log.WithComponent("AuthHandler"),
	}
}

// Login handles POST /auth/login (form: username, password).
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest("username and password are required").WithCause(err))
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), req.Username, req.Password, clientInfo(c))
	if err != nil {
		dto.SendError(c, err)
		return
	}

	h.cookie.set(c, pair.RefreshToken, pair.RefreshExpiresAt)
	dto.SendSuccess(c, http.StatusOK, dto.NewTokenResponse(pair))
}

// Refresh handles GET /auth/refresh: rotates the refresh_token cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	presented := h.cookie.read(c)
	if presented == "" {
		dto.SendError(c, errors.ErrMissingCredential("refresh token cookie"))
		return
	}

	pair, err := h.sessionService.Rotate(c.Request.Context(), presented, clientInfo(c))
	if err != nil {
		dto.SendError(c, err)
		return
	}

	h.cookie.set(c, pair.RefreshToken, pair.RefreshExpiresAt)
	dto.SendSuccess(c, http.StatusOK, dto.NewTokenResponse(pair))
}

// Logout handles DELETE /auth/refresh. A bearer access token, when sent, is
// revoked together with the refresh token.
func (h *AuthHandler) Logout(c *gin.Context) {
	presented := h.cookie.read(c)
	if presented == "" {
		dto.SendError(c, errors.ErrMissingCredential("refresh token cookie"))
		return
	}

	accessToken, _ := utils.ExtractBearerToken(c.GetHeader(constants.HeaderAuthorization))
	err := h.sessionService.Logout(c.Request.Context(), presented, accessToken)
	h.cookie.clear(c)
	if err != nil {
		dto.SendError(c, err)
		return
	}

	dto.SendSuccess(c, http.StatusOK, dto.DetailResponse{Detail: constants.LogoutMessage})
}

// Register handles POST /auth/ (JSON).
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest("request body must be a JSON object").WithCause(err))
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusCreated, dto.FromUser(user))
}

// ListSessions handles GET /auth/sessions for the caller.
func (h *AuthHandler) ListSessions(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		dto.SendError(c, errors.ErrMissingCredential("access token"))
		return
	}

	records, err := h.sessionService.ListSessions(c.Request.Context(), claims.UserID())
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, dto.FromRefreshTokens(records))
}

// RevokeSessions handles DELETE /auth/sessions: signs the caller out everywhere.
func (h *AuthHandler) RevokeSessions(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		dto.SendError(c, errors.ErrMissingCredential("access token"))
		return
	}

	revoked, err := h.sessionService.RevokeAllSessions(c.Request.Context(), claims.UserID())
	if err != nil {
		dto.SendError(c, err)
		return
	}

	h.cookie.clear(c)
	dto.SendSuccess(c, http.StatusOK, dto.RevokeSessionsResponse{Detail: "Sessions revoked", Revoked: revoked})
}

func clientInfo(c *gin.Context) models.ClientInfo {
	return models.ClientInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

//Personal.AI order the ending
