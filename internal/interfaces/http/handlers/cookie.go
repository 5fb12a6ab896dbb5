package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/tokenlife/internal/config"
	"github.com/turtacn/tokenlife/pkg/constants"
)

// refreshCookie writes and clears the refresh_token cookie.
// The cookie never outlives the token it carries.
type refreshCookie struct {
	secure bool
	domain string
}

func newRefreshCookie(cfg *config.JWTConfig) refreshCookie {
	return refreshCookie{secure: cfg.CookieSecure, domain: cfg.CookieDomain}
}

func (rc refreshCookie) set(c *gin.Context, token string, expiresAt time.Time) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     constants.RefreshTokenCookie,
		Value:    token,
		Path:     "/",
		Domain:   rc.domain,
		Expires:  expiresAt.UTC(),
		Secure:   rc.secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (rc refreshCookie) clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     constants.RefreshTokenCookie,
		Value:    "",
		Path:     "/",
		Domain:   rc.domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		Secure:   rc.secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// read returns the presented refresh token, or "" when there is none.
func (rc refreshCookie) read(c *gin.Context) string {
	token, err := c.Cookie(constants.RefreshTokenCookie)
	if err != nil {
		return ""
	}
	return token
}

//Personal.AI order the ending
