package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/tokenlife/pkg/errors"
)

// SendError writes err as {error, error_description} and aborts the chain.
// 401 responses carry WWW-Authenticate: Bearer.
func SendError(c *gin.Context, err error) {
	status, body := errors.ToGenericErrorResponse(err)
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// SendSuccess writes data as JSON with the given status.
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

//Personal.AI order the ending
