package response

import (
	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON shape of every error written by this service.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success writes data as a bare JSON document. Employee resources are exchanged
// unwrapped so that forwarding clients can decode them directly.
func Success(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

func Error(c *gin.Context, status int, errorCode string, message string, details any) {
	c.AbortWithStatusJSON(status, ErrorBody{
		Code:    errorCode,
		Message: message,
		Details: details,
	})
}
