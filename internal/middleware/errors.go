package middleware

import (
	"github.com/gin-gonic/gin"
)

// ErrorCodeKey is the gin context key holding the code of the error
// response written for the request, if any.
const ErrorCodeKey = "error_code"

// Error codes produced by the HTTP layer itself.
const (
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Detail        string `json:"detail"`
	Code          string `json:"code"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// AbortWithError writes an ErrorResponse and stops the handler chain.
func AbortWithError(c *gin.Context, status int, code, detail string) {
	c.Set(ErrorCodeKey, code)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Detail:        detail,
		Code:          code,
		CorrelationID: c.GetString(CorrelationIDKey),
	})
}
