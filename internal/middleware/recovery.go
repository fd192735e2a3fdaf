package middleware

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mediscan-triage-server/internal/domain"
)

// Recovery turns a panic in a handler into a 500 INTERNAL_SERVER_ERROR
// response carrying the panic value.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		err := domain.WrapInternal(fmt.Errorf("%v", recovered))

		logger.WithFields(logrus.Fields{
			"correlation_id": c.GetString(CorrelationIDKey),
			"path":           c.Request.URL.Path,
			"panic":          fmt.Sprint(recovered),
		}).Error("Recovered from panic")

		AbortWithError(c, http.StatusInternalServerError, string(err.Kind), err.Message)
	})
}
