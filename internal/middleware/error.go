package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "trustledger/internal/errors"
	"trustledger/internal/logger"
)

// ErrorHandler renders the last error attached with c.Error once the
// handler chain has finished, unless a response was already written.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		WriteError(c, c.Errors.Last().Err)
	}
}

// WriteError writes err as {"error":{"code","message"}}. An *AppError keeps
// its status and code. Anything else is logged and reported as a generic
// INTERNAL_ERROR so driver and crypto messages never reach the client.
func WriteError(c *gin.Context, err error) {
	appErr := resolve(c, err)
	c.AbortWithStatusJSON(appErr.StatusCode, errorBody(appErr))
}

func resolve(c *gin.Context, err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			logger.Get().Errorw("request failed",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"request_id", RequestID(c),
			)
		}
		return appErr
	}

	logger.Get().Errorw("unexpected error",
		"error", err.Error(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", RequestID(c),
	)
	return apperrors.ErrInternalServer
}

func errorBody(appErr *apperrors.AppError) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	}
}
