package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	errx "github.com/campfinder-assistant/server/internal/core/error"
	logx "github.com/campfinder-assistant/server/pkg/logger"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields,omitempty"`
}

// respondError writes the AppError status and safe message. The wrapped
// error text is logged, never returned.
func respondError(c *gin.Context, err error) {
	appErr := errx.From(err)
	status := appErr.Status
	if status == 0 || status == http.StatusOK {
		status = http.StatusInternalServerError
	}

	ev := logx.Warn()
	if status >= http.StatusInternalServerError {
		ev = logx.Error()
	}
	ev.Err(err).
		Int("status", status).
		Str("kind", string(appErr.Kind)).
		Str("path", c.FullPath()).
		Str("request_id", c.GetString(requestIDKey)).
		Msg("Request failed")

	c.AbortWithStatusJSON(status, errorResponse{
		Error:  appErr.Message,
		Kind:   string(appErr.Kind),
		Fields: appErr.Fields,
	})
}
