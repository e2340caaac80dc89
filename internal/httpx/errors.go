package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-commerce/internal/apperr"
)

type ErrorBody struct {
	Error     string `json:"error" example:"not_found"`
	Message   string `json:"message" example:"order not found"`
	RequestID string `json:"request_id,omitempty"`
}

// Abort renders err and stops the handler chain. Classified errors keep their
// message; anything else is logged and reported as an internal error.
func Abort(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	body := ErrorBody{Error: apperr.CodeOf(err), RequestID: RequestIDFrom(c)}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		body.Message = err.Error()
	} else {
		body.Message = "internal error"
	}

	log := LoggerFrom(c)
	switch {
	case status >= 500:
		log.Error("request failed", zap.Int("status", status), zap.Error(err))
	case status == http.StatusForbidden || status == http.StatusConflict:
		log.Info("request rejected", zap.Int("status", status), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}

// BindJSON decodes the body or aborts with 400.
func BindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		Abort(c, apperr.InvalidArgument("invalid json: "+err.Error()))
		return false
	}
	return true
}

// PathID parses a positive integer path parameter or aborts with 400.
func PathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		Abort(c, apperr.InvalidArgument("invalid "+name))
		return 0, false
	}
	return id, true
}

// Page reads limit and offset query parameters with the listing defaults.
func Page(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
