package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/groupcart-backend/internal/domain/aggregates"
	"github.com/yungbote/groupcart-backend/internal/platform/apierr"
)

// StatusForCode maps aggregate error codes onto HTTP statuses.
func StatusForCode(code domainagg.ErrorCode) int {
	switch code {
	case domainagg.CodeValidation:
		return http.StatusBadRequest
	case domainagg.CodePermission:
		return http.StatusForbidden
	case domainagg.CodeNotFound:
		return http.StatusNotFound
	case domainagg.CodeConflict:
		return http.StatusConflict
	case domainagg.CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case domainagg.CodePaymentFailed:
		return http.StatusPaymentRequired
	case domainagg.CodeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondAggregateError writes err using its aggregate code. An *apierr.Error
// raised at the HTTP edge keeps its own status and code. Internal aggregate
// errors hide their cause.
func RespondAggregateError(c *gin.Context, err error) {
	var api *apierr.Error
	if asAPIError(err, &api) {
		RespondError(c, api.Status, api.Code, api.Err)
		return
	}
	code := domainagg.CodeOf(err)
	if code == "" {
		code = domainagg.CodeInternal
	}
	status := StatusForCode(code)
	msg := domainagg.MessageOf(err)
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: string(code)}})
}
