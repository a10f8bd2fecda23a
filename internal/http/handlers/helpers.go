package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/groupcart-backend/internal/http/response"
	"github.com/yungbote/groupcart-backend/internal/platform/ctxutil"
	"github.com/yungbote/groupcart-backend/internal/services"
)

// identity resolves the authenticated caller or writes a 401.
func identity(c *gin.Context) (services.Identity, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || strings.TrimSpace(rd.UserID) == "" {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return services.Identity{}, false
	}
	return services.Identity{UserID: rd.UserID, Name: rd.Name, Email: rd.Email}, true
}

func sessionParam(c *gin.Context) (string, bool) {
	sid := strings.TrimSpace(c.Param("sessionId"))
	if sid == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", nil)
		return "", false
	}
	return sid, true
}

// bindVersioned decodes a body whose mutation requires expectedVersion.
func bindVersioned(c *gin.Context, dst any, version func() *int) (int, bool) {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return 0, false
	}
	v := version()
	if v == nil {
		response.RespondError(c, http.StatusBadRequest, "validation", errExpectedVersion)
		return 0, false
	}
	return *v, true
}
