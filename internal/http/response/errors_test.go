package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/groupcart-backend/internal/domain/aggregates"
	"github.com/yungbote/groupcart-backend/internal/platform/apierr"
)

func TestRespondAggregateErrorStatuses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err     error
		status  int
		code    string
		message string
	}{
		{domainagg.NewError(domainagg.CodeValidation, "op", "bad quantity", nil), http.StatusBadRequest, "validation", "bad quantity"},
		{domainagg.NewError(domainagg.CodePermission, "op", "not yours", nil), http.StatusForbidden, "permission_denied", "not yours"},
		{domainagg.NewError(domainagg.CodeNotFound, "op", "gone", nil), http.StatusNotFound, "not_found", "gone"},
		{domainagg.NewError(domainagg.CodeConflict, "op", "version conflict", nil), http.StatusConflict, "conflict", "version conflict"},
		{domainagg.NewError(domainagg.CodePreconditionFailed, "op", "submitted", nil), http.StatusPreconditionFailed, "precondition_failed", "submitted"},
		{domainagg.NewError(domainagg.CodePaymentFailed, "op", "declined", nil), http.StatusPaymentRequired, "payment_failed", "declined"},
		{errors.New("db exploded"), http.StatusInternalServerError, "internal", "internal error"},
		{apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("who")), http.StatusUnauthorized, "unauthorized", "who"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		RespondAggregateError(c, tc.err)
		if rec.Code != tc.status {
			t.Fatalf("%v: status want=%d got=%d", tc.err, tc.status, rec.Code)
		}
		var env ErrorEnvelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.Error.Code != tc.code || env.Error.Message != tc.message {
			t.Fatalf("%v: envelope want=%s/%q got=%s/%q", tc.err, tc.code, tc.message, env.Error.Code, env.Error.Message)
		}
	}
}
