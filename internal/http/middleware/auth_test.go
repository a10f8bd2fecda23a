package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/groupcart-backend/internal/http/response"
	"github.com/yungbote/groupcart-backend/internal/platform/ctxutil"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

func signed(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestRequireAuthAttachesRequestData(t *testing.T) {
	gin.SetMode(gin.TestMode)
	am := NewAuthMiddleware(logger.Nop(), "s3cret", "")

	r := gin.New()
	r.Use(am.RequireAuth())
	var seen *ctxutil.RequestData
	r.GET("/me", func(c *gin.Context) {
		seen = ctxutil.GetRequestData(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	good := signed(t, "s3cret", Claims{
		Name: "Ann",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	cases := []struct {
		name   string
		header string
		query  string
		want   int
		code   string
	}{
		{name: "bearer", header: "Bearer " + good, want: http.StatusNoContent},
		{name: "query", query: good, want: http.StatusNoContent},
		{name: "missing", want: http.StatusUnauthorized, code: "unauthorized"},
		{name: "wrong secret", header: "Bearer " + signed(t, "other", Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: "user-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}), want: http.StatusUnauthorized, code: "invalid_token"},
		{name: "expired", header: "Bearer " + signed(t, "s3cret", Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: "user-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}}), want: http.StatusUnauthorized, code: "token_expired"},
		{name: "no subject", header: "Bearer " + signed(t, "s3cret", Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}), want: http.StatusForbidden, code: "forbidden"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			target := "/me"
			if tc.query != "" {
				target += "?token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status: want=%d got=%d", tc.want, rec.Code)
			}
			if tc.code != "" {
				var env response.ErrorEnvelope
				if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if env.Error.Code != tc.code {
					t.Fatalf("code: want=%s got=%s", tc.code, env.Error.Code)
				}
			}
			if tc.want == http.StatusNoContent && (seen == nil || seen.UserID != "user-1" || seen.Name != "Ann") {
				t.Fatalf("request data: got=%+v", seen)
			}
		})
	}
}
