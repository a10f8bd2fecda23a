package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/groupcart-backend/internal/http/response"
	"github.com/yungbote/groupcart-backend/internal/platform/apierr"
	"github.com/yungbote/groupcart-backend/internal/platform/ctxutil"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

// Claims is what the identity provider puts in access tokens. Identity itself
// lives elsewhere; this service only verifies tokens.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
	issuer string
}

func NewAuthMiddleware(log *logger.Logger, secret, issuer string) *AuthMiddleware {
	middlewareLogger := log.With("Middleware", "AuthMiddleware")
	return &AuthMiddleware{log: middlewareLogger, secret: []byte(secret), issuer: strings.TrimSpace(issuer)}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString == "" {
			response.RespondAggregateError(c, apierr.New(http.StatusUnauthorized, "unauthorized", errMissingToken))
			c.Abort()
			return
		}
		claims, err := am.Parse(tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			response.RespondAggregateError(c, err)
			c.Abort()
			return
		}
		userID := strings.TrimSpace(claims.Subject)
		if userID == "" {
			response.RespondAggregateError(c, apierr.New(http.StatusForbidden, "forbidden", errNoSubject))
			c.Abort()
			return
		}
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
			UserID: userID,
			Name:   claims.Name,
			Email:  claims.Email,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

var (
	errMissingToken  = errors.New("missing or invalid token")
	errNoSubject     = errors.New("token has no subject")
	errNotConfigured = errors.New("token verification not configured")
)

// Parse verifies an HS256 token and returns its claims. Failures are
// *apierr.Error values carrying the status to answer with.
func (am *AuthMiddleware) Parse(tokenString string) (*Claims, error) {
	if len(am.secret) == 0 {
		return nil, apierr.New(http.StatusInternalServerError, "auth_not_configured", errNotConfigured)
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if am.issuer != "" {
		opts = append(opts, jwt.WithIssuer(am.issuer))
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return am.secret, nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apierr.New(http.StatusUnauthorized, "token_expired", err)
	case err != nil:
		return nil, apierr.New(http.StatusUnauthorized, "invalid_token", err)
	}
	return claims, nil
}

// EventSource cannot set headers, so SSE clients pass the token as ?token=.
func extractTokenFromAll(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
