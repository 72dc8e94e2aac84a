package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/phishguard/config"
	"github.com/cppla/phishguard/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextEmailKey stores the e-mail of the authenticated user.
	ContextEmailKey = "email"
	// ContextIsAdminKey is true for administrators.
	ContextIsAdminKey = "is_admin"
	// ContextTokenKey keeps the raw bearer token so logout can revoke it.
	ContextTokenKey = "token"
	// ContextClaimsKey stores the parsed *utils.Claims.
	ContextClaimsKey = "claims"

	// InternalKeyHeader carries the shared secret of service-to-service calls.
	InternalKeyHeader = "X-Internal-Key"
)

// AuthRequired ensures the request is authenticated via an access JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			ctx.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			ctx.Abort()
			return
		}

		if utils.IsTokenBlacklisted(tokenString) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil || claims.TokenType == utils.TokenTypeRefresh {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		setIdentity(ctx, tokenString, claims)
		ctx.Next()
	}
}

// OptionalAuth sets the identity when a valid access token is present and
// lets anonymous requests through otherwise.
func OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		parts := strings.SplitN(ctx.GetHeader("Authorization"), " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			tokenString := strings.TrimSpace(parts[1])
			if tokenString != "" && !utils.IsTokenBlacklisted(tokenString) {
				if claims, err := utils.ParseToken(tokenString); err == nil && claims.TokenType != utils.TokenTypeRefresh {
					setIdentity(ctx, tokenString, claims)
				}
			}
		}
		ctx.Next()
	}
}

func setIdentity(ctx *gin.Context, token string, claims *utils.Claims) {
	ctx.Set(ContextUserIDKey, claims.UserID)
	ctx.Set(ContextEmailKey, claims.Email)
	ctx.Set(ContextIsAdminKey, claims.IsAdmin || isAdminEmail(claims.Email))
	ctx.Set(ContextTokenKey, token)
	ctx.Set(ContextClaimsKey, claims)
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !ctx.GetBool(ContextIsAdminKey) {
			utils.Error(ctx, http.StatusForbidden, 40301, "administrator access required")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// InternalKeyRequired guards endpoints meant for other services. Without a
// configured key the endpoints are disabled.
func InternalKeyRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		want := config.Get().App.InternalAPIKey
		got := ctx.GetHeader(InternalKeyHeader)
		if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
			utils.Error(ctx, http.StatusForbidden, 40302, "internal endpoint")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func isAdminEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	for _, e := range config.Get().Auth.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}
