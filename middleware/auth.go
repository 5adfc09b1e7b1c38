package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/remusic/remusic-admin/config"
	"github.com/remusic/remusic-admin/utils"
)

const (
	// ContextAdminIDKey is the key used to store the authenticated admin ID in Gin context.
	ContextAdminIDKey = "admin_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"

	// StreamSecretHeader carries the shared secret used by the playback backend.
	StreamSecretHeader = "X-Stream-Secret"
)

// AuthRequired ensures the request is authenticated via an admin JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, code, msg := bearerClaims(ctx)
		if claims == nil {
			utils.Error(ctx, http.StatusUnauthorized, code, msg)
			ctx.Abort()
			return
		}
		ctx.Set(ContextAdminIDKey, claims.AdminID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}

// StreamAuth accepts either the shared-secret header (playback backend) or a
// valid admin JWT (panel preview), rejecting everything else with 401.
func StreamAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		cfg := config.Get()
		if secret := ctx.GetHeader(StreamSecretHeader); secret != "" && cfg.StreamSharedSecret != "" {
			if subtle.ConstantTimeCompare([]byte(secret), []byte(cfg.StreamSharedSecret)) == 1 {
				ctx.Next()
				return
			}
			utils.Error(ctx, http.StatusUnauthorized, 40110, "invalid stream secret")
			ctx.Abort()
			return
		}

		claims, code, msg := bearerClaims(ctx)
		if claims == nil {
			utils.Error(ctx, http.StatusUnauthorized, code, msg)
			ctx.Abort()
			return
		}
		ctx.Set(ContextAdminIDKey, claims.AdminID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}

func bearerClaims(ctx *gin.Context) (*utils.Claims, int, string) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return nil, 40101, "authorization header missing"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, 40102, "invalid authorization header format"
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return nil, 40103, "empty bearer token"
	}

	if utils.IsTokenBlacklisted(tokenString) {
		return nil, 40104, "token revoked"
	}

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		return nil, 40105, "invalid token"
	}
	return claims, 0, ""
}
