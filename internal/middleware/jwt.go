package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"stocksim/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// RevokedKeyPrefix namespaces denylisted session tokens in Redis.
const RevokedKeyPrefix = "session:revoked:"

// JWTAuthMiddleware validates session tokens and extracts the user ID.
// Tokens revoked by logout are rejected via the Redis denylist; rdb may be
// nil, in which case the denylist check is skipped.
func JWTAuthMiddleware(secret string, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string
		claims, err := utils.ParseJWT(tokenStr, secret)       // Parse the session token
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		// Reject tokens a logout already revoked
		if rdb != nil {
			if n, err := rdb.Exists(c.Request.Context(), RevokedKeyPrefix+tokenStr).Result(); err == nil && n > 0 {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session has been logged out"})
				return
			}
		}
		c.Set("userID", claims.UserID) // Store userID in context
		c.Set("token", tokenStr)       // Raw token, for logout revocation
		c.Set("claims", claims)        // Parsed claims, for expiry math
		c.Next()
	}
}
