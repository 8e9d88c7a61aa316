package api

import (
	"net/http" // HTTP status codes
	"time"     // Denylist TTL math

	"stocksim/internal/ledger" // Account ledger core
	"stocksim/internal/middleware"
	"stocksim/internal/utils" // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// Request struct for registration. Empty-field validation is the ledger's
// concern so those failures get the 403 apology, not a 400.
type RegisterRequest struct {
	Username string `json:"username"` // Desired username
	Password string `json:"password"` // Plaintext password, hashed before storage
}

// Request struct for login
type LoginRequest struct {
	Username string `json:"username"` // Username
	Password string `json:"password"` // Plaintext password
}

// Response struct for authentication
type AuthResponse struct {
	Token  string `json:"token"`   // Session token
	UserID uint   `json:"user_id"` // Authenticated user ID
}

// RegisterHandler creates a new account with the starting cash balance and
// logs the user straight in.
func RegisterHandler(l *ledger.Ledger, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		user, err := l.Register(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			apology(c, err)
			return
		}
		// Registration establishes a session immediately
		token, err := utils.GenerateJWT(user.ID, jwtSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":  user.ID,
			"username": user.Username,
		}).Info("User registered")
		c.JSON(http.StatusCreated, AuthResponse{Token: token, UserID: user.ID})
	}
}

// LoginHandler authenticates a user and returns a session token
func LoginHandler(l *ledger.Ledger, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		user, err := l.Authenticate(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			apology(c, err)
			return
		}
		token, err := utils.GenerateJWT(user.ID, jwtSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Token: token, UserID: user.ID})
	}
}

// LogoutHandler revokes the current session token by writing it to the
// Redis denylist until it would have expired anyway. Idempotent and never
// fails: a denylist write error is logged and swallowed, since the token
// still dies at its natural expiry.
func LogoutHandler(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenVal, hasToken := c.Get("token")
		claimsVal, hasClaims := c.Get("claims")
		if rdb != nil && hasToken && hasClaims {
			claims := claimsVal.(*utils.Claims)
			remaining := utils.TokenTTL
			if claims.ExpiresAt != nil {
				remaining = time.Until(claims.ExpiresAt.Time)
			}
			if remaining > 0 {
				key := middleware.RevokedKeyPrefix + tokenVal.(string)
				if err := rdb.Set(c.Request.Context(), key, "1", remaining).Err(); err != nil {
					logrus.WithField("error", err.Error()).Warn("Failed to revoke session token")
				}
			}
		}
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}
