package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// CustomerAuthMiddleware creates a Gin middleware handler that validates the
// storefront's JWT bearer tokens. The subject claim carries the customer ID,
// which is the identity every wallet operation is scoped to.
func CustomerAuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLoggerFromCtx(c.Request.Context())

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn("Authorization header missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logger.Warn("Authorization header format invalid")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		tokenString := parts[1]

		token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(jwtSecret), nil
		})

		if err != nil {
			logger.Warn("Invalid token", "error", err)
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token has expired"
			} else if errors.Is(err, jwt.ErrTokenNotValidYet) {
				msg = "Token not valid yet"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		claims, ok := token.Claims.(*jwt.RegisteredClaims)
		if !ok || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}
		customerID := claims.Subject
		if customerID == "" {
			logger.Error("Customer ID (subject) missing from valid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		// Store the customer ID in both contexts for handlers and services.
		c.Set(string(customerIDKey), customerID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), customerIDKey, customerID))

		c.Next()
	}
}

// ServiceKeyMiddleware authenticates internal order-service hooks (earn,
// reverse, adjustment) with a static API key header.
func ServiceKeyMiddleware(serviceKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if serviceKey == "" {
			GetLoggerFromCtx(c.Request.Context()).Error("Service API key not configured, rejecting internal call")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Service authentication not configured"})
			return
		}
		provided := c.GetHeader("X-Service-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(serviceKey)) != 1 {
			GetLoggerFromCtx(c.Request.Context()).Warn("Invalid service key on internal endpoint")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid service key"})
			return
		}
		c.Next()
	}
}

// CronSecretMiddleware gates the scheduled expiry trigger behind a shared
// secret so the job cannot be fired by unauthorized callers.
func CronSecretMiddleware(cronSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cronSecret == "" {
			GetLoggerFromCtx(c.Request.Context()).Error("Cron secret not configured, rejecting trigger")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Cron authentication not configured"})
			return
		}
		provided := c.GetHeader("X-Cron-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(cronSecret)) != 1 {
			GetLoggerFromCtx(c.Request.Context()).Warn("Invalid cron secret on expiry trigger")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid cron secret"})
			return
		}
		c.Next()
	}
}
