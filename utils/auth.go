package utils

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// OperatorKeyHeader carries the plain operator key for /ops endpoints.
const OperatorKeyHeader = "X-Operator-Key"

// HashSecret hashes a password or operator key with bcrypt.
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckSecretHash reports whether secret matches the bcrypt hash.
func CheckSecretHash(secret, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	return err == nil
}

// GenerateToken issues an HS256 token for a barbershop user. Sessions are issued by the
// auth service in production; this is used by local tooling and tests.
func GenerateToken(userID, barbershopID, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT_SECRET not set")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":          userID,
		"barbershopId": barbershopID,
		"exp":          now.Add(ttl).Unix(),
		"iat":          now.Unix(),
	})
	return token.SignedString([]byte(secret))
}

// Auth middleware
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			RespondWithError(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		if len(tokenString) > 7 && strings.EqualFold(tokenString[:7], "Bearer ") {
			tokenString = tokenString[7:]
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			RespondWithError(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			RespondWithError(c, http.StatusUnauthorized, "Invalid token claims")
			return
		}
		shopID, _ := claims["barbershopId"].(string)
		if shopID == "" {
			RespondWithError(c, http.StatusForbidden, "Token has no barbershop")
			return
		}

		c.Set("userId", claims["sub"])
		c.Set("barbershopId", shopID)
		c.Next()
	}
}

// OperatorKeyMiddleware guards operator endpoints with a bcrypt-hashed shared key. With no
// hash configured the endpoints are disabled.
func OperatorKeyMiddleware(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyHash == "" {
			RespondWithError(c, http.StatusServiceUnavailable, "Operator endpoints are disabled")
			return
		}
		key := c.GetHeader(OperatorKeyHeader)
		if key == "" || !CheckSecretHash(key, keyHash) {
			RespondWithError(c, http.StatusUnauthorized, "Invalid operator key")
			return
		}
		c.Next()
	}
}
