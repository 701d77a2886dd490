package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"carpool-backend/internal/apperror"
	"carpool-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Ключи контекста gin, которые заполняет JWTAuth
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
	ContextToken  = "token"
	ContextClaims = "claims"
)

// RevocationChecker проверяет, отозван ли токен при выходе пользователя
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// bearerToken достает токен из заголовка Authorization. Для WebSocket рукопожатия
// токен можно передать параметром token, браузер не умеет ставить заголовки.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if websocket.IsWebSocketUpgrade(c.Request) && c.Query("token") != "" {
			return c.Query("token"), true
		}
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func JWTAuth(secret string, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" && !websocket.IsWebSocketUpgrade(c.Request) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Отсутствует токен авторизации", "code": apperror.CodeUnauthorized})
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Неверный формат токена", "code": apperror.CodeUnauthorized})
			return
		}

		claims, err := utils.ValidateToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Недействительный токен", "code": apperror.CodeUnauthorized})
			return
		}

		if revoked != nil {
			isRevoked, err := revoked.IsRevoked(c.Request.Context(), token)
			if err != nil {
				// Без Redis не можем проверить отзыв, пропускаем токен
				log.Printf("Не удалось проверить отзыв токена пользователя %d: %v", claims.UserID, err)
			} else if isRevoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Токен отозван", "code": apperror.CodeUnauthorized})
				return
			}
		}

		// Для админа user_id может быть 0
		if claims.Role != "admin" && claims.UserID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Недействительный ID пользователя", "code": apperror.CodeUnauthorized})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextToken, token)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// RequireRole пропускает только пользователей с одной из указанных ролей. Администратор проходит всегда.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "admin" {
			c.Next()
			return
		}
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Недостаточно прав", "code": apperror.CodeForbidden})
	}
}
