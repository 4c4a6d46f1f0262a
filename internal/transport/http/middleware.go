package httpapi

import (
	"net/http"
	"strings"

	"shop-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type accessClaims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ExtractBearerToken извлекает токен из заголовка Authorization,
// устойчиво к кавычкам и лишним символам
func ExtractBearerToken(authz string) (string, bool) {
	if authz == "" {
		return "", false
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	t := strings.Trim(strings.TrimSpace(parts[1]), " \"'")
	if i := strings.IndexRune(t, ','); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	t = strings.Trim(t, " \"'")
	if i := strings.IndexByte(t, ' '); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return strings.Trim(t, " \"'"), true
}

// AuthRequired проверяет Bearer JWT (HS256) и кладёт пользователя в контекст запроса
func AuthRequired(secret string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := ExtractBearerToken(c.GetHeader("Authorization"))
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, NewUnauthorizedError("missing or invalid Authorization header"))
			return
		}

		claims := &accessClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid {
			log.Warn("Отклонён токен доступа", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, NewUnauthorizedError("invalid token"))
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, NewUnauthorizedError("invalid token subject"))
			return
		}

		ctx := service.WithUserID(c.Request.Context(), userID)
		ctx = service.WithRole(ctx, service.Role(claims.Role))
		if claims.Email != "" {
			ctx = service.WithEmail(ctx, claims.Email)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAdmin пускает дальше только ROLE_ADMIN; ставится после AuthRequired
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := service.RoleFromContext(c.Request.Context())
		if role != service.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, NewForbiddenError("admin role required"))
			return
		}
		c.Next()
	}
}

// ClientMeta сохраняет IP и user-agent запроса для строк аудита
func ClientMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := service.WithClientMeta(c.Request.Context(), service.ClientMeta{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RateLimit ограничивает частоту запросов (вебхук шлюза)
func RateLimit(perSecond, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, NewRateLimitedError("too many requests"))
			return
		}
		c.Next()
	}
}
