package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ==================== JWT 配置 ====================

// JWTConfig 管理接口 Token 校验配置，只校验不签发
type JWTConfig struct {
	SecretKey string        // HS256 签名密钥
	Issuer    string        // 非空时校验 iss
	Leeway    time.Duration // 时间校验容差
}

// ==================== Claims 定义 ====================

// OperatorClaims 调用方声明，sub 为操作人
type OperatorClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ==================== Token 解析 ====================

var (
	errSecretNotConfigured = errors.New("jwt secret not configured")
	errInvalidToken        = errors.New("invalid token")
)

// ParseToken 校验签名、过期时间与签发者
func ParseToken(cfg *JWTConfig, tokenString string) (*OperatorClaims, error) {
	if cfg == nil || cfg.SecretKey == "" {
		return nil, errSecretNotConfigured
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.SecretKey), nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*OperatorClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errInvalidToken
}

// ==================== Gin 中间件 ====================

// Context Keys
const (
	ContextKeyOperator = "operator"
	ContextKeyRole     = "role"
)

// JWTAuth Bearer Token 认证，未配置密钥时拒绝所有请求
func JWTAuth(cfg *JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "未提供认证信息",
			})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "认证格式错误，应为 Bearer {token}",
			})
			return
		}

		claims, err := ParseToken(cfg, strings.TrimSpace(parts[1]))
		if errors.Is(err, errSecretNotConfigured) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"code":    503,
				"message": "认证未配置",
			})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "Token 无效或已过期",
			})
			return
		}

		c.Set(ContextKeyOperator, claims.Subject)
		c.Set(ContextKeyRole, claims.Role)
		c.Next()
	}
}

// GetOperator 从 Context 获取操作人，未认证时为空
func GetOperator(c *gin.Context) string {
	if op, exists := c.Get(ContextKeyOperator); exists {
		if s, ok := op.(string); ok {
			return s
		}
	}
	return ""
}
