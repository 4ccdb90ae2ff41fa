package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/listing_sub_server/config"
	"github.com/qs3c/listing_sub_server/internal/model"
	"github.com/qs3c/listing_sub_server/internal/pkg/jwt"
	"github.com/qs3c/listing_sub_server/internal/pkg/response"
)

const (
	UserIDKey = "userID"
	RoleKey   = "role"
)

// bearerToken 取出 Authorization: Bearer <token>，格式不对返回提示文案
func bearerToken(c *gin.Context) (string, string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", "请提供认证信息"
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != "Bearer" || token == "" {
		return "", "认证格式错误"
	}
	return token, ""
}

// Auth 校验身份系统签发的令牌，写入 subject ID 和角色
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, problem := bearerToken(c)
		if problem == "" {
			claims, err := jwt.ParseToken(token, jwtSecret)
			if err == nil {
				c.Set(UserIDKey, claims.UserID)
				c.Set(RoleKey, claims.Role)
				c.Next()
				return
			}
			problem = "认证失败或已过期"
		}
		response.AuthError(c, problem)
		c.Abort()
	}
}

// AdminOnly 需放在 Auth 之后；令牌角色为 admin 或在管理员白名单内
func AdminOnly(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		if GetRole(c) != model.RoleAdmin && !cfg.IsAdminID(userID) {
			response.PermissionError(c, "需要管理员权限")
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok
}

// GetRole 从上下文获取角色，未设置时返回空串
func GetRole(c *gin.Context) string {
	return c.GetString(RoleKey)
}
