package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/listing_sub_server/config"
)

var (
	defaultCORSMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	// 上传网关需要跨域读取媒体数量头
	defaultCORSHeaders = []string{"Content-Type", "Authorization", MediaCountHeader}
)

// CORS 跨域中间件，未配置方法或请求头时使用默认值
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		allowed[origin] = struct{}{}
	}
	methods := strings.Join(orDefault(cfg.AllowedMethods, defaultCORSMethods), ", ")
	headers := strings.Join(orDefault(cfg.AllowedHeaders, defaultCORSHeaders), ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := allowed[origin]; ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}
