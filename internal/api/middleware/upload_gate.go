package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/listing_sub_server/internal/model/dto"
	"github.com/qs3c/listing_sub_server/internal/pkg/response"
	"github.com/qs3c/listing_sub_server/internal/service"
)

const (
	// MediaCountHeader 上游上传服务传入当前媒体数量
	MediaCountHeader = "X-Media-Count"
	EntitlementKey   = "entitlement"
)

// UploadGate 上传前检查套餐额度，不足时拒绝
func UploadGate(entitlement *service.EntitlementService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		raw := c.GetHeader(MediaCountHeader)
		if raw == "" {
			raw = c.Query("media_count")
		}
		count, err := strconv.Atoi(raw)
		if err != nil || count < 0 {
			response.ParamError(c, "media_count 必须为非负整数")
			c.Abort()
			return
		}

		info, err := entitlement.ForSubject(c.Request.Context(), userID, count)
		if err != nil {
			response.ServerError(c, "额度检查失败")
			c.Abort()
			return
		}

		if !info.CanUpload {
			response.QuotaError(c, "媒体数量已达套餐上限")
			c.Abort()
			return
		}

		c.Set(EntitlementKey, info)
		c.Next()
	}
}

// GetEntitlement 读取 UploadGate 写入的额度信息
func GetEntitlement(c *gin.Context) (*dto.EntitlementInfo, bool) {
	v, exists := c.Get(EntitlementKey)
	if !exists {
		return nil, false
	}
	info, ok := v.(*dto.EntitlementInfo)
	return info, ok
}
