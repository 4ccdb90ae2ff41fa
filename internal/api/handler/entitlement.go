package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/listing_sub_server/internal/api/middleware"
	"github.com/qs3c/listing_sub_server/internal/pkg/response"
	"github.com/qs3c/listing_sub_server/internal/service"
)

type EntitlementHandler struct {
	entitlementService *service.EntitlementService
}

func NewEntitlementHandler(entitlementService *service.EntitlementService) *EntitlementHandler {
	return &EntitlementHandler{
		entitlementService: entitlementService,
	}
}

// Mine 当前用户的上传额度
// GET /api/v1/entitlement?media_count=3
func (h *EntitlementHandler) Mine(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	h.respond(c, userID)
}

// ForSubject 管理员查询指定用户额度
// GET /api/v1/admin/subjects/:subject_id/entitlement?media_count=3
func (h *EntitlementHandler) ForSubject(c *gin.Context) {
	subjectID, ok := parseIDParam(c, "subject_id")
	if !ok {
		return
	}
	h.respond(c, subjectID)
}

func (h *EntitlementHandler) respond(c *gin.Context, subjectID int64) {
	count, err := strconv.Atoi(c.DefaultQuery("media_count", "0"))
	if err != nil {
		response.ParamError(c, "media_count 必须为整数")
		return
	}

	info, err := h.entitlementService.ForSubject(c.Request.Context(), subjectID, count)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, info)
}

// Authorize 上传授权，额度检查由 UploadGate 完成
// POST /api/v1/uploads/authorize
func (h *EntitlementHandler) Authorize(c *gin.Context) {
	info, ok := middleware.GetEntitlement(c)
	if !ok {
		response.ServerError(c, "")
		return
	}
	response.SuccessWithMessage(c, "允许上传", info)
}
