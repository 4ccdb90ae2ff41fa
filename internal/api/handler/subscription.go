package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/listing_sub_server/internal/api/middleware"
	"github.com/qs3c/listing_sub_server/internal/model/dto"
	"github.com/qs3c/listing_sub_server/internal/pkg/response"
	"github.com/qs3c/listing_sub_server/internal/service"
)

type SubscriptionHandler struct {
	ledgerService *service.LedgerService
}

func NewSubscriptionHandler(ledgerService *service.LedgerService) *SubscriptionHandler {
	return &SubscriptionHandler{
		ledgerService: ledgerService,
	}
}

// Status 当前用户订阅状态
// GET /api/v1/subscription
func (h *SubscriptionHandler) Status(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	status, err := h.ledgerService.Status(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, status)
}

// UpgradeQuote 升级报价
// GET /api/v1/subscription/upgrade-quote?tier=vip_elite
func (h *SubscriptionHandler) UpgradeQuote(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	quote, err := h.ledgerService.QuoteUpgrade(c.Request.Context(), userID, c.Query("tier"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, quote)
}

// AdminUpsert 管理员手动设置订阅
// PUT /api/v1/admin/subscriptions/:subject_id
func (h *SubscriptionHandler) AdminUpsert(c *gin.Context) {
	subjectID, ok := parseIDParam(c, "subject_id")
	if !ok {
		return
	}

	var req dto.AdminSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	sub, err := h.ledgerService.AdminEdit(c.Request.Context(), subjectID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "订阅已更新", sub)
}

// SetActive 管理员启用/停用订阅
// PUT /api/v1/admin/subscriptions/:subject_id/active
func (h *SubscriptionHandler) SetActive(c *gin.Context) {
	subjectID, ok := parseIDParam(c, "subject_id")
	if !ok {
		return
	}

	var req dto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.ledgerService.SetActiveFlag(c.Request.Context(), subjectID, *req.Active); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "状态已更新", gin.H{"subject_id": subjectID, "is_active": *req.Active})
}
