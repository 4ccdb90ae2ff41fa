package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/listing_sub_server/internal/pkg/response"
	"github.com/qs3c/listing_sub_server/internal/service"
)

type ReminderHandler struct {
	reminderService *service.ReminderService
}

func NewReminderHandler(reminderService *service.ReminderService) *ReminderHandler {
	return &ReminderHandler{
		reminderService: reminderService,
	}
}

// Sweep 手动触发一次到期提醒扫描
// POST /api/v1/admin/reminders/sweep
func (h *ReminderHandler) Sweep(c *gin.Context) {
	report, err := h.reminderService.Sweep(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, report)
}

// ListLogs 订阅的提醒记录
// GET /api/v1/admin/reminders?subscription_id=1&limit=50
func (h *ReminderHandler) ListLogs(c *gin.Context) {
	subscriptionID, err := strconv.ParseInt(c.Query("subscription_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的 subscription_id")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.reminderService.ListLogs(c.Request.Context(), subscriptionID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, logs)
}
