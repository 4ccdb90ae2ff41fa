package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/listing_sub_server/internal/api/middleware"
	"github.com/qs3c/listing_sub_server/internal/model"
	"github.com/qs3c/listing_sub_server/internal/model/dto"
	"github.com/qs3c/listing_sub_server/internal/pkg/response"
	"github.com/qs3c/listing_sub_server/internal/service"
)

type ClaimHandler struct {
	claimService *service.ClaimService
}

func NewClaimHandler(claimService *service.ClaimService) *ClaimHandler {
	return &ClaimHandler{
		claimService: claimService,
	}
}

// Submit 提交付款凭证
// POST /api/v1/claims
func (h *ClaimHandler) Submit(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.SubmitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	claim, err := h.claimService.Submit(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "提交成功，等待审核", claim)
}

// ListMine 当前用户的付款凭证
// GET /api/v1/claims
func (h *ClaimHandler) ListMine(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	filter, ok := parseClaimFilter(c)
	if !ok {
		return
	}
	filter.SubjectID = &userID

	h.list(c, filter)
}

// AdminList 管理员查询凭证，可按 subject 过滤
// GET /api/v1/admin/claims
func (h *ClaimHandler) AdminList(c *gin.Context) {
	filter, ok := parseClaimFilter(c)
	if !ok {
		return
	}
	if raw := c.Query("subject_id"); raw != "" {
		subjectID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.ParamError(c, "无效的 subject_id")
			return
		}
		filter.SubjectID = &subjectID
	}

	h.list(c, filter)
}

func (h *ClaimHandler) list(c *gin.Context, filter dto.ClaimFilter) {
	claims, total, err := h.claimService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	response.SuccessPage(c, total, page, pageSize, claims)
}

// parseClaimFilter 解析 state/from/to/page/page_size
func parseClaimFilter(c *gin.Context) (dto.ClaimFilter, bool) {
	var filter dto.ClaimFilter
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if state := c.Query("state"); state != "" {
		switch s := model.ClaimState(state); s {
		case model.ClaimPending, model.ClaimVerified, model.ClaimRejected:
			filter.State = s
		default:
			response.ParamError(c, "state 必须为 pending、verified 或 rejected")
			return filter, false
		}
	}

	for _, p := range []struct {
		key string
		dst **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := c.Query(p.key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.ParamError(c, p.key+" 必须为 RFC3339 时间")
			return filter, false
		}
		t = t.UTC()
		*p.dst = &t
	}
	return filter, true
}
