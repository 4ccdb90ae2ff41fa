package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/listing_sub_server/internal/api/middleware"
	"github.com/qs3c/listing_sub_server/internal/pkg/response"
	"github.com/qs3c/listing_sub_server/internal/service"
)

type VerificationHandler struct {
	verificationService *service.VerificationService
}

func NewVerificationHandler(verificationService *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{
		verificationService: verificationService,
	}
}

// Verify 审核通过
// POST /api/v1/admin/claims/:id/verify
func (h *VerificationHandler) Verify(c *gin.Context) {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	claimID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.verificationService.Verify(c.Request.Context(), claimID, adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "审核通过", result)
}

// Reject 审核拒绝
// POST /api/v1/admin/claims/:id/reject
func (h *VerificationHandler) Reject(c *gin.Context) {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	claimID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.verificationService.Reject(c.Request.Context(), claimID, adminID); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已拒绝", nil)
}
