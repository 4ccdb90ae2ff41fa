package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/qs3c/listing_sub_server/internal/model"
)

// SubmitClaimRequest 提交付款凭证请求，校验规则见 service.ClaimService
type SubmitClaimRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	CurrencyContext   string          `json:"currency_context" validate:"omitempty,oneof=local foreign"`
	ExternalReference string          `json:"external_reference" validate:"required,txref"`
	Phone             string          `json:"phone" validate:"required,ke_phone"`
	Purpose           string          `json:"purpose" validate:"required,oneof=subscription featured-listing upgrade"`
	Tier              string          `json:"tier,omitempty"`
	DurationType      string          `json:"duration_type,omitempty"`
}

// ClaimFilter 付款凭证查询条件
type ClaimFilter struct {
	SubjectID *int64
	State     model.ClaimState
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// VerificationResult 审核通过的结果
type VerificationResult struct {
	Claim        *model.PaymentClaim `json:"claim"`
	Subscription *model.Subscription `json:"subscription,omitempty"`
}
