package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/qs3c/listing_sub_server/internal/model"
)

// UpsertSubscriptionInput 写入订阅的完整字段，EndAt 为空时按周期计算
type UpsertSubscriptionInput struct {
	SubjectID      int64
	Tier           model.Tier
	DurationType   model.DurationType
	StartAt        time.Time
	EndAt          *time.Time
	AmountPaid     decimal.Decimal
	FundingClaimID *int64
}

// AdminSubscriptionRequest 管理员手动编辑订阅
type AdminSubscriptionRequest struct {
	Tier         string          `json:"tier" binding:"required"`
	DurationType string          `json:"duration_type" binding:"required"`
	StartAt      *time.Time      `json:"start_at,omitempty"`
	AmountPaid   decimal.Decimal `json:"amount_paid"`
}

// SetActiveRequest 管理员启用/停用订阅
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SubscriptionStatus 订阅当前状态
type SubscriptionStatus struct {
	SubjectID     int64               `json:"subject_id"`
	Subscription  *model.Subscription `json:"subscription"`
	Entitled      bool                `json:"entitled"`
	Expired       bool                `json:"expired"`
	RemainingDays int                 `json:"remaining_days"`
}

// UpgradeQuote 升级报价：剩余天数只抵扣价格，不顺延时长
type UpgradeQuote struct {
	CurrentTier   model.Tier         `json:"current_tier"`
	TargetTier    model.Tier         `json:"target_tier"`
	DurationType  model.DurationType `json:"duration_type"`
	RemainingDays int                `json:"remaining_days"`
	DailyRate     decimal.Decimal    `json:"daily_rate"`
	CreditAmount  decimal.Decimal    `json:"credit_amount"`
	TargetPrice   decimal.Decimal    `json:"target_price"`
	UpgradeCost   decimal.Decimal    `json:"upgrade_cost"`
}

// EntitlementInfo 权益查询结果
type EntitlementInfo struct {
	SubjectID        int64              `json:"subject_id"`
	Tier             model.Tier         `json:"tier,omitempty"`
	DurationType     model.DurationType `json:"duration_type,omitempty"`
	Entitled         bool               `json:"entitled"`
	EndAt            *time.Time         `json:"end_at,omitempty"`
	MediaCount       int                `json:"media_count"`
	UploadLimit      int                `json:"upload_limit"`
	Unlimited        bool               `json:"unlimited"`
	RemainingUploads int                `json:"remaining_uploads"`
	CanUpload        bool               `json:"can_upload"`
}
