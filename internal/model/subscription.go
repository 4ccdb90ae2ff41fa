package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription 每个 subject 仅一行，续费/升级时整行覆盖
type Subscription struct {
	ID                    int64           `gorm:"primaryKey" json:"id"`
	SubjectID             int64           `gorm:"not null;uniqueIndex" json:"subject_id"`
	Tier                  Tier            `gorm:"size:20;not null" json:"tier"`
	DurationType          DurationType    `gorm:"size:10;not null" json:"duration_type"`
	StartAt               time.Time       `gorm:"not null" json:"start_at"`
	EndAt                 time.Time       `gorm:"not null;index" json:"end_at"`
	IsActive              bool            `gorm:"not null;index" json:"is_active"`
	AmountPaid            decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount_paid"`
	FundingPaymentClaimID *int64          `json:"funding_payment_claim_id,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// EntitledAt 是否在 now 时刻有效：管理员未停用且未过期
func (s *Subscription) EntitledAt(now time.Time) bool {
	return s != nil && s.IsActive && now.Before(s.EndAt)
}

// PeriodEnd 根据开始时间和周期计算结束时间
func PeriodEnd(start time.Time, duration DurationType) time.Time {
	return start.Add(time.Duration(duration.Days()) * 24 * time.Hour)
}
