package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentClaim struct {
	ID                int64           `gorm:"primaryKey" json:"id"`
	SubjectID         int64           `gorm:"not null;index" json:"subject_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	CurrencyContext   CurrencyContext `gorm:"size:10;not null;default:local" json:"currency_context"`
	ExternalReference string          `gorm:"size:32;not null;index" json:"external_reference"`
	Phone             string          `gorm:"size:20" json:"phone"`
	Purpose           ClaimPurpose    `gorm:"size:20;not null" json:"purpose"`
	Tier              Tier            `gorm:"size:20" json:"tier,omitempty"`
	DurationType      DurationType    `gorm:"size:10" json:"duration_type,omitempty"`
	State             ClaimState      `gorm:"size:10;not null;default:pending;index" json:"state"`
	SubmittedAt       time.Time       `gorm:"not null;index" json:"submitted_at"`
	VerifiedAt        *time.Time      `json:"verified_at,omitempty"`
	VerifiedBy        *int64          `json:"verified_by,omitempty"`
	// PendingKey 仅在 pending 状态下有值，唯一索引保证同一用户同一用途下交易码不重复
	PendingKey *string   `gorm:"size:80;uniqueIndex" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (PaymentClaim) TableName() string {
	return "payment_claims"
}

// ClaimPendingKey 生成 pending 窗口内的唯一键
func ClaimPendingKey(subjectID int64, purpose ClaimPurpose, reference string) string {
	return fmt.Sprintf("%d:%s:%s", subjectID, purpose, reference)
}

func (c *PaymentClaim) IsPending() bool {
	return c.State == ClaimPending
}
