package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// UnlimitedUploads 表示不限上传数量
const UnlimitedUploads = -1

type TierPackage struct {
	ID           int64                       `gorm:"primaryKey" json:"id"`
	TierName     Tier                        `gorm:"size:20;not null;index:idx_tier_duration" json:"tier_name"`
	DurationType DurationType                `gorm:"size:10;not null;index:idx_tier_duration" json:"duration_type"`
	Price        decimal.Decimal             `gorm:"type:decimal(12,2);not null" json:"price"`
	Features     datatypes.JSONSlice[string] `json:"features"`
	UploadLimit  int                         `gorm:"not null;default:0" json:"upload_limit"`
	IsActive     bool                        `gorm:"index" json:"is_active"`
	DisplayOrder int                         `gorm:"default:0" json:"display_order"`
	// CanonicalKey 仅启用中的套餐有值，保证 (tier, duration) 只有一条定价
	CanonicalKey *string   `gorm:"size:40;uniqueIndex" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (TierPackage) TableName() string {
	return "tier_packages"
}

func PackageCanonicalKey(tier Tier, duration DurationType) string {
	return string(tier) + ":" + string(duration)
}

func (p *TierPackage) Unlimited() bool {
	return p.UploadLimit == UnlimitedUploads
}
