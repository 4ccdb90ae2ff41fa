package dto

import "github.com/shopspring/decimal"

// CreatePackageRequest 新建套餐定价
type CreatePackageRequest struct {
	Tier         string          `json:"tier" binding:"required"`
	DurationType string          `json:"duration_type" binding:"required"`
	Price        decimal.Decimal `json:"price"`
	Features     []string        `json:"features,omitempty" binding:"omitempty,max=30,dive,max=200"`
	UploadLimit  int             `json:"upload_limit" binding:"min=-1"`
	DisplayOrder int             `json:"display_order"`
	Inactive     bool            `json:"inactive,omitempty"`
}
