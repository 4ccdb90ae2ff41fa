package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/qs3c/listing_sub_server/internal/model"
	"github.com/qs3c/listing_sub_server/internal/model/dto"
)

const day = 24 * time.Hour

// RemainingDays 按 endAt 计算的剩余天数，向上取整并限制在 [0, 周期天数]；不看启用标记
func RemainingDays(sub *model.Subscription, now time.Time) int {
	left := sub.EndAt.Sub(now)
	if left <= 0 {
		return 0
	}
	days := int((left + day - 1) / day)
	if max := sub.DurationType.Days(); days > max {
		days = max
	}
	return days
}

// ComputeUpgradeCost 用当前套餐未用天数抵扣目标套餐价格；抵扣只减价，不延长时长
func ComputeUpgradeCost(sub *model.Subscription, currentTierPrice, targetTierPrice decimal.Decimal, now time.Time) dto.UpgradeQuote {
	quote := dto.UpgradeQuote{
		CurrentTier:  sub.Tier,
		DurationType: sub.DurationType,
		DailyRate:    decimal.Zero,
		CreditAmount: decimal.Zero,
		TargetPrice:  targetTierPrice,
		UpgradeCost:  targetTierPrice,
	}

	periodDays := sub.DurationType.Days()
	if periodDays == 0 {
		return quote
	}
	period := decimal.NewFromInt(int64(periodDays))

	quote.RemainingDays = RemainingDays(sub, now)
	quote.DailyRate = currentTierPrice.DivRound(period, 2)
	// 先乘后除，避免日费率取整误差被放大
	quote.CreditAmount = currentTierPrice.Mul(decimal.NewFromInt(int64(quote.RemainingDays))).Div(period).Round(2)

	cost := targetTierPrice.Sub(quote.CreditAmount)
	if cost.IsNegative() {
		cost = decimal.Zero
	}
	quote.UpgradeCost = cost
	return quote
}
