package model

import (
	"fmt"
	"strings"
)

// Tier 套餐等级
type Tier string

const (
	TierStarter   Tier = "starter"
	TierBasicPro  Tier = "basic_pro"
	TierPrimePlus Tier = "prime_plus"
	TierVIPElite  Tier = "vip_elite"
)

// AllTiers 按等级从低到高排列
var AllTiers = []Tier{TierStarter, TierBasicPro, TierPrimePlus, TierVIPElite}

// Rank 等级序号，-1 表示未知等级
func (t Tier) Rank() int {
	for i, tier := range AllTiers {
		if tier == t {
			return i
		}
	}
	return -1
}

func (t Tier) Valid() bool {
	return t.Rank() >= 0
}

// DisplayName 用于消息展示的名称
func (t Tier) DisplayName() string {
	switch t {
	case TierStarter:
		return "Starter"
	case TierBasicPro:
		return "Basic Pro"
	case TierPrimePlus:
		return "Prime Plus"
	case TierVIPElite:
		return "VIP Elite"
	default:
		return string(t)
	}
}

func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}

// DurationType 订阅周期
type DurationType string

const (
	DurationOneWeek  DurationType = "1_week"
	DurationTwoWeeks DurationType = "2_weeks"
	DurationOneMonth DurationType = "1_month"
)

var AllDurations = []DurationType{DurationOneWeek, DurationTwoWeeks, DurationOneMonth}

// Days 周期天数，未知周期返回 0
func (d DurationType) Days() int {
	switch d {
	case DurationOneWeek:
		return 7
	case DurationTwoWeeks:
		return 14
	case DurationOneMonth:
		return 30
	default:
		return 0
	}
}

func (d DurationType) Valid() bool {
	return d.Days() > 0
}

func ParseDuration(s string) (DurationType, error) {
	d := DurationType(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown duration type %q", s)
	}
	return d, nil
}

// ClaimState 付款凭证审核状态
type ClaimState string

const (
	ClaimPending  ClaimState = "pending"
	ClaimVerified ClaimState = "verified"
	ClaimRejected ClaimState = "rejected"
)

// ClaimPurpose 付款用途
type ClaimPurpose string

const (
	PurposeSubscription    ClaimPurpose = "subscription"
	PurposeFeaturedListing ClaimPurpose = "featured-listing"
	PurposeUpgrade         ClaimPurpose = "upgrade"
)

// ActivatesSubscription 审核通过后是否需要写入订阅
func (p ClaimPurpose) ActivatesSubscription() bool {
	return p == PurposeSubscription || p == PurposeUpgrade
}

// CurrencyContext 本地（M-Pesa）或境外（PayPal）付款
type CurrencyContext string

const (
	CurrencyLocal   CurrencyContext = "local"
	CurrencyForeign CurrencyContext = "foreign"
)

// ReminderType 到期提醒类型
type ReminderType string

const (
	ReminderThreeDays ReminderType = "3_days"
	ReminderOneDay    ReminderType = "1_day"
	ReminderExpiryDay ReminderType = "expiry_day"
)

// ReminderStatus 提醒发送结果
type ReminderStatus string

const (
	ReminderSent        ReminderStatus = "sent"
	ReminderDelivered   ReminderStatus = "delivered"
	ReminderFailed      ReminderStatus = "failed"
	ReminderUndelivered ReminderStatus = "undelivered"
)
