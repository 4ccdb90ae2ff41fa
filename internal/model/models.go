package model

// All 需要建表的模型，供 AutoMigrate 使用
func All() []interface{} {
	return []interface{}{
		&User{},
		&TierPackage{},
		&PaymentClaim{},
		&Subscription{},
		&ReminderLog{},
	}
}
