package model

import (
	"time"
)

const (
	RoleSubject = "subject"
	RoleAdmin   = "admin"
)

// User 账号目录，由身份系统维护，这里只读取联系方式
type User struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	DisplayName string    `gorm:"size:100;not null" json:"display_name"`
	Phone       string    `gorm:"size:20;index" json:"phone,omitempty"`
	Email       *string   `gorm:"size:100;uniqueIndex" json:"email,omitempty"`
	Role        string    `gorm:"size:20;default:subject" json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
