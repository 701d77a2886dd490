package models

import (
	"time"
)

const (
	RoleUser   = "user"
	RoleDriver = "driver"
	RoleAdmin  = "admin"
)

type User struct {
	ID        uint      `json:"id" gorm:"primaryKey;column:id;autoIncrement"`
	FirstName string    `json:"firstName" gorm:"column:first_name;not null;type:varchar(255)"`
	LastName  string    `json:"lastName" gorm:"column:last_name;not null;type:varchar(255)"`
	Phone     string    `json:"phone" gorm:"column:phone;unique;not null;type:varchar(20)"`
	Role      string    `json:"role" gorm:"column:role;default:'user';type:varchar(20)"`
	FCMToken  string    `json:"fcmToken" gorm:"column:fcm_token;type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime;type:timestamp with time zone"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime;type:timestamp with time zone"`
}
