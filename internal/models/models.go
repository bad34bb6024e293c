package models

import (
	"time"
)

type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"               json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"                   json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"                   json:"email"`
	PasswordHash string    `gorm:"column:password;not null"               json:"-"`
	Role         int16     `gorm:"not null;default:1"                     json:"role"`
	CreatedAt    time.Time `gorm:"not null"                               json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null"                               json:"updated_at"`
}

// RefreshToken rows are created and deleted, never updated. The unique
// index on user_id keeps at most one row per user.
type RefreshToken struct {
	Token     string    `gorm:"primaryKey"                             json:"token"`
	UserID    int64     `gorm:"uniqueIndex;not null"                   json:"user_id"`
	CreatedAt time.Time `gorm:"not null"                               json:"created_at"`
	User      *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func All() []any {
	return []any{&User{}, &RefreshToken{}}
}
