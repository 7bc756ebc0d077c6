package model

import "time"

// User represents a registered account. Accounts start unconfirmed and must
// verify an emailed code before they can sign in.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"size:100;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	Confirmed    bool      `json:"confirmed" gorm:"default:false"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName keeps the table name explicit rather than relying on pluralization.
func (User) TableName() string {
	return "users"
}
