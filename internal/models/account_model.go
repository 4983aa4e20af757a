package models

import "time"

type Account struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	Email      string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name       string    `gorm:"size:255" json:"name"`
	Credit     int       `gorm:"not null;default:0" json:"credit"`
	ReferrerID *int64    `json:"referrer_id,omitempty"`
	IsAdmin    bool      `json:"is_admin"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
