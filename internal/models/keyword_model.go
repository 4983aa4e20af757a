package models

import "time"

type Keyword struct {
	ID        int64      `gorm:"primaryKey" json:"id"`
	OwnerID   int64      `gorm:"not null;uniqueIndex:idx_keywords_owner_text" json:"owner_id"`
	Text      string     `gorm:"size:255;not null;uniqueIndex:idx_keywords_owner_text" json:"text"`
	Priority  int        `gorm:"not null;default:0" json:"priority"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
}
