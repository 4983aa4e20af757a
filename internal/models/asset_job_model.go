package models

import "time"

type AssetJob struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	PostID       int64      `gorm:"index;not null" json:"post_id"`
	Prompt       string     `gorm:"type:text;not null" json:"prompt"`
	Status       string     `gorm:"size:16;index;not null" json:"status"`
	URL          *string    `gorm:"size:1024" json:"url"`
	ErrorMessage *string    `gorm:"type:text" json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

const (
	AssetStatusPending    = "PENDING"
	AssetStatusProcessing = "PROCESSING"
	AssetStatusCompleted  = "COMPLETED"
	AssetStatusFailed     = "FAILED"
	AssetStatusTimeout    = "TIMEOUT"
)

func IsTerminalAssetStatus(status string) bool {
	switch status {
	case AssetStatusCompleted, AssetStatusFailed, AssetStatusTimeout:
		return true
	}
	return false
}
