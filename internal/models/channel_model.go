package models

import "time"

// Channel is a publishing destination owned by an account. Its generation
// settings drive the cost and shape of every scheduled run.
type Channel struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	OwnerID        int64     `gorm:"index;not null" json:"owner_id"`
	PlatformType   string    `gorm:"size:32;not null" json:"platform_type"`
	Alias          string    `gorm:"size:255" json:"alias"`
	BlogURL        string    `gorm:"size:512" json:"blog_url"`
	ExternalID     string    `gorm:"size:255" json:"external_id"`
	CredentialData string    `gorm:"type:text" json:"-"`
	Persona        string    `gorm:"size:255" json:"persona"`
	DefaultTopic   string    `gorm:"size:255" json:"default_topic"`
	CustomPrompt   string    `gorm:"type:text" json:"custom_prompt"`
	PostLength     string    `gorm:"size:16" json:"post_length"`
	ImageCount     int       `gorm:"not null;default:0" json:"image_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const (
	PlatformBlogger = "blogger"
	PlatformTistory = "tistory"
	PlatformInblog  = "inblog"
	PlatformNaver   = "naver"
)

const (
	LengthShort  = "SHORT"
	LengthMedium = "MEDIUM"
	LengthLong   = "LONG"
)

// LengthRange returns the target word range for a length tier.
func LengthRange(length string) (int, int) {
	switch length {
	case LengthShort:
		return 800, 1200
	case LengthLong:
		return 2500, 3500
	default:
		return 1500, 2000
	}
}
