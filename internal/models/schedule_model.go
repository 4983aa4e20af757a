package models

import (
	"time"

	"gorm.io/datatypes"
)

type ScheduleConfig struct {
	ID          int64                       `gorm:"primaryKey" json:"id"`
	OwnerID     int64                       `gorm:"uniqueIndex;not null" json:"owner_id"`
	IsActive    bool                        `gorm:"index" json:"is_active"`
	Frequency   string                      `gorm:"size:10;not null" json:"frequency"`
	ActiveDays  datatypes.JSONSlice[string] `json:"active_days"`
	PostsPerDay int                         `json:"posts_per_day"`
	TargetTimes datatypes.JSONSlice[string] `json:"target_times"`
	LastRunAt   *time.Time                  `json:"last_run_at"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

const (
	FrequencyDaily  = "DAILY"
	FrequencyWeekly = "WEEKLY"
)

var DayTokens = []string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

func DayToken(t time.Time) string {
	return DayTokens[t.Weekday()]
}
