package transfer

type ScheduleUpdate struct {
	IsActive    bool     `json:"is_active"`
	Frequency   string   `json:"frequency"`
	ActiveDays  []string `json:"active_days"`
	PostsPerDay int      `json:"posts_per_day"`
	TargetTimes []string `json:"target_times"`
}
