package models

import (
	"time"

	"gorm.io/datatypes"
)

type Post struct {
	ID                 int64                                      `gorm:"primaryKey" json:"id"`
	RunID              string                                     `gorm:"size:26;index" json:"run_id"`
	OwnerID            int64                                      `gorm:"index;not null" json:"owner_id"`
	ChannelID          int64                                      `gorm:"index;not null" json:"channel_id"`
	Topic              string                                     `gorm:"size:255" json:"topic"`
	Title              string                                     `gorm:"size:512" json:"title"`
	Content            string                                     `gorm:"type:text" json:"content"`
	MetaDescription    string                                     `gorm:"type:text" json:"meta_description"`
	MetaKeywords       datatypes.JSONSlice[string]                `json:"meta_keywords"`
	Status             string                                     `gorm:"size:20;index;not null" json:"status"`
	RunState           string                                     `gorm:"size:20" json:"run_state"`
	FailureReason      string                                     `gorm:"type:text" json:"failure_reason,omitempty"`
	PublishedURL       string                                     `gorm:"size:1024" json:"published_url,omitempty"`
	SeoScore           int                                        `json:"seo_score"`
	SeoRetries         int                                        `json:"seo_retries"`
	Cost               int                                        `json:"cost"`
	ExpectedImageCount int                                        `json:"expected_image_count"`
	ImageGenStatus     string                                     `gorm:"size:20" json:"image_gen_status"`
	ImagePaths         datatypes.JSONSlice[string]                `json:"image_paths"`
	TrackingStatus     string                                     `gorm:"size:20;index" json:"tracking_status"`
	KeywordRanks       datatypes.JSONType[map[string]KeywordRank] `json:"keyword_ranks"`
	CreatedAt          time.Time                                  `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time                                  `json:"updated_at"`
}

type KeywordRank struct {
	Rank      int       `json:"rank"`
	Change    int       `json:"change"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	PostStatusDraft         = "DRAFT"
	PostStatusPublished     = "PUBLISHED"
	PostStatusPublishFailed = "PUBLISH_FAILED"
)

const (
	ImageGenProcessing = "PROCESSING"
	ImageGenCompleted  = "COMPLETED"
	ImageGenFailed     = "FAILED"
	ImageGenTimeout    = "TIMEOUT"
)

const (
	TrackingPending   = "PENDING"
	TrackingRunning   = "TRACKING"
	TrackingCompleted = "COMPLETED"
)

// Pipeline run states recorded on the post.
const (
	RunStateTopicSelect = "TOPIC_SELECT"
	RunStateDrafting    = "DRAFTING"
	RunStateReview      = "REVIEW_PASS1"
	RunStateSeoGate     = "SEO_GATE"
	RunStateAssetWait   = "ASSET_WAIT"
	RunStatePublish     = "PUBLISH"
	RunStateTrack       = "TRACK"
	RunStateDone        = "DONE"
	RunStateFailed      = "FAILED"
)

// AppendImage adds url to ImagePaths unless already present.
func (p *Post) AppendImage(url string) bool {
	for _, existing := range p.ImagePaths {
		if existing == url {
			return false
		}
	}
	p.ImagePaths = append(p.ImagePaths, url)
	return true
}

func (p *Post) ImagesComplete() bool {
	return len(p.ImagePaths) >= p.ExpectedImageCount
}

// RefreshImageStatus keeps ImageGenStatus COMPLETED exactly when the
// expected image count has been reached. A recorded failure stays until
// the set completes.
func (p *Post) RefreshImageStatus() {
	switch {
	case p.ImagesComplete():
		p.ImageGenStatus = ImageGenCompleted
	case p.ImageGenStatus == ImageGenFailed || p.ImageGenStatus == ImageGenTimeout:
	default:
		p.ImageGenStatus = ImageGenProcessing
	}
}

func (p *Post) Ranks() map[string]KeywordRank {
	ranks := p.KeywordRanks.Data()
	if ranks == nil {
		return map[string]KeywordRank{}
	}
	return ranks
}
