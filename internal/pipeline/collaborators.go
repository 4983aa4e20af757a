package pipeline

import (
	"context"

	"github.com/maheshrc27/autopost/internal/content"
	"github.com/maheshrc27/autopost/internal/models"
)

type AccountProfile struct {
	OwnerID      int64
	Persona      string
	DefaultTopic string
	BlogURL      string
}

type KnowledgeProvider interface {
	GetTopic(ctx context.Context, profile AccountProfile) (content.TopicCandidate, error)
}

type ContentGenerator interface {
	Draft(ctx context.Context, req content.DraftRequest) (content.Draft, error)
	Rewrite(ctx context.Context, draft content.Draft, feedback string) (content.Draft, error)
}

type QualityAnalyzer interface {
	Analyze(ctx context.Context, draft content.Draft, topic, platform string) (content.QualityReport, error)
}

type Publisher interface {
	Publish(ctx context.Context, channel *models.Channel, rendered content.Rendered) (content.PublishResult, error)
}

type RankLookup interface {
	Rank(ctx context.Context, keyword, publishedURL string) (content.RankResult, error)
}

type Notifier interface {
	RunFinished(ctx context.Context, event content.RunEvent) error
}
