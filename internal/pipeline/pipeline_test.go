package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maheshrc27/autopost/internal/content"
	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/internal/repository"
	"github.com/maheshrc27/autopost/internal/service"
	"github.com/maheshrc27/autopost/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fakeGenerator struct {
	DraftFunc   func(ctx context.Context, req content.DraftRequest) (content.Draft, error)
	RewriteFunc func(ctx context.Context, draft content.Draft, feedback string) (content.Draft, error)
	rewrites    atomic.Int32
}

func (g *fakeGenerator) Draft(ctx context.Context, req content.DraftRequest) (content.Draft, error) {
	return g.DraftFunc(ctx, req)
}

func (g *fakeGenerator) Rewrite(ctx context.Context, draft content.Draft, feedback string) (content.Draft, error) {
	g.rewrites.Add(1)
	if g.RewriteFunc != nil {
		return g.RewriteFunc(ctx, draft, feedback)
	}
	draft.Body += "\n<p>" + feedback + "</p>"
	return draft, nil
}

type fakeAnalyzer struct {
	pass  bool
	err   error
	calls atomic.Int32
}

func (a *fakeAnalyzer) Analyze(context.Context, content.Draft, string, string) (content.QualityReport, error) {
	a.calls.Add(1)
	if a.err != nil {
		return content.QualityReport{}, a.err
	}
	if a.pass {
		return content.QualityReport{Score: 90, Pass: true}, nil
	}
	return content.QualityReport{Score: 40, Feedback: "add more detail"}, nil
}

type fakePublisher struct {
	result content.PublishResult
	err    error
	calls  int
	last   content.Rendered
}

func (p *fakePublisher) Publish(_ context.Context, _ *models.Channel, rendered content.Rendered) (content.PublishResult, error) {
	p.calls++
	p.last = rendered
	return p.result, p.err
}

type fakeRanks struct {
	rank   int
	err    error
	calls  int
	lookup func()
}

func (r *fakeRanks) Rank(context.Context, string, string) (content.RankResult, error) {
	r.calls++
	if r.lookup != nil {
		r.lookup()
	}
	if r.err != nil {
		return content.RankResult{Rank: content.RankError, Status: "error"}, r.err
	}
	return content.RankResult{Rank: r.rank, Status: "found"}, nil
}

type fakeKnowledge struct {
	candidate content.TopicCandidate
	err       error
	profile   AccountProfile
}

func (k *fakeKnowledge) GetTopic(_ context.Context, profile AccountProfile) (content.TopicCandidate, error) {
	k.profile = profile
	return k.candidate, k.err
}

type recordingNotifier struct {
	events []content.RunEvent
}

func (n *recordingNotifier) RunFinished(_ context.Context, e content.RunEvent) error {
	n.events = append(n.events, e)
	return nil
}

type rendererFunc func(ctx context.Context, prompt string) ([]byte, error)

func (f rendererFunc) Render(ctx context.Context, prompt string) ([]byte, error) {
	return f(ctx, prompt)
}

type counterStore struct {
	n atomic.Int64
}

func (s *counterStore) Save(context.Context, []byte) (string, error) {
	return fmt.Sprintf("https://cdn.test/img-%d.png", s.n.Add(1)), nil
}

func (s *counterStore) Delete(context.Context, string) error { return nil }

// goDispatcher runs each job on its own goroutine, like a queue worker.
type goDispatcher struct {
	assets service.AssetService
	wg     sync.WaitGroup
}

func (d *goDispatcher) Dispatch(_ context.Context, ids []int64) error {
	for _, id := range ids {
		d.wg.Add(1)
		go func(id int64) {
			defer d.wg.Done()
			_ = d.assets.RunWorker(context.Background(), id)
		}(id)
	}
	return nil
}

type fixture struct {
	db        *gorm.DB
	account   *models.Account
	channel   *models.Channel
	posts     repository.PostRepository
	keywords  service.KeywordService
	credits   service.CreditService
	generator *fakeGenerator
	analyzer  *fakeAnalyzer
	publisher *fakePublisher
	ranks     *fakeRanks
	notifier  *recordingNotifier
	knowledge KnowledgeProvider
	render    rendererFunc
	policy    Policy
}

func newFixture(t *testing.T, images int) *fixture {
	db := testutil.NewDB(t)
	account := testutil.CreateAccount(t, db, "pipeline@example.com", 100)
	channel := testutil.CreateChannel(t, db, account.ID, models.PlatformBlogger, models.LengthMedium, images)

	policy := DefaultPolicy()
	policy.AssetPollInterval = 10 * time.Millisecond
	policy.AssetMaxAttempts = 200

	return &fixture{
		db:       db,
		account:  account,
		channel:  channel,
		posts:    repository.NewPostRepository(db),
		keywords: service.NewKeywordService(db, repository.NewKeywordRepository(db)),
		credits:  service.NewCreditService(db, repository.NewAccountRepository(db), repository.NewCreditLedgerRepository(db)),
		generator: &fakeGenerator{DraftFunc: func(_ context.Context, req content.DraftRequest) (content.Draft, error) {
			prompts := make([]string, req.ImageCount)
			for i := range prompts {
				prompts[i] = fmt.Sprintf("%s scene %d", req.Topic, i+1)
			}
			return content.Draft{
				Title:        req.Topic + " guide",
				Body:         "<p>Everything about " + req.Topic + "</p><script>alert(1)</script>",
				ImagePrompts: prompts,
				MetaKeywords: []string{req.Topic},
			}, nil
		}},
		analyzer:  &fakeAnalyzer{pass: true},
		publisher: &fakePublisher{result: content.PublishResult{Status: content.PublishStatusPublished, URL: "https://blog.example.com/p/1"}},
		ranks:     &fakeRanks{rank: 3},
		notifier:  &recordingNotifier{},
		render: func(_ context.Context, prompt string) ([]byte, error) {
			return []byte(prompt), nil
		},
		policy: policy,
	}
}

// start builds the pipeline and a post in the state a run begins with.
func (f *fixture) start(t *testing.T) (*Pipeline, *models.Post, *goDispatcher) {
	t.Helper()
	assets := service.NewAssetService(f.db, repository.NewAssetJobRepository(f.db), f.posts, f.render, &counterStore{})
	dispatcher := &goDispatcher{assets: assets}
	assets.SetDispatcher(dispatcher)

	p := New(Deps{
		Posts:     f.posts,
		Channels:  repository.NewChannelRepository(f.db),
		Keywords:  f.keywords,
		Assets:    assets,
		Credits:   f.credits,
		Generator: f.generator,
		Analyzer:  f.analyzer,
		Publisher: f.publisher,
		Ranks:     f.ranks,
		Notifier:  f.notifier,
		Knowledge: f.knowledge,
	}, f.policy, "daily life")

	post := &models.Post{
		RunID:              "01JTESTRUN",
		OwnerID:            f.account.ID,
		ChannelID:          f.channel.ID,
		Status:             models.PostStatusDraft,
		RunState:           models.RunStateTopicSelect,
		Cost:               30,
		ExpectedImageCount: f.channel.ImageCount,
		ImageGenStatus:     models.ImageGenProcessing,
		ImagePaths:         datatypes.JSONSlice[string]{},
		MetaKeywords:       datatypes.JSONSlice[string]{},
		TrackingStatus:     models.TrackingPending,
		KeywordRanks:       datatypes.NewJSONType(map[string]models.KeywordRank{}),
	}
	post.RefreshImageStatus()
	_, err := f.posts.Create(context.Background(), nil, post)
	require.NoError(t, err)
	return p, post, dispatcher
}

func (f *fixture) keywordUsed(t *testing.T, text string) bool {
	t.Helper()
	var kw models.Keyword
	require.NoError(t, f.db.Where("owner_id = ? AND text = ?", f.account.ID, text).First(&kw).Error)
	return kw.UsedAt != nil
}

func TestRun_PublishesAndTracks(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	_, err := f.keywords.BulkRegister(ctx, f.account.ID, []string{"AI"})
	require.NoError(t, err)

	p, post, dispatcher := f.start(t)
	got := p.Run(ctx, post)
	dispatcher.wg.Wait()

	assert.Equal(t, models.PostStatusPublished, got.Status)
	assert.Equal(t, models.RunStateDone, got.RunState)
	assert.Equal(t, "AI", got.Topic)
	assert.Equal(t, "https://blog.example.com/p/1", got.PublishedURL)
	assert.Equal(t, models.ImageGenCompleted, got.ImageGenStatus)
	assert.Len(t, got.ImagePaths, 2)
	assert.NotContains(t, got.Content, "<script")
	assert.NotContains(t, f.publisher.last.HTML, "<script")
	assert.Len(t, f.publisher.last.ImageURLs, 2)

	assert.Equal(t, models.TrackingCompleted, got.TrackingStatus)
	assert.Equal(t, 3, got.Ranks()["AI"].Rank)
	assert.Equal(t, 0, got.Ranks()["AI"].Change)

	assert.True(t, f.keywordUsed(t, "AI"))
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, models.PostStatusPublished, f.notifier.events[0].Status)
	assert.Equal(t, "01JTESTRUN", f.notifier.events[0].RunID)
}

func TestRun_RewritesAreBounded(t *testing.T) {
	f := newFixture(t, 0)
	f.analyzer.pass = false
	f.policy.PublishOnFailedGate = false
	ctx := context.Background()
	_, err := f.keywords.BulkRegister(ctx, f.account.ID, []string{"SEO"})
	require.NoError(t, err)

	p, post, _ := f.start(t)
	got := p.Run(ctx, post)

	assert.Equal(t, int32(2), f.generator.rewrites.Load())
	assert.Equal(t, int32(3), f.analyzer.calls.Load())
	assert.Equal(t, 2, got.SeoRetries)
	assert.Equal(t, 40, got.SeoScore)
	assert.Equal(t, models.PostStatusPublishFailed, got.Status)
	assert.Equal(t, 0, f.publisher.calls)
	assert.True(t, f.keywordUsed(t, "SEO"))
}

func TestRun_RewriteLimitIsCapped(t *testing.T) {
	f := newFixture(t, 0)
	f.analyzer.pass = false
	f.policy.MaxRewrites = 5

	p, post, _ := f.start(t)
	got := p.Run(context.Background(), post)

	assert.Equal(t, 2, p.Policy().MaxRewrites)
	assert.Equal(t, int32(2), f.generator.rewrites.Load())
	assert.Equal(t, int32(3), f.analyzer.calls.Load())
	assert.Equal(t, 2, got.SeoRetries)
}

func TestNew_NegativeRewriteLimit(t *testing.T) {
	p := New(Deps{}, Policy{MaxRewrites: -1}, "")
	assert.Equal(t, 0, p.Policy().MaxRewrites)
}

func TestRun_FailedGatePublishesWhenAllowed(t *testing.T) {
	f := newFixture(t, 0)
	f.analyzer.pass = false

	p, post, _ := f.start(t)
	got := p.Run(context.Background(), post)

	assert.Equal(t, int32(2), f.generator.rewrites.Load())
	assert.Equal(t, 1, f.publisher.calls)
	assert.Equal(t, models.PostStatusPublished, got.Status)
}

func TestRun_AnalyzerErrorSkipsGate(t *testing.T) {
	f := newFixture(t, 0)
	f.analyzer.err = errors.New("analyzer down")

	p, post, _ := f.start(t)
	got := p.Run(context.Background(), post)

	assert.Equal(t, int32(0), f.generator.rewrites.Load())
	assert.Equal(t, models.PostStatusPublished, got.Status)
}

func TestRun_AssetTimeout(t *testing.T) {
	f := newFixture(t, 3)
	f.policy.AssetMaxAttempts = 5

	release := make(chan struct{})
	var calls atomic.Int32
	f.render = func(ctx context.Context, prompt string) ([]byte, error) {
		if calls.Add(1) == 3 {
			<-release
			return nil, errors.New("released")
		}
		return []byte(prompt), nil
	}

	p, post, dispatcher := f.start(t)
	t.Cleanup(func() {
		close(release)
		dispatcher.wg.Wait()
	})

	got := p.Run(context.Background(), post)

	assert.Equal(t, models.PostStatusPublishFailed, got.Status)
	assert.Equal(t, models.ImageGenTimeout, got.ImageGenStatus)
	assert.Equal(t, models.RunStateDone, got.RunState)
	assert.Equal(t, "asset generation timed out", got.FailureReason)
	assert.Equal(t, 0, f.publisher.calls)
}

func TestRun_PartialAssetsPolicy(t *testing.T) {
	failSecond := func(f *fixture) {
		f.render = func(_ context.Context, prompt string) ([]byte, error) {
			if strings.Contains(prompt, "scene 2") {
				return nil, errors.New("renderer rejected prompt")
			}
			return []byte(prompt), nil
		}
	}

	t.Run("blocked", func(t *testing.T) {
		f := newFixture(t, 2)
		failSecond(f)
		f.policy.PublishOnPartialAssets = false

		p, post, dispatcher := f.start(t)
		got := p.Run(context.Background(), post)
		dispatcher.wg.Wait()

		assert.Equal(t, models.PostStatusPublishFailed, got.Status)
		assert.Equal(t, "asset generation incomplete", got.FailureReason)
		assert.Equal(t, 0, f.publisher.calls)
	})

	t.Run("allowed", func(t *testing.T) {
		f := newFixture(t, 2)
		failSecond(f)

		p, post, dispatcher := f.start(t)
		got := p.Run(context.Background(), post)
		dispatcher.wg.Wait()

		assert.Equal(t, models.PostStatusPublished, got.Status)
		assert.Equal(t, 1, f.publisher.calls)
	})
}

func TestRun_RefundOnPublishFailure(t *testing.T) {
	f := newFixture(t, 0)
	f.policy.RefundOnFailure = true
	f.publisher.err = errors.New("blog api 500")
	ctx := context.Background()

	res, err := f.credits.PrecheckAndDebit(ctx, nil, f.account.ID, 30, models.ActionAutoPosting, nil)
	require.NoError(t, err)
	require.True(t, res.OK)

	p, post, _ := f.start(t)
	got := p.Run(ctx, post)

	assert.Equal(t, models.PostStatusPublishFailed, got.Status)
	assert.Contains(t, got.FailureReason, "blog api 500")

	balance, err := f.credits.Balance(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, balance)

	history, err := f.credits.History(ctx, f.account.ID, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.ActionRefund, history[0].ActionType)
	assert.Equal(t, 30, history[0].Amount)
}

func TestRun_NoRefundByDefault(t *testing.T) {
	f := newFixture(t, 0)
	f.publisher.err = errors.New("blog api 500")

	p, post, _ := f.start(t)
	p.Run(context.Background(), post)

	balance, err := f.credits.Balance(context.Background(), f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, balance)
}

func TestRun_ManualCopyChannel(t *testing.T) {
	f := newFixture(t, 0)
	f.publisher.result = content.PublishResult{Status: content.PublishStatusManualCopy}

	p, post, _ := f.start(t)
	got := p.Run(context.Background(), post)

	assert.Equal(t, models.PostStatusPublished, got.Status)
	assert.Empty(t, got.PublishedURL)
	assert.Equal(t, models.TrackingPending, got.TrackingStatus)
	assert.Equal(t, 0, f.ranks.calls)
}

func TestRun_DraftFailureLeavesKeywordUnused(t *testing.T) {
	f := newFixture(t, 0)
	f.generator.DraftFunc = func(context.Context, content.DraftRequest) (content.Draft, error) {
		return content.Draft{}, errors.New("model overloaded")
	}
	ctx := context.Background()
	_, err := f.keywords.BulkRegister(ctx, f.account.ID, []string{"AI"})
	require.NoError(t, err)

	p, post, _ := f.start(t)
	got := p.Run(ctx, post)

	assert.Equal(t, models.RunStateFailed, got.RunState)
	assert.Equal(t, models.PostStatusDraft, got.Status)
	assert.Contains(t, got.FailureReason, "model overloaded")
	assert.False(t, f.keywordUsed(t, "AI"))
}

func TestRun_ZeroImageFailureKeepsImagesCompleted(t *testing.T) {
	f := newFixture(t, 0)
	f.generator.DraftFunc = func(context.Context, content.DraftRequest) (content.Draft, error) {
		return content.Draft{}, errors.New("model overloaded")
	}

	p, post, _ := f.start(t)
	assert.Equal(t, models.ImageGenCompleted, post.ImageGenStatus)

	got := p.Run(context.Background(), post)

	assert.Equal(t, models.RunStateFailed, got.RunState)
	assert.Equal(t, 0, got.ExpectedImageCount)
	assert.Empty(t, got.ImagePaths)
	assert.Equal(t, models.ImageGenCompleted, got.ImageGenStatus)
}

func TestRun_PanicIsRecorded(t *testing.T) {
	f := newFixture(t, 0)
	f.generator.DraftFunc = func(context.Context, content.DraftRequest) (content.Draft, error) {
		panic("boom")
	}

	p, post, _ := f.start(t)
	got := p.Run(context.Background(), post)

	require.NotNil(t, got)
	assert.Equal(t, models.RunStateFailed, got.RunState)
	assert.Contains(t, got.FailureReason, "boom")
}

func TestRun_TopicFallsBackToChannel(t *testing.T) {
	f := newFixture(t, 0)

	p, post, _ := f.start(t)
	got := p.Run(context.Background(), post)

	assert.Equal(t, "home cooking", got.Topic)
}

func TestRun_TopicFromKnowledgeProvider(t *testing.T) {
	f := newFixture(t, 0)
	knowledge := &fakeKnowledge{candidate: content.TopicCandidate{Title: "  seasonal kimchi  ", Keywords: []string{"kimchi"}}}
	f.knowledge = knowledge

	p, post, _ := f.start(t)
	got := p.Run(context.Background(), post)

	assert.Equal(t, "seasonal kimchi", got.Topic)
	assert.Equal(t, f.account.ID, knowledge.profile.OwnerID)
	assert.Equal(t, "home cooking", knowledge.profile.DefaultTopic)
	assert.Equal(t, models.PostStatusPublished, got.Status)
}

func TestRun_KeywordBeatsKnowledgeProvider(t *testing.T) {
	f := newFixture(t, 0)
	f.knowledge = &fakeKnowledge{candidate: content.TopicCandidate{Title: "seasonal kimchi"}}
	ctx := context.Background()
	_, err := f.keywords.BulkRegister(ctx, f.account.ID, []string{"AI"})
	require.NoError(t, err)

	p, post, _ := f.start(t)
	got := p.Run(ctx, post)

	assert.Equal(t, "AI", got.Topic)
}

func TestRun_KnowledgeProviderFailureFallsBack(t *testing.T) {
	tests := []struct {
		name      string
		knowledge *fakeKnowledge
	}{
		{name: "error", knowledge: &fakeKnowledge{err: errors.New("knowledge base offline")}},
		{name: "blank title", knowledge: &fakeKnowledge{candidate: content.TopicCandidate{Title: "   "}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 0)
			f.knowledge = tt.knowledge

			p, post, _ := f.start(t)
			got := p.Run(context.Background(), post)

			assert.Equal(t, "home cooking", got.Topic)
			assert.Equal(t, models.PostStatusPublished, got.Status)
		})
	}
}

func TestRun_PromptsFittedToImageCount(t *testing.T) {
	f := newFixture(t, 2)
	f.generator.DraftFunc = func(_ context.Context, req content.DraftRequest) (content.Draft, error) {
		return content.Draft{Title: "t", Body: "<p>b</p>", ImagePrompts: []string{"home cooking table"}}, nil
	}

	p, post, dispatcher := f.start(t)
	got := p.Run(context.Background(), post)
	dispatcher.wg.Wait()

	assert.Equal(t, 2, got.ExpectedImageCount)
	assert.Len(t, got.ImagePaths, 2)
}

func TestTrack_RecordsRankChange(t *testing.T) {
	f := newFixture(t, 0)
	p, post, _ := f.start(t)
	ctx := context.Background()

	require.NoError(t, f.posts.UpdateFields(ctx, nil, post.ID, map[string]any{
		"status":        models.PostStatusPublished,
		"published_url": "https://blog.example.com/p/9",
		"topic":         "AI",
		"keyword_ranks": datatypes.NewJSONType(map[string]models.KeywordRank{"AI": {Rank: 10}}),
	}))
	current, err := f.posts.GetByID(ctx, post.ID)
	require.NoError(t, err)

	f.ranks.rank = 4
	require.NoError(t, p.Track(ctx, current))

	got, err := f.posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TrackingCompleted, got.TrackingStatus)
	assert.Equal(t, 4, got.Ranks()["AI"].Rank)
	assert.Equal(t, 6, got.Ranks()["AI"].Change)
}

func TestTrack_ErrorLeavesPending(t *testing.T) {
	f := newFixture(t, 0)
	p, post, _ := f.start(t)
	ctx := context.Background()

	require.NoError(t, f.posts.UpdateFields(ctx, nil, post.ID, map[string]any{
		"published_url": "https://blog.example.com/p/9",
		"topic":         "AI",
	}))
	current, err := f.posts.GetByID(ctx, post.ID)
	require.NoError(t, err)

	var during string
	f.ranks.lookup = func() {
		if stored, err := f.posts.GetByID(ctx, post.ID); err == nil {
			during = stored.TrackingStatus
		}
	}
	f.ranks.err = errors.New("search blocked")
	assert.Error(t, p.Track(ctx, current))

	got, err := f.posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TrackingRunning, during)
	assert.Equal(t, models.TrackingPending, got.TrackingStatus)
	assert.Empty(t, got.Ranks())
}

func TestTrack_MarksTrackingDuringLookup(t *testing.T) {
	f := newFixture(t, 0)
	p, post, _ := f.start(t)
	ctx := context.Background()

	require.NoError(t, f.posts.UpdateFields(ctx, nil, post.ID, map[string]any{
		"status":        models.PostStatusPublished,
		"published_url": "https://blog.example.com/p/9",
		"topic":         "AI",
	}))
	current, err := f.posts.GetByID(ctx, post.ID)
	require.NoError(t, err)

	var seen []string
	f.ranks.lookup = func() {
		stored, err := f.posts.GetByID(ctx, post.ID)
		require.NoError(t, err)
		seen = append(seen, stored.TrackingStatus)
	}
	require.NoError(t, p.Track(ctx, current))

	got, err := f.posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{models.TrackingRunning}, seen)
	assert.Equal(t, models.TrackingCompleted, got.TrackingStatus)
}

func TestTrack_RequiresURL(t *testing.T) {
	f := newFixture(t, 0)
	p, post, _ := f.start(t)

	assert.ErrorIs(t, p.Track(context.Background(), post), ErrNotPublished)
}
