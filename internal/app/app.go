// Package app builds the long-lived components shared by the server and
// the operator CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	config "github.com/maheshrc27/autopost/configs"
	"github.com/maheshrc27/autopost/internal/database"
	"github.com/maheshrc27/autopost/internal/events"
	"github.com/maheshrc27/autopost/internal/generator"
	job "github.com/maheshrc27/autopost/internal/jobs"
	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/internal/pipeline"
	"github.com/maheshrc27/autopost/internal/publisher"
	"github.com/maheshrc27/autopost/internal/queue"
	"github.com/maheshrc27/autopost/internal/render"
	"github.com/maheshrc27/autopost/internal/repository"
	"github.com/maheshrc27/autopost/internal/service"
	"github.com/maheshrc27/autopost/internal/tracking"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	runLockTTL        = 2 * time.Hour
	rankLookupSpacing = 2 * time.Second
	minDraftWords     = 300
)

type App struct {
	Config   *config.Config
	Pricing  models.PricingPolicy
	Location *time.Location

	DB    *gorm.DB
	SQL   *sql.DB
	Redis *redis.Client
	Tasks *asynq.Client

	Accounts  service.AccountService
	Auth      service.AuthService
	Credits   service.CreditService
	Keywords  service.KeywordService
	Schedules service.ScheduleService
	Channels  service.ChannelService
	Posts     service.PostService
	Assets    service.AssetService

	Pipeline  *pipeline.Pipeline
	Scheduler *job.Scheduler
	Tracking  *job.TrackingJob
	Retention *job.RetentionJob

	closers []func() error
}

// New connects every backing store and wires the services. Close releases
// what New opened.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	pricing, err := config.LoadPricing(cfg.PricingFile)
	if err != nil {
		return nil, fmt.Errorf("load pricing: %w", err)
	}
	a.Pricing = pricing

	loc, err := time.LoadLocation(cfg.SchedulerTimezone)
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone: %w", err)
	}
	a.Location = loc

	db, sqlDB, err := database.Open(database.Options{
		Driver:      cfg.DatabaseDriver,
		PostgresURI: cfg.PostgresURI,
		MySQLDSN:    cfg.MySQLDSN,
	})
	if err != nil {
		return nil, err
	}
	a.DB, a.SQL = db, sqlDB
	a.closers = append(a.closers, sqlDB.Close)

	if err := database.Migrate(db); err != nil {
		a.Close()
		return nil, err
	}

	a.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	a.Tasks = asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisURI})
	a.closers = append(a.closers, a.Redis.Close, a.Tasks.Close)

	accountRepo := repository.NewAccountRepository(db)
	ledgerRepo := repository.NewCreditLedgerRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	keywordRepo := repository.NewKeywordRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	postRepo := repository.NewPostRepository(db)
	assetJobRepo := repository.NewAssetJobRepository(db)

	store, err := service.NewR2Store(ctx, cfg.R2)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("configure asset store: %w", err)
	}

	a.Credits = service.NewCreditService(db, accountRepo, ledgerRepo)
	a.Accounts = service.NewAccountService(db, accountRepo, a.Credits, pricing)
	a.Auth = service.NewAuthService(cfg.Google, a.Accounts)
	a.Keywords = service.NewKeywordService(db, keywordRepo)
	a.Schedules = service.NewScheduleService(scheduleRepo)
	a.Channels = service.NewChannelService(channelRepo, cfg.EncryptionKey)
	a.Posts = service.NewPostService(db, postRepo, assetJobRepo)

	a.Assets = service.NewAssetService(db, assetJobRepo, postRepo, render.NewClient(cfg.RendererURL, cfg.RendererTimeout, nil), store)
	a.Assets.SetDispatcher(queue.NewDispatcher(a.Tasks, cfg.RendererTimeout))

	llm, err := generator.NewClient(generator.Options{
		APIKey:      cfg.OpenAI.APIKey,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("configure content generator: %w", err)
	}

	var notifier pipeline.Notifier = events.Noop{}
	if cfg.RabbitMQURL != "" {
		rabbit, err := events.NewRabbitNotifier(cfg.RabbitMQURL, "")
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to rabbitmq: %w", err)
		}
		a.closers = append(a.closers, rabbit.Close)
		notifier = rabbit
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	a.Pipeline = pipeline.New(pipeline.Deps{
		Posts:     postRepo,
		Channels:  channelRepo,
		Keywords:  a.Keywords,
		Assets:    a.Assets,
		Credits:   a.Credits,
		Generator: llm,
		Analyzer:  generator.NewAnalyzer(cfg.Policy.SeoPassScore, minDraftWords),
		Publisher: publisher.NewDefaultRegistry(cfg.EncryptionKey, httpClient),
		Ranks:     tracking.NewNaverRank(httpClient, rankLookupSpacing),
		Knowledge: llm,
		Notifier:  notifier,
	}, pipeline.Policy{
		MaxRewrites:            cfg.Policy.MaxRewrites,
		PublishOnFailedGate:    cfg.Policy.PublishOnFailedGate,
		PublishOnPartialAssets: cfg.Policy.PublishOnPartialAssets,
		RefundOnFailure:        cfg.Policy.RefundOnFailure,
		AssetPollInterval:      cfg.Policy.AssetPollInterval,
		AssetMaxAttempts:       cfg.Policy.AssetMaxAttempts,
	}, cfg.DefaultTopic)

	locker := service.NewRedisLocker(a.Redis, runLockTTL)
	a.Scheduler = job.NewScheduler(db, scheduleRepo, channelRepo, postRepo, a.Credits, locker, a.Pipeline, pricing, loc)
	a.Tracking = job.NewTrackingJob(postRepo, a.Pipeline, cfg.TrackingBatchSize)
	a.Retention = job.NewRetentionJob(db, postRepo, assetJobRepo, store, cfg.RetentionDays)

	return a, nil
}

// Close runs the closers in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Error("close failed", "error", err)
		}
	}
	a.closers = nil
}
