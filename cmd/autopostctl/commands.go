package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	config "github.com/maheshrc27/autopost/configs"
	"github.com/maheshrc27/autopost/internal/app"
	"github.com/maheshrc27/autopost/internal/database"
	"github.com/maheshrc27/autopost/internal/logger"
	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/internal/repository"
	"github.com/maheshrc27/autopost/internal/service"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm"
)

type appContext struct {
	cfg     *config.Config
	pricing models.PricingPolicy
	db      *gorm.DB
	sqlDB   *sql.DB
}

func newAppContext(envFile string) (*appContext, error) {
	if err := godotenv.Load(envFile); err != nil {
		slog.Debug("env file not loaded", "path", envFile, "error", err)
	}

	cfg := config.LoadConfig()
	logger.New(logger.Config{Level: logger.ParseLevel(cfg.LogLevel), Format: cfg.LogFormat})

	pricing, err := config.LoadPricing(cfg.PricingFile)
	if err != nil {
		return nil, err
	}

	db, sqlDB, err := database.Open(database.Options{
		Driver:      cfg.DatabaseDriver,
		PostgresURI: cfg.PostgresURI,
		MySQLDSN:    cfg.MySQLDSN,
	})
	if err != nil {
		return nil, err
	}
	return &appContext{cfg: cfg, pricing: pricing, db: db, sqlDB: sqlDB}, nil
}

func (a *appContext) Close() {
	if err := a.sqlDB.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
}

func (a *appContext) credits() service.CreditService {
	return service.NewCreditService(a.db, repository.NewAccountRepository(a.db), repository.NewCreditLedgerRepository(a.db))
}

func CreditGrantAction(ctx context.Context, cmd *cli.Command) error {
	actx, err := newAppContext(cmd.String("env"))
	if err != nil {
		return err
	}
	defer actx.Close()

	owner := cmd.Int64("owner")
	balance, err := actx.credits().Grant(ctx, nil, owner, cmd.Int("amount"), models.ActionAdjustment, map[string]any{
		"reason":     cmd.String("reason"),
		"granted_by": "autopostctl",
	})
	if err != nil {
		return fmt.Errorf("grant credit: %w", err)
	}

	fmt.Printf("account %d balance: %d\n", owner, balance)
	return nil
}

func CreditHistoryAction(ctx context.Context, cmd *cli.Command) error {
	actx, err := newAppContext(cmd.String("env"))
	if err != nil {
		return err
	}
	defer actx.Close()

	entries, err := actx.credits().History(ctx, cmd.Int64("owner"), cmd.Int("limit"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s  %+6d  %-20s %v\n", e.CreatedAt.Format("2006-01-02 15:04"), e.Amount, e.ActionType, e.Details)
	}
	return nil
}

func KeywordAddAction(ctx context.Context, cmd *cli.Command) error {
	actx, err := newAppContext(cmd.String("env"))
	if err != nil {
		return err
	}
	defer actx.Close()

	keywords := cmd.StringSlice("keyword")
	inserted, err := service.NewKeywordService(actx.db, repository.NewKeywordRepository(actx.db)).
		BulkRegister(ctx, cmd.Int64("owner"), keywords)
	if err != nil {
		return fmt.Errorf("register keywords: %w", err)
	}

	fmt.Printf("inserted %d, skipped %d\n", inserted, len(keywords)-inserted)
	return nil
}

func QueueStatusAction(ctx context.Context, cmd *cli.Command) error {
	actx, err := newAppContext(cmd.String("env"))
	if err != nil {
		return err
	}
	defer actx.Close()

	postID := cmd.Int64("post")
	jobs, err := repository.NewAssetJobRepository(actx.db).ListByPost(ctx, postID)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("post %d has no asset jobs", postID)
	}

	for _, j := range jobs {
		detail := ""
		switch {
		case j.URL != nil:
			detail = *j.URL
		case j.ErrorMessage != nil:
			detail = *j.ErrorMessage
		}
		fmt.Printf("%6d  %-10s %s\n", j.ID, j.Status, detail)
	}
	return nil
}

func RunCostAction(ctx context.Context, cmd *cli.Command) error {
	actx, err := newAppContext(cmd.String("env"))
	if err != nil {
		return err
	}
	defer actx.Close()

	owner := cmd.Int64("owner")
	channel, err := repository.NewChannelRepository(actx.db).GetPrimaryByOwner(ctx, owner)
	if err != nil {
		return err
	}
	if channel == nil {
		return errors.New("account has no publishing channel")
	}

	balance, err := actx.credits().Balance(ctx, owner)
	if err != nil {
		return err
	}

	cost := service.PostCost(actx.pricing, channel.PostLength, channel.ImageCount)
	fmt.Printf("channel %d (%s, %s, %d images): cost %d, balance %d\n",
		channel.ID, channel.PlatformType, channel.PostLength, channel.ImageCount, cost, balance)
	return nil
}

// newFullApp wires the whole runtime, for commands that start runs or
// render assets.
func newFullApp(ctx context.Context, envFile string) (*app.App, error) {
	if err := godotenv.Load(envFile); err != nil {
		slog.Debug("env file not loaded", "path", envFile, "error", err)
	}
	cfg := config.LoadConfig()
	logger.New(logger.Config{Level: logger.ParseLevel(cfg.LogLevel), Format: cfg.LogFormat})
	return app.New(ctx, cfg)
}

func TickAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newFullApp(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer a.Close()

	report := a.Scheduler.Tick(ctx, time.Now())
	fmt.Printf("evaluated %d, started %v, insufficient %v, busy %v, failed %v\n",
		report.Evaluated, report.Started, report.Insufficient, report.Busy, report.Failed)
	return nil
}

func ProcessAssetsAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newFullApp(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer a.Close()

	report := a.Assets.ProcessPendingBatch(ctx, cmd.Int("concurrency"))
	fmt.Printf("picked %d, succeeded %d, failed %d\n", report.Picked, report.Succeeded, report.Failed)
	for _, err := range report.Errors {
		fmt.Println("  ", err)
	}
	return nil
}
