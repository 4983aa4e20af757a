package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/maheshrc27/autopost/internal/database"
	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/internal/repository"
	"github.com/maheshrc27/autopost/internal/service"
	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNoChannel          = errors.New("account has no publishing channel")
	ErrInsufficientCredit = errors.New("insufficient credit")
	errNotDue             = errors.New("schedule no longer due")
)

// Runner drives one started run to a terminal state.
type Runner interface {
	Run(ctx context.Context, post *models.Post) *models.Post
}

type TickReport struct {
	Evaluated    int
	Started      []int64
	Insufficient []int64
	Busy         []int64
	Failed       []int64
}

type Scheduler struct {
	db        *gorm.DB
	schedules repository.ScheduleRepository
	channels  repository.ChannelRepository
	posts     repository.PostRepository
	credits   service.CreditService
	locker    service.AccountLocker
	runner    Runner
	pricing   models.PricingPolicy
	loc       *time.Location
}

func NewScheduler(
	db *gorm.DB,
	schedules repository.ScheduleRepository,
	channels repository.ChannelRepository,
	posts repository.PostRepository,
	credits service.CreditService,
	locker service.AccountLocker,
	runner Runner,
	pricing models.PricingPolicy,
	loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		db:        db,
		schedules: schedules,
		channels:  channels,
		posts:     posts,
		credits:   credits,
		locker:    locker,
		runner:    runner,
		pricing:   pricing,
		loc:       loc,
	}
}

// Due reports whether s should start a run at now. now must already be in
// the scheduler's time zone.
func Due(s *models.ScheduleConfig, now time.Time) bool {
	if !s.IsActive {
		return false
	}
	if s.Frequency == models.FrequencyWeekly && !slices.Contains(s.ActiveDays, models.DayToken(now)) {
		return false
	}
	hhmm := now.Format("15:04")
	if !slices.Contains(s.TargetTimes, hhmm) {
		return false
	}
	if s.LastRunAt != nil {
		last := s.LastRunAt.In(now.Location())
		if last.Format("2006-01-02 15:04") == now.Format("2006-01-02 15:04") {
			return false
		}
	}
	return true
}

// Tick starts one run for every schedule due at now. Runs execute one after
// another; the next due account waits for the current run to finish.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) TickReport {
	var report TickReport
	local := now.In(s.loc)

	schedules, err := s.schedules.ListActive(ctx)
	if err != nil {
		slog.Error("list active schedules failed", "error", err)
		return report
	}

	for _, sched := range schedules {
		report.Evaluated++
		if !Due(sched, local) {
			continue
		}

		post, err := s.start(ctx, sched.OwnerID, local, models.ActionAutoPosting, true)
		switch {
		case err == nil:
			if post != nil {
				report.Started = append(report.Started, post.ID)
			}
		case errors.Is(err, errNotDue):
		case errors.Is(err, ErrInsufficientCredit):
			slog.Info("skipping scheduled run, insufficient credit", "owner_id", sched.OwnerID)
			report.Insufficient = append(report.Insufficient, sched.OwnerID)
		case errors.Is(err, service.ErrAccountBusy):
			slog.Info("skipping scheduled run, account busy", "owner_id", sched.OwnerID)
			report.Busy = append(report.Busy, sched.OwnerID)
		default:
			slog.Error("scheduled run not started", "owner_id", sched.OwnerID, "error", err)
			report.Failed = append(report.Failed, sched.OwnerID)
		}
	}

	if len(report.Started) > 0 {
		slog.Info("scheduler tick finished", "evaluated", report.Evaluated, "started", len(report.Started))
	}
	return report
}

// Trigger starts a manual run for ownerID outside the schedule.
func (s *Scheduler) Trigger(ctx context.Context, ownerID int64, now time.Time) (*models.Post, error) {
	return s.start(ctx, ownerID, now.In(s.loc), models.ActionManualPosting, false)
}

// RunCost is the price of one run on the owner's primary channel.
func (s *Scheduler) RunCost(ctx context.Context, ownerID int64) (int, error) {
	channel, err := s.channels.GetPrimaryByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	if channel == nil {
		return 0, ErrNoChannel
	}
	return service.PostCost(s.pricing, channel.PostLength, channel.ImageCount), nil
}

// start holds the account lock for the whole run. The debit, its ledger
// row, the schedule stamp and the new post commit together.
func (s *Scheduler) start(ctx context.Context, ownerID int64, now time.Time, action string, scheduled bool) (*models.Post, error) {
	channel, err := s.channels.GetPrimaryByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, ErrNoChannel
	}
	cost := service.PostCost(s.pricing, channel.PostLength, channel.ImageCount)

	release, err := s.locker.TryLock(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	runID := ulid.Make().String()
	post, err := database.Transact(ctx, s.db, func(tx *gorm.DB) (*models.Post, error) {
		if scheduled {
			sched, err := s.schedules.GetByOwner(ctx, tx, ownerID)
			if err != nil {
				return nil, err
			}
			if sched == nil || !Due(sched, now) {
				return nil, errNotDue
			}
		}

		res, err := s.credits.PrecheckAndDebit(ctx, tx, ownerID, cost, action, map[string]any{
			"time":        now.Format(time.RFC3339),
			"channel_id":  channel.ID,
			"length":      channel.PostLength,
			"image_count": channel.ImageCount,
			"run_id":      runID,
		})
		if err != nil {
			return nil, err
		}
		if !res.OK {
			return nil, ErrInsufficientCredit
		}

		if scheduled {
			if err := s.schedules.UpdateLastRunAt(ctx, tx, ownerID, now); err != nil {
				return nil, err
			}
		}

		post := &models.Post{
			RunID:              runID,
			OwnerID:            ownerID,
			ChannelID:          channel.ID,
			Status:             models.PostStatusDraft,
			RunState:           models.RunStateTopicSelect,
			Cost:               cost,
			ExpectedImageCount: channel.ImageCount,
			ImageGenStatus:     models.ImageGenProcessing,
			ImagePaths:         datatypes.JSONSlice[string]{},
			MetaKeywords:       datatypes.JSONSlice[string]{},
			TrackingStatus:     models.TrackingPending,
			KeywordRanks:       datatypes.NewJSONType(map[string]models.KeywordRank{}),
		}
		post.RefreshImageStatus()
		if _, err := s.posts.Create(ctx, tx, post); err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		return post, nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("run started", "owner_id", ownerID, "post_id", post.ID, "run_id", runID, "cost", cost, "action", action)
	return s.runner.Run(ctx, post), nil
}
