package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/autopost/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScheduleRepository interface {
	GetByOwner(ctx context.Context, tx *gorm.DB, ownerID int64) (*models.ScheduleConfig, error)
	ListActive(ctx context.Context) ([]*models.ScheduleConfig, error)
	Upsert(ctx context.Context, schedule *models.ScheduleConfig) error
	UpdateLastRunAt(ctx context.Context, tx *gorm.DB, ownerID int64, at time.Time) error
}

type scheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) GetByOwner(ctx context.Context, tx *gorm.DB, ownerID int64) (*models.ScheduleConfig, error) {
	var schedule models.ScheduleConfig
	q := conn(ctx, r.db, tx)
	if tx != nil {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Where("owner_id = ?", ownerID).First(&schedule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepository) ListActive(ctx context.Context) ([]*models.ScheduleConfig, error) {
	var schedules []*models.ScheduleConfig
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("owner_id ASC").Find(&schedules).Error; err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return schedules, nil
}

func (r *scheduleRepository) Upsert(ctx context.Context, schedule *models.ScheduleConfig) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_active", "frequency", "active_days", "posts_per_day", "target_times", "updated_at"}),
	}).Create(schedule).Error
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *scheduleRepository) UpdateLastRunAt(ctx context.Context, tx *gorm.DB, ownerID int64, at time.Time) error {
	err := conn(ctx, r.db, tx).Model(&models.ScheduleConfig{}).
		Where("owner_id = ?", ownerID).
		Update("last_run_at", at).Error
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
