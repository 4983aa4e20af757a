package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/autopost/internal/models"
	"gorm.io/gorm"
)

type AssetJobRepository interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, jobs []*models.AssetJob) error
	GetByID(ctx context.Context, id int64) (*models.AssetJob, error)
	ListPending(ctx context.Context, limit int) ([]*models.AssetJob, error)
	ListByPost(ctx context.Context, postID int64) ([]*models.AssetJob, error)
	Claim(ctx context.Context, id int64) (bool, error)
	Complete(ctx context.Context, tx *gorm.DB, id int64, url string, at time.Time) (bool, error)
	Fail(ctx context.Context, id int64, status, message string, at time.Time) (bool, error)
	RemoveByPost(ctx context.Context, tx *gorm.DB, postID int64) error
}

type assetJobRepository struct {
	db *gorm.DB
}

func NewAssetJobRepository(db *gorm.DB) AssetJobRepository {
	return &assetJobRepository{db: db}
}

func (r *assetJobRepository) CreateBatch(ctx context.Context, tx *gorm.DB, jobs []*models.AssetJob) error {
	if len(jobs) == 0 {
		return nil
	}
	if err := conn(ctx, r.db, tx).Create(jobs).Error; err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *assetJobRepository) GetByID(ctx context.Context, id int64) (*models.AssetJob, error) {
	var job models.AssetJob
	if err := r.db.WithContext(ctx).First(&job, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &job, nil
}

func (r *assetJobRepository) ListPending(ctx context.Context, limit int) ([]*models.AssetJob, error) {
	var jobs []*models.AssetJob
	q := r.db.WithContext(ctx).Where("status = ?", models.AssetStatusPending).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&jobs).Error; err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return jobs, nil
}

func (r *assetJobRepository) ListByPost(ctx context.Context, postID int64) ([]*models.AssetJob, error) {
	var jobs []*models.AssetJob
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Order("id ASC").Find(&jobs).Error; err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return jobs, nil
}

// Claim moves a PENDING job to PROCESSING. Only one caller can win.
func (r *assetJobRepository) Claim(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.AssetJob{}).
		Where("id = ? AND status = ?", id, models.AssetStatusPending).
		Update("status", models.AssetStatusProcessing)
	if res.Error != nil {
		slog.Info(res.Error.Error())
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *assetJobRepository) Complete(ctx context.Context, tx *gorm.DB, id int64, url string, at time.Time) (bool, error) {
	res := conn(ctx, r.db, tx).Model(&models.AssetJob{}).
		Where("id = ? AND status = ?", id, models.AssetStatusProcessing).
		Updates(map[string]any{
			"status":       models.AssetStatusCompleted,
			"url":          url,
			"completed_at": at,
		})
	if res.Error != nil {
		slog.Info(res.Error.Error())
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *assetJobRepository) Fail(ctx context.Context, id int64, status, message string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.AssetJob{}).
		Where("id = ? AND status = ?", id, models.AssetStatusProcessing).
		Updates(map[string]any{
			"status":        status,
			"error_message": message,
			"completed_at":  at,
		})
	if res.Error != nil {
		slog.Info(res.Error.Error())
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *assetJobRepository) RemoveByPost(ctx context.Context, tx *gorm.DB, postID int64) error {
	if err := conn(ctx, r.db, tx).Where("post_id = ?", postID).Delete(&models.AssetJob{}).Error; err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
