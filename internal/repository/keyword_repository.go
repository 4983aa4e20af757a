package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/autopost/internal/models"
	"gorm.io/gorm"
)

type KeywordRepository interface {
	NextUnused(ctx context.Context, tx *gorm.DB, ownerID int64) (*models.Keyword, error)
	CountByOwner(ctx context.Context, tx *gorm.DB, ownerID int64) (int64, error)
	ResetUsed(ctx context.Context, tx *gorm.DB, ownerID int64) (int64, error)
	MarkUsed(ctx context.Context, ownerID int64, text string, at time.Time) (bool, error)
	ExistingTexts(ctx context.Context, tx *gorm.DB, ownerID int64) (map[string]struct{}, error)
	CreateBatch(ctx context.Context, tx *gorm.DB, keywords []*models.Keyword) error
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.Keyword, error)
}

type keywordRepository struct {
	db *gorm.DB
}

func NewKeywordRepository(db *gorm.DB) KeywordRepository {
	return &keywordRepository{db: db}
}

// NextUnused orders by priority, then insertion order.
func (r *keywordRepository) NextUnused(ctx context.Context, tx *gorm.DB, ownerID int64) (*models.Keyword, error) {
	var keyword models.Keyword
	err := conn(ctx, r.db, tx).
		Where("owner_id = ? AND used_at IS NULL", ownerID).
		Order("priority DESC, id ASC").
		First(&keyword).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &keyword, nil
}

func (r *keywordRepository) CountByOwner(ctx context.Context, tx *gorm.DB, ownerID int64) (int64, error) {
	var count int64
	if err := conn(ctx, r.db, tx).Model(&models.Keyword{}).Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return count, nil
}

func (r *keywordRepository) ResetUsed(ctx context.Context, tx *gorm.DB, ownerID int64) (int64, error) {
	res := conn(ctx, r.db, tx).Model(&models.Keyword{}).
		Where("owner_id = ?", ownerID).
		Update("used_at", nil)
	if res.Error != nil {
		slog.Info(res.Error.Error())
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// MarkUsed stamps the first unused row matching text. It reports false when
// nothing was left to mark.
func (r *keywordRepository) MarkUsed(ctx context.Context, ownerID int64, text string, at time.Time) (bool, error) {
	var keyword models.Keyword
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND text = ? AND used_at IS NULL", ownerID, text).
		Order("id ASC").
		First(&keyword).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	res := r.db.WithContext(ctx).Model(&models.Keyword{}).
		Where("id = ? AND used_at IS NULL", keyword.ID).
		Update("used_at", at)
	if res.Error != nil {
		slog.Info(res.Error.Error())
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *keywordRepository) ExistingTexts(ctx context.Context, tx *gorm.DB, ownerID int64) (map[string]struct{}, error) {
	var texts []string
	if err := conn(ctx, r.db, tx).Model(&models.Keyword{}).Where("owner_id = ?", ownerID).Pluck("text", &texts).Error; err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	existing := make(map[string]struct{}, len(texts))
	for _, text := range texts {
		existing[text] = struct{}{}
	}
	return existing, nil
}

func (r *keywordRepository) CreateBatch(ctx context.Context, tx *gorm.DB, keywords []*models.Keyword) error {
	if len(keywords) == 0 {
		return nil
	}
	if err := conn(ctx, r.db, tx).Create(keywords).Error; err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *keywordRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Keyword, error) {
	var keywords []*models.Keyword
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("priority DESC, id ASC").Find(&keywords).Error
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return keywords, nil
}
