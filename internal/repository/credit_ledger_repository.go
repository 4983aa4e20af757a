package repository

import (
	"context"
	"log/slog"

	"github.com/maheshrc27/autopost/internal/models"
	"gorm.io/gorm"
)

type CreditLedgerRepository interface {
	Create(ctx context.Context, tx *gorm.DB, entry *models.CreditLedgerEntry) (int64, error)
	ListByOwner(ctx context.Context, ownerID int64, limit int) ([]*models.CreditLedgerEntry, error)
	SumByOwner(ctx context.Context, ownerID int64) (int, error)
}

type creditLedgerRepository struct {
	db *gorm.DB
}

func NewCreditLedgerRepository(db *gorm.DB) CreditLedgerRepository {
	return &creditLedgerRepository{db: db}
}

func (r *creditLedgerRepository) Create(ctx context.Context, tx *gorm.DB, entry *models.CreditLedgerEntry) (int64, error) {
	if err := conn(ctx, r.db, tx).Create(entry).Error; err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return entry.ID, nil
}

func (r *creditLedgerRepository) ListByOwner(ctx context.Context, ownerID int64, limit int) ([]*models.CreditLedgerEntry, error) {
	var entries []*models.CreditLedgerEntry
	q := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return entries, nil
}

func (r *creditLedgerRepository) SumByOwner(ctx context.Context, ownerID int64) (int, error) {
	var total int
	err := r.db.WithContext(ctx).Model(&models.CreditLedgerEntry{}).
		Where("owner_id = ?", ownerID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return total, nil
}
