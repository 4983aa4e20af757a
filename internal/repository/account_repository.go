package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/maheshrc27/autopost/internal/models"
	"gorm.io/gorm"
)

type AccountRepository interface {
	Create(ctx context.Context, tx *gorm.DB, account *models.Account) (int64, error)
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	Debit(ctx context.Context, tx *gorm.DB, id int64, amount int) (bool, error)
	Credit(ctx context.Context, tx *gorm.DB, id int64, amount int) error
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, tx *gorm.DB, account *models.Account) (int64, error) {
	if err := conn(ctx, r.db, tx).Create(account).Error; err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return account.ID, nil
}

func (r *accountRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*models.Account, error) {
	var account models.Account
	err := conn(ctx, r.db, tx).First(&account, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &account, nil
}

// Debit subtracts amount only when the balance covers it. It reports false
// when no row qualified.
func (r *accountRepository) Debit(ctx context.Context, tx *gorm.DB, id int64, amount int) (bool, error) {
	res := conn(ctx, r.db, tx).Model(&models.Account{}).
		Where("id = ? AND credit >= ?", id, amount).
		Update("credit", gorm.Expr("credit - ?", amount))
	if res.Error != nil {
		slog.Info(res.Error.Error())
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *accountRepository) Credit(ctx context.Context, tx *gorm.DB, id int64, amount int) error {
	res := conn(ctx, r.db, tx).Model(&models.Account{}).
		Where("id = ?", id).
		Update("credit", gorm.Expr("credit + ?", amount))
	if res.Error != nil {
		slog.Info(res.Error.Error())
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
