package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/maheshrc27/autopost/internal/models"
	"gorm.io/gorm"
)

type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Channel, error)
	GetPrimaryByOwner(ctx context.Context, ownerID int64) (*models.Channel, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.Channel, error)
	Update(ctx context.Context, channel *models.Channel) error
	Remove(ctx context.Context, id, ownerID int64) error
}

type channelRepository struct {
	db *gorm.DB
}

func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) Create(ctx context.Context, channel *models.Channel) (int64, error) {
	if err := r.db.WithContext(ctx).Create(channel).Error; err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return channel.ID, nil
}

func (r *channelRepository) GetByID(ctx context.Context, id int64) (*models.Channel, error) {
	var channel models.Channel
	if err := r.db.WithContext(ctx).First(&channel, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &channel, nil
}

// GetPrimaryByOwner returns the oldest channel of the owner.
func (r *channelRepository) GetPrimaryByOwner(ctx context.Context, ownerID int64) (*models.Channel, error) {
	var channel models.Channel
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id ASC").First(&channel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &channel, nil
}

func (r *channelRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Channel, error) {
	var channels []*models.Channel
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id ASC").Find(&channels).Error; err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return channels, nil
}

func (r *channelRepository) Update(ctx context.Context, channel *models.Channel) error {
	if err := r.db.WithContext(ctx).Save(channel).Error; err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *channelRepository) Remove(ctx context.Context, id, ownerID int64) error {
	err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&models.Channel{}).Error
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
