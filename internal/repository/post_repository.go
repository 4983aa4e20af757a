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

type PostRepository interface {
	Create(ctx context.Context, tx *gorm.DB, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListByOwner(ctx context.Context, ownerID int64, limit int) ([]*models.Post, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id int64, fields map[string]any) error
	MutateLocked(ctx context.Context, tx *gorm.DB, id int64, fn func(post *models.Post) (map[string]any, error)) (*models.Post, error)
	ListPendingTracking(ctx context.Context, limit int) ([]*models.Post, error)
	ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]*models.Post, error)
	Remove(ctx context.Context, tx *gorm.DB, id int64) error
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, tx *gorm.DB, post *models.Post) (int64, error) {
	if err := conn(ctx, r.db, tx).Create(post).Error; err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return post.ID, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) ListByOwner(ctx context.Context, ownerID int64, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	q := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&posts).Error; err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) UpdateFields(ctx context.Context, tx *gorm.DB, id int64, fields map[string]any) error {
	if err := conn(ctx, r.db, tx).Model(&models.Post{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// MutateLocked loads the post under a row lock, lets fn change it and
// writes back the fields fn returns. Without tx it runs in its own
// transaction.
func (r *postRepository) MutateLocked(ctx context.Context, tx *gorm.DB, id int64, fn func(post *models.Post) (map[string]any, error)) (*models.Post, error) {
	var post models.Post
	mutate := func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, id).Error; err != nil {
			return err
		}
		fields, err := fn(&post)
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return nil
		}
		return tx.Model(&models.Post{}).Where("id = ?", id).Updates(fields).Error
	}

	var err error
	if tx != nil {
		err = mutate(tx.WithContext(ctx))
	} else {
		err = r.db.WithContext(ctx).Transaction(mutate)
	}
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) ListPendingTracking(ctx context.Context, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	q := r.db.WithContext(ctx).
		Where("status = ? AND tracking_status = ? AND published_url <> ''", models.PostStatusPublished, models.TrackingPending).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&posts).Error; err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Order("id ASC").Find(&posts).Error; err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) Remove(ctx context.Context, tx *gorm.DB, id int64) error {
	if err := conn(ctx, r.db, tx).Delete(&models.Post{}, id).Error; err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
