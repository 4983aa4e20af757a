package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/maheshrc27/autopost/internal/database"
	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/internal/repository"
	"gorm.io/gorm"
)

var ErrNotOwner = errors.New("post belongs to another account")

type PostService interface {
	List(ctx context.Context, ownerID int64, limit int) ([]*models.Post, error)
	PostInfo(ctx context.Context, ownerID, postID int64) (*models.Post, error)
	Remove(ctx context.Context, ownerID, postID int64) error
}

type postService struct {
	db   *gorm.DB
	p    repository.PostRepository
	jobs repository.AssetJobRepository
}

func NewPostService(db *gorm.DB, p repository.PostRepository, jobs repository.AssetJobRepository) PostService {
	return &postService{
		db:   db,
		p:    p,
		jobs: jobs,
	}
}

func (s *postService) List(ctx context.Context, ownerID int64, limit int) ([]*models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.p.ListByOwner(ctx, ownerID, limit)
}

func (s *postService) PostInfo(ctx context.Context, ownerID, postID int64) (*models.Post, error) {
	post, err := s.p.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	if post.OwnerID != ownerID {
		slog.Info(ErrNotOwner.Error(), "post_id", postID, "owner_id", ownerID)
		return nil, ErrPostNotFound
	}
	return post, nil
}

// Remove deletes a post and its asset jobs. Posts with a run still in
// progress cannot be removed.
func (s *postService) Remove(ctx context.Context, ownerID, postID int64) error {
	post, err := s.PostInfo(ctx, ownerID, postID)
	if err != nil {
		return err
	}
	if post.RunState != models.RunStateDone && post.RunState != models.RunStateFailed {
		return errors.New("post run still in progress")
	}

	_, err = database.Transact(ctx, s.db, func(tx *gorm.DB) (struct{}, error) {
		if err := s.jobs.RemoveByPost(ctx, tx, postID); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, s.p.Remove(ctx, tx, postID)
	})
	return err
}
