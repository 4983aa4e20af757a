package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/autopost/internal/database"
	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/internal/repository"
	"gorm.io/gorm"
)

// KeywordService rotates an account's keyword pool. Once every keyword has
// been used the pool is reset and rotation starts over.
type KeywordService interface {
	Next(ctx context.Context, ownerID int64) (*models.Keyword, error)
	MarkUsed(ctx context.Context, ownerID int64, text string) error
	BulkRegister(ctx context.Context, ownerID int64, texts []string) (int, error)
	List(ctx context.Context, ownerID int64) ([]*models.Keyword, error)
}

type keywordService struct {
	db  *gorm.DB
	kr  repository.KeywordRepository
	now func() time.Time
}

func NewKeywordService(db *gorm.DB, kr repository.KeywordRepository) KeywordService {
	return &keywordService{
		db:  db,
		kr:  kr,
		now: time.Now,
	}
}

// Next returns nil when the owner has no keywords at all.
func (s *keywordService) Next(ctx context.Context, ownerID int64) (*models.Keyword, error) {
	return database.Transact(ctx, s.db, func(tx *gorm.DB) (*models.Keyword, error) {
		keyword, err := s.kr.NextUnused(ctx, tx, ownerID)
		if err != nil || keyword != nil {
			return keyword, err
		}

		count, err := s.kr.CountByOwner(ctx, tx, ownerID)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, nil
		}

		reset, err := s.kr.ResetUsed(ctx, tx, ownerID)
		if err != nil {
			return nil, err
		}
		slog.Info("keyword pool exhausted, reset", "owner_id", ownerID, "keywords", reset)

		return s.kr.NextUnused(ctx, tx, ownerID)
	})
}

func (s *keywordService) MarkUsed(ctx context.Context, ownerID int64, text string) error {
	marked, err := s.kr.MarkUsed(ctx, ownerID, text, s.now())
	if err != nil {
		return err
	}
	if !marked {
		slog.Debug("keyword already used or unknown", "owner_id", ownerID, "keyword", text)
	}
	return nil
}

// BulkRegister inserts the texts not yet known for the owner. Earlier
// entries get higher priority; existing keywords keep theirs.
func (s *keywordService) BulkRegister(ctx context.Context, ownerID int64, texts []string) (int, error) {
	return database.Transact(ctx, s.db, func(tx *gorm.DB) (int, error) {
		existing, err := s.kr.ExistingTexts(ctx, tx, ownerID)
		if err != nil {
			return 0, err
		}

		var batch []*models.Keyword
		for idx, raw := range texts {
			text := strings.TrimSpace(raw)
			if text == "" {
				continue
			}
			if _, ok := existing[text]; ok {
				continue
			}
			existing[text] = struct{}{}
			batch = append(batch, &models.Keyword{
				OwnerID:  ownerID,
				Text:     text,
				Priority: len(texts) - idx,
			})
		}

		if err := s.kr.CreateBatch(ctx, tx, batch); err != nil {
			return 0, err
		}
		return len(batch), nil
	})
}

func (s *keywordService) List(ctx context.Context, ownerID int64) ([]*models.Keyword, error) {
	return s.kr.ListByOwner(ctx, ownerID)
}
