package service

import (
	"context"
	"testing"

	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/internal/repository"
	"github.com/maheshrc27/autopost/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newKeywordFixture(t *testing.T) (*gorm.DB, KeywordService) {
	db := testutil.NewDB(t)
	return db, NewKeywordService(db, repository.NewKeywordRepository(db))
}

func TestKeywordRotation(t *testing.T) {
	ctx := context.Background()
	db, keywords := newKeywordFixture(t)
	owner := testutil.CreateAccount(t, db, "kw@example.com", 0)

	require.NoError(t, db.Create(&models.Keyword{OwnerID: owner.ID, Text: "AI", Priority: 3}).Error)
	require.NoError(t, db.Create(&models.Keyword{OwnerID: owner.ID, Text: "SEO", Priority: 1}).Error)

	next, err := keywords.Next(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "AI", next.Text)
	require.NoError(t, keywords.MarkUsed(ctx, owner.ID, "AI"))

	next, err = keywords.Next(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "SEO", next.Text)
	require.NoError(t, keywords.MarkUsed(ctx, owner.ID, "SEO"))

	next, err = keywords.Next(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "AI", next.Text)

	var unused int64
	require.NoError(t, db.Model(&models.Keyword{}).Where("owner_id = ? AND used_at IS NULL", owner.ID).Count(&unused).Error)
	assert.Equal(t, int64(2), unused)
}

func TestKeywordPoolExhaustsBeforeReset(t *testing.T) {
	ctx := context.Background()
	db, keywords := newKeywordFixture(t)
	owner := testutil.CreateAccount(t, db, "pool@example.com", 0)

	texts := []string{"one", "two", "three", "four"}
	inserted, err := keywords.BulkRegister(ctx, owner.ID, texts)
	require.NoError(t, err)
	require.Equal(t, len(texts), inserted)

	seen := map[string]bool{}
	for range texts {
		next, err := keywords.Next(ctx, owner.ID)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.False(t, seen[next.Text], "keyword %q returned twice before reset", next.Text)
		seen[next.Text] = true
		require.NoError(t, keywords.MarkUsed(ctx, owner.ID, next.Text))
	}
	assert.Len(t, seen, len(texts))

	next, err := keywords.Next(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "one", next.Text)
}

func TestKeywordNextWithoutKeywords(t *testing.T) {
	db, keywords := newKeywordFixture(t)
	owner := testutil.CreateAccount(t, db, "empty@example.com", 0)

	next, err := keywords.Next(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestKeywordBulkRegister(t *testing.T) {
	ctx := context.Background()
	db, keywords := newKeywordFixture(t)
	owner := testutil.CreateAccount(t, db, "bulk@example.com", 0)
	other := testutil.CreateAccount(t, db, "other@example.com", 0)

	inserted, err := keywords.BulkRegister(ctx, owner.ID, []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	inserted, err = keywords.BulkRegister(ctx, owner.ID, []string{"gamma", "alpha", "gamma", "  ", "delta"})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	inserted, err = keywords.BulkRegister(ctx, other.ID, []string{"alpha"})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	list, err := keywords.List(ctx, owner.ID)
	require.NoError(t, err)

	priorities := map[string]int{}
	for _, k := range list {
		priorities[k.Text] = k.Priority
	}
	assert.Equal(t, map[string]int{"alpha": 2, "beta": 1, "gamma": 5, "delta": 1}, priorities)
	assert.Equal(t, "gamma", list[0].Text)
}

func TestKeywordMarkUsedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, keywords := newKeywordFixture(t)
	owner := testutil.CreateAccount(t, db, "mark@example.com", 0)

	_, err := keywords.BulkRegister(ctx, owner.ID, []string{"solo"})
	require.NoError(t, err)

	require.NoError(t, keywords.MarkUsed(ctx, owner.ID, "solo"))
	var first models.Keyword
	require.NoError(t, db.Where("owner_id = ?", owner.ID).First(&first).Error)
	require.NotNil(t, first.UsedAt)

	require.NoError(t, keywords.MarkUsed(ctx, owner.ID, "solo"))
	require.NoError(t, keywords.MarkUsed(ctx, owner.ID, "missing"))

	var second models.Keyword
	require.NoError(t, db.Where("owner_id = ?", owner.ID).First(&second).Error)
	assert.True(t, first.UsedAt.Equal(*second.UsedAt))
}
