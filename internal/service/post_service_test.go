package service

import (
	"context"
	"testing"

	"github.com/maheshrc27/autopost/internal/models"
	"github.com/maheshrc27/autopost/internal/repository"
	"github.com/maheshrc27/autopost/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateAccount(t, db, "owner@example.com", 0)
	other := testutil.CreateAccount(t, db, "other@example.com", 0)
	channel := testutil.CreateChannel(t, db, owner.ID, models.PlatformNaver, models.LengthShort, 0)
	post := testutil.CreatePost(t, db, owner.ID, channel.ID, 0)

	posts := repository.NewPostRepository(db)
	svc := NewPostService(db, posts, repository.NewAssetJobRepository(db))
	ctx := context.Background()

	got, err := svc.PostInfo(ctx, owner.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)

	_, err = svc.PostInfo(ctx, other.ID, post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)

	list, err := svc.List(ctx, owner.ID, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.Error(t, svc.Remove(ctx, owner.ID, post.ID), "run still waiting on assets")

	require.NoError(t, posts.UpdateFields(ctx, nil, post.ID, map[string]any{"run_state": models.RunStateDone}))
	require.NoError(t, svc.Remove(ctx, owner.ID, post.ID))

	_, err = svc.PostInfo(ctx, owner.ID, post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
}
