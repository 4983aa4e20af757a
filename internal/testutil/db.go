package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/maheshrc27/autopost/internal/database"
	"github.com/maheshrc27/autopost/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB returns a migrated in-memory database private to the test. It uses a
// single connection so concurrent callers queue instead of hitting SQLITE_BUSY.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:autopost_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func CreateAccount(t *testing.T, db *gorm.DB, email string, credit int) *models.Account {
	t.Helper()
	account := &models.Account{Email: email, Credit: credit}
	require.NoError(t, db.Create(account).Error)
	if credit > 0 {
		entry := &models.CreditLedgerEntry{OwnerID: account.ID, Amount: credit, ActionType: models.ActionAdjustment, Details: datatypes.JSONMap{}}
		require.NoError(t, db.Create(entry).Error)
	}
	return account
}

func CreateChannel(t *testing.T, db *gorm.DB, ownerID int64, platform string, length string, images int) *models.Channel {
	t.Helper()
	channel := &models.Channel{
		OwnerID:      ownerID,
		PlatformType: platform,
		BlogURL:      "https://blog.example.com",
		Persona:      "friendly expert",
		DefaultTopic: "home cooking",
		PostLength:   length,
		ImageCount:   images,
	}
	require.NoError(t, db.Create(channel).Error)
	return channel
}

func CreatePost(t *testing.T, db *gorm.DB, ownerID, channelID int64, expectedImages int) *models.Post {
	t.Helper()
	post := &models.Post{
		OwnerID:            ownerID,
		ChannelID:          channelID,
		Title:              "draft",
		Status:             models.PostStatusDraft,
		RunState:           models.RunStateAssetWait,
		ExpectedImageCount: expectedImages,
		ImageGenStatus:     models.ImageGenProcessing,
		ImagePaths:         datatypes.JSONSlice[string]{},
		TrackingStatus:     models.TrackingPending,
		KeywordRanks:       datatypes.NewJSONType(map[string]models.KeywordRank{}),
		CreatedAt:          time.Now(),
	}
	require.NoError(t, db.Create(post).Error)
	return post
}
