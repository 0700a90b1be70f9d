package contacts_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oggyb/meetbot/internal/app"
	"github.com/oggyb/meetbot/internal/cache"
	"github.com/oggyb/meetbot/internal/config"
	"github.com/oggyb/meetbot/internal/db"
	svcErr "github.com/oggyb/meetbot/internal/errors"
	"github.com/oggyb/meetbot/internal/logger"
	"github.com/oggyb/meetbot/internal/repository"
	"github.com/oggyb/meetbot/internal/service/contacts"
	"github.com/oggyb/meetbot/internal/utils/pagination"
)

var ctx = context.Background()

func setupService(t *testing.T) (*contacts.Service, *app.AppContext, *miniredis.Miniredis) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(dbase))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	for id := uint64(1); id <= 6; id++ {
		require.NoError(t, dbase.Create(&db.User{
			ID: id, Name: fmt.Sprintf("user%d", id), Gender: "m", Seek: "f", Status: db.StatusActive,
		}).Error)
	}
	require.NoError(t, dbase.Create(&db.User{ID: 9, Name: "banned", Gender: "f", Seek: "m", Status: db.StatusBlocked}).Error)

	appCtx := app.New(cfg, dbase, cache.NewRedisCache(cfg), logger.Discard(), nil)
	return contacts.NewService(appCtx), appCtx, mr
}

func TestAddFavorite(t *testing.T) {
	svc, _, _ := setupService(t)

	created, err := svc.AddFavorite(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.AddFavorite(ctx, 2, 1)
	require.NoError(t, err)
	assert.False(t, created, "same pair in reverse order is the same favorite")

	_, err = svc.AddFavorite(ctx, 1, 1)
	assert.ErrorIs(t, err, svcErr.ErrSelf)

	_, err = svc.AddFavorite(ctx, 1, 9)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.AddFavorite(ctx, 1, 404)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCountFavorites_CacheFirst(t *testing.T) {
	svc, appCtx, mr := setupService(t)
	key := appCtx.RedisCache.KeyForFavoriteCount(1)

	_, err := svc.AddFavorite(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, mr.Exists(key), "adjust leaves a cold counter cold")

	n, err := svc.CountFavorites(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.True(t, mr.Exists(key))

	// Warm counter follows writes.
	_, err = svc.AddFavorite(ctx, 3, 1)
	require.NoError(t, err)
	got, _ := mr.Get(key)
	assert.Equal(t, "2", got)

	_, err = svc.RemoveFavorite(ctx, 1, 2)
	require.NoError(t, err)
	n, err = svc.CountFavorites(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// A stale cached value wins until it expires.
	mr.Set(key, "42")
	n, err = svc.CountFavorites(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)

	mr.FastForward(2 * time.Hour)
	n, err = svc.CountFavorites(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCountFavorites_MatchesList(t *testing.T) {
	svc, appCtx, _ := setupService(t)

	for _, id := range []uint64{2, 3} {
		_, err := svc.AddFavorite(ctx, 1, id)
		require.NoError(t, err)
	}
	require.NoError(t, appCtx.DB.Model(&db.User{}).Where("id = ?", 3).Update("status", db.StatusBlocked).Error)

	entries, _, err := svc.ListFavorites(ctx, 1, nil, 10)
	require.NoError(t, err)
	n, err := svc.CountFavorites(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, len(entries), n)
	assert.EqualValues(t, 1, n)
}

func TestListFavorites_Pages(t *testing.T) {
	svc, _, _ := setupService(t)

	for id := uint64(2); id <= 6; id++ {
		_, err := svc.AddFavorite(ctx, 1, id)
		require.NoError(t, err)
	}

	seen := map[uint64]bool{}
	var token *string
	pages := 0
	for {
		entries, next, err := svc.ListFavorites(ctx, 1, token, 2)
		require.NoError(t, err)
		pages++
		for _, e := range entries {
			assert.False(t, seen[e.PeerID], "peer %d listed twice", e.PeerID)
			seen[e.PeerID] = true
		}
		if next == nil {
			break
		}
		token = next
	}
	assert.Equal(t, 3, pages)
	assert.Len(t, seen, 5)

	bad := "not-a-cursor"
	_, _, err := svc.ListFavorites(ctx, 1, &bad, 2)
	assert.ErrorIs(t, err, pagination.ErrInvalidToken)
}

func TestContactRequests(t *testing.T) {
	svc, _, _ := setupService(t)

	req, err := svc.SendRequest(ctx, 1, 2, contacts.OriginRoulette)
	require.NoError(t, err)
	assert.Equal(t, db.RequestPending, req.Status)
	assert.Equal(t, contacts.OriginRoulette, req.Context)

	_, err = svc.SendRequest(ctx, 1, 2, "")
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	_, err = svc.SendRequest(ctx, 1, 1, "")
	assert.ErrorIs(t, err, svcErr.ErrSelf)
	_, err = svc.SendRequest(ctx, 1, 9, "")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	incoming, err := svc.ListIncoming(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, incoming, 1)

	// Only the addressee can resolve.
	_, err = svc.Accept(ctx, req.ID, 3)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	accepted, err := svc.Accept(ctx, req.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, db.RequestAccepted, accepted.Status)
	assert.NotNil(t, accepted.DecidedAt)

	n, err := svc.CountFavorites(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = svc.SendRequest(ctx, 2, 1, "")
	assert.ErrorIs(t, err, repository.ErrDuplicate, "already contacts")

	// Resolved requests cannot be resolved again.
	_, err = svc.Decline(ctx, req.ID, 2)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	other, err := svc.SendRequest(ctx, 3, 2, "")
	require.NoError(t, err)
	declined, err := svc.Decline(ctx, other.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, db.RequestDeclined, declined.Status)

	incoming, err = svc.ListIncoming(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, incoming)
}
