package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/meetbot/internal/db"
	"github.com/oggyb/meetbot/internal/repository"
)

// queueClaimed enqueues the users and claims every entry for claimant.
func queueClaimed(t *testing.T, gdb *gorm.DB, claimant uint64, users ...uint64) {
	t.Helper()
	q := repository.NewQueueRepository(gdb)
	for _, id := range users {
		_, err := q.Enqueue(ctx, &db.QueueEntry{UserID: id})
		require.NoError(t, err)
		ok, err := q.Claim(ctx, id, claimant, true)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestPairCommit_CanonicalOrderAndQueueCleared(t *testing.T) {
	gdb := setupTestDB(t)
	repo := repository.NewPairRepository(gdb)
	queueClaimed(t, gdb, 5, 5, 2)

	pair, err := repo.Commit(ctx, 5, 2, 5, time.Now())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), pair.UserA)
	assert.Equal(t, uint64(5), pair.UserB)
	assert.Equal(t, db.PairActive, pair.Status)

	var queued int64
	require.NoError(t, gdb.Model(&db.QueueEntry{}).Count(&queued).Error)
	assert.Zero(t, queued)

	active, err := repo.Active(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, pair.ID, active.ID)
	assert.Equal(t, uint64(2), repository.Partner(active, 5))
	assert.Equal(t, uint64(5), repository.Partner(active, 2))
}

func TestPairCommit_SeatConstraintRejectsOverlap(t *testing.T) {
	gdb := setupTestDB(t)
	repo := repository.NewPairRepository(gdb)

	// two matchers both believe they own user 2; no locks involved
	queueClaimed(t, gdb, 1, 1, 2)
	_, err := repo.Commit(ctx, 1, 2, 1, time.Now())
	require.NoError(t, err)

	// user 2 re-enters the queue while still seated (stale state)
	queueClaimed(t, gdb, 3, 3, 2)
	_, err = repo.Commit(ctx, 3, 2, 3, time.Now())
	assert.ErrorIs(t, err, repository.ErrConflict)

	// rollback: no second pair, 3's entry still there
	var pairs int64
	require.NoError(t, gdb.Model(&db.Pair{}).Count(&pairs).Error)
	assert.Equal(t, int64(1), pairs)

	_, err = repository.NewQueueRepository(gdb).Get(ctx, 3)
	assert.NoError(t, err)
}

func TestPairCommit_LostClaimConflicts(t *testing.T) {
	gdb := setupTestDB(t)
	repo := repository.NewPairRepository(gdb)
	q := repository.NewQueueRepository(gdb)

	queueClaimed(t, gdb, 1, 1)
	_, err := q.Enqueue(ctx, &db.QueueEntry{UserID: 2})
	require.NoError(t, err)
	ok, err := q.Claim(ctx, 2, 9, false) // someone else's claim
	require.NoError(t, err)
	require.True(t, ok)

	_, err = repo.Commit(ctx, 1, 2, 1, time.Now())
	assert.ErrorIs(t, err, repository.ErrConflict)

	var seats int64
	require.NoError(t, gdb.Model(&db.PairSeat{}).Count(&seats).Error)
	assert.Zero(t, seats)
}

func TestPairCommit_Self(t *testing.T) {
	gdb := setupTestDB(t)
	_, err := repository.NewPairRepository(gdb).Commit(ctx, 1, 1, 1, time.Now())
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestPairEndActive(t *testing.T) {
	gdb := setupTestDB(t)
	repo := repository.NewPairRepository(gdb)
	queueClaimed(t, gdb, 1, 1, 2)
	pair, err := repo.Commit(ctx, 1, 2, 1, time.Now())
	require.NoError(t, err)

	ended, err := repo.EndActive(ctx, 2, time.Now())
	require.NoError(t, err)
	assert.Equal(t, pair.ID, ended.ID)
	assert.Equal(t, db.PairEnded, ended.Status)
	require.NotNil(t, ended.EndedAt)

	_, err = repo.Active(ctx, 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.EndActive(ctx, 1, time.Now())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// both seats are free again
	queueClaimed(t, gdb, 1, 1, 2)
	_, err = repo.Commit(ctx, 1, 2, 1, time.Now())
	assert.NoError(t, err)
}
