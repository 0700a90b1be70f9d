package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/meetbot/internal/repository"
)

func TestPhotoAdd_PositionsAndMain(t *testing.T) {
	gdb := setupTestDB(t)
	repo := repository.NewPhotoRepository(gdb)

	p1, err := repo.Add(ctx, 1, "a", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, p1.Position)
	assert.True(t, p1.IsMain)

	p2, err := repo.Add(ctx, 1, "b", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, p2.Position)
	assert.False(t, p2.IsMain)

	_, err = repo.Add(ctx, 1, "b", 3)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	_, err = repo.Add(ctx, 1, "c", 3)
	require.NoError(t, err)
	_, err = repo.Add(ctx, 1, "d", 3)
	assert.ErrorIs(t, err, repository.ErrLimitReached)

	// other users are unaffected
	other, err := repo.Add(ctx, 2, "a", 3)
	require.NoError(t, err)
	assert.True(t, other.IsMain)
}

func TestPhotoRemove_ReassignsMain(t *testing.T) {
	gdb := setupTestDB(t)
	repo := repository.NewPhotoRepository(gdb)

	p1, _ := repo.Add(ctx, 1, "a", 3)
	p2, _ := repo.Add(ctx, 1, "b", 3)
	_, _ = repo.Add(ctx, 1, "c", 3)

	require.NoError(t, repo.Remove(ctx, 1, p1.ID))

	photos, err := repo.List(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, p2.ID, photos[0].ID)
	assert.True(t, photos[0].IsMain)

	assert.ErrorIs(t, repo.Remove(ctx, 2, p2.ID), repository.ErrNotFound, "cannot remove someone else's photo")

	// positions keep growing after a removal
	p4, err := repo.Add(ctx, 1, "d", 3)
	require.NoError(t, err)
	assert.Equal(t, 4, p4.Position)
}

func TestPhotoSetMain(t *testing.T) {
	gdb := setupTestDB(t)
	repo := repository.NewPhotoRepository(gdb)

	_, _ = repo.Add(ctx, 1, "a", 3)
	p2, _ := repo.Add(ctx, 1, "b", 3)

	require.NoError(t, repo.SetMain(ctx, 1, p2.ID))
	photos, err := repo.List(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, p2.ID, photos[0].ID)
	assert.True(t, photos[0].IsMain)
	assert.False(t, photos[1].IsMain)

	assert.ErrorIs(t, repo.SetMain(ctx, 1, 999), repository.ErrNotFound)
}
