package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/meetbot/internal/db"
	"github.com/oggyb/meetbot/internal/match"
	"github.com/oggyb/meetbot/internal/repository"
)

func ids(ps []repository.Profile) []uint64 {
	out := make([]uint64, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestProfileGet(t *testing.T) {
	gdb := setupTestDB(t)
	repo := repository.NewProfileRepository(gdb)

	addUser(t, gdb, 10, "f", "m", inCity(" Moscow "), at(55.75, 37.61))
	require.NoError(t, gdb.Create(&db.Photo{UserID: 10, FileID: "second", Position: 2}).Error)
	require.NoError(t, gdb.Create(&db.Photo{UserID: 10, FileID: "first", Position: 1}).Error)

	p, err := repo.Get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "first", p.MainPhoto, "earliest photo stands in when none is main")
	assert.Equal(t, "moscow", p.CityKey)

	m := p.Match()
	assert.True(t, m.HasPhoto)
	require.NotNil(t, m.Point)
	assert.Equal(t, 55.75, m.Point.Lat)

	_, err = repo.Get(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBrowseCandidates_Prefilter(t *testing.T) {
	gdb := setupTestDB(t)
	repo := repository.NewProfileRepository(gdb)

	viewer := addUser(t, gdb, 1, "m", "f", inCity("Moscow"))
	addUser(t, gdb, 2, "f", "m", inCity("moscow"))  // eligible
	addUser(t, gdb, 3, "f", "b", inCity("MOSCOW ")) // eligible
	addUser(t, gdb, 4, "f", "f", inCity("Moscow"))  // does not seek men
	addUser(t, gdb, 5, "m", "b", inCity("Moscow"))  // wrong gender
	addUser(t, gdb, 6, "f", "m", inCity("Kazan"))   // other city
	addUser(t, gdb, 7, "f", "m", inCity("Moscow"), withStatus(db.StatusBlocked))
	addUser(t, gdb, 8, "f", "m", inCity("Moscow")) // no photo
	for _, id := range []uint64{1, 2, 3, 4, 5, 6, 7} {
		addPhoto(t, gdb, id, "photo")
	}

	p, err := repo.Get(ctx, viewer.ID)
	require.NoError(t, err)

	got, err := repo.BrowseCandidates(ctx, repository.BrowseFilter{Viewer: p.Match(), CityKey: p.CityKey})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 3}, ids(got))

	// seen users drop out
	require.NoError(t, repository.NewSeenRepository(gdb).Record(ctx, 1, 2))
	got, err = repo.BrowseCandidates(ctx, repository.BrowseFilter{Viewer: p.Match(), CityKey: p.CityKey})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, ids(got))
}

func TestBrowseCandidates_BoundingBox(t *testing.T) {
	gdb := setupTestDB(t)
	repo := repository.NewProfileRepository(gdb)

	addUser(t, gdb, 1, "f", "b", at(55.7558, 37.6173))
	addUser(t, gdb, 2, "m", "f", at(55.80, 37.70)) // close
	addUser(t, gdb, 3, "m", "f", at(59.93, 30.36)) // far
	addUser(t, gdb, 4, "f", "b")                   // no location at all
	for _, id := range []uint64{1, 2, 3, 4} {
		addPhoto(t, gdb, id, "photo")
	}

	p, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	box, ok := match.NewGeoScope(50).BoundingBox(p.Match())
	require.True(t, ok)

	got, err := repo.BrowseCandidates(ctx, repository.BrowseFilter{Viewer: p.Match(), Box: &box})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, ids(got))
}

func TestBrowseCandidates_NoLocation(t *testing.T) {
	gdb := setupTestDB(t)
	repo := repository.NewProfileRepository(gdb)

	got, err := repo.BrowseCandidates(ctx, repository.BrowseFilter{Viewer: match.Profile{ID: 1, Gender: match.Male, Seek: match.SeekBoth}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSetStatus(t *testing.T) {
	gdb := setupTestDB(t)
	repo := repository.NewProfileRepository(gdb)
	addUser(t, gdb, 1, "m", "f")

	require.NoError(t, repo.SetStatus(ctx, 1, db.StatusShadow))
	p, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, db.StatusShadow, p.Status)

	assert.ErrorIs(t, repo.SetStatus(ctx, 2, db.StatusActive), repository.ErrNotFound)
}
