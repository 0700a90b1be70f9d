package profiles_test

import (
	"context"
	"fmt"
	"testing"

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
	"github.com/oggyb/meetbot/internal/service/profiles"
	"github.com/oggyb/meetbot/internal/session"
)

var ctx = context.Background()

func setupService(t *testing.T) (*profiles.Service, *app.AppContext) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
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

	appCtx := app.New(cfg, dbase, cache.NewRedisCache(cfg), logger.Discard(), nil)
	return profiles.NewService(appCtx), appCtx
}

func validInput() profiles.Input {
	lat, lon := 55.75, 37.62
	return profiles.Input{
		UserID:   1,
		Username: "@anna",
		Name:     " Anna ",
		Age:      27,
		Gender:   "Female",
		Seek:     "any",
		City:     "Moscow",
		Lat:      &lat,
		Lon:      &lon,
		About:    "hi",
	}
}

func TestSave_NormalizesAndKeepsStatus(t *testing.T) {
	s, appCtx := setupService(t)

	u, err := s.Save(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, "Anna", u.Name)
	assert.Equal(t, "anna", u.Username)
	assert.Equal(t, "f", u.Gender)
	assert.Equal(t, "b", u.Seek)
	assert.Equal(t, db.StatusNew, u.Status)

	require.NoError(t, appCtx.DB.Model(&db.User{}).Where("id = ?", 1).Update("status", db.StatusActive).Error)

	in := validInput()
	in.Seek = "m"
	in.Lat, in.Lon = nil, nil
	u, err = s.Save(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, db.StatusActive, u.Status, "resaving keeps the status")

	var stored db.User
	require.NoError(t, appCtx.DB.Take(&stored, 1).Error)
	assert.Equal(t, "m", stored.Seek)
	assert.Nil(t, stored.Lat)
	assert.Equal(t, "moscow", stored.CityKey)
}

func TestSave_RejectsBadFields(t *testing.T) {
	s, _ := setupService(t)
	lat := 10.0

	cases := []struct {
		name   string
		modify func(*profiles.Input)
	}{
		{"too young", func(in *profiles.Input) { in.Age = 17 }},
		{"too old", func(in *profiles.Input) { in.Age = 81 }},
		{"short name", func(in *profiles.Input) { in.Name = " A " }},
		{"unknown gender", func(in *profiles.Input) { in.Gender = "b" }},
		{"unknown seek", func(in *profiles.Input) { in.Seek = "x" }},
		{"long about", func(in *profiles.Input) {
			b := make([]rune, profiles.MaxAboutLen+1)
			for i := range b {
				b[i] = 'ж'
			}
			in.About = string(b)
		}},
		{"lat without lon", func(in *profiles.Input) { in.Lat, in.Lon = &lat, nil }},
		{"lat out of range", func(in *profiles.Input) { bad := 91.0; in.Lat = &bad }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.modify(&in)
			_, err := s.Save(ctx, in)
			assert.ErrorIs(t, err, svcErr.ErrBadProfile)
		})
	}
}

func TestActivate(t *testing.T) {
	s, appCtx := setupService(t)

	assert.ErrorIs(t, s.Activate(ctx, 404), repository.ErrNotFound)

	_, err := s.Save(ctx, validInput())
	require.NoError(t, err)
	assert.ErrorIs(t, s.Activate(ctx, 1), svcErr.ErrNotEligible, "no photo yet")

	require.NoError(t, appCtx.DB.Create(&db.Photo{UserID: 1, FileID: "f1", Position: 1, IsMain: true}).Error)
	require.NoError(t, appCtx.Sessions.Set(ctx, 1, session.StateBrowsing, 0))

	require.NoError(t, s.Activate(ctx, 1))

	var stored db.User
	require.NoError(t, appCtx.DB.Take(&stored, 1).Error)
	assert.Equal(t, db.StatusActive, stored.Status)

	rec, err := appCtx.Sessions.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, session.StateIdle, rec.State)

	require.NoError(t, s.Activate(ctx, 1), "activating twice is fine")
}

func TestActivate_KeepsModerationStatus(t *testing.T) {
	s, appCtx := setupService(t)

	for id, status := range map[uint64]string{2: db.StatusBlocked, 3: db.StatusShadow} {
		require.NoError(t, appCtx.DB.Create(&db.User{ID: id, Name: "x", Gender: "m", Seek: "f", Status: status}).Error)
		require.NoError(t, appCtx.DB.Create(&db.Photo{UserID: id, FileID: fmt.Sprint(id), Position: 1, IsMain: true}).Error)
	}

	assert.ErrorIs(t, s.Activate(ctx, 2), svcErr.ErrNotEligible)
	require.NoError(t, s.Activate(ctx, 3))

	var stored db.User
	require.NoError(t, appCtx.DB.Take(&stored, 3).Error)
	assert.Equal(t, db.StatusShadow, stored.Status)
}
