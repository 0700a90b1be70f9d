package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/meetbot/internal/db"
)

// setupTestDB opens a private in-memory database with the full schema.
// A single connection keeps every query on the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		Logger:  logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(database))
	return database
}

func strp(s string) *string   { return &s }
func f64p(f float64) *float64 { return &f }

// addUser inserts an active user with one photo unless overridden by mut.
func addUser(t *testing.T, gdb *gorm.DB, id uint64, gender, seek string, mut ...func(*db.User)) db.User {
	t.Helper()
	u := db.User{ID: id, Name: "user", Age: 25, Gender: gender, Seek: seek, Status: db.StatusActive}
	for _, m := range mut {
		m(&u)
	}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

func addPhoto(t *testing.T, gdb *gorm.DB, userID uint64, fileID string) {
	t.Helper()
	require.NoError(t, gdb.Create(&db.Photo{UserID: userID, FileID: fileID, Position: 1, IsMain: true}).Error)
}

func inCity(city string) func(*db.User) { return func(u *db.User) { u.City = strp(city) } }

func at(lat, lon float64) func(*db.User) {
	return func(u *db.User) { u.Lat, u.Lon = f64p(lat), f64p(lon) }
}

func withStatus(s string) func(*db.User) { return func(u *db.User) { u.Status = s } }

var ctx = context.Background()
