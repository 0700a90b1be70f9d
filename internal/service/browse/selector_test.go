package browse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oggyb/meetbot/internal/db"
	"github.com/oggyb/meetbot/internal/match"
	"github.com/oggyb/meetbot/internal/repository"
)

func setupSelector(t *testing.T) (*Selector, *gorm.DB) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))

	return NewSelector(repository.NewProfileRepository(gdb), match.NewGeoScope(50)), gdb
}

func TestSelector_UniformOverEligible(t *testing.T) {
	s, gdb := setupSelector(t)
	city := "Perm"

	require.NoError(t, gdb.Create(&db.User{ID: 1, Name: "v", Gender: "m", Seek: "f", City: &city, Status: db.StatusActive}).Error)
	for id := uint64(2); id <= 4; id++ {
		require.NoError(t, gdb.Create(&db.User{ID: id, Name: "c", Gender: "f", Seek: "m", City: &city, Status: db.StatusActive}).Error)
		require.NoError(t, gdb.Create(&db.Photo{UserID: id, FileID: fmt.Sprint(id), Position: 1, IsMain: true}).Error)
	}

	var sizes []int
	s.intn = func(n int) int {
		sizes = append(sizes, n)
		return n - 1
	}

	c, err := s.Pick(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, []int{3}, sizes, "the draw covers every eligible candidate")
}

func TestCaption(t *testing.T) {
	d := 3.4
	c := Candidate{Name: "Ann <3", Age: 27, City: "Moscow", About: string(make([]rune, 0)), DistanceKM: &d}
	assert.Equal(t, "<b>Ann &lt;3, 27, Moscow</b>\n📍 ~3.4 km away", c.Caption())

	long := ""
	for i := 0; i < 400; i++ {
		long += "ж"
	}
	c = Candidate{About: long}
	lines := c.Caption()
	assert.Contains(t, lines, "<b>No name</b>\n")
	assert.Equal(t, 300, len([]rune(lines))-len([]rune("<b>No name</b>\n")))
}
