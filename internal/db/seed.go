package db

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type seedCity struct {
	name     string
	lat, lon float64
}

var seedCities = []seedCity{
	{"Moscow", 55.7558, 37.6173},
	{"Saint Petersburg", 59.9343, 30.3351},
	{"Kazan", 55.7963, 49.1088},
}

var (
	seedMaleNames   = []string{"Ivan", "Pavel", "Oleg", "Artem", "Denis", "Maksim", "Ilya", "Sergey", "Roman", "Kirill"}
	seedFemaleNames = []string{"Anna", "Maria", "Olga", "Daria", "Elena", "Irina", "Polina", "Alina", "Vera", "Sofia"}
	seedAbout       = []string{
		"Coffee, books and long walks.",
		"Looking for someone to go hiking with.",
		"Just moved here, show me around?",
		"",
		"Cinema nerd. Will judge your top 5.",
	}
)

// SeedTestData resets the database and populates it with demo profiles.
//
// Behavior:
//  1. Clears pairs, queue, history, contacts, photos and users.
//  2. Creates 20 active users (10 male, 10 female) spread over three cities;
//     every fourth user has a city but no coordinates.
//  3. Gives each user 1-3 photos and links a few mutual favorites.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB, log *slog.Logger) error {
	r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))

	// --- Fresh start ---
	for _, table := range []string{
		"pair_seats", "pairs", "queue_entries", "seen_entries",
		"contact_requests", "contacts", "photos", "users",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Info("cleared existing data")

	// --- Users ---
	const total = 20
	for i := 1; i <= total; i++ {
		gender, names := "m", seedMaleNames
		if i > total/2 {
			gender, names = "f", seedFemaleNames
		}
		seek := "f"
		if gender == "f" {
			seek = "m"
		}
		if i%7 == 0 {
			seek = "b"
		}

		city := seedCities[i%len(seedCities)]
		name := city.name
		user := User{
			ID:       uint64(i),
			Username: fmt.Sprintf("user%d", i),
			Name:     names[(i-1)%len(names)],
			Age:      18 + r.IntN(20),
			Gender:   gender,
			Seek:     seek,
			City:     &name,
			About:    seedAbout[r.IntN(len(seedAbout))],
			Status:   StatusActive,
		}
		if i%4 != 0 {
			// within ~10 km of the center
			lat := city.lat + (r.Float64()-0.5)*0.18
			lon := city.lon + (r.Float64()-0.5)*0.3
			user.Lat, user.Lon = &lat, &lon
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		photos := 1 + r.IntN(3)
		for p := 1; p <= photos; p++ {
			photo := Photo{
				UserID:   user.ID,
				FileID:   fmt.Sprintf("demo-photo-%d-%d", i, p),
				Position: p,
				IsMain:   p == 1,
			}
			if err := db.Create(&photo).Error; err != nil {
				return fmt.Errorf("failed to seed photo: %w", err)
			}
		}
	}
	log.Info("seeded users", "count", total)

	// --- Favorites ---
	contacts := 0
	for i := 1; i <= total/2; i += 3 {
		c := Contact{UserA: uint64(i), UserB: uint64(i + total/2), CreatedAt: time.Now().UTC()}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&c).Error; err != nil {
			return fmt.Errorf("failed to seed contact: %w", err)
		}
		contacts++
	}
	log.Info("seeded favorites", "count", contacts)

	return nil
}
