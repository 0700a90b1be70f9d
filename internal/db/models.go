package db

import (
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/meetbot/internal/match"
)

// Profile statuses. Only active users are shown or matched.
const (
	StatusNew     = "new"
	StatusActive  = "active"
	StatusBlocked = "blocked"
	StatusShadow  = "shadow"
)

// Pair statuses. Ended is terminal.
const (
	PairActive = "active"
	PairEnded  = "ended"
)

// Contact request statuses.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestDeclined = "declined"
)

// User is a bot profile keyed by the Telegram user id.
//
// Gender is "m" or "f"; Seek is "m", "f" or "b" (both).
// Lat/Lon are set together or not at all.
type User struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement:false"`
	Username  string    `gorm:"size:64"`
	Name      string    `gorm:"size:64;not null"`
	Age       int       `gorm:"not null;default:0"`
	Gender    string    `gorm:"size:1;not null;index:idx_users_status_gender,priority:2"`
	Seek      string    `gorm:"size:1;not null"`
	City      *string   `gorm:"size:128"`
	CityKey   string    `gorm:"size:128;index"` // folded City, maintained by BeforeSave
	Lat       *float64  `gorm:"index:idx_users_lat_lon,priority:1"`
	Lon       *float64  `gorm:"index:idx_users_lat_lon,priority:2"`
	About     string    `gorm:"size:1024"`
	Status    string    `gorm:"size:16;not null;default:new;index:idx_users_status_gender,priority:1"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// BeforeSave keeps CityKey in step with City.
func (u *User) BeforeSave(*gorm.DB) error {
	u.CityKey = ""
	if u.City != nil {
		u.CityKey = match.NormalizeCity(*u.City)
	}
	return nil
}

// Photo is one of a user's profile pictures.
//
// Unique (user_id, file_id) keeps a file from being attached twice.
// Position is 1-based and grows monotonically; at most one row per user is main.
type Photo struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `gorm:"not null;uniqueIndex:idx_photos_user_file,priority:1;index:idx_photos_user_pos,priority:1"`
	FileID    string    `gorm:"size:255;not null;uniqueIndex:idx_photos_user_file,priority:2"`
	Position  int       `gorm:"not null;index:idx_photos_user_pos,priority:2"`
	IsMain    bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// SeenEntry records that ShownID was presented to ViewerID in browse mode.
//
// Composite PK: (ViewerID, ShownID) makes re-recording a no-op.
type SeenEntry struct {
	ViewerID uint64    `gorm:"primaryKey;autoIncrement:false"`
	ShownID  uint64    `gorm:"primaryKey;autoIncrement:false"`
	SeenAt   time.Time `gorm:"not null;index"`
}

// QueueEntry is a user's presence in the roulette queue.
//
// The location is a snapshot taken at join time. LockedBy/LockedAt hold a
// matcher's temporary claim; both are NULL when unclaimed.
type QueueEntry struct {
	UserID   uint64    `gorm:"primaryKey;autoIncrement:false"`
	JoinedAt time.Time `gorm:"not null;index"`
	Lat      *float64
	Lon      *float64
	City     *string    `gorm:"size:128"`
	LockedBy *uint64    `gorm:"index"`
	LockedAt *time.Time `gorm:"index"`
}

// Pair is a roulette pairing. UserA < UserB always.
type Pair struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserA     uint64    `gorm:"not null;index"`
	UserB     uint64    `gorm:"not null;index"`
	Status    string    `gorm:"size:16;not null;index"`
	StartedAt time.Time `gorm:"not null"`
	EndedAt   *time.Time
}

// PairSeat holds one row per participant of an active pair.
// The primary key on UserID is what guarantees a user sits in at most one
// active pair; seats are deleted when the pair ends.
type PairSeat struct {
	UserID uint64 `gorm:"primaryKey;autoIncrement:false"`
	PairID uint64 `gorm:"not null;index"`
}

// Contact is a mutual favorite. UserA < UserB always.
type Contact struct {
	UserA     uint64    `gorm:"primaryKey;autoIncrement:false"`
	UserB     uint64    `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// ContactRequest is a one-way "share contacts" request.
type ContactRequest struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	FromID    uint64    `gorm:"not null;index:idx_requests_from_to,priority:1"`
	ToID      uint64    `gorm:"not null;index:idx_requests_from_to,priority:2;index:idx_requests_to_status,priority:1"`
	Context   string    `gorm:"size:16;not null;default:browse"` // where the request was sent from
	Status    string    `gorm:"size:16;not null;index:idx_requests_to_status,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	DecidedAt *time.Time
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Photo{},
		&SeenEntry{},
		&QueueEntry{},
		&Pair{},
		&PairSeat{},
		&Contact{},
		&ContactRequest{},
	}
}
