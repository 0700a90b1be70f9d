package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/oggyb/meetbot/internal/db"
	"github.com/oggyb/meetbot/internal/match"
)

// mainPhotoSQL selects the file shown as a profile's face: the main photo,
// or the earliest one when none is flagged.
const mainPhotoSQL = `(SELECT p.file_id FROM photos p
	WHERE p.user_id = u.id
	ORDER BY p.is_main DESC, p.position ASC, p.id ASC
	LIMIT 1) AS main_photo`

// Profile is a user row plus the file id of its main photo.
type Profile struct {
	db.User
	MainPhoto string
}

// Point returns the profile coordinates, or nil when unknown.
func (p Profile) Point() *match.Point {
	if p.Lat == nil || p.Lon == nil {
		return nil
	}
	return &match.Point{Lat: *p.Lat, Lon: *p.Lon}
}

// Match projects the profile onto the fields the predicates use.
func (p Profile) Match() match.Profile {
	city := ""
	if p.City != nil {
		city = *p.City
	}
	return match.Profile{
		ID:       p.ID,
		Gender:   match.Gender(p.Gender),
		Seek:     match.Seek(p.Seek),
		Status:   match.Status(p.Status),
		HasPhoto: p.MainPhoto != "",
		Point:    p.Point(),
		City:     city,
	}
}

// BrowseFilter narrows the browse candidate query. It is a prefilter: the
// match predicates decide the final eligibility.
type BrowseFilter struct {
	Viewer  match.Profile
	Box     *match.Box // nil when the viewer has no coordinates
	CityKey string     // folded viewer city, empty when unknown
}

// ProfileRepository reads profiles. Users are written only by Save and
// SetStatus, on registration and by the seeder.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new repository bound to the given DB connection.
func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// Get loads one profile with its main photo.
func (r *ProfileRepository) Get(ctx context.Context, id uint64) (*Profile, error) {
	var rows []Profile
	err := r.db.WithContext(ctx).
		Table("users u").
		Select("u.*, "+mainPhotoSQL).
		Where("u.id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load profile %d: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// Save inserts or fully updates a user.
func (r *ProfileRepository) Save(ctx context.Context, u *db.User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

// SetStatus changes a user's activity status.
func (r *ProfileRepository) SetStatus(ctx context.Context, id uint64, status string) error {
	res := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// BrowseCandidates returns active profiles with a photo, compatible by
// gender/seek with the viewer, not yet seen by the viewer and inside the
// viewer's bounding box or city.
//
// Returns an empty slice when the viewer has neither coordinates nor city.
func (r *ProfileRepository) BrowseCandidates(ctx context.Context, f BrowseFilter) ([]Profile, error) {
	if f.Box == nil && f.CityKey == "" {
		return nil, nil
	}

	v := f.Viewer
	q := r.db.WithContext(ctx).
		Table("users u").
		Select("u.*, "+mainPhotoSQL).
		Where("u.status = ? AND u.id <> ?", db.StatusActive, v.ID).
		Where("EXISTS (SELECT 1 FROM photos p WHERE p.user_id = u.id)").
		Where(`NOT EXISTS (
			SELECT 1 FROM seen_entries s
			WHERE s.viewer_id = ? AND s.shown_id = u.id
		)`, v.ID).
		Where("u.seek IN ?", []string{string(v.Gender), string(match.SeekBoth)})

	if v.Seek != match.SeekBoth {
		q = q.Where("u.gender = ?", string(v.Seek))
	}

	geo, args := geoClause(f)
	q = q.Where(geo, args...)

	var rows []Profile
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("browse candidates for %d: %w", v.ID, err)
	}
	return rows, nil
}

func geoClause(f BrowseFilter) (string, []any) {
	var (
		sql  string
		args []any
	)
	if b := f.Box; b != nil {
		if b.AllLon {
			sql = "(u.lat BETWEEN ? AND ? AND u.lon IS NOT NULL)"
			args = append(args, b.MinLat, b.MaxLat)
		} else {
			sql = "(u.lat BETWEEN ? AND ? AND u.lon BETWEEN ? AND ?)"
			args = append(args, b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
		}
	}
	if f.CityKey != "" {
		if sql != "" {
			sql += " OR "
		}
		sql += "u.city_key = ?"
		args = append(args, f.CityKey)
	}
	return "(" + sql + ")", args
}
