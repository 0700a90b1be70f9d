package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/meetbot/internal/db"
)

// SeenRepository stores per-viewer browse history.
type SeenRepository struct {
	db *gorm.DB
}

func NewSeenRepository(database *gorm.DB) *SeenRepository {
	return &SeenRepository{db: database}
}

// Record marks shownID as seen by viewerID. Recording twice is a no-op.
func (r *SeenRepository) Record(ctx context.Context, viewerID, shownID uint64) error {
	entry := db.SeenEntry{
		ViewerID: viewerID,
		ShownID:  shownID,
		SeenAt:   time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry).Error
}

// Reset clears the viewer's history and returns how many entries were removed.
func (r *SeenRepository) Reset(ctx context.Context, viewerID uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("viewer_id = ?", viewerID).
		Delete(&db.SeenEntry{})
	return res.RowsAffected, res.Error
}

// LastSeen returns the most recently shown id for the viewer.
func (r *SeenRepository) LastSeen(ctx context.Context, viewerID uint64) (uint64, error) {
	var entry db.SeenEntry
	err := r.db.WithContext(ctx).
		Where("viewer_id = ?", viewerID).
		Order("seen_at DESC").
		Take(&entry).Error
	if err != nil {
		return 0, notFound(err)
	}
	return entry.ShownID, nil
}
