package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/meetbot/internal/db"
)

// QueueRepository manages roulette queue entries and matcher claims.
type QueueRepository struct {
	db *gorm.DB
}

func NewQueueRepository(database *gorm.DB) *QueueRepository {
	return &QueueRepository{db: database}
}

// Enqueue inserts an entry. created is false when the user was already queued;
// the existing entry is left untouched.
func (r *QueueRepository) Enqueue(ctx context.Context, e *db.QueueEntry) (created bool, err error) {
	if e.JoinedAt.IsZero() {
		e.JoinedAt = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(e)
	return res.RowsAffected == 1, res.Error
}

// Get returns the user's entry or ErrNotFound.
func (r *QueueRepository) Get(ctx context.Context, userID uint64) (*db.QueueEntry, error) {
	var e db.QueueEntry
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&e).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

// Remove deletes the user's entry. removed is false when there was none.
func (r *QueueRepository) Remove(ctx context.Context, userID uint64) (removed bool, err error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&db.QueueEntry{})
	return res.RowsAffected > 0, res.Error
}

// Candidates lists entries userID may be paired with: other active users,
// unclaimed and not seated in an active pair. Oldest first.
func (r *QueueRepository) Candidates(ctx context.Context, userID uint64) ([]db.QueueEntry, error) {
	var entries []db.QueueEntry
	err := r.db.WithContext(ctx).
		Table("queue_entries q").
		Select("q.*").
		Joins("JOIN users u ON u.id = q.user_id").
		Where("q.user_id <> ?", userID).
		Where("u.status = ?", db.StatusActive).
		Where("q.locked_by IS NULL").
		Where("NOT EXISTS (SELECT 1 FROM pair_seats s WHERE s.user_id = q.user_id)").
		Order("q.joined_at ASC, q.user_id ASC").
		Find(&entries).Error
	return entries, err
}

// Claim sets locked_by = claimant on userID's entry. The entry must be
// unclaimed, or already claimed by claimant when reentrant is set.
// ok is false when someone else holds it or the entry is gone.
func (r *QueueRepository) Claim(ctx context.Context, userID, claimant uint64, reentrant bool) (ok bool, err error) {
	q := r.db.WithContext(ctx).Model(&db.QueueEntry{}).Where("user_id = ?", userID)
	if reentrant {
		q = q.Where("locked_by IS NULL OR locked_by = ?", claimant)
	} else {
		q = q.Where("locked_by IS NULL")
	}
	res := q.Updates(map[string]any{
		"locked_by": claimant,
		"locked_at": time.Now().UTC(),
	})
	return res.RowsAffected == 1, res.Error
}

// Release clears the claim on userID's entry only if claimant holds it.
func (r *QueueRepository) Release(ctx context.Context, userID, claimant uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.QueueEntry{}).
		Where("user_id = ? AND locked_by = ?", userID, claimant).
		Updates(map[string]any{"locked_by": nil, "locked_at": nil}).Error
}

// ClearStaleClaims releases claims taken before cutoff.
func (r *QueueRepository) ClearStaleClaims(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.QueueEntry{}).
		Where("locked_by IS NOT NULL AND locked_at < ?", cutoff.UTC()).
		Updates(map[string]any{"locked_by": nil, "locked_at": nil})
	return res.RowsAffected, res.Error
}

// UserIDs lists everyone currently queued.
func (r *QueueRepository) UserIDs(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&db.QueueEntry{}).Order("joined_at ASC").Pluck("user_id", &ids).Error
	return ids, err
}
