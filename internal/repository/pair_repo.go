package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/meetbot/internal/db"
)

// PairRepository creates and ends roulette pairs.
//
// The pair_seats primary key is the authority on "one active pair per
// user": Commit inserts both seats and fails with ErrConflict if either
// user is already seated, whatever the queue claims say.
type PairRepository struct {
	db *gorm.DB
}

func NewPairRepository(database *gorm.DB) *PairRepository {
	return &PairRepository{db: database}
}

// Commit turns two claimed queue entries into an active pair in one
// transaction:
//  1. insert the pair in canonical order,
//  2. insert both seats (insert-or-ignore, exactly 2 rows required),
//  3. delete both queue entries still claimed by claimant (exactly 2 rows required).
//
// Any shortfall rolls back and returns ErrConflict.
func (r *PairRepository) Commit(ctx context.Context, u1, u2, claimant uint64, at time.Time) (*db.Pair, error) {
	if u1 == u2 {
		return nil, fmt.Errorf("pair %d with itself: %w", u1, ErrConflict)
	}
	a, b := canonical(u1, u2)
	pair := db.Pair{UserA: a, UserB: b, Status: db.PairActive, StartedAt: at.UTC()}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&pair).Error; err != nil {
			return err
		}

		seats := []db.PairSeat{{UserID: a, PairID: pair.ID}, {UserID: b, PairID: pair.ID}}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seats)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 2 {
			return fmt.Errorf("seat %d/%d taken: %w", a, b, ErrConflict)
		}

		res = tx.Where("user_id IN ? AND locked_by = ?", []uint64{a, b}, claimant).Delete(&db.QueueEntry{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 2 {
			return fmt.Errorf("claim on %d/%d lost: %w", a, b, ErrConflict)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// Active returns the user's active pair or ErrNotFound.
func (r *PairRepository) Active(ctx context.Context, userID uint64) (*db.Pair, error) {
	var pair db.Pair
	err := r.db.WithContext(ctx).
		Table("pairs").
		Joins("JOIN pair_seats s ON s.pair_id = pairs.id").
		Where("s.user_id = ? AND pairs.status = ?", userID, db.PairActive).
		Select("pairs.*").
		Take(&pair).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &pair, nil
}

// EndActive ends the user's active pair, if any, and frees both seats.
// Returns ErrNotFound when the user is not paired.
func (r *PairRepository) EndActive(ctx context.Context, userID uint64, at time.Time) (*db.Pair, error) {
	var pair db.Pair
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seat db.PairSeat
		if err := tx.Where("user_id = ?", userID).Take(&seat).Error; err != nil {
			return notFound(err)
		}

		ended := at.UTC()
		res := tx.Model(&db.Pair{}).
			Where("id = ? AND status = ?", seat.PairID, db.PairActive).
			Updates(map[string]any{"status": db.PairEnded, "ended_at": ended})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("pair %d already ended: %w", seat.PairID, ErrConflict)
		}

		if err := tx.Where("pair_id = ?", seat.PairID).Delete(&db.PairSeat{}).Error; err != nil {
			return err
		}
		return tx.Take(&pair, seat.PairID).Error
	})
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// Partner returns the other side of p for userID.
func Partner(p *db.Pair, userID uint64) uint64 {
	if p.UserA == userID {
		return p.UserB
	}
	return p.UserA
}
