package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/meetbot/internal/db"
	"github.com/oggyb/meetbot/internal/utils/pagination"
)

// peerSQL picks the other side of a canonical contact row for user ?.
const peerSQL = "CASE WHEN c.user_a = ? THEN c.user_b ELSE c.user_a END"

// ContactEntry is one favorite as seen from the listing user.
type ContactEntry struct {
	PeerID    uint64
	CreatedAt time.Time
}

// ContactRepository provides data access for favorites (mutual contacts)
// and contact requests.
type ContactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new repository bound to the given DB connection.
func NewContactRepository(database *gorm.DB) *ContactRepository {
	return &ContactRepository{db: database}
}

// AddContact links two users. The row is stored in canonical order, so
// (1,2) and (2,1) are the same contact; adding it again is a no-op.
//
// Example:
//
//	repo.AddContact(ctx, 2, 1) // stores (1, 2)
func (r *ContactRepository) AddContact(ctx context.Context, u1, u2 uint64) (created bool, err error) {
	return addContact(r.db.WithContext(ctx), u1, u2)
}

func addContact(tx *gorm.DB, u1, u2 uint64) (bool, error) {
	a, b := canonical(u1, u2)
	c := db.Contact{UserA: a, UserB: b, CreatedAt: time.Now().UTC().Truncate(time.Millisecond)}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&c)
	return res.RowsAffected == 1, res.Error
}

// RemoveContact unlinks two users. removed is false when they were not linked.
func (r *ContactRepository) RemoveContact(ctx context.Context, u1, u2 uint64) (removed bool, err error) {
	a, b := canonical(u1, u2)
	res := r.db.WithContext(ctx).Where("user_a = ? AND user_b = ?", a, b).Delete(&db.Contact{})
	return res.RowsAffected > 0, res.Error
}

// IsContact reports whether two users are linked.
func (r *ContactRepository) IsContact(ctx context.Context, u1, u2 uint64) (bool, error) {
	a, b := canonical(u1, u2)
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Contact{}).Where("user_a = ? AND user_b = ?", a, b).Count(&count).Error
	return count > 0, err
}

// ListContacts returns the user's active contacts, newest first.
//
// Behavior:
//   - Peers that are no longer active are skipped.
//   - Ordered by created_at DESC, peer id DESC.
//   - Supports cursor-based pagination via paginationToken.
func (r *ContactRepository) ListContacts(
	ctx context.Context,
	userID uint64,
	paginationToken *string,
	limit int,
) ([]ContactEntry, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("contacts c").
		Select(peerSQL+" AS peer_id, c.created_at", userID).
		Joins("JOIN users u ON u.id = "+peerSQL, userID).
		Where("(c.user_a = ? OR c.user_b = ?) AND u.status = ?", userID, userID, db.StatusActive).
		Order("c.created_at DESC, peer_id DESC").
		Limit(limit + 1)

	if !cursor.IsZero() {
		ts := cursor.Time()
		query = query.Where(
			"(c.created_at < ? OR (c.created_at = ? AND "+peerSQL+" < ?))",
			ts, ts, userID, cursor.ID,
		)
	}

	var entries []ContactEntry
	if err := query.Scan(&entries).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(entries) > limit {
		last := entries[limit-1]
		token, _ := pagination.Encode(pagination.At(last.PeerID, last.CreatedAt))
		nextToken = &token
		entries = entries[:limit]
	}
	return entries, nextToken, nil
}

// CountContacts returns how many contacts ListContacts would page
// through: peers that are not active are left out.
func (r *ContactRepository) CountContacts(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("contacts c").
		Joins("JOIN users u ON u.id = "+peerSQL, userID).
		Where("(c.user_a = ? OR c.user_b = ?) AND u.status = ?", userID, userID, db.StatusActive).
		Count(&count).Error
	return count, err
}

// CreateRequest stores a pending request from -> to.
// ErrDuplicate when one is already pending.
func (r *ContactRepository) CreateRequest(ctx context.Context, fromID, toID uint64, origin string) (*db.ContactRequest, error) {
	req := db.ContactRequest{FromID: fromID, ToID: toID, Context: origin, Status: db.RequestPending}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending int64
		if err := tx.Model(&db.ContactRequest{}).
			Where("from_id = ? AND to_id = ? AND status = ?", fromID, toID, db.RequestPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return fmt.Errorf("request %d -> %d: %w", fromID, toID, ErrDuplicate)
		}
		return tx.Create(&req).Error
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ResolveRequest accepts or declines a pending request addressed to toID.
// Accepting links both users in the same transaction.
func (r *ContactRepository) ResolveRequest(ctx context.Context, requestID, toID uint64, accept bool) (*db.ContactRequest, error) {
	var req db.ContactRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND to_id = ? AND status = ?", requestID, toID, db.RequestPending).
			Take(&req).Error; err != nil {
			return notFound(err)
		}

		now := time.Now().UTC()
		req.Status = db.RequestDeclined
		if accept {
			req.Status = db.RequestAccepted
		}
		req.DecidedAt = &now

		res := tx.Model(&db.ContactRequest{}).
			Where("id = ? AND status = ?", req.ID, db.RequestPending).
			Updates(map[string]any{"status": req.Status, "decided_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("request %d: %w", req.ID, ErrConflict)
		}

		if accept {
			_, err := addContact(tx, req.FromID, req.ToID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListIncoming returns pending requests addressed to toID, newest first.
func (r *ContactRepository) ListIncoming(ctx context.Context, toID uint64, limit int) ([]db.ContactRequest, error) {
	var reqs []db.ContactRequest
	err := r.db.WithContext(ctx).
		Where("to_id = ? AND status = ?", toID, db.RequestPending).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&reqs).Error
	return reqs, err
}
