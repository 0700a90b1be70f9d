// Package contacts implements favorites (mutual contacts) and contact
// requests between users who met while browsing or in roulette.
package contacts

import (
	"context"
	"errors"
	"fmt"

	"github.com/oggyb/meetbot/internal/app"
	"github.com/oggyb/meetbot/internal/db"
	svcErr "github.com/oggyb/meetbot/internal/errors"
	"github.com/oggyb/meetbot/internal/repository"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// Request origins.
const (
	OriginBrowse   = "browse"
	OriginRoulette = "roulette"
)

// Service contains the business logic on top of the contact repository
// and the favorites counter cache.
type Service struct {
	appCtx   *app.AppContext
	contacts *repository.ContactRepository
	profiles *repository.ProfileRepository
}

// NewService creates a contacts Service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		contacts: repository.NewContactRepository(appCtx.DB),
		profiles: repository.NewProfileRepository(appCtx.DB),
	}
}

// requireActive returns ErrNotFound unless the user exists and is active.
func (s *Service) requireActive(ctx context.Context, userID uint64) error {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return err
	}
	if p.Status != db.StatusActive {
		return fmt.Errorf("user %d is %s: %w", userID, p.Status, repository.ErrNotFound)
	}
	return nil
}

// AddFavorite links userID and targetID.
//
// Behavior:
//   - ErrSelf when adding yourself.
//   - ErrNotFound when the target is unknown or not active.
//   - Adding an existing favorite is a no-op (created=false).
//   - Cached counters of both users are bumped on creation.
func (s *Service) AddFavorite(ctx context.Context, userID, targetID uint64) (created bool, err error) {
	s.appCtx.Logger.Debug("AddFavorite called", "user", userID, "target", targetID)

	if userID == targetID {
		return false, svcErr.ErrSelf
	}
	if err := s.requireActive(ctx, targetID); err != nil {
		return false, err
	}

	created, err = s.contacts.AddContact(ctx, userID, targetID)
	if err != nil {
		s.appCtx.Logger.Error("AddContact failed", "user", userID, "target", targetID, "err", err)
		return false, err
	}
	if created {
		s.adjustCounts(ctx, 1, userID, targetID)
	}
	return created, nil
}

// RemoveFavorite unlinks two users. Removing a missing favorite is a no-op.
func (s *Service) RemoveFavorite(ctx context.Context, userID, targetID uint64) (removed bool, err error) {
	s.appCtx.Logger.Debug("RemoveFavorite called", "user", userID, "target", targetID)

	removed, err = s.contacts.RemoveContact(ctx, userID, targetID)
	if err != nil {
		return false, err
	}
	if removed {
		s.adjustCounts(ctx, -1, userID, targetID)
	}
	return removed, nil
}

// ListFavorites returns a page of the user's active favorites, newest
// first, plus the token of the next page (nil on the last one).
func (s *Service) ListFavorites(ctx context.Context, userID uint64, token *string, limit int) ([]repository.ContactEntry, *string, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)

	entries, next, err := s.contacts.ListContacts(ctx, userID, token, limit)
	if err != nil {
		return nil, nil, err
	}
	s.appCtx.Logger.Debug("ListFavorites result", "user", userID, "count", len(entries), "has_next", next != nil)
	return entries, next, nil
}

// CountFavorites returns how many favorites the user has.
// Cache-first: a hit refreshes the TTL, a miss is recomputed from the DB
// and written back.
func (s *Service) CountFavorites(ctx context.Context, userID uint64) (int64, error) {
	key := s.appCtx.RedisCache.KeyForFavoriteCount(userID)

	if n, ok, _ := s.appCtx.RedisCache.GetCounter(ctx, key); ok {
		return n, nil
	}

	n, err := s.contacts.CountContacts(ctx, userID)
	if err != nil {
		return 0, err
	}
	_ = s.appCtx.RedisCache.SetCounter(ctx, key, n)
	return n, nil
}

// SendRequest asks toID to become a contact of fromID.
//
// Behavior:
//   - ErrSelf for a request to yourself.
//   - ErrNotFound when the target is unknown or not active.
//   - ErrDuplicate when a request is already pending or they are already contacts.
func (s *Service) SendRequest(ctx context.Context, fromID, toID uint64, origin string) (*db.ContactRequest, error) {
	s.appCtx.Logger.Debug("SendRequest called", "from", fromID, "to", toID, "origin", origin)

	if fromID == toID {
		return nil, svcErr.ErrSelf
	}
	if err := s.requireActive(ctx, toID); err != nil {
		return nil, err
	}

	linked, err := s.contacts.IsContact(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if linked {
		return nil, fmt.Errorf("%d and %d are contacts: %w", fromID, toID, repository.ErrDuplicate)
	}

	if origin == "" {
		origin = OriginBrowse
	}
	req, err := s.contacts.CreateRequest(ctx, fromID, toID, origin)
	if err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			s.appCtx.Logger.Error("CreateRequest failed", "from", fromID, "to", toID, "err", err)
		}
		return nil, err
	}
	return req, nil
}

// Accept accepts a pending request addressed to toID and links both users.
func (s *Service) Accept(ctx context.Context, requestID, toID uint64) (*db.ContactRequest, error) {
	req, err := s.contacts.ResolveRequest(ctx, requestID, toID, true)
	if err != nil {
		return nil, err
	}
	// The link may have existed already, so recount instead of adjusting.
	s.dropCounts(ctx, req.FromID, req.ToID)
	s.appCtx.Logger.Info("contact request accepted", "request", req.ID, "from", req.FromID, "to", req.ToID)
	return req, nil
}

// Decline declines a pending request addressed to toID.
func (s *Service) Decline(ctx context.Context, requestID, toID uint64) (*db.ContactRequest, error) {
	return s.contacts.ResolveRequest(ctx, requestID, toID, false)
}

// ListIncoming returns pending requests addressed to toID, newest first.
func (s *Service) ListIncoming(ctx context.Context, toID uint64, limit int) ([]db.ContactRequest, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return s.contacts.ListIncoming(ctx, toID, min(limit, MaxPageSize))
}

func (s *Service) adjustCounts(ctx context.Context, delta int64, users ...uint64) {
	for _, u := range users {
		if err := s.appCtx.RedisCache.AdjustCounter(ctx, s.appCtx.RedisCache.KeyForFavoriteCount(u), delta); err != nil {
			s.appCtx.Logger.Warn("favorite counter update failed", "user", u, "err", err)
		}
	}
}

func (s *Service) dropCounts(ctx context.Context, users ...uint64) {
	for _, u := range users {
		_ = s.appCtx.RedisCache.Del(ctx, s.appCtx.RedisCache.KeyForFavoriteCount(u))
	}
}
