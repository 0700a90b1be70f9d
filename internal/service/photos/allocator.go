// Package photos manages the per-user photo slots shown on profile cards.
package photos

import (
	"context"
	"strconv"

	"github.com/oggyb/meetbot/internal/app"
	"github.com/oggyb/meetbot/internal/db"
	"github.com/oggyb/meetbot/internal/repository"
)

const (
	// MaxPhotos is how many photos a user may upload.
	MaxPhotos = 3
	// ListLimit caps List; it is larger than MaxPhotos so rows created
	// before the limit was lowered still show up.
	ListLimit = 5
)

// Slot is an allocated photo position.
type Slot struct {
	PhotoID  uint64
	FileID   string
	Position int
	IsMain   bool
}

func slotOf(p *db.Photo) Slot {
	return Slot{PhotoID: p.ID, FileID: p.FileID, Position: p.Position, IsMain: p.IsMain}
}

// Allocator assigns photo positions. Writes for one user are serialized
// with the "photos:user:<id>" lock so two uploads racing from the same
// album cannot both take the last slot or the same position.
type Allocator struct {
	appCtx *app.AppContext
	repo   *repository.PhotoRepository
}

func NewAllocator(appCtx *app.AppContext) *Allocator {
	return &Allocator{
		appCtx: appCtx,
		repo:   repository.NewPhotoRepository(appCtx.DB),
	}
}

func lockName(userID uint64) string {
	return "photos:user:" + strconv.FormatUint(userID, 10)
}

// Add attaches fileID to the user's profile.
// Returns repository.ErrLimitReached or repository.ErrDuplicate.
func (a *Allocator) Add(ctx context.Context, userID uint64, fileID string) (Slot, error) {
	a.appCtx.Logger.Debug("photo Add called", "user", userID, "file", fileID)

	var slot Slot
	err := a.appCtx.Locker.WithLock(ctx, lockName(userID), func(ctx context.Context) error {
		p, err := a.repo.Add(ctx, userID, fileID, MaxPhotos)
		if err != nil {
			return err
		}
		slot = slotOf(p)
		return nil
	})
	if err != nil {
		a.appCtx.Logger.Debug("photo Add rejected", "user", userID, "err", err)
		return Slot{}, err
	}
	return slot, nil
}

// Remove deletes a photo; the next one by position becomes main if needed.
func (a *Allocator) Remove(ctx context.Context, userID, photoID uint64) error {
	return a.appCtx.Locker.WithLock(ctx, lockName(userID), func(ctx context.Context) error {
		return a.repo.Remove(ctx, userID, photoID)
	})
}

// SetMain makes photoID the card photo.
func (a *Allocator) SetMain(ctx context.Context, userID, photoID uint64) error {
	return a.appCtx.Locker.WithLock(ctx, lockName(userID), func(ctx context.Context) error {
		return a.repo.SetMain(ctx, userID, photoID)
	})
}

// List returns the user's photos, main first.
func (a *Allocator) List(ctx context.Context, userID uint64) ([]Slot, error) {
	photos, err := a.repo.List(ctx, userID, ListLimit)
	if err != nil {
		return nil, err
	}
	slots := make([]Slot, 0, len(photos))
	for i := range photos {
		slots = append(slots, slotOf(&photos[i]))
	}
	return slots, nil
}
