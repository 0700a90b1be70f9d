package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/oggyb/meetbot/internal/db"
)

// PhotoRepository assigns photo slots. Callers serialize writes per user
// with a named lock; each method is also a single transaction.
type PhotoRepository struct {
	db *gorm.DB
}

func NewPhotoRepository(database *gorm.DB) *PhotoRepository {
	return &PhotoRepository{db: database}
}

// Add appends fileID to the user's photos.
//
// Behavior:
//   - ErrLimitReached when the user already has limit photos.
//   - ErrDuplicate when fileID is already attached.
//   - Position is max(position)+1; the first photo becomes main.
func (r *PhotoRepository) Add(ctx context.Context, userID uint64, fileID string, limit int) (*db.Photo, error) {
	var photo db.Photo
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.Photo{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(limit) {
			return fmt.Errorf("user %d has %d photos: %w", userID, count, ErrLimitReached)
		}

		var dup int64
		if err := tx.Model(&db.Photo{}).Where("user_id = ? AND file_id = ?", userID, fileID).Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return fmt.Errorf("photo %s: %w", fileID, ErrDuplicate)
		}

		var maxPos int
		if err := tx.Model(&db.Photo{}).
			Where("user_id = ?", userID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPos).Error; err != nil {
			return err
		}

		photo = db.Photo{
			UserID:   userID,
			FileID:   fileID,
			Position: maxPos + 1,
			IsMain:   count == 0,
		}
		return tx.Create(&photo).Error
	})
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

// Remove deletes a photo. If it was main, the lowest remaining position
// becomes main.
func (r *PhotoRepository) Remove(ctx context.Context, userID, photoID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var photo db.Photo
		if err := tx.Where("id = ? AND user_id = ?", photoID, userID).Take(&photo).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Delete(&photo).Error; err != nil {
			return err
		}
		if !photo.IsMain {
			return nil
		}

		var next db.Photo
		err := tx.Where("user_id = ?", userID).Order("position ASC, id ASC").Take(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&next).Update("is_main", true).Error
	})
}

// SetMain makes photoID the user's only main photo.
func (r *PhotoRepository) SetMain(ctx context.Context, userID, photoID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&db.Photo{}).Where("id = ? AND user_id = ?", photoID, userID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		if err := tx.Model(&db.Photo{}).Where("user_id = ? AND id <> ?", userID, photoID).Update("is_main", false).Error; err != nil {
			return err
		}
		return tx.Model(&db.Photo{}).Where("id = ?", photoID).Update("is_main", true).Error
	})
}

// List returns up to limit photos, main first then by position.
func (r *PhotoRepository) List(ctx context.Context, userID uint64, limit int) ([]db.Photo, error) {
	var photos []db.Photo
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_main DESC, position ASC, id ASC").
		Limit(limit).
		Find(&photos).Error
	return photos, err
}
