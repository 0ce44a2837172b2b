package collection

import (
	"context"

	"github.com/davesrecords/davesrecords/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExclusionRepository interface {
	ListReleaseIDs(ctx context.Context, userID uint) ([]uint64, error)
	Add(ctx context.Context, userID uint, releaseID uint64) error
	Remove(ctx context.Context, userID uint, releaseID uint64) error
}

type exclusionRepository struct {
	db *gorm.DB
}

func (r *exclusionRepository) ListReleaseIDs(ctx context.Context, userID uint) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&model.ExcludedAlbum{}).
		Where("user_id = ?", userID).
		Order("release_id").
		Pluck("release_id", &ids).Error
	return ids, err
}

// Add is idempotent, excluding an album twice is not an error.
func (r *exclusionRepository) Add(ctx context.Context, userID uint, releaseID uint64) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.ExcludedAlbum{UserID: userID, ReleaseID: releaseID}).Error
}

func (r *exclusionRepository) Remove(ctx context.Context, userID uint, releaseID uint64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND release_id = ?", userID, releaseID).
		Delete(&model.ExcludedAlbum{}).Error
}

func NewExclusionRepository(db *gorm.DB) ExclusionRepository {
	return &exclusionRepository{db}
}
