package users

import (
	"context"

	"github.com/davesrecords/davesrecords/model"
	"gorm.io/gorm"
)

type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository
	First(ctx context.Context, query interface{}, args ...interface{}) (*model.User, error)
	FirstPreload(ctx context.Context, query interface{}, args ...interface{}) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	Updates(ctx context.Context, userID uint, columns map[string]interface{}) (int64, error)
	Exists(ctx context.Context, query interface{}, args ...interface{}) (bool, error)
	Find(ctx context.Context, offset, limit int) ([]*model.User, int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func preloadConnections(db *gorm.DB) *gorm.DB {
	return db.Order("is_primary DESC").Order("id ASC")
}

func (r *userRepository) First(ctx context.Context, query interface{}, args ...interface{}) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FirstPreload(ctx context.Context, query interface{}, args ...interface{}) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Preload("Connections", preloadConnections).
		Where(query, args...).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) Updates(ctx context.Context, userID uint, columns map[string]interface{}) (int64, error) {
	ret := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(columns)
	return ret.RowsAffected, ret.Error
}

func (r *userRepository) Exists(ctx context.Context, query interface{}, args ...interface{}) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where(query, args...).Limit(1).Count(&count).Error
	return count > 0, err
}

func (r *userRepository) Find(ctx context.Context, offset, limit int) ([]*model.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []*model.User
	err := r.db.WithContext(ctx).
		Preload("Connections", preloadConnections).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	return users, total, err
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return NewUserRepository(tx)
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db}
}
