package users

import (
	"context"

	"github.com/davesrecords/davesrecords/model"
	"gorm.io/gorm"
)

type ConnectionRepository interface {
	WithTx(tx *gorm.DB) ConnectionRepository
	First(ctx context.Context, query interface{}, args ...interface{}) (*model.DiscogsConnection, error)
	FindByUser(ctx context.Context, userID uint) ([]*model.DiscogsConnection, error)
	Create(ctx context.Context, conn *model.DiscogsConnection) error
	Updates(ctx context.Context, connID uint, columns map[string]interface{}) error
	SetPrimary(ctx context.Context, userID, connID uint) error
}

type connectionRepository struct {
	db *gorm.DB
}

func (r *connectionRepository) First(ctx context.Context, query interface{}, args ...interface{}) (*model.DiscogsConnection, error) {
	var conn model.DiscogsConnection
	if err := r.db.WithContext(ctx).Where(query, args...).First(&conn).Error; err != nil {
		return nil, err
	}
	return &conn, nil
}

// FindByUser lists the connections of a user, primary first.
func (r *connectionRepository) FindByUser(ctx context.Context, userID uint) ([]*model.DiscogsConnection, error) {
	var conns []*model.DiscogsConnection
	err := preloadConnections(r.db.WithContext(ctx)).Where("user_id = ?", userID).Find(&conns).Error
	return conns, err
}

func (r *connectionRepository) Create(ctx context.Context, conn *model.DiscogsConnection) error {
	return r.db.WithContext(ctx).Create(conn).Error
}

func (r *connectionRepository) Updates(ctx context.Context, connID uint, columns map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.DiscogsConnection{}).Where("id = ?", connID).Updates(columns).Error
}

func (r *connectionRepository) SetPrimary(ctx context.Context, userID, connID uint) error {
	return r.db.WithContext(ctx).
		Model(&model.DiscogsConnection{}).
		Where("user_id = ?", userID).
		Update("is_primary", gorm.Expr("id = ?", connID)).Error
}

func (r *connectionRepository) WithTx(tx *gorm.DB) ConnectionRepository {
	return NewConnectionRepository(tx)
}

func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db}
}
