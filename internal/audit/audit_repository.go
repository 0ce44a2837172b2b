package audit

import (
	"context"
	"time"

	"github.com/davesrecords/davesrecords/model"
	"gorm.io/gorm"
)

type GroupCount struct {
	Key   int
	Count int64
}

type AuditEventRepository interface {
	Create(ctx context.Context, event *model.AuditEvent) error
	Find(ctx context.Context, filter Filter) ([]*model.AuditEvent, int64, error)
	CountBy(ctx context.Context, column string, from, to *time.Time) ([]GroupCount, error)
	Count(ctx context.Context, from, to *time.Time) (int64, error)
}

type auditEventRepository struct {
	db *gorm.DB
}

func (r *auditEventRepository) Create(ctx context.Context, event *model.AuditEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func timeRange(tx *gorm.DB, from, to *time.Time) *gorm.DB {
	if from != nil {
		tx = tx.Where("time >= ?", from.UTC())
	}
	if to != nil {
		tx = tx.Where("time <= ?", to.UTC())
	}
	return tx
}

func (r *auditEventRepository) applyFilter(tx *gorm.DB, f Filter) *gorm.DB {
	eq := map[string]*int{
		"class_uid":    f.ClassUID,
		"category_uid": f.CategoryUID,
		"activity_id":  f.ActivityID,
		"severity_id":  f.SeverityID,
		"status_id":    f.StatusID,
	}
	for column, val := range eq {
		if val != nil {
			tx = tx.Where(column+" = ?", *val)
		}
	}
	if f.ActorUserID != nil {
		tx = tx.Where("actor_user_id = ?", *f.ActorUserID)
	}
	if f.TargetUserID != nil {
		tx = tx.Where("target_user_id = ?", *f.TargetUserID)
	}
	if f.ResourceType != "" {
		tx = tx.Where("resource_type = ?", f.ResourceType)
	}
	if f.ResourceID != "" {
		tx = tx.Where("resource_id = ?", f.ResourceID)
	}
	return timeRange(tx, f.From, f.To)
}

func (r *auditEventRepository) Find(ctx context.Context, filter Filter) ([]*model.AuditEvent, int64, error) {
	base := r.applyFilter(r.db.WithContext(ctx).Model(&model.AuditEvent{}), filter)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []*model.AuditEvent
	err := base.Session(&gorm.Session{}).
		Order("time DESC").
		Order("id DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&events).Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *auditEventRepository) CountBy(ctx context.Context, column string, from, to *time.Time) ([]GroupCount, error) {
	var rows []GroupCount
	err := timeRange(r.db.WithContext(ctx).Model(&model.AuditEvent{}), from, to).
		Select(column + " AS `key`, COUNT(*) AS `count`").
		Group(column).
		Order(column).
		Scan(&rows).Error
	return rows, err
}

func (r *auditEventRepository) Count(ctx context.Context, from, to *time.Time) (int64, error) {
	var total int64
	err := timeRange(r.db.WithContext(ctx).Model(&model.AuditEvent{}), from, to).Count(&total).Error
	return total, err
}

func NewAuditEventRepository(db *gorm.DB) AuditEventRepository {
	return &auditEventRepository{db}
}
