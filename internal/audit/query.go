package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/davesrecords/davesrecords/model"
	"github.com/davesrecords/davesrecords/params"
)

// Filter selects audit events. Nil or empty fields do not constrain the result.
// From and To are inclusive.
type Filter struct {
	ClassUID     *int
	CategoryUID  *int
	ActivityID   *int
	SeverityID   *int
	StatusID     *int
	ActorUserID  *uint
	TargetUserID *uint
	ResourceType string
	ResourceID   string
	From         *time.Time
	To           *time.Time
	Offset       int
	Limit        int
}

type QueryResult struct {
	Events []*model.AuditEvent `json:"events"`
	Total  int64               `json:"total"`
	Offset int                 `json:"offset"`
	Limit  int                 `json:"limit"`
}

type Stats struct {
	Total      int64         `json:"total"`
	ByClass    map[int]int64 `json:"byClass"`
	ByStatus   map[int]int64 `json:"byStatus"`
	BySeverity map[int]int64 `json:"bySeverity"`
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return params.AuditDefaultQueryLimit
	}
	if limit > params.AuditMaxQueryLimit {
		return params.AuditMaxQueryLimit
	}
	return limit
}

func (f Filter) validate() error {
	if f.Offset < 0 {
		return fmt.Errorf("%w: negative offset", ErrInvalidFilter)
	}
	if f.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidFilter)
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return fmt.Errorf("%w: from is after to", ErrInvalidFilter)
	}
	return nil
}

// Query returns one page of events matching filter, newest first, and the total match count.
func (s *AuditService) Query(ctx context.Context, filter Filter) (*QueryResult, error) {
	if err := filter.validate(); err != nil {
		return nil, err
	}
	filter.Limit = clampLimit(filter.Limit)

	events, total, err := s.repo.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: query events: %v", ErrPersistence, err)
	}
	return &QueryResult{
		Events: events,
		Total:  total,
		Offset: filter.Offset,
		Limit:  filter.Limit,
	}, nil
}

// Stats counts events grouped by class, status and severity.
func (s *AuditService) Stats(ctx context.Context, from, to *time.Time) (*Stats, error) {
	if from != nil && to != nil && from.After(*to) {
		return nil, fmt.Errorf("%w: from is after to", ErrInvalidFilter)
	}

	stats := &Stats{}
	total, err := s.repo.Count(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: count events: %v", ErrPersistence, err)
	}
	stats.Total = total

	groups := []struct {
		column string
		dst    *map[int]int64
	}{
		{"class_uid", &stats.ByClass},
		{"status_id", &stats.ByStatus},
		{"severity_id", &stats.BySeverity},
	}
	for _, g := range groups {
		rows, err := s.repo.CountBy(ctx, g.column, from, to)
		if err != nil {
			return nil, fmt.Errorf("%w: count events by %s: %v", ErrPersistence, g.column, err)
		}
		counts := make(map[int]int64, len(rows))
		for _, row := range rows {
			counts[row.Key] = row.Count
		}
		*g.dst = counts
	}
	return stats, nil
}

// EventsForActor returns the latest events performed by userID.
func (s *AuditService) EventsForActor(ctx context.Context, userID uint, limit int) ([]*model.AuditEvent, error) {
	result, err := s.Query(ctx, Filter{ActorUserID: &userID, Limit: limit})
	if err != nil {
		return nil, err
	}
	return result.Events, nil
}

// EventsForTarget returns the latest events that targeted userID.
func (s *AuditService) EventsForTarget(ctx context.Context, userID uint, limit int) ([]*model.AuditEvent, error) {
	result, err := s.Query(ctx, Filter{TargetUserID: &userID, Limit: limit})
	if err != nil {
		return nil, err
	}
	return result.Events, nil
}
