package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/davesrecords/davesrecords/internal/metrics"
	"github.com/davesrecords/davesrecords/internal/ocsf"
	"github.com/davesrecords/davesrecords/params"
)

// WriteResult is returned by Record. Callers inspect it for logging or tests and
// otherwise ignore it; an audit failure never fails the audited action.
type WriteResult struct {
	ID  uint64
	Err error
}

func (r WriteResult) OK() bool {
	return r.Err == nil
}

// Notifier delivers security alerts for high severity events.
type Notifier interface {
	NotifySecurityEvent(ctx context.Context, event *ocsf.Event) error
}

type Option func(*AuditService)

// WithExporter appends every persisted event to exporter.
func WithExporter(exporter *FileExporter) Option {
	return func(s *AuditService) {
		s.exporter = exporter
	}
}

// WithAlerts notifies about events whose severity is at least minSeverity.
func WithAlerts(notifier Notifier, minSeverity int) Option {
	return func(s *AuditService) {
		s.notifier = notifier
		s.alertSeverity = minSeverity
	}
}

type AuditService struct {
	repo          AuditEventRepository
	exporter      *FileExporter
	notifier      Notifier
	alertSeverity int
}

// Write persists event and returns its storage id.
func (s *AuditService) Write(ctx context.Context, event *ocsf.Event) (uint64, error) {
	className := strconv.Itoa(event.ClassUID)
	row, err := flatten(event)
	if err != nil {
		metrics.AuditWrites.WithLabelValues(className, "error").Inc()
		return 0, fmt.Errorf("%w: encode event %s: %v", ErrPersistence, event.Metadata.UID, err)
	}
	if err := s.repo.Create(ctx, row); err != nil {
		metrics.AuditWrites.WithLabelValues(className, "error").Inc()
		return 0, fmt.Errorf("%w: insert event %s: %v", ErrPersistence, event.Metadata.UID, err)
	}
	metrics.AuditWrites.WithLabelValues(className, "ok").Inc()

	if s.exporter != nil {
		s.exporter.Export(event)
	}
	return row.ID, nil
}

// Record writes event without ever failing the caller. Failures are logged.
func (s *AuditService) Record(ctx context.Context, event *ocsf.Event) (result WriteResult) {
	defer func() {
		if r := recover(); r != nil {
			result = WriteResult{Err: fmt.Errorf("%w: panic: %v", ErrPersistence, r)}
			slog.Error("Audit write panicked", "eventUid", event.Metadata.UID, "panic", r)
		}
	}()

	id, err := s.Write(ctx, event)
	if err != nil {
		slog.Error("Failed to write audit event",
			"eventUid", event.Metadata.UID,
			"type", event.TypeName,
			"error", err,
		)
	}
	s.alert(event)
	return WriteResult{ID: id, Err: err}
}

func (s *AuditService) alert(event *ocsf.Event) {
	if s.notifier == nil || event.SeverityID < s.alertSeverity || event.SeverityID == ocsf.SeverityOther {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), params.AuditAlertTimeout)
		defer cancel()
		if err := s.notifier.NotifySecurityEvent(ctx, event); err != nil {
			slog.Error("Failed to send security alert", "eventUid", event.Metadata.UID, "error", err)
		}
	}()
}

func NewAuditService(repo AuditEventRepository, opts ...Option) *AuditService {
	s := &AuditService{repo: repo, alertSeverity: ocsf.SeverityHigh}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
