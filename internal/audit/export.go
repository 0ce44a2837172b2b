package audit

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/davesrecords/davesrecords/internal/metrics"
	"github.com/davesrecords/davesrecords/internal/ocsf"
	"github.com/davesrecords/davesrecords/params"
	"github.com/valyala/bytebufferpool"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ExportConfig struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	QueueSize  int
}

type rotatingWriter interface {
	io.WriteCloser
	Rotate() error
}

// FileExporter appends events as JSON lines from a single background goroutine.
// The file is rotated on size and whenever the day changes.
type FileExporter struct {
	out    rotatingWriter
	queue  chan *ocsf.Event
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
	now    func() time.Time
	day    string
}

// Export queues event without blocking. The event is dropped when the queue is full.
func (e *FileExporter) Export(event *ocsf.Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}
	select {
	case e.queue <- event:
	default:
		metrics.AuditExportDropped.Inc()
		slog.Warn("Audit export queue full, dropping event", "eventUid", event.Metadata.UID)
	}
}

func (e *FileExporter) run() {
	defer close(e.done)
	for event := range e.queue {
		if err := e.writeEvent(event); err != nil {
			metrics.AuditExportDropped.Inc()
			slog.Error("Failed to export audit event", "eventUid", event.Metadata.UID, "error", err)
		}
	}
}

func (e *FileExporter) writeEvent(event *ocsf.Event) error {
	day := e.now().Format(time.DateOnly)
	if e.day != "" && day != e.day {
		if err := e.out.Rotate(); err != nil {
			slog.Error("Failed to rotate audit export file", "error", err)
		}
	}
	e.day = day

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := json.NewEncoder(buf).Encode(event); err != nil {
		return err
	}
	_, err := e.out.Write(buf.B)
	return err
}

// Close stops accepting events, drains the queue and closes the file.
func (e *FileExporter) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	<-e.done
	return e.out.Close()
}

func newFileExporter(out rotatingWriter, queueSize int, now func() time.Time) *FileExporter {
	if queueSize <= 0 {
		queueSize = params.AuditExportQueueSize
	}
	e := &FileExporter{
		out:   out,
		queue: make(chan *ocsf.Event, queueSize),
		done:  make(chan struct{}),
		now:   now,
	}
	go e.run()
	return e
}

func NewFileExporter(cfg ExportConfig) *FileExporter {
	return newFileExporter(&lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}, cfg.QueueSize, time.Now)
}
