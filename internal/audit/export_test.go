package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/davesrecords/davesrecords/internal/ocsf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryFile struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	rotated int
	closed  bool
	entered chan struct{}
	release chan struct{}
}

func (f *memoryFile) Write(p []byte) (int, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buf.Write(p)
}

func (f *memoryFile) Rotate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rotated++
	return nil
}

func (f *memoryFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *memoryFile) lines(t *testing.T) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(f.buf.Bytes()))
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		out = append(out, line)
	}
	return out
}

func logonEvent() *ocsf.Event {
	return ocsf.NewAuthentication(ocsf.AuthenticationParams{Common: ocsf.Common{ActivityID: ocsf.AuthLogon}})
}

func TestFileExporterWritesJSONLines(t *testing.T) {
	file := &memoryFile{}
	exporter := newFileExporter(file, 8, time.Now)

	first, second := logonEvent(), logonEvent()
	exporter.Export(first)
	exporter.Export(second)
	require.NoError(t, exporter.Close())

	lines := file.lines(t)
	require.Len(t, lines, 2)
	assert.EqualValues(t, 300201, lines[0]["type_uid"])
	assert.Equal(t, first.Metadata.UID, lines[0]["metadata"].(map[string]any)["uid"])
	assert.Equal(t, second.Metadata.UID, lines[1]["metadata"].(map[string]any)["uid"])
	assert.True(t, file.closed)

	// exports after close are ignored
	exporter.Export(logonEvent())
	assert.Len(t, file.lines(t), 2)
}

func TestFileExporterRotatesOnDayChange(t *testing.T) {
	file := &memoryFile{}
	var mu sync.Mutex
	now := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	exporter := newFileExporter(file, 8, clock)

	exporter.Export(logonEvent())
	exporter.Export(logonEvent())
	require.Eventually(t, func() bool { return len(file.lines(t)) == 2 }, time.Second, 5*time.Millisecond)

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()
	exporter.Export(logonEvent())
	require.NoError(t, exporter.Close())

	assert.Len(t, file.lines(t), 3)
	assert.Equal(t, 1, file.rotated)
}

func TestFileExporterDropsWhenQueueFull(t *testing.T) {
	file := &memoryFile{entered: make(chan struct{}), release: make(chan struct{})}
	exporter := newFileExporter(file, 1, time.Now)

	exporter.Export(logonEvent())
	<-file.entered // the writer goroutine holds the first event

	exporter.Export(logonEvent()) // queued
	exporter.Export(logonEvent()) // dropped

	close(file.release)
	go func() {
		for range file.entered {
		}
	}()
	require.NoError(t, exporter.Close())
	close(file.entered)

	assert.Len(t, file.lines(t), 2)
}

func TestWriteExportsPersistedEvents(t *testing.T) {
	file := &memoryFile{}
	exporter := newFileExporter(file, 8, time.Now)
	svc, _ := newTestService(t, WithExporter(exporter))

	_, err := svc.Write(context.Background(), logonEvent())
	require.NoError(t, err)
	require.NoError(t, exporter.Close())
	assert.Len(t, file.lines(t), 1)

	failing := NewAuditService(failingRepo{}, WithExporter(newFileExporter(&memoryFile{}, 8, time.Now)))
	_, err = failing.Write(context.Background(), logonEvent())
	assert.Error(t, err)
}
