package importer

import (
	"time"

	"github.com/dmitrijs2005/finsync/internal/syncrpc"
)

// Progress is a point-in-time view of the current or last import.
type Progress struct {
	Running    bool
	Total      int
	Processed  int
	Inserted   int
	Updated    int
	Skipped    int
	Errors     []syncrpc.RecordError
	LastError  string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Progress returns a copy safe to read while an import is running.
func (e *Engine) Progress() Progress {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p := e.progress
	p.Errors = append([]syncrpc.RecordError(nil), e.progress.Errors...)
	return p
}

// Reset clears the recorded outcome. An in-flight import is not cancelled
// and keeps publishing its own progress.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress = Progress{Running: e.running.Load()}
}

func (e *Engine) begin(total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress = Progress{Running: true, Total: total, StartedAt: time.Now()}
}

func (e *Engine) record(s *Summary) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress.Processed = s.Total
	e.progress.Inserted = s.Inserted
	e.progress.Updated = s.Updated
	e.progress.Skipped = s.Skipped
	e.progress.Errors = append([]syncrpc.RecordError(nil), s.Errors...)
}

func (e *Engine) finish(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress.Running = false
	e.progress.FinishedAt = time.Now()
	if err != nil {
		e.progress.LastError = err.Error()
	}
}
