// Package audit records every completed hand's frozen result,
// including the revealed deck seed, so fairness can be verified
// offline long after the hand ended.
package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cardroom/holdemd/internal/engine"
)

// Trail appends one JSON line per completed hand to a per-table file.
// Rewrites go through a temp-file rename so a reader never observes a
// torn line.
type Trail struct {
	dir    string
	logger *log.Logger

	mu sync.Mutex
}

// entry is one line of the trail.
type entry struct {
	RecordedAt time.Time       `json:"recordedAt"`
	TableID    string          `json:"tableId"`
	HandID     string          `json:"handId"`
	HandNo     int64           `json:"handNo"`
	Results    *engine.Results `json:"results"`
}

// NewTrail creates the audit directory if needed.
func NewTrail(dir string, logger *log.Logger) (*Trail, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audit dir: %w", err)
	}
	return &Trail{dir: dir, logger: logger.WithPrefix("audit")}, nil
}

// Record appends a completed hand's result event to the table's trail.
func (t *Trail) Record(ev *engine.ResultEvent, now time.Time) error {
	if ev == nil || ev.Results == nil {
		return fmt.Errorf("refusing to record an incomplete hand")
	}

	line, err := json.Marshal(entry{
		RecordedAt: now,
		TableID:    ev.TableID,
		HandID:     ev.HandID,
		HandNo:     ev.HandNo,
		Results:    ev.Results,
	})
	if err != nil {
		return fmt.Errorf("encoding audit entry for hand %s: %w", ev.HandID, err)
	}
	line = append(line, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()

	path := t.path(ev.TableID)
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading audit trail %s: %w", path, err)
	}

	if err := writeFileAtomic(path, append(existing, line...), 0o644); err != nil {
		return err
	}
	t.logger.Debug("recorded hand", "table", ev.TableID, "hand", ev.HandID)
	return nil
}

// Read returns a table's recorded results, oldest first.
func (t *Trail) Read(tableID string) ([]*engine.Results, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	raw, err := os.ReadFile(t.path(tableID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []*engine.Results
	dec := json.NewDecoder(bytes.NewReader(raw))
	for dec.More() {
		var e entry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("decoding audit trail for table %s: %w", tableID, err)
		}
		out = append(out, e.Results)
	}
	return out, nil
}

func (t *Trail) path(tableID string) string {
	return filepath.Join(t.dir, tableID+".jsonl")
}

// writeFileAtomic writes via a same-directory temp file and rename, so
// readers see either the old file or the new one, never a partial
// write.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmpFile, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, filename); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
