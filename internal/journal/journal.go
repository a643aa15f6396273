// Package journal appends ENTER/EXIT records for completed pair transitions.
package journal

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"pairsbot-go/internal/config"
)

// Action is the kind of transition recorded.
type Action string

const (
	Enter Action = "ENTER"
	Exit  Action = "EXIT"
)

const timeLayout = "2006-01-02 15:04:05"

// Entry is one journal row.
type Entry struct {
	Ts      time.Time `json:"ts"`
	Symbol1 string    `json:"symbol1"`
	Symbol2 string    `json:"symbol2"`
	Action  Action    `json:"action"`
	Spread  float64   `json:"spread"`
}

// Recorder persists journal entries. Implementations are safe for concurrent use.
type Recorder interface {
	Record(Entry) error
	Close() error
}

// Open builds the recorder selected by the journal config.
func Open(cfg config.Journal) (Recorder, error) {
	switch cfg.Format {
	case "", "none":
		return Nop{}, nil
	case "csv":
		return NewCSVRecorder(cfg.Path)
	case "jsonl":
		return NewJSONLRecorder(cfg.Path)
	case "sqlite":
		return NewSQLiteRecorder(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown journal format %q", cfg.Format)
	}
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(Entry) error { return nil }
func (Nop) Close() error       { return nil }

func openAppend(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// CSVRecorder writes Timestamp,Symbol1,Symbol2,Action,SpreadPct rows, adding the header to new files.
type CSVRecorder struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

// NewCSVRecorder creates/opens the target file and returns a recorder.
func NewCSVRecorder(path string) (*CSVRecorder, error) {
	file, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	r := &CSVRecorder{file: file, w: csv.NewWriter(file)}
	if info.Size() == 0 {
		if err := r.w.Write([]string{"Timestamp", "Symbol1", "Symbol2", "Action", "SpreadPct"}); err != nil {
			file.Close()
			return nil, err
		}
		r.w.Flush()
	}
	return r, nil
}

// Record writes and flushes a single row.
func (r *CSVRecorder) Record(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return os.ErrClosed
	}
	row := []string{e.Ts.Format(timeLayout), e.Symbol1, e.Symbol2, string(e.Action), strconv.FormatFloat(e.Spread, 'f', -1, 64)}
	if err := r.w.Write(row); err != nil {
		return err
	}
	r.w.Flush()
	return r.w.Error()
}

// Close flushes and closes the file handle.
func (r *CSVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	r.w.Flush()
	err := r.file.Close()
	r.file = nil
	return err
}

// JSONLRecorder appends entries as JSON lines for later analysis.
type JSONLRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder creates/opens the target file and returns a recorder.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	file, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	return &JSONLRecorder{file: file, enc: json.NewEncoder(file)}, nil
}

// Record writes a single entry to the underlying JSONL file.
func (r *JSONLRecorder) Record(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return os.ErrClosed
	}
	return r.enc.Encode(e)
}

// Close closes the file handle.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
