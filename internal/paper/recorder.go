package paper

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"pairsbot-go/internal/execution"
)

// FillLine is one row of the fills file: the fill plus its order within the run and the signed cash
// flow it caused (negative for buys).
type FillLine struct {
	Seq int `json:"seq"`
	execution.Fill
	CashFlow float64 `json:"cash_flow"`
}

// FillsFile appends paper fills as JSON lines, flushing after every fill so a crash loses nothing.
type FillsFile struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
	seq  int
}

// OpenFillsFile creates/opens the target file for appending.
func OpenFillsFile(path string) (*FillsFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(file)
	return &FillsFile{file: file, buf: buf, enc: json.NewEncoder(buf)}, nil
}

// Record implements FillRecorder.
func (f *FillsFile) Record(fill execution.Fill) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return os.ErrClosed
	}
	flow := float64(fill.Qty) * fill.Price
	if fill.Side == execution.Buy {
		flow = -flow
	}
	f.seq++
	if err := f.enc.Encode(FillLine{Seq: f.seq, Fill: fill, CashFlow: flow}); err != nil {
		return err
	}
	return f.buf.Flush()
}

// Close flushes pending output and closes the file.
func (f *FillsFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	ferr := f.buf.Flush()
	err := f.file.Close()
	f.file = nil
	if ferr != nil {
		return ferr
	}
	return err
}
