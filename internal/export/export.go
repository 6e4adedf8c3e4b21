// Package export writes engine activity as zstd-compressed JSON lines.
package export

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/julianstephens/grove/internal/models"
)

// RecordKind tags each exported line
type RecordKind string

const (
	KindHabit      RecordKind = "habit"
	KindCompletion RecordKind = "completion"
	KindLedger     RecordKind = "ledger"
	KindPlant      RecordKind = "plant"
)

// Record is one exported line. Exactly one payload field is set, matching Kind.
type Record struct {
	Kind       RecordKind          `json:"kind"`
	Identity   string              `json:"identity"`
	Habit      *models.Habit       `json:"habit,omitempty"`
	Completion *models.Completion  `json:"completion,omitempty"`
	Ledger     *models.LedgerEntry `json:"ledger,omitempty"`
	Plant      *models.BambooPlant `json:"plant,omitempty"`
}

// Writer encodes records as JSONL through a zstd stream
type Writer struct {
	enc   *zstd.Encoder
	w     *bufio.Writer
	count int
}

func NewWriter(dst io.Writer) (*Writer, error) {
	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	return &Writer{enc: enc, w: bufio.NewWriterSize(enc, 64*1024)}, nil
}

func (w *Writer) Write(rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.count++
	return nil
}

// WriteState writes every habit, completion, ledger entry and plant of state
func (w *Writer) WriteState(state models.EngineState) error {
	id := state.Identity
	for i := range state.Habits {
		if err := w.Write(Record{Kind: KindHabit, Identity: id, Habit: &state.Habits[i]}); err != nil {
			return err
		}
	}
	for i := range state.Completions {
		if err := w.Write(Record{Kind: KindCompletion, Identity: id, Completion: &state.Completions[i]}); err != nil {
			return err
		}
	}
	for i := range state.Ledger {
		if err := w.Write(Record{Kind: KindLedger, Identity: id, Ledger: &state.Ledger[i]}); err != nil {
			return err
		}
	}
	for i := range state.Plants {
		if err := w.Write(Record{Kind: KindPlant, Identity: id, Plant: &state.Plants[i]}); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of records written so far
func (w *Writer) Count() int {
	return w.count
}

// Close flushes buffered lines and finishes the zstd frame
func (w *Writer) Close() error {
	ferr := w.w.Flush()
	return errors.Join(ferr, w.enc.Close())
}

// ToFile exports states to path, replacing it atomically. It returns the record count.
func ToFile(path string, states ...models.EngineState) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create export directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create export file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	w, err := NewWriter(tmp)
	if err != nil {
		tmp.Close()
		return 0, err
	}
	for _, s := range states {
		if err := w.WriteState(s); err != nil {
			w.Close()
			tmp.Close()
			return 0, fmt.Errorf("failed to export %s: %w", s.Identity, err)
		}
	}
	if err := w.Close(); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("failed to finalize export: %w", err)
	}
	return w.Count(), nil
}

// Read decodes every record from a compressed export, calling fn for each
func Read(src io.Reader, fn func(Record) error) error {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return err
	}
	defer dec.Close()

	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return scanner.Err()
}
