package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jupierce/coverage-viewer/pkg/coverage"
)

// Writer appends readings to a JSON document on disk. Each Write rewrites
// the whole file.
type Writer struct {
	mu   sync.Mutex
	path string
}

// NewWriter creates the file with an empty document if it does not exist.
// An existing file must hold a valid document.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	w := &Writer{path: path}

	_, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := w.save(NewDocument()); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("stat %s: %w", path, err)
	default:
		if _, err := w.load(); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Write appends the reading and returns its record index
func (w *Writer) Write(r coverage.Reading) (int, error) {
	ids, err := w.WriteAll([]coverage.Reading{r})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// WriteAll appends readings with a single rewrite of the file and returns
// their record indices
func (w *Writer) WriteAll(readings []coverage.Reading) ([]int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc, err := w.load()
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(readings))
	for i, r := range readings {
		ids[i] = doc.Append(r)
	}
	if err := w.save(doc); err != nil {
		return nil, err
	}
	return ids, nil
}

func (w *Writer) load() (*Document, error) {
	reader, err := Open(w.path)
	if err != nil {
		return nil, err
	}
	return reader.Document(), nil
}

func (w *Writer) save(doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal coverage document: %w", err)
	}
	if err := os.WriteFile(w.path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	return nil
}

var _ coverage.Writer = (*Writer)(nil)
