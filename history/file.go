package history

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileStore appends records to a single file as a stream of CBOR maps.
// Appends are O_APPEND writes, so concurrent writers from one process are
// safe; queries re-read the file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore opens (or creates) the log file at path.
func NewFileStore(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	f.Close()
	return &FileStore{path: path}, nil
}

func (s *FileStore) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := cbor.Marshal(rec)
	if err != nil {
		return fmt.Errorf("history: encode record: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("history: open %s: %w", s.path, err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("history: append to %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Query(vin string, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("history: open %s: %w", s.path, err)
	}
	defer f.Close()

	dec := cbor.NewDecoder(f)
	var recs []Record
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("history: decode %s: %w", s.path, err)
		}
		recs = append(recs, rec)
	}
	return filter(recs, vin, limit), nil
}

// MemStore keeps records in memory. It backs tests and the simulator.
type MemStore struct {
	mu   sync.Mutex
	recs []Record
}

func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

func (s *MemStore) Query(vin string, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filter(s.recs, vin, limit), nil
}
