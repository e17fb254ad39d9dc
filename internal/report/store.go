package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Store provides in-memory storage and querying of run records with JSONL persistence.
type Store struct {
	mu      sync.RWMutex
	records []Record

	// Indexes for fast lookups
	byKind map[string][]int // kind -> indices into records
	byFile map[string][]int // file -> indices into records
}

// NewStore creates an empty record store.
func NewStore() *Store {
	return &Store{
		byKind: make(map[string][]int),
		byFile: make(map[string][]int),
	}
}

// Add adds records to the store.
func (s *Store) Add(rr ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rr {
		idx := len(s.records)
		s.records = append(s.records, r)
		s.byKind[r.Kind] = append(s.byKind[r.Kind], idx)
		if r.File != "" {
			s.byFile[r.File] = append(s.byFile[r.File], idx)
		}
	}
}

// All returns all records in the store.
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Record, len(s.records))
	copy(result, s.records)
	return result
}

// Count returns the number of records in the store.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// ByKind returns all records of the given kind.
func (s *Store) ByKind(kind string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectByIndex(s.byKind[kind])
}

// ByFile returns all records for the given file.
func (s *Store) ByFile(file string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectByIndex(s.byFile[file])
}

// Query returns records matching all provided filter criteria.
// Empty filter values are ignored (match all). symbol is a substring match.
func (s *Store) Query(kind, file, symbol string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Record
	for _, r := range s.records {
		if kind != "" && r.Kind != kind {
			continue
		}
		if file != "" && r.File != file {
			continue
		}
		if symbol != "" && !strings.Contains(r.Symbol, symbol) {
			continue
		}
		result = append(result, r)
	}
	return result
}

// Clear removes all records from the store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.byKind = make(map[string][]int)
	s.byFile = make(map[string][]int)
}

// WriteJSONL writes all records as JSONL to the given writer.
func (s *Store) WriteJSONL(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	enc := json.NewEncoder(w)
	for _, r := range s.records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding record for %s: %w", r.File, err)
		}
	}
	return nil
}

// WriteJSONLFile writes all records as JSONL to the given file path.
func (s *Store) WriteJSONLFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	if err := s.WriteJSONL(bw); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadJSONL reads records from a JSONL reader and adds them to the store.
func (s *Store) ReadJSONL(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("decoding record: %w", err)
		}
		s.Add(rec)
	}
	return scanner.Err()
}

// ReadJSONLFile reads records from a JSONL file and adds them to the store.
func (s *Store) ReadJSONLFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return s.ReadJSONL(f)
}

func (s *Store) collectByIndex(indices []int) []Record {
	result := make([]Record, 0, len(indices))
	for _, idx := range indices {
		if idx < len(s.records) {
			result = append(result, s.records[idx])
		}
	}
	return result
}
