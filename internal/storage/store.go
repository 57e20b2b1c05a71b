package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"
)

const (
	metadataFile = "metadata.json"
	progressFile = "progress.csv"
	framesFile   = "frames.bin.zst"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Scenario  string    `json:"scenario,omitempty"`
	Reading   int       `json:"reading"`
	Color     string    `json:"color"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	Cycles    int       `json:"cycles"`
	Steps     int       `json:"steps"`
	Completed int       `json:"completed"`
	Frames    int       `json:"frames"`

	// DurationMs and Direction describe the most recent cycle.
	DurationMs int64  `json:"duration_ms"`
	Direction  string `json:"direction"`
}

func (m RunMetadata) Duration() time.Duration {
	return time.Duration(m.DurationMs) * time.Millisecond
}

// Progress is one row of progress.csv.
type Progress struct {
	Elapsed time.Duration
	Source  int
	Target  int
	Event   string
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	slices.SortFunc(runs, func(a, b RunMetadata) int { return a.Started.Compare(b.Started) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(s.path(runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadProgress(runID string) ([]Progress, error) {
	file, err := os.Open(s.path(runID, progressFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = 4

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []Progress{}, nil
	}

	rows := make([]Progress, 0, len(records)-1)
	for _, record := range records[1:] {
		ms, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			continue
		}
		src, err1 := strconv.Atoi(record[1])
		dst, err2 := strconv.Atoi(record[2])
		if err1 != nil || err2 != nil {
			continue
		}
		rows = append(rows, Progress{
			Elapsed: time.Duration(ms) * time.Millisecond,
			Source:  src,
			Target:  dst,
			Event:   record[3],
		})
	}
	return rows, nil
}

func (s *Store) path(runID, name string) string {
	return filepath.Join(s.baseDir, runID, name)
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
