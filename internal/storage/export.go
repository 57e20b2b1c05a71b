package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	Run        RunMetadata `json:"run"`
	ElapsedMs  []int64     `json:"elapsed_ms"`
	Source     []int       `json:"source"`
	Target     []int       `json:"target"`
	Events     []string    `json:"events"`
	FrameCount int         `json:"frame_count"`
}

// ExportJSON writes a run's metadata and progress as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	rows, err := s.LoadProgress(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		Run:        *meta,
		ElapsedMs:  make([]int64, len(rows)),
		Source:     make([]int, len(rows)),
		Target:     make([]int, len(rows)),
		Events:     make([]string, len(rows)),
		FrameCount: meta.Frames,
	}
	for i, row := range rows {
		data.ElapsedMs[i] = row.Elapsed.Milliseconds()
		data.Source[i] = row.Source
		data.Target[i] = row.Target
		data.Events[i] = row.Event
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
