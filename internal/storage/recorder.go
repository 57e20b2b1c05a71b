package storage

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/san-kum/sandglass/internal/cycle"
	"github.com/san-kum/sandglass/internal/frame"
	"github.com/san-kum/sandglass/internal/sand"
)

// Recorder captures one run as it happens. It is both a loop observer, for
// progress rows, and a bus, for the frame log. Write errors are sticky and
// reported by Close.
type Recorder struct {
	dir   string
	meta  RunMetadata
	start time.Time

	progressF *os.File
	progress  *csv.Writer

	framesF *os.File
	enc     *zstd.Encoder
	frames  *bufio.Writer

	err error
}

// Create starts a new run directory. meta.ID and meta.Started are filled in.
func (s *Store) Create(meta RunMetadata, start time.Time) (*Recorder, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	meta.ID = uuid.NewString()
	meta.Started = start

	dir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	pf, err := os.Create(filepath.Join(dir, progressFile))
	if err != nil {
		return nil, err
	}
	ff, err := os.Create(filepath.Join(dir, framesFile))
	if err != nil {
		pf.Close()
		return nil, err
	}
	enc, err := zstd.NewWriter(ff, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		pf.Close()
		ff.Close()
		return nil, err
	}

	r := &Recorder{
		dir:       dir,
		meta:      meta,
		start:     start,
		progressF: pf,
		progress:  csv.NewWriter(pf),
		framesF:   ff,
		enc:       enc,
		frames:    bufio.NewWriterSize(enc, 64*1024),
	}
	r.fail(r.progress.Write([]string{"elapsed_ms", "source", "target", "event"}))
	// Written up front so an interrupted run still lists.
	r.fail(writeMetadata(filepath.Join(dir, metadataFile), r.meta))
	return r, r.err
}

func (r *Recorder) ID() string { return r.meta.ID }

func (r *Recorder) Metadata() RunMetadata { return r.meta }

func (r *Recorder) OnCycle(now time.Time, c *cycle.Controller, reason string) {
	r.meta.Cycles++
	r.meta.DurationMs = c.Duration().Milliseconds()
	r.meta.Direction = c.Direction().String()
	r.row(now, c, "cycle-"+reason)
}

func (r *Recorder) OnStep(now time.Time, ev sand.Event, c *cycle.Controller) {
	r.meta.Steps++
	switch ev.Kind {
	case sand.Settled:
		r.row(now, c, ev.Kind.String())
	case sand.Drained:
		r.meta.Completed++
		r.row(now, c, ev.Kind.String())
	}
}

func (r *Recorder) row(now time.Time, c *cycle.Controller, event string) {
	s := c.Session()
	r.fail(r.progress.Write([]string{
		strconv.FormatInt(now.Sub(r.start).Milliseconds(), 10),
		strconv.Itoa(s.Source().Count()),
		strconv.Itoa(s.Target().Count()),
		event,
	}))
}

// Send appends a 12-byte record to the frame log.
func (r *Recorder) Send(addr uint8, f frame.Frame) error {
	if r.err != nil {
		return r.err
	}
	if err := r.frames.WriteByte(addr); err != nil {
		r.fail(err)
		return err
	}
	if _, err := r.frames.Write(f[:]); err != nil {
		r.fail(err)
		return err
	}
	r.meta.Frames++
	return nil
}

// Close flushes everything and rewrites metadata.json with the final counts.
func (r *Recorder) Close(now time.Time) error {
	r.meta.Finished = now

	r.progress.Flush()
	r.fail(r.progress.Error())
	r.fail(r.progressF.Close())

	r.fail(r.frames.Flush())
	r.fail(r.enc.Close())
	r.fail(r.framesF.Close())

	if err := writeMetadata(filepath.Join(r.dir, metadataFile), r.meta); err != nil {
		return errors.Join(r.err, err)
	}
	if r.err != nil {
		return fmt.Errorf("recording %s: %w", r.meta.ID, r.err)
	}
	return nil
}

func (r *Recorder) fail(err error) {
	if err != nil && r.err == nil {
		r.err = err
	}
}
