package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/san-kum/sandglass/internal/frame"
)

// RecordSize is the on-disk size of one frame record: address then frame.
const RecordSize = 1 + frame.Size

type FrameRecord struct {
	Addr  uint8
	Frame frame.Frame
}

func (s *Store) LoadFrames(runID string) ([]FrameRecord, error) {
	f, err := os.Open(s.path(runID, framesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return ReadFrames(bufio.NewReader(dec))
}

// ReadFrames decodes records until EOF. A trailing partial record is an error.
func ReadFrames(r io.Reader) ([]FrameRecord, error) {
	var out []FrameRecord
	var buf [RecordSize]byte
	for {
		_, err := io.ReadFull(r, buf[:])
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("frame record %d: %w", len(out), err)
		}
		var rec FrameRecord
		rec.Addr = buf[0]
		copy(rec.Frame[:], buf[1:])
		out = append(out, rec)
	}
}
