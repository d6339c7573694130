// Package multifile reads an ordered set of log files matched by a glob
// pattern as a single continuous stream, presenting a UniversalOffset
// cursor that can name a resume point anywhere across the set.
package multifile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bascanada/hblog/pkg/logaccessor"
	"github.com/bascanada/hblog/pkg/logaccessor/singlefile"
)

const (
	minFileSize  = 10
	maxFileCount = 1000
)

// ErrNoFiles is returned when a glob matches nothing, or when every match
// was skipped (too small, .gz, or unparseable).
var ErrNoFiles = errors.New("multifile: no usable log files matched the glob")

// SkippedFile records why a glob match was not opened.
type SkippedFile struct {
	Filename string
	Reason   string
}

// Reader reads a set of log files in first-record-timestamp order as one
// continuous stream of LogRecords.
type Reader struct {
	files       []*singlefile.Reader
	indexByName map[string]int
	current     int

	// Skipped lists every glob match that was not opened, for callers
	// that want to surface it (e.g. the agent's debug log).
	Skipped []SkippedFile
}

// Open resolves pattern with filepath.Glob, opens every match worth
// reading (skipping .gz files and anything 10 bytes or smaller), and
// orders the result by each file's first record timestamp.
func Open(pattern string, opts singlefile.Options) (*Reader, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("multifile: bad glob %q: %w", pattern, err)
	}
	if len(matches) > maxFileCount {
		return nil, fmt.Errorf("multifile: glob %q matched %d files, refusing more than %d",
			pattern, len(matches), maxFileCount)
	}

	r := &Reader{indexByName: make(map[string]int)}

	for _, filename := range matches {
		if strings.HasSuffix(filename, ".gz") {
			r.Skipped = append(r.Skipped, SkippedFile{filename, "gzip-compressed"})
			continue
		}

		info, statErr := os.Stat(filename)
		if statErr != nil {
			r.Skipped = append(r.Skipped, SkippedFile{filename, statErr.Error()})
			continue
		}
		if info.Size() <= minFileSize {
			r.Skipped = append(r.Skipped, SkippedFile{filename, "too small"})
			continue
		}

		sf, openErr := singlefile.Open(filename, opts)
		if openErr != nil {
			r.Skipped = append(r.Skipped, SkippedFile{filename, openErr.Error()})
			continue
		}
		r.files = append(r.files, sf)
	}

	if len(r.files) == 0 {
		return nil, ErrNoFiles
	}

	sort.SliceStable(r.files, func(i, j int) bool {
		return r.files[i].FirstRecord().Ts < r.files[j].FirstRecord().Ts
	})
	for i, f := range r.files {
		r.indexByName[f.Filename()] = i
	}

	return r, nil
}

// Close closes every open file.
func (r *Reader) Close() error {
	var firstErr error
	for _, f := range r.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BytesRead and LinesRead report the live total across every open file
// (not just the ones already fully consumed).
func (r *Reader) BytesRead() int64 {
	var total int64
	for _, f := range r.files {
		total += f.BytesRead()
	}
	return total
}

func (r *Reader) LinesRead() int64 {
	var total int64
	for _, f := range r.files {
		total += f.LinesRead()
	}
	return total
}

// UniversalOffset returns a cursor that SeekOffset can resume from: the
// file and byte offset of the next record Next will return.
func (r *Reader) UniversalOffset() logaccessor.UniversalOffset {
	if r.current >= len(r.files) {
		last := r.files[len(r.files)-1]
		return logaccessor.UniversalOffset{Filename: last.Filename(), ByteOffset: last.ByteOffset()}
	}
	f := r.files[r.current]
	return logaccessor.UniversalOffset{Filename: f.Filename(), ByteOffset: f.ByteOffset()}
}

// Next returns the next record across the file set, advancing to the next
// file when the current one is exhausted, and io.EOF once the last file
// is exhausted.
func (r *Reader) Next() (*logaccessor.LogRecord, error) {
	for r.current < len(r.files) {
		rec, err := r.files[r.current].Next()
		if errors.Is(err, io.EOF) {
			r.current++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("multifile: reading %s: %w", r.files[r.current].Filename(), err)
		}
		return rec, nil
	}
	return nil, io.EOF
}

// SeekOffset resumes the stream at the named file and byte offset. If
// that offset has no recognizable record at or after it (e.g. it names
// the tail of its file), the search continues from the start of each
// subsequent file until one yields a record, or the set is exhausted.
func (r *Reader) SeekOffset(off logaccessor.UniversalOffset) error {
	idx, ok := r.indexByName[off.Filename]
	if !ok {
		return fmt.Errorf("multifile: %s is not one of the open log files", off.Filename)
	}

	offset := off.ByteOffset
	for i := idx; i < len(r.files); i++ {
		err := r.files[i].SeekOffset(offset)
		if errors.Is(err, singlefile.ErrNoRecognizedLine) || errors.Is(err, io.EOF) {
			offset = 0
			continue
		}
		if err != nil {
			return err
		}
		r.current = i
		return nil
	}

	r.current = len(r.files)
	return nil
}

// SeekTime resumes the stream at the first record at or after ts, across
// the whole file set. It picks the file whose successor (if any) starts
// no earlier than ts, then binary-searches within it.
func (r *Reader) SeekTime(ts time.Time) error {
	target := ts.Format(logaccessor.TimestampLayout)

	for i, f := range r.files {
		found := true
		if i+1 < len(r.files) {
			next := r.files[i+1]
			if next.FirstRecord().Ts < target {
				found = false
			}
		}
		if !found {
			continue
		}

		if err := f.SeekTime(ts); err != nil {
			return err
		}
		r.current = i
		return nil
	}

	r.current = len(r.files)
	return nil
}
