// Package singlefile reads a single log file as a stream of fingerprinted
// LogRecords: it recognizes a handful of common timestamp formats, samples
// and caps reads for safety, and supports seeking to a byte offset or to
// the first record at or after a timestamp via binary search.
package singlefile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/bascanada/hblog/pkg/fingerprint"
	"github.com/bascanada/hblog/pkg/logaccessor"
)

const (
	maxLineLength    = 100 * 1000
	maxGB            = 5
	firstRecMaxLines = 100
	firstRecMaxBytes = 10 * 1000
	defaultMaxKLines = 2000

	// seekCloseEnough bounds how close the binary search in SeekTime must
	// land before it falls back to a linear scan.
	seekCloseEnough = 32768
)

// LimitError is raised when a safety limit (first-record search window,
// total line count, total byte count) is exceeded while reading.
type LimitError struct {
	Msg string
}

func (e *LimitError) Error() string { return e.Msg }

// ErrNoRecognizedLine is returned when a file ends without any line
// matching a known timestamp format (a search that outruns the
// first-record window fails with a *LimitError instead), or when a seek
// lands past the last recognizable record.
var ErrNoRecognizedLine = errors.New("singlefile: no recognized log line found")

type lineFormat struct {
	re        *regexp.Regexp
	layout    string
	transform func(string) string
	comments  string
}

func syslogTimestampTransform(s string) string {
	s = regexp.MustCompile(` ([0-9]) `).ReplaceAllString(s, " 0$1 ")
	s = regexp.MustCompile(` +`).ReplaceAllString(s, " ")
	return fmt.Sprintf("%d %s", time.Now().Year(), s)
}

func gclogTimestampTransform(s string) string {
	return regexp.MustCompile(`-?\d{4}$`).ReplaceAllString(s, "")
}

// loglineFormats is checked in order; the first matching entry wins. Every
// pattern carries four capture groups: timestamp, a throwaway group
// (log4j's bracketed thread name), level, and the message body, even when
// a format has no real level or throwaway group (syslog, gc logs).
var loglineFormats = []lineFormat{
	{
		re:       regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2},\d+) +(\[.*?\])? *(\w+) +(.+)\n$`),
		layout:   "2006-01-02 15:04:05,000",
		comments: `log4j format. E.g. "2013-12-30 23:50:50,121"`,
	},
	{
		re:        regexp.MustCompile(`^([A-Za-z]{3} +\d{1,2} +\d{2}:\d{2}:\d{2}) *()?()?(.+)\n$`),
		layout:    "2006 Jan 02 15:04:05",
		transform: syslogTimestampTransform,
		comments:  `typical syslog format. E.g. "Oct  1 13:57:31"`,
	},
	{
		re:        regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}.\d+-?\d*): *()?()?(.+)\n$`),
		layout:    "2006-01-02T15:04:05.000",
		transform: gclogTimestampTransform,
		comments:  `java garbage collection log format. E.g. "2013-09-30T23:12:58.800-0700: 716.601: [GC: [ParNew"`,
	},
}

// Options configures a Reader.
type Options struct {
	// MaxKLines caps the number of thousand-line units read from the file
	// before a LimitError is raised. Zero means the default of 2000.
	MaxKLines int
	// SamplingRate, when non-nil, keeps only a random fraction of lines
	// (0 < rate <= 1). Nil disables sampling.
	SamplingRate *float64
}

// Reader streams LogRecords out of a single log file, one byte-offset
// checkpoint ahead of the last value it returned, so that ByteOffset()
// always names a safe resume point for SeekOffset.
type Reader struct {
	filename  string
	file      *os.File
	br        *bufio.Reader
	pos       int64
	fileSize  int64
	maxKLines int
	sampling  *float64

	seeking bool
	done    bool

	currentOffset int64
	bytesRead     int64
	linesRead     int64
	unrecognized  int64

	nextRec  *logaccessor.LogRecord
	firstRec *logaccessor.LogRecord
}

// Open opens filename and primes the reader by locating its first
// recognizable record. It fails if no such record appears within the
// first 10,000 bytes / 100 lines of the file.
func Open(filename string, opts Options) (*Reader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	maxKLines := opts.MaxKLines
	if maxKLines <= 0 {
		maxKLines = defaultMaxKLines
	}

	r := &Reader{
		filename:  filename,
		file:      f,
		br:        bufio.NewReader(f),
		fileSize:  info.Size(),
		maxKLines: maxKLines,
		sampling:  opts.SamplingRate,
	}

	r.seeking = true
	if _, err := r.advance(); err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			err = ErrNoRecognizedLine
		}
		return nil, fmt.Errorf("could not read the first line of %s: %w", filename, err)
	}
	r.seeking = false
	r.firstRec = r.nextRec
	if r.firstRec == nil {
		f.Close()
		return nil, fmt.Errorf("could not read the first line of %s: %w", filename, ErrNoRecognizedLine)
	}

	return r, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error { return r.file.Close() }

// Filename returns the path this reader was opened with.
func (r *Reader) Filename() string { return r.filename }

// FirstRecord returns the first recognized record in the file.
func (r *Reader) FirstRecord() *logaccessor.LogRecord { return r.firstRec }

// ByteOffset returns the byte offset of the most recently parsed line,
// suitable for resuming with SeekOffset.
func (r *Reader) ByteOffset() int64 { return r.currentOffset }

// BytesRead returns the total number of bytes consumed so far.
func (r *Reader) BytesRead() int64 { return r.bytesRead }

// LinesRead returns the total number of lines consumed so far.
func (r *Reader) LinesRead() int64 { return r.linesRead }

// Peek returns the record that the next call to Next will return,
// without consuming it.
func (r *Reader) Peek() *logaccessor.LogRecord { return r.nextRec }

// Next returns the next record in the file, or io.EOF once the file is
// exhausted.
func (r *Reader) Next() (*logaccessor.LogRecord, error) {
	if r.done {
		return nil, io.EOF
	}
	return r.advance()
}

// SeekOffset repositions the reader at a byte offset and re-primes its
// one-record lookahead buffer.
func (r *Reader) SeekOffset(offset int64) error {
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	r.br = bufio.NewReader(r.file)
	r.pos = offset
	r.nextRec = nil
	r.done = false

	r.seeking = true
	_, err := r.advance()
	r.seeking = false
	if errors.Is(err, io.EOF) {
		return ErrNoRecognizedLine
	}
	return err
}

// SeekTime positions the reader so that the next call to Next returns the
// first record at or after ts. It binary-searches to within 32KiB of the
// target and then scans forward linearly.
func (r *Reader) SeekTime(ts time.Time) error {
	target := ts.Format(logaccessor.TimestampLayout)

	r.seeking = true
	defer func() { r.seeking = false }()

	start := int64(0)
	end := r.fileSize
	if err := r.SeekOffset(start); err != nil {
		return err
	}

	if r.nextRec != nil && r.nextRec.Ts < target {
		for end-start > seekCloseEnough && r.nextRec != nil {
			mid := (end + start) / 2
			// No record found after mid (end of file, or none within the
			// first-record window) counts as past the target; the linear
			// scan below still walks forward from start.
			var limitErr *LimitError
			if err := r.SeekOffset(mid); err != nil && !errors.Is(err, ErrNoRecognizedLine) && !errors.As(err, &limitErr) {
				return err
			}
			if r.nextRec != nil && r.nextRec.Ts < target {
				start = mid
			} else {
				end = mid
			}
		}
	}

	if err := r.SeekOffset(start); err != nil {
		return err
	}
	if r.nextRec == nil {
		return ErrNoRecognizedLine
	}

	for r.nextRec != nil && r.nextRec.Ts < target {
		if _, err := r.advance(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
	}

	return nil
}

// advance runs one step of the read loop: it reads lines until it has a
// record to hand back (the record that was sitting in the one-ahead
// lookahead buffer from the previous call), or the file is exhausted.
func (r *Reader) advance() (*logaccessor.LogRecord, error) {
	var windowLines, windowBytes int64
	for {
		offsetBeforeLine := r.pos
		line, atEOF, err := r.readLine()
		if err != nil {
			return nil, err
		}
		r.currentOffset = offsetBeforeLine

		if line == "" && atEOF {
			r.done = true
			if r.nextRec != nil {
				last := r.nextRec
				r.nextRec = nil
				return last, nil
			}
			return nil, io.EOF
		}

		sampledIn := r.seeking || r.sampling == nil || rand.Float64() <= *r.sampling
		if !sampledIn {
			continue
		}

		r.linesRead++
		r.bytesRead += int64(len(line))
		windowLines++
		windowBytes += int64(len(line))

		currentRec := r.nextRec

		if currentRec == nil {
			if windowBytes > firstRecMaxBytes {
				return nil, &LimitError{Msg: fmt.Sprintf(
					"refusing to read more than %d bytes to find the first record", firstRecMaxBytes)}
			}
			if windowLines > firstRecMaxLines {
				return nil, &LimitError{Msg: fmt.Sprintf(
					"refusing to read more than %d lines to find the first record", firstRecMaxLines)}
			}
		}
		if r.linesRead > int64(r.maxKLines)*1000 {
			return nil, &LimitError{Msg: fmt.Sprintf(
				"refusing to read more than %d k lines per logfile", r.maxKLines)}
		}
		if r.bytesRead > maxGB*1024*1024*1024 {
			return nil, &LimitError{Msg: fmt.Sprintf(
				"refusing to read more than %d GB per logfile", maxGB)}
		}

		rec, matched := parseLine(line)
		if matched {
			r.nextRec = rec
			return currentRec, nil
		}

		r.unrecognized++
		if currentRec == nil || r.seeking {
			continue
		}
		if r.sampling != nil && *r.sampling < 1 {
			continue
		}

		rec = &logaccessor.LogRecord{
			Ts:               currentRec.Ts,
			Level:            currentRec.Level,
			Text:             strings.TrimRight(line, "\r\n"),
			UnrecognizedLine: true,
		}
		rec.NormText, rec.Fp = fingerprint.Squeeze(rec.Text)
		r.nextRec = rec
		return currentRec, nil
	}
}

// readLine reads one line, capped at maxLineLength bytes, returning the
// line including its trailing newline when present. atEOF is true when
// the underlying reader has nothing left, even if a final partial line
// was returned alongside it.
func (r *Reader) readLine() (string, bool, error) {
	var buf []byte
	for {
		b, err := r.br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.pos += int64(len(buf))
				return string(buf), true, nil
			}
			return "", false, err
		}
		buf = append(buf, b)
		if b == '\n' {
			r.pos += int64(len(buf))
			return string(buf), false, nil
		}
		if len(buf) >= maxLineLength {
			r.pos += int64(len(buf))
			return string(buf), false, nil
		}
	}
}

// parseLine tries every known log line format in order and, on a match,
// builds and fingerprints the resulting record.
func parseLine(line string) (*logaccessor.LogRecord, bool) {
	for _, f := range loglineFormats {
		m := f.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		tsStr := m[1]
		if f.transform != nil {
			tsStr = f.transform(tsStr)
		}
		ts, err := time.ParseInLocation(f.layout, tsStr, time.UTC)
		if err != nil {
			continue
		}

		level := m[3]
		if !logaccessor.IsValidLevel(level) {
			level = "WARN"
		}

		rec := &logaccessor.LogRecord{
			Ts:    ts.Format(logaccessor.TimestampLayout),
			Level: level,
			Text:  m[4],
		}
		rec.NormText, rec.Fp = fingerprint.Squeeze(rec.Text)
		return rec, true
	}
	return nil, false
}
