// Package logaccessor holds the wire data model shared by the single-file
// reader, the multi-file reader, the filter/summarize layer, the HTTP
// agent, and the fan-out client: LogRecord, UniversalOffset, Summary,
// ExitStatus and the NDJSON Envelope framing.
package logaccessor

import "fmt"

// AllLevels is the ordered severity list used both to default an
// unparseable level to WARN and to expand a minimum-level filter into the
// set of levels at or above it.
var AllLevels = []string{"INFO", "DEBUG", "WARN", "ERROR", "FATAL"}

// LevelsFrom returns every level from minLevel onward in AllLevels order
// (not sorted by severity — by the declaration order above, matching the
// source tool's deliberately quirky precedence).
func LevelsFrom(minLevel string) []string {
	for i, l := range AllLevels {
		if l == minLevel {
			return append([]string(nil), AllLevels[i:]...)
		}
	}
	return append([]string(nil), AllLevels...)
}

// IsValidLevel reports whether level is one of the five known levels.
func IsValidLevel(level string) bool {
	for _, l := range AllLevels {
		if l == level {
			return true
		}
	}
	return false
}

// TimestampLayout is the wire format for LogRecord.Ts: local time, no zone,
// microsecond precision. It doubles as the sort key because it is
// fixed-width and lexically monotonic.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// LogRecord is a single timestamped, fingerprinted log line.
type LogRecord struct {
	Ts               string `json:"ts"`
	Level            string `json:"level"`
	Text             string `json:"text"`
	NormText         string `json:"norm_text"`
	Fp               string `json:"fp"`
	UnrecognizedLine bool   `json:"unrecognized_line,omitempty"`
	Host             string `json:"host,omitempty"`
}

// UniversalOffset identifies a resumable position within a multi-file log
// set: the file currently being read and the byte offset at which the line
// of the next not-yet-delivered record starts.
type UniversalOffset struct {
	Filename   string `json:"filename"`
	ByteOffset int64  `json:"byte_offset"`
}

// String renders the offset in its wire form, "<filename>:<offset>".
func (u UniversalOffset) String() string {
	return fmt.Sprintf("%s:%d", u.Filename, u.ByteOffset)
}

// IsZero reports whether u carries no filename (i.e. was never set).
func (u UniversalOffset) IsZero() bool {
	return u.Filename == ""
}

// FpCount is one entry of a Summary's fingerprint table.
type FpCount struct {
	Fp       string `json:"fp"`
	Count    int    `json:"count"`
	Level    string `json:"level"`
	NormText string `json:"norm_text"`
}

// Summary is a per-host aggregate: a level histogram and a fingerprint
// frequency table, built by folding every record that survives the filter
// chain.
type Summary struct {
	Level map[string]int      `json:"level"`
	Fp    map[string]*FpCount `json:"fp"`
	Regex map[string]int      `json:"regex"`
}

// NewSummary returns a Summary with a zero-filled level histogram, ready
// to be folded into.
func NewSummary() *Summary {
	s := &Summary{
		Level: make(map[string]int, len(AllLevels)),
		Fp:    make(map[string]*FpCount),
		Regex: make(map[string]int),
	}
	for _, l := range AllLevels {
		s.Level[l] = 0
	}
	return s
}

// Add folds one record into the summary.
func (s *Summary) Add(r LogRecord) {
	s.Level[r.Level]++

	entry, ok := s.Fp[r.Fp]
	if !ok {
		entry = &FpCount{Fp: r.Fp, Level: r.Level, NormText: r.NormText}
		s.Fp[r.Fp] = entry
	}
	entry.Count++
}

// ExitStatus is the terminal NDJSON record of every agent response.
type ExitStatus struct {
	Status          string           `json:"status"`
	UniversalOffset *UniversalOffset `json:"universal-offset,omitempty"`
}

// Envelope is the NDJSON wire framing used between the agent and the
// fan-out client.
type Envelope struct {
	PkgCls string      `json:"pkg-cls"`
	PkgObj interface{} `json:"pkg-obj"`
}

const (
	// PkgClsLine frames a LogRecord or Summary payload.
	PkgClsLine = "log-accessor-line"
	// PkgClsExitStatus frames the terminal ExitStatus payload.
	PkgClsExitStatus = "exit-status"
)
