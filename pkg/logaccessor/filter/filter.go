// Package filter applies the agent's post-read filter chain to a stream
// of LogRecords: an end-time cutoff, a level allow-list, then either a
// fingerprint include-list or a fingerprint exclude-list combined with
// regex include/exclude, and folds surviving records into a Summary.
package filter

import (
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/bascanada/hblog/pkg/logaccessor"
)

// Chain holds one request's filter parameters. A zero-value Chain keeps
// every recognized record (no level restriction, no fp/regex filtering)
// and never stops early.
type Chain struct {
	// EndTime, when non-empty, stops the stream (does not merely drop)
	// the first recognized record whose Ts sorts after it. Ignored
	// entirely in follow mode, where the client has no fixed end.
	EndTime string
	Follow  bool

	// Levels restricts output to these levels. A nil/empty slice means
	// "no restriction" (every level is acceptable) rather than "nothing
	// passes" — callers wanting a minimum level should expand it first
	// with logaccessor.LevelsFrom.
	Levels []string

	FpInclude []string
	FpExclude []string

	ReInclude []*regexp.Regexp
	ReExclude []*regexp.Regexp
}

// CompileRegexes compiles a list of regex source strings,
// case-insensitively, matching the agent's re.search(..., re.IGNORECASE)
// behavior.
func CompileRegexes(patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// Decision is the result of running one record through the chain.
type Decision struct {
	Keep bool
	// Stop reports that this and every subsequent record should be
	// discarded: an end-time cutoff was reached.
	Stop bool
}

// Apply runs rec through the filter chain in the agent's fixed order:
// end-time, then level, then fp-include (short-circuiting regex
// filtering) or fp-exclude+regex-include+regex-exclude.
func (c *Chain) Apply(rec *logaccessor.LogRecord) Decision {
	if !rec.UnrecognizedLine && !c.Follow && c.EndTime != "" && rec.Ts > c.EndTime {
		return Decision{Keep: false, Stop: true}
	}

	if !c.levelAllowed(rec.Level) {
		return Decision{Keep: false}
	}

	if len(c.FpInclude) != 0 {
		return Decision{Keep: hasPrefixMatch(rec.Fp, c.FpInclude)}
	}

	if hasPrefixMatch(rec.Fp, c.FpExclude) {
		return Decision{Keep: false}
	}

	keep := len(c.ReInclude) == 0
	for _, re := range c.ReInclude {
		if re.MatchString(rec.Text) {
			keep = true
		}
	}
	for _, re := range c.ReExclude {
		if re.MatchString(rec.Text) {
			keep = false
		}
	}
	return Decision{Keep: keep}
}

func (c *Chain) levelAllowed(level string) bool {
	if len(c.Levels) == 0 {
		return true
	}
	for _, l := range c.Levels {
		if l == level {
			return true
		}
	}
	return false
}

func hasPrefixMatch(fp string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(fp, p) {
			return true
		}
	}
	return false
}

// Source is anything that yields LogRecords in order, matching the
// interface both singlefile.Reader and multifile.Reader satisfy.
type Source interface {
	Next() (*logaccessor.LogRecord, error)
}

// Run reads from src until it's exhausted or the chain signals Stop,
// calling emit for every record that survives the filter.
func Run(src Source, c *Chain, emit func(*logaccessor.LogRecord)) error {
	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		d := c.Apply(rec)
		if d.Stop {
			return nil
		}
		if d.Keep {
			emit(rec)
		}
	}
}
