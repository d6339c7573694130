package agent

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bascanada/hblog/pkg/logaccessor"
	"github.com/bascanada/hblog/pkg/logaccessor/filter"
)

// requestParams is the agent's view of the query string documented for
// /log/stream and /log/summary: a glob, sampling, level/fingerprint/regex
// filters, a time window or a resume cursor.
type requestParams struct {
	Glob            string
	SamplingRate    *float64
	Levels          []string
	FpInclude       []string
	FpExclude       []string
	ReInclude       []string
	ReExclude       []string
	Start           string
	End             string
	UniversalOffset *logaccessor.UniversalOffset
}

// parseRequestParams reads the query string the way parse_url_args did:
// every multi-value parameter is comma-joined into a single field, so a
// repeated query key only ever contributes its first occurrence.
func parseRequestParams(r *http.Request) (*requestParams, error) {
	q := r.URL.Query()

	glob := q.Get("glob")
	if glob == "" {
		return nil, fmt.Errorf("missing required query parameter: glob")
	}

	p := &requestParams{
		Glob:      glob,
		Levels:    commaList(q.Get("levels-list")),
		FpInclude: commaList(q.Get("fp")),
		FpExclude: commaList(q.Get("fp-exclude")),
		ReInclude: commaList(q.Get("re")),
		ReExclude: commaList(q.Get("re-exclude")),
		Start:     q.Get("start"),
		End:       q.Get("end"),
	}

	if raw := q.Get("sampling-rate"); raw != "" && raw != "None" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid sampling-rate %q: %w", raw, err)
		}
		p.SamplingRate = &v
	}

	if raw := q.Get("universal-offset"); raw != "" {
		filename, offsetStr, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("invalid universal-offset %q, want filename:byteOffset", raw)
		}
		offset, err := strconv.ParseInt(offsetStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid universal-offset %q: %w", raw, err)
		}
		p.UniversalOffset = &logaccessor.UniversalOffset{Filename: filename, ByteOffset: offset}
	}

	return p, nil
}

func commaList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// parseQueryTime parses a ts query param in the wire TimestampLayout,
// falling back to a whole-seconds layout for callers that omit the
// fractional part.
func parseQueryTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(logaccessor.TimestampLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC)
}

// buildChain constructs the filter chain for one request, matching
// fetch_and_filter's fixed order and its end-time bypass once a resume
// cursor is in play.
func (p *requestParams) buildChain() (*filter.Chain, error) {
	reInclude, err := filter.CompileRegexes(p.ReInclude)
	if err != nil {
		return nil, fmt.Errorf("invalid re parameter: %w", err)
	}
	reExclude, err := filter.CompileRegexes(p.ReExclude)
	if err != nil {
		return nil, fmt.Errorf("invalid re-exclude parameter: %w", err)
	}

	return &filter.Chain{
		EndTime:   p.End,
		Follow:    p.UniversalOffset != nil,
		Levels:    p.Levels,
		FpInclude: p.FpInclude,
		FpExclude: p.FpExclude,
		ReInclude: reInclude,
		ReExclude: reExclude,
	}, nil
}
