package fanout

import (
	"sort"

	"github.com/bascanada/hblog/pkg/logaccessor"
)

// MergeDetails concatenates every host's records and stable-sorts the
// result by timestamp ascending.
func MergeDetails(state *RoundState) []*logaccessor.LogRecord {
	var all []*logaccessor.LogRecord
	for _, host := range state.InitialHostsList {
		all = append(all, state.ResultsPerHost[host]...)
	}
	SortDetailsByTime(all)
	return all
}

// MergeSummary folds every host's Summary into one global Summary,
// summing counts per fingerprint and per level.
func MergeSummary(state *RoundState) *logaccessor.Summary {
	global := logaccessor.NewSummary()

	for _, host := range state.InitialHostsList {
		s := state.SummariesPerHost[host]
		if s == nil {
			continue
		}
		for level, count := range s.Level {
			global.Level[level] += count
		}
		for fp, entry := range s.Fp {
			existing, ok := global.Fp[fp]
			if !ok {
				existing = &logaccessor.FpCount{Fp: fp, Level: entry.Level, NormText: entry.NormText}
				global.Fp[fp] = existing
			}
			existing.Count += entry.Count
		}
	}

	return global
}

// fpPrefixLen is the number of leading fingerprint characters used as the
// matrix row key, with the full 8-char fp matched by startswith against it.
const fpPrefixLen = 7

// FpMatrixRow is one row of the host x fingerprint matrix: every
// fingerprint sharing a 7-char prefix, folded into one representative
// level/text, broken down by per-host count.
type FpMatrixRow struct {
	Prefix   string
	Level    string
	NormText string
	Total    int
	PerHost  map[string]int
}

// BuildFpMatrix keeps each host's Summary.Fp map intact and indexes it by
// fingerprint prefix, so a renderer can show, for each fingerprint family,
// how many times it fired on each host without collapsing hosts together
// the way MergeSummary does.
func BuildFpMatrix(state *RoundState) []*FpMatrixRow {
	rows := make(map[string]*FpMatrixRow)

	for _, host := range state.InitialHostsList {
		s := state.SummariesPerHost[host]
		if s == nil {
			continue
		}
		for fp, entry := range s.Fp {
			prefix := fp
			if len(prefix) > fpPrefixLen {
				prefix = prefix[:fpPrefixLen]
			}

			row, ok := rows[prefix]
			if !ok {
				row = &FpMatrixRow{
					Prefix:   prefix,
					Level:    entry.Level,
					NormText: entry.NormText,
					PerHost:  make(map[string]int),
				}
				rows[prefix] = row
			}
			row.PerHost[host] += entry.Count
			row.Total += entry.Count
		}
	}

	out := make([]*FpMatrixRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prefix < out[j].Prefix })
	return out
}

// OffsetsPerHost extracts the follow-mode resume cursor for every host
// that returned one, the way follow mode records
// offsets_per_host[host] between rounds. Hosts without a cursor are
// omitted, so the next round re-seeks them by time instead.
func OffsetsPerHost(state *RoundState) map[string]logaccessor.UniversalOffset {
	out := make(map[string]logaccessor.UniversalOffset)
	for host, exit := range state.ExitStatePerHost {
		if exit.UniversalOffset != nil && !exit.UniversalOffset.IsZero() {
			out[host] = *exit.UniversalOffset
		}
	}
	return out
}
