package fanout

import (
	"fmt"
	"strings"
	"time"

	"github.com/bascanada/hblog/pkg/logaccessor"
)

// RoundState holds every host's accumulated results across the life of a
// fan-out session: it survives from round to round in follow mode, with
// HostsList only ever shrinking as hosts are blacklisted.
type RoundState struct {
	InitialHostsList []string
	HostsList        []string
	Finished         int

	ResultsPerHost   map[string][]*logaccessor.LogRecord
	SummariesPerHost map[string]*logaccessor.Summary
	ExitStatePerHost map[string]*logaccessor.ExitStatus

	Blacklisted []string

	// BlacklistExhaustedRecord, if non-nil, is the synthetic BLACKL02 record
	// emitted once every host has been blacklisted.
	BlacklistExhaustedRecord *logaccessor.LogRecord
}

// NewRoundState builds a fresh round state for hosts, carrying no prior
// results.
func NewRoundState(hosts []string) *RoundState {
	return &RoundState{
		InitialHostsList: append([]string(nil), hosts...),
		HostsList:        append([]string(nil), hosts...),
		ResultsPerHost:   make(map[string][]*logaccessor.LogRecord),
		SummariesPerHost: make(map[string]*logaccessor.Summary),
		ExitStatePerHost: make(map[string]*logaccessor.ExitStatus),
	}
}

// Blacklist removes host from the working set and records it for the
// end-of-round report.
func (s *RoundState) Blacklist(host string) {
	for i, h := range s.HostsList {
		if h == host {
			s.HostsList = append(s.HostsList[:i], s.HostsList[i+1:]...)
			break
		}
	}
	s.Blacklisted = append(s.Blacklisted, host)
}

// EmitBlacklistExhausted builds the synthetic "all hosts blacklisted"
// record, matching the original's field layout (ts BLACKL0N LEVEL -
// message) so downstream stdout consumers keep working.
func (s *RoundState) EmitBlacklistExhausted(n int) {
	s.BlacklistExhaustedRecord = syntheticRecord("ERROR", "BLACKL02",
		"All %d hosts got blacklisted", n)
}

// BlacklistReport builds the end-of-round BLACKL01 WARN line enumerating
// every host removed so far this session, or nil if none were.
func (s *RoundState) BlacklistReport() *logaccessor.LogRecord {
	if len(s.Blacklisted) == 0 {
		return nil
	}
	return syntheticRecord("WARN", "BLACKL01",
		"Blacklisted hosts this session: %s", joinHosts(s.Blacklisted))
}

func syntheticRecord(level, code, format string, args ...interface{}) *logaccessor.LogRecord {
	return &logaccessor.LogRecord{
		Ts:    time.Now().Format(logaccessor.TimestampLayout),
		Host:  code,
		Level: level,
		Text:  "- " + fmt.Sprintf(format, args...),
	}
}

func joinHosts(hosts []string) string {
	return strings.Join(hosts, ",")
}
