// Package fanout is the client side of the tool: it issues concurrent
// requests to every agent in a round, blacklists hosts that fail, and
// folds the results into a merged detail stream or a merged summary.
package fanout

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/bascanada/hblog/pkg/logaccessor"
)

// ConnectTimeout and RequestTimeout match the fixed bounds the original
// tool used for every per-host request.
const (
	ConnectTimeout = 2 * time.Second
	RequestTimeout = 20 * time.Second
	agentPort      = "6957"
)

// ErrAllHostsBlacklisted is returned when every host in a round's
// starting set failed, leaving nothing left to query.
var ErrAllHostsBlacklisted = errors.New("fanout: all hosts got blacklisted")

// Mode selects the request shape and the merge strategy.
type Mode string

const (
	ModeSummary Mode = "summary"
	ModeDetails Mode = "details"
	ModeFollow  Mode = "follow"
)

// RequestParams is one round's filter/time parameters, shared by every
// host in the round (only the glob and universal-offset vary per host).
type RequestParams struct {
	SamplingRate *float64
	Levels       []string
	FpInclude    []string
	FpExclude    []string
	ReInclude    []string
	ReExclude    []string
	Start        time.Time
	End          time.Time
	Mode         Mode
}

// Client issues agent requests over a connection-pooled http.Client whose
// transport enforces the original's fixed connect timeout, with an
// overall per-request timeout layered on top.
type Client struct {
	HTTP   *http.Client
	Logger *slog.Logger
}

// NewClient builds a fan-out client with the standard timeouts.
func NewClient(logger *slog.Logger) *Client {
	return &Client{
		HTTP: &http.Client{
			Timeout: RequestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: ConnectTimeout}).DialContext,
			},
		},
		Logger: logger,
	}
}

// hostResult is what one host's goroutine reports back to the reducer.
type hostResult struct {
	host     string
	err      error
	records  []*logaccessor.LogRecord
	summary  *logaccessor.Summary
	exit     *logaccessor.ExitStatus
}

// RunRound issues one request per host concurrently and folds the
// responses into state, following the original's fixed completion rule:
// a host that errors is blacklisted and does not block round completion,
// a host that succeeds contributes its records/summary/cursor.
func (c *Client) RunRound(ctx context.Context, state *RoundState, globFor func(host string) (string, error), offsetFor func(host string) (logaccessor.UniversalOffset, bool), params RequestParams) error {
	hosts := append([]string(nil), state.HostsList...)
	results := make(chan hostResult, len(hosts))

	for _, host := range hosts {
		host := host
		go func() {
			glob, err := globFor(host)
			if err != nil {
				results <- hostResult{host: host, err: err}
				return
			}
			var offset *logaccessor.UniversalOffset
			if o, ok := offsetFor(host); ok {
				offset = &o
			}
			rec, summary, exit, err := c.fetch(ctx, host, glob, offset, params)
			results <- hostResult{host: host, err: err, records: rec, summary: summary, exit: exit}
		}()
	}

	for i := 0; i < len(hosts); i++ {
		r := <-results
		if r.err != nil {
			c.Logger.Warn("blacklisting host", "host", r.host, "err", r.err)
			state.Blacklist(r.host)
			continue
		}

		state.Finished++
		for _, rec := range r.records {
			rec.Host = r.host
			state.ResultsPerHost[r.host] = append(state.ResultsPerHost[r.host], rec)
		}
		if r.summary != nil {
			state.SummariesPerHost[r.host] = r.summary
		}
		if r.exit != nil {
			state.ExitStatePerHost[r.host] = r.exit
		}
	}

	if len(state.HostsList) == 0 {
		state.EmitBlacklistExhausted(len(hosts))
		return ErrAllHostsBlacklisted
	}

	return nil
}

func (c *Client) fetch(ctx context.Context, host, glob string, offset *logaccessor.UniversalOffset, params RequestParams) ([]*logaccessor.LogRecord, *logaccessor.Summary, *logaccessor.ExitStatus, error) {
	path := "stream"
	if params.Mode == ModeSummary {
		path = "summary"
	}

	url := fmt.Sprintf("http://%s:%s/log/%s?%s", host, agentPort, path, buildQuery(glob, offset, params))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, nil, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, nil, nil, fmt.Errorf("agent %s returned status %d", host, resp.StatusCode)
	}

	var records []*logaccessor.LogRecord
	var summary *logaccessor.Summary
	var exit *logaccessor.ExitStatus

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var env struct {
			PkgCls string          `json:"pkg-cls"`
			PkgObj json.RawMessage `json:"pkg-obj"`
		}
		if err := json.Unmarshal(line, &env); err != nil {
			return nil, nil, nil, fmt.Errorf("agent %s sent malformed envelope: %w", host, err)
		}

		switch env.PkgCls {
		case logaccessor.PkgClsLine:
			if params.Mode == ModeSummary {
				var s logaccessor.Summary
				if err := json.Unmarshal(env.PkgObj, &s); err != nil {
					return nil, nil, nil, err
				}
				summary = &s
			} else {
				var rec logaccessor.LogRecord
				if err := json.Unmarshal(env.PkgObj, &rec); err != nil {
					return nil, nil, nil, err
				}
				records = append(records, &rec)
			}
		case logaccessor.PkgClsExitStatus:
			var e logaccessor.ExitStatus
			if err := json.Unmarshal(env.PkgObj, &e); err != nil {
				return nil, nil, nil, err
			}
			exit = &e
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("agent %s: %w", host, err)
	}
	if exit == nil {
		return nil, nil, nil, fmt.Errorf("agent %s closed its response with no exit-status", host)
	}

	return records, summary, exit, nil
}

func buildQuery(glob string, offset *logaccessor.UniversalOffset, params RequestParams) string {
	q := make([]string, 0, 10)
	add := func(key, val string) {
		if val != "" {
			q = append(q, key+"="+strings.ReplaceAll(val, " ", "+"))
		}
	}

	add("glob", glob)
	if params.SamplingRate != nil {
		add("sampling-rate", fmt.Sprintf("%v", *params.SamplingRate))
	}
	add("levels-list", strings.Join(params.Levels, ","))
	add("fp", strings.Join(params.FpInclude, ","))
	add("fp-exclude", strings.Join(params.FpExclude, ","))
	add("re", strings.Join(params.ReInclude, ","))
	add("re-exclude", strings.Join(params.ReExclude, ","))

	if offset != nil {
		add("universal-offset", offset.String())
	} else {
		add("start", params.Start.Format(logaccessor.TimestampLayout))
		add("end", params.End.Format(logaccessor.TimestampLayout))
	}

	return strings.Join(q, "&")
}

// SortDetailsByTime stable-sorts every host's merged records by
// timestamp ascending, the client's final re-ordering step before
// printing details/follow output.
func SortDetailsByTime(records []*logaccessor.LogRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Ts < records[j].Ts
	})
}
