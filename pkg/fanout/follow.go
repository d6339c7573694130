package fanout

import (
	"context"
	"time"

	"github.com/bascanada/hblog/pkg/logaccessor"
)

// FollowSleep is the fixed delay between follow-mode rounds.
const FollowSleep = 500 * time.Millisecond

// RunFollow repeatedly runs rounds until ctx is cancelled, calling
// onDetails with each round's sorted, host-tagged records. Hosts are
// re-seeked by their own resume cursor when one was returned, and by
// time (their round's start) otherwise.
func RunFollow(ctx context.Context, c *Client, hosts []string, globFor func(string) (string, error), params RequestParams, onDetails func([]*logaccessor.LogRecord)) error {
	state := NewRoundState(hosts)
	offsets := make(map[string]logaccessor.UniversalOffset)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		roundParams := params
		roundParams.Mode = ModeFollow

		err := c.RunRound(ctx, state, globFor, offsetForFunc(offsets), roundParams)
		if err != nil {
			onDetails([]*logaccessor.LogRecord{state.BlacklistExhaustedRecord})
			return err
		}

		details := MergeDetails(state)
		if len(details) > 0 {
			onDetails(details)
		}
		if report := state.BlacklistReport(); report != nil {
			onDetails([]*logaccessor.LogRecord{report})
		}

		for host, off := range OffsetsPerHost(state) {
			offsets[host] = off
		}
		for _, host := range state.InitialHostsList {
			state.ResultsPerHost[host] = nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(FollowSleep):
		}
	}
}

func offsetForFunc(offsets map[string]logaccessor.UniversalOffset) func(string) (logaccessor.UniversalOffset, bool) {
	return func(host string) (logaccessor.UniversalOffset, bool) {
		off, ok := offsets[host]
		return off, ok
	}
}
