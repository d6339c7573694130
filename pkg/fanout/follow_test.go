package fanout_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/bascanada/hblog/pkg/fanout"
	"github.com/bascanada/hblog/pkg/logaccessor"
	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunFollow_StopsOnContextCancel(t *testing.T) {
	defer gock.Off()
	c := newTestClient()

	gock.New("http://host1:6957").
		Get("/log/stream").
		Persist().
		Reply(200).
		BodyString(ndjson(
			`{"pkg-cls":"log-accessor-line","pkg-obj":{"ts":"2020-01-01 00:00:01.000000","level":"INFO","text":"hi","norm_text":"hi","fp":"abc12345"}}`,
			`{"pkg-cls":"exit-status","pkg-obj":{"status":"success","universal-offset":{"filename":"/var/log/a.log","byte_offset":10}}}`,
		))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var rounds int
	err := fanout.RunFollow(ctx, c, []string{"host1"}, func(host string) (string, error) {
		return "/var/log/*.log", nil
	}, fanout.RequestParams{}, func(records []*logaccessor.LogRecord) {
		rounds++
	})

	require.Error(t, err)
	assert.GreaterOrEqual(t, rounds, 1)
}

func TestOffsetsPerHost_SkipsMissingCursor(t *testing.T) {
	state := fanout.NewRoundState([]string{"a", "b"})
	state.ExitStatePerHost["a"] = &logaccessor.ExitStatus{
		Status:          "success",
		UniversalOffset: &logaccessor.UniversalOffset{Filename: "/x.log", ByteOffset: 5},
	}
	state.ExitStatePerHost["b"] = &logaccessor.ExitStatus{Status: "success"}

	offsets := fanout.OffsetsPerHost(state)
	assert.Len(t, offsets, 1)
	assert.Equal(t, int64(5), offsets["a"].ByteOffset)
}
