package filter_test

import (
	"io"
	"testing"

	"github.com/bascanada/hblog/pkg/logaccessor"
	"github.com/bascanada/hblog/pkg/logaccessor/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_EndTimeStops(t *testing.T) {
	c := &filter.Chain{EndTime: "2020-01-01 00:00:00.000000"}

	d := c.Apply(&logaccessor.LogRecord{Ts: "2020-01-01 00:00:01.000000", Level: "INFO"})
	assert.False(t, d.Keep)
	assert.True(t, d.Stop)
}

func TestApply_EndTimeIgnoredForUnrecognized(t *testing.T) {
	c := &filter.Chain{EndTime: "2020-01-01 00:00:00.000000"}

	d := c.Apply(&logaccessor.LogRecord{
		Ts: "2020-01-01 00:00:01.000000", Level: "INFO", UnrecognizedLine: true,
	})
	assert.False(t, d.Stop)
	assert.True(t, d.Keep)
}

func TestApply_EndTimeIgnoredInFollowMode(t *testing.T) {
	c := &filter.Chain{EndTime: "2020-01-01 00:00:00.000000", Follow: true}

	d := c.Apply(&logaccessor.LogRecord{Ts: "2020-01-01 00:00:01.000000", Level: "INFO"})
	assert.False(t, d.Stop)
	assert.True(t, d.Keep)
}

func TestApply_LevelFilter(t *testing.T) {
	c := &filter.Chain{Levels: []string{"ERROR", "FATAL"}}

	assert.False(t, c.Apply(&logaccessor.LogRecord{Level: "INFO"}).Keep)
	assert.True(t, c.Apply(&logaccessor.LogRecord{Level: "ERROR"}).Keep)
}

func TestApply_FpIncludeShortCircuitsRegex(t *testing.T) {
	reExclude, err := filter.CompileRegexes([]string{".*"})
	require.NoError(t, err)

	c := &filter.Chain{FpInclude: []string{"abc"}, ReExclude: reExclude}

	assert.True(t, c.Apply(&logaccessor.LogRecord{Level: "INFO", Fp: "abcdef00"}).Keep)
	assert.False(t, c.Apply(&logaccessor.LogRecord{Level: "INFO", Fp: "zzzzzzzz"}).Keep)
}

func TestApply_FpExcludeThenRegex(t *testing.T) {
	reInclude, err := filter.CompileRegexes([]string{"timeout"})
	require.NoError(t, err)
	reExclude, err := filter.CompileRegexes([]string{"ignoreme"})
	require.NoError(t, err)

	c := &filter.Chain{FpExclude: []string{"bad"}, ReInclude: reInclude, ReExclude: reExclude}

	assert.False(t, c.Apply(&logaccessor.LogRecord{Level: "INFO", Fp: "badbeef1", Text: "a timeout occurred"}).Keep,
		"fp-exclude wins even if text matches re-include")

	assert.True(t, c.Apply(&logaccessor.LogRecord{Level: "INFO", Fp: "goodfp01", Text: "a TIMEOUT occurred"}).Keep,
		"re-include matches case-insensitively")

	assert.False(t, c.Apply(&logaccessor.LogRecord{Level: "INFO", Fp: "goodfp01", Text: "a timeout, ignoreme please"}).Keep,
		"re-exclude overrides a re-include match")

	assert.False(t, c.Apply(&logaccessor.LogRecord{Level: "INFO", Fp: "goodfp01", Text: "nothing interesting"}).Keep,
		"with a non-empty re-include list, text matching nothing is dropped")
}

func TestApply_NoReIncludeKeepsEverythingNotExcluded(t *testing.T) {
	c := &filter.Chain{}
	assert.True(t, c.Apply(&logaccessor.LogRecord{Level: "INFO", Fp: "abc", Text: "anything"}).Keep)
}

type sliceSource struct {
	recs []*logaccessor.LogRecord
	i    int
}

func (s *sliceSource) Next() (*logaccessor.LogRecord, error) {
	if s.i >= len(s.recs) {
		return nil, io.EOF
	}
	r := s.recs[s.i]
	s.i++
	return r, nil
}

func TestRun_EmitsSurvivorsAndStopsOnEndTime(t *testing.T) {
	src := &sliceSource{recs: []*logaccessor.LogRecord{
		{Ts: "2020-01-01 00:00:00.000000", Level: "INFO", Fp: "a", Text: "one"},
		{Ts: "2020-01-01 00:00:01.000000", Level: "DEBUG", Fp: "b", Text: "two"},
		{Ts: "2020-01-01 00:00:02.000000", Level: "INFO", Fp: "c", Text: "three"},
	}}

	c := &filter.Chain{EndTime: "2020-01-01 00:00:01.500000", Levels: []string{"INFO"}}

	var got []string
	err := filter.Run(src, c, func(r *logaccessor.LogRecord) { got = append(got, r.Text) })
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, got)
}
