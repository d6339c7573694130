package fanout_test

import (
	"testing"

	"github.com/bascanada/hblog/pkg/fanout"
	"github.com/bascanada/hblog/pkg/logaccessor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaryWithFp(level string, fp string, count int, text string) *logaccessor.Summary {
	s := logaccessor.NewSummary()
	s.Level[level] = count
	s.Fp[fp] = &logaccessor.FpCount{Fp: fp, Level: level, Count: count, NormText: text}
	return s
}

func TestMergeSummary_SumsAcrossHosts(t *testing.T) {
	state := fanout.NewRoundState([]string{"host1", "host2"})
	state.SummariesPerHost["host1"] = summaryWithFp("ERROR", "abcd1234", 2, "boom")
	state.SummariesPerHost["host2"] = summaryWithFp("ERROR", "abcd1234", 3, "boom")

	merged := fanout.MergeSummary(state)
	require.Contains(t, merged.Fp, "abcd1234")
	assert.Equal(t, 5, merged.Fp["abcd1234"].Count)
	assert.Equal(t, 5, merged.Level["ERROR"])
}

func TestBuildFpMatrix_KeepsPerHostBreakdown(t *testing.T) {
	state := fanout.NewRoundState([]string{"host1", "host2"})
	state.SummariesPerHost["host1"] = summaryWithFp("ERROR", "abcd1234", 2, "boom")
	state.SummariesPerHost["host2"] = summaryWithFp("ERROR", "abcd1235", 3, "boom")

	rows := fanout.BuildFpMatrix(state)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "abcd123", row.Prefix)
	assert.Equal(t, 5, row.Total)
	assert.Equal(t, 2, row.PerHost["host1"])
	assert.Equal(t, 3, row.PerHost["host2"])
}

func TestBuildFpMatrix_SeparatesDistinctPrefixes(t *testing.T) {
	state := fanout.NewRoundState([]string{"host1"})
	s := logaccessor.NewSummary()
	s.Fp["aaaaaaa1"] = &logaccessor.FpCount{Fp: "aaaaaaa1", Level: "WARN", Count: 1, NormText: "a"}
	s.Fp["bbbbbbb1"] = &logaccessor.FpCount{Fp: "bbbbbbb1", Level: "WARN", Count: 4, NormText: "b"}
	state.SummariesPerHost["host1"] = s

	rows := fanout.BuildFpMatrix(state)
	require.Len(t, rows, 2)
	assert.Equal(t, "aaaaaaa", rows[0].Prefix)
	assert.Equal(t, "bbbbbbb", rows[1].Prefix)
}

func TestBuildFpMatrix_NoSummariesYieldsNoRows(t *testing.T) {
	state := fanout.NewRoundState([]string{"host1"})
	assert.Empty(t, fanout.BuildFpMatrix(state))
}
