package fanout_test

import (
	"bytes"
	"testing"

	"github.com/bascanada/hblog/pkg/fanout"
	"github.com/bascanada/hblog/pkg/logaccessor"
	"github.com/stretchr/testify/assert"
)

func TestPrintRecord_WithColorKeepsHostAndText(t *testing.T) {
	enabled := true
	fanout.InitColorState(&enabled, nil)
	defer fanout.InitColorState(boolPtr(false), nil)

	var buf bytes.Buffer
	fanout.PrintRecord(&buf, &logaccessor.LogRecord{
		Ts: "2020-01-01 00:00:00.000000", Host: "host1", Level: "ERROR", Text: "boom",
	})

	assert.Contains(t, buf.String(), "host1")
	assert.Contains(t, buf.String(), "boom")
}

func TestPrintRecord_DefaultsHostDash(t *testing.T) {
	fanout.InitColorState(boolPtr(false), nil)

	var buf bytes.Buffer
	fanout.PrintRecord(&buf, &logaccessor.LogRecord{Ts: "t", Level: "INFO", Text: "hi"})
	assert.Contains(t, buf.String(), " - ")
}

func boolPtr(b bool) *bool { return &b }
