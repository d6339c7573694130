package cmd

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/bascanada/hblog/pkg/tier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableWithScript(t *testing.T, script string) *tier.Table {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture requires a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "list_hosts_of_tier.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	tb := tier.DefaultTable()
	tb.ListHostsScript = path
	return tb
}

func TestResolveHosts_SingleTier(t *testing.T) {
	tb := tableWithScript(t, "#!/bin/sh\necho host1\necho host2\n")

	hosts, hostTier, err := resolveHosts(context.Background(), tb, "my-tier")
	require.NoError(t, err)
	assert.Equal(t, []string{"host1", "host2"}, hosts)
	assert.Equal(t, "my-tier", hostTier["host1"])
	assert.Equal(t, "my-tier", hostTier["host2"])
}

func TestResolveHosts_MultipleTiersDedupHosts(t *testing.T) {
	tb := tableWithScript(t, "#!/bin/sh\necho shared\nif [ \"$1\" = tier-a ]; then echo host1; else echo host2; fi\n")

	hosts, hostTier, err := resolveHosts(context.Background(), tb, "tier-a,tier-b")
	require.NoError(t, err)
	assert.Equal(t, []string{"shared", "host1", "host2"}, hosts)
	assert.Equal(t, "tier-b", hostTier["shared"])
}

func TestResolveHosts_UnknownTierErrors(t *testing.T) {
	tb := tableWithScript(t, "#!/bin/sh\nexit 2\n")

	_, _, err := resolveHosts(context.Background(), tb, "some-unlisted-tier")
	assert.Error(t, err)
}

func TestParseFlagTime_TimeOnlyDefaultsToToday(t *testing.T) {
	got, err := parseFlagTime("10:00:00")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Hour())
}

func TestParseFlagTime_FullDatetime(t *testing.T) {
	got, err := parseFlagTime("2026-01-02 03:04:05")
	require.NoError(t, err)
	assert.Equal(t, 2026, got.Year())
	assert.Equal(t, 3, got.Hour())
}

func TestResolveWindow_FollowDefaultsToNow(t *testing.T) {
	modeFollow = true
	flagTail, flagTailEnd, flagStart, flagEnd = "", "", "", ""
	defer func() { modeFollow = false }()

	start, end, err := resolveWindow()
	require.NoError(t, err)
	assert.True(t, start.Before(end) || start.Equal(end))
}
