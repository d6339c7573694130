package tier_test

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

func TestGlobForTier_SuffixMatch(t *testing.T) {
	tb := tier.DefaultTable()

	glob, err := tb.GlobForTier("cluster1-hbase-regionservers")
	require.NoError(t, err)
	assert.Equal(t, "/var/log/hadoop/*-HBASE/hbase-hadoop-regionserver*", glob)
}

func TestGlobForTier_LongestSuffixWins(t *testing.T) {
	tb := tier.DefaultTable()

	// "-hbase-zookeepers" and the shorter "-zookeepers" both match; the
	// longer, more specific hbase rule must not be shadowed by the
	// shorter match.
	glob, err := tb.GlobForTier("clusterA-hbase-zookeepers")
	require.NoError(t, err)
	assert.Equal(t, "/var/log/hadoop/*-HBASE/hbase-hadoop-zookeeper*", glob)
}

func TestGlobForTier_Equivalent(t *testing.T) {
	tb := tier.DefaultTable()
	tb.AddEquivalent("legacy-zk", "clusterA-zookeepers")

	glob, err := tb.GlobForTier("legacy-zk")
	require.NoError(t, err)
	assert.Equal(t, "/var/log/hadoop/*-ZK/hbase-hadoop-zookeeper*", glob)
}

func TestGlobForTier_Unknown(t *testing.T) {
	tb := tier.DefaultTable()
	_, err := tb.GlobForTier("totally-unrecognized")
	assert.ErrorIs(t, err, tier.ErrNoGlobForTier)
}

func TestAddRule_OverridesTakePriority(t *testing.T) {
	tb := tier.DefaultTable()
	tb.AddRule("-mr-jt", nil, "/custom/path/*")

	glob, err := tb.GlobForTier("cluster1-mr-jt")
	require.NoError(t, err)
	assert.Equal(t, "/custom/path/*", glob)
}

func TestListHostsOfTier(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a unix shell script")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "list_hosts_of_tier.sh")
	body := "#!/bin/sh\nif [ \"$1\" = \"unknown-tier\" ]; then exit 2; fi\necho host1\necho host2\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	tb := tier.DefaultTable()
	tb.ListHostsScript = script

	hosts, err := tb.ListHostsOfTier(context.Background(), "cluster1-mr-jt")
	require.NoError(t, err)
	assert.Equal(t, []string{"host1", "host2"}, hosts)

	_, err = tb.ListHostsOfTier(context.Background(), "unknown-tier")
	assert.ErrorIs(t, err, tier.ErrUnknownTier)

	tb.ListHostsScript = filepath.Join(dir, "does-not-exist.sh")
	_, err = tb.ListHostsOfTier(context.Background(), "cluster1-mr-jt")
	assert.Error(t, err)
}
