// Package tier resolves a tier name to a log-file glob and to a host
// list. The glob table is static (with a YAML override file for
// operators who don't want to recompile), the host list comes from an
// external script the way the original CLI always shelled out for it.
package tier

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// ErrUnknownTier is returned when list_hosts_of_tier.sh exits 2.
var ErrUnknownTier = errors.New("tier: unknown tier")

// ErrNoGlobForTier is returned when no suffix/regex rule matches a tier
// name and no equivalents entry redirects it either.
var ErrNoGlobForTier = errors.New("tier: no glob known for tier")

// rule matches a tier name by exact suffix, or by regex when Re is set.
// Whichever rule has the longest Suffix wins when more than one matches,
// mirroring the original's ordered if/elif chain (among the built-ins,
// "-hbase-zookeepers" is the more specific case of "-zookeepers"); among
// equally long matches the earliest rule wins.
type rule struct {
	Suffix string
	Re     *regexp.Regexp
	Glob   string
}

// Table holds the tier resolution rules: a glob table plus an aliasing
// equivalents map consulted first.
type Table struct {
	equivalents map[string]string
	rules       []rule
	// ListHostsScript is the external command invoked by ListHostsOfTier.
	// Defaults to "list_hosts_of_tier.sh", resolved via PATH.
	ListHostsScript string
}

// DefaultTable returns the built-in Hadoop-fleet naming rules, ported
// from the CLI's suffix chain.
func DefaultTable() *Table {
	return &Table{
		equivalents:     map[string]string{},
		ListHostsScript: "list_hosts_of_tier.sh",
		rules: []rule{
			{Suffix: "-dfs-nn", Glob: "/var/log/hadoop/*-DFS/hadoop-hadoop-avatarnode*"},
			{Suffix: "-dfs-sn", Glob: "/var/log/hadoop/*-DFS/hadoop-hadoop-avatarnode*"},
			{Suffix: "-dfs-slaves", Glob: "/var/log/hadoop/*-DFS/hadoop-hadoop-avatardatanode*"},
			{Suffix: "-hbase-master", Glob: "/var/log/hadoop/*-HBASE/hbase-hadoop-master*"},
			{Suffix: "-hbase-secondary", Glob: "/var/log/hadoop/*-HBASE/hbase-hadoop-master*"},
			{Suffix: "-hbase-regionservers", Glob: "/var/log/hadoop/*-HBASE/hbase-hadoop-regionserver*"},
			{Suffix: "-hbase-thrift", Glob: "/var/log/hadoop/*-HBASE/hbase-hadoop-thrift*"},
			{Suffix: "-hbase-zookeepers", Glob: "/var/log/hadoop/*-HBASE/hbase-hadoop-zookeeper*"},
			{Suffix: "-zookeepers", Glob: "/var/log/hadoop/*-ZK/hbase-hadoop-zookeeper*"},
			{Suffix: "-mr-jt", Glob: "/var/log/hadoop/*-MR/hadoop-hadoop-jobtracker*"},
			{Suffix: "-mr-slaves", Glob: "/var/log/hadoop/*-MR/hadoop-hadoop-tasktracker*"},
		},
	}
}

// AddEquivalent redirects fromTier to toTier before the glob table is
// consulted, letting an override file alias e.g. a legacy tier name to
// a canonical one.
func (t *Table) AddEquivalent(fromTier, toTier string) {
	t.equivalents[fromTier] = toTier
}

// ApplyOverride adds every glob entry as a suffix rule (prepended by
// AddRule, so it wins over a built-in suffix of the same length) and
// every equivalents entry as an alias, letting an operator-supplied YAML file extend the built-in
// table without a recompile.
func (t *Table) ApplyOverride(globs, equivalents map[string]string) {
	for suffix, glob := range globs {
		t.AddRule(suffix, nil, glob)
	}
	for from, to := range equivalents {
		t.AddEquivalent(from, to)
	}
}

// AddRule prepends a glob rule. GlobForTier picks the longest matching
// rule and keeps the earliest one among equally long matches, so a
// prepended rule takes priority over built-ins only on such ties.
func (t *Table) AddRule(suffix string, re *regexp.Regexp, glob string) {
	t.rules = append([]rule{{Suffix: suffix, Re: re, Glob: glob}}, t.rules...)
}

// GlobForTier resolves tier to a glob pattern, following the equivalents
// table first, then matching the longest suffix (or regex) rule.
func (t *Table) GlobForTier(tierName string) (string, error) {
	name := tierName
	if canon, ok := t.equivalents[name]; ok {
		name = canon
	}

	best := -1
	bestGlob := ""
	for _, r := range t.rules {
		if r.Re != nil {
			if r.Re.MatchString(name) && len(r.Re.String()) > best {
				best = len(r.Re.String())
				bestGlob = r.Glob
			}
			continue
		}
		if strings.HasSuffix(name, r.Suffix) && len(r.Suffix) > best {
			best = len(r.Suffix)
			bestGlob = r.Glob
		}
	}
	if best < 0 {
		return "", fmt.Errorf("%w: %s", ErrNoGlobForTier, tierName)
	}
	return bestGlob, nil
}

// ListHostsOfTier shells out to ListHostsScript, returning the
// newline-separated hostnames it prints on stdout. Exit code 2 means the
// tier is unknown; any other non-zero exit is a fatal external error.
func (t *Table) ListHostsOfTier(ctx context.Context, tierName string) ([]string, error) {
	cmd := exec.CommandContext(ctx, t.ListHostsScript, tierName)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 2 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTier, tierName)
		}
		return nil, fmt.Errorf("tier: list_hosts_of_tier failed for %s: %w", tierName, err)
	}

	var hosts []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			hosts = append(hosts, line)
		}
	}
	return hosts, nil
}
