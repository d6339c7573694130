package hblog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bascanada/hblog/pkg/ty"
	"gopkg.in/yaml.v3"
)

// ErrConfigParse wraps any error encountered while decoding a config file.
var ErrConfigParse = fmt.Errorf("hblog: config parse error")

// CLIDefaults mirrors the option defaults the original tool loaded from
// $HOME/.hblogrc: one field per CLI flag. No command in cmd/ loads it, so
// a .hblogrc file does not change any flag default.
type CLIDefaults struct {
	Summary    ty.Opt[bool]   `json:"summary,omitempty"`
	Details    ty.Opt[bool]   `json:"details,omitempty"`
	Follow     ty.Opt[bool]   `json:"follow,omitempty"`
	Level      ty.Opt[string] `json:"level,omitempty"`
	Sample     ty.Opt[float64] `json:"sample,omitempty"`
	Nowrap     ty.Opt[bool]   `json:"nowrap,omitempty"`
	Verbose    ty.Opt[bool]   `json:"verbose,omitempty"`
	ReExclude  ty.Opt[string] `json:"re-exclude,omitempty"`
	Tail       ty.Opt[string] `json:"tail,omitempty"`
	TailEnd    ty.Opt[string] `json:"tail-end,omitempty"`
}

// Merge overlays or's set fields onto c, the way ty.Opt.Merge composes
// partial overrides; fields that or leaves unset keep c's values.
func (c *CLIDefaults) Merge(or *CLIDefaults) {
	c.Summary.Merge(&or.Summary)
	c.Details.Merge(&or.Details)
	c.Follow.Merge(&or.Follow)
	c.Level.Merge(&or.Level)
	c.Sample.Merge(&or.Sample)
	c.Nowrap.Merge(&or.Nowrap)
	c.Verbose.Merge(&or.Verbose)
	c.ReExclude.Merge(&or.ReExclude)
	c.Tail.Merge(&or.Tail)
	c.TailEnd.Merge(&or.TailEnd)
}

// DefaultRCPath returns $HOME/.hblogrc, the default location of the file
// LoadCLIDefaults reads.
func DefaultRCPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("hblog: could not resolve home directory: %w", err)
	}
	return filepath.Join(home, ".hblogrc"), nil
}

// LoadCLIDefaults reads a JSON .hblogrc file. A missing file is not an
// error: it just means no overrides are defined.
func LoadCLIDefaults(path string) (CLIDefaults, error) {
	var d CLIDefaults
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return d, nil
	}
	if err != nil {
		return d, fmt.Errorf("hblog: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("%w: %s: %v", ErrConfigParse, path, err)
	}
	return d, nil
}

// TierMapOverride is the YAML extension point for pkg/tier's static
// glob table: operators can add globs and equivalents without a
// recompile. The query command loads it once from --tier-map;
// TierMapWatcher can reload it on change, but no command starts one.
type TierMapOverride struct {
	Globs       map[string]string `yaml:"globs"`
	Equivalents map[string]string `yaml:"equivalents"`
}

// LoadTierMapOverride reads a YAML tier-map override file. A missing
// file yields a zero-value override (nothing added).
func LoadTierMapOverride(path string) (TierMapOverride, error) {
	var t TierMapOverride
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return t, fmt.Errorf("hblog: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("%w: %s: %v", ErrConfigParse, path, err)
	}

	// Let override globs reference $HOME or other env vars, e.g.
	// "${LOG_ROOT:-/var/log/hadoop}/*-DFS/*", the way an operator's
	// fleet layout differs between environments without forking the file.
	t.Globs = map[string]string(ty.MS(t.Globs).ResolveVariables())

	return t, nil
}
