// Package fingerprint collapses log message text that differs only in
// variable arguments (numbers, hosts, IPs, paths, braces) down to a stable
// 8-character hash, so that repeated occurrences of "the same" log
// statement can be grouped across hosts and over time.
package fingerprint

import (
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"regexp"
)

// rule is applied as a global substitution over the working text. Rules run
// in order and each sees the previous rules' output.
type rule struct {
	re   *regexp.Regexp
	repl string
}

// rules mirrors, in order, the substitution table of the original log
// fingerprinter. The brace rule is listed twice, as in that table: the
// greedy match already spans from the first `{` to the last `}`, so the
// first pass folds nested braces into one token and the second pass finds
// nothing left to change.
var rules = []rule{
	{regexp.MustCompile(`\{.+\}`), "{ ... }"},
	{regexp.MustCompile(`\{.+\}`), "{ ... }"},
	{regexp.MustCompile(`\(.+\)`), "( ... )"},

	// Hostnames like "foo.bar.com"
	{regexp.MustCompile(`[.a-z0-9]{3,}\.com`), "<<HOST>>"},

	// IPv4 addresses
	{regexp.MustCompile(`(?:[0-9]{1,3}\.){3}[0-9]{1,3}`), "<<IP>>"},

	// Short hex numbers, only when preceded by an @ or x/X marker
	// (pointer addresses, "x7f" style markers).
	{regexp.MustCompile(`([@xX])[0-9a-fA-F]+`), "${1}#"},

	// Longer hex runs are unambiguous enough to squeeze on their own.
	{regexp.MustCompile(`[0-9a-fA-F]{6,}`), "#"},

	// Any remaining run of digits (optionally mixed with already-squeezed
	// '#' markers from the rules above, and an optional leading '-').
	{regexp.MustCompile(`-?[\d#]+`), "#"},

	// HDFS paths and generic absolute paths.
	{regexp.MustCompile(`hdfs://[A-Za-z\d#\-:/]*`), "hdfs://##"},
	{regexp.MustCompile(`/[A-Za-z\d#\-:/]*`), "/##"},
}

// Squeeze normalizes text by applying the rule table in order, then hashes
// the result with MD5, truncated to the first 8 hex characters. Squeeze is
// a pure function: the same text always yields the same (normText, fp), and
// applying Squeeze to a previously-squeezed normText returns it unchanged
// (idempotence).
func Squeeze(text string) (normText string, fp string) {
	s := text
	for _, r := range rules {
		s = r.re.ReplaceAllString(s, r.repl)
	}

	sum := md5.Sum([]byte(s)) //nolint:gosec
	return s, hex.EncodeToString(sum[:])[:8]
}
