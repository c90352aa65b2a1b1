// Package policy holds the per-directory upload speed rules.
package policy

import (
	"fmt"

	"github.com/gobwas/glob"
)

// DirectoryRule bundles the thresholds applied to uploads whose path matches Mask.
type DirectoryRule struct {
	Mask        string  `toml:"mask" json:"mask"`
	MinSpeed    float64 `toml:"min_speed" json:"min_speed"`       // kB/s
	MinDuration int     `toml:"min_duration" json:"min_duration"` // seconds
	MaxKicks    int     `toml:"max_kicks" json:"max_kicks"`
}

type compiledRule struct {
	rule    DirectoryRule
	matcher glob.Glob
}

// Table is an immutable, ordered list of directory rules.
type Table struct {
	rules []compiledRule
}

// NewTable compiles the masks of rules in declaration order.
//
// Masks are compiled without path separators, so '*' and '?' also match '/'
// the way fnmatch(3) does without FNM_PATHNAME: "/site/iso/*" matches
// "/site/iso/rel/file.rar". The rest of the fnmatch syntax is translated
// first: braces are literal, "[^...]" negates and POSIX classes work.
func NewTable(rules []DirectoryRule) (*Table, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		if r.Mask == "" {
			return nil, fmt.Errorf("rule %d: empty mask", i)
		}
		pattern, err := translateMask(r.Mask)
		if err != nil {
			return nil, fmt.Errorf("rule %d: invalid mask %q: %w", i, r.Mask, err)
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d: invalid mask %q: %w", i, r.Mask, err)
		}
		compiled = append(compiled, compiledRule{rule: r, matcher: g})
	}
	return &Table{rules: compiled}, nil
}

// Match returns the first rule whose mask matches path.
func (t *Table) Match(path string) (DirectoryRule, bool) {
	for _, cr := range t.rules {
		if cr.matcher.Match(path) {
			return cr.rule, true
		}
	}
	return DirectoryRule{}, false
}

// Rules returns a copy of the configured rules in table order.
func (t *Table) Rules() []DirectoryRule {
	out := make([]DirectoryRule, len(t.rules))
	for i, cr := range t.rules {
		out[i] = cr.rule
	}
	return out
}

// Len returns the number of rules.
func (t *Table) Len() int {
	return len(t.rules)
}
