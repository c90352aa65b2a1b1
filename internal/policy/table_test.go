package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultRules() []DirectoryRule {
	return []DirectoryRule{
		{Mask: "/site/iso/*", MinSpeed: 75, MinDuration: 15, MaxKicks: 3},
		{Mask: "/site/mp3/*", MinSpeed: 75, MinDuration: 15, MaxKicks: 3},
		{Mask: "/site/0day/*", MinSpeed: 75, MinDuration: 15, MaxKicks: 3},
	}
}

func TestTableMatch(t *testing.T) {
	table, err := NewTable(defaultRules())
	require.NoError(t, err)

	tests := []struct {
		name     string
		path     string
		wantMask string
		wantOK   bool
	}{
		{
			name:     "file in release dir",
			path:     "/site/iso/rel/file.rar",
			wantMask: "/site/iso/*",
			wantOK:   true,
		},
		{
			name:     "nested deeper",
			path:     "/site/mp3/Artist-Album-2014/CD1/01.mp3",
			wantMask: "/site/mp3/*",
			wantOK:   true,
		},
		{
			name:   "unconfigured section",
			path:   "/site/tv/show/ep.mkv",
			wantOK: false,
		},
		{
			name:   "section root itself",
			path:   "/site/iso",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := table.Match(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantMask, rule.Mask)
			}
		})
	}
}

func TestTableFirstMatchWins(t *testing.T) {
	table, err := NewTable([]DirectoryRule{
		{Mask: "/site/iso/special/*", MinSpeed: 200, MinDuration: 5, MaxKicks: 1},
		{Mask: "/site/iso/*", MinSpeed: 75, MinDuration: 15, MaxKicks: 3},
		{Mask: "/site/*", MinSpeed: 10, MinDuration: 60, MaxKicks: 10},
	})
	require.NoError(t, err)

	rule, ok := table.Match("/site/iso/special/rel/a.rar")
	require.True(t, ok)
	assert.Equal(t, 200.0, rule.MinSpeed)

	rule, ok = table.Match("/site/iso/other/a.rar")
	require.True(t, ok)
	assert.Equal(t, 75.0, rule.MinSpeed)

	rule, ok = table.Match("/site/misc/a.rar")
	require.True(t, ok)
	assert.Equal(t, 10.0, rule.MinSpeed)
}

func TestTableWildcards(t *testing.T) {
	table, err := NewTable([]DirectoryRule{
		{Mask: "/site/[0-9]day/*", MinSpeed: 1},
		{Mask: "/site/x?x/*", MinSpeed: 2},
		{Mask: "/site/[!a]*/*.nfo", MinSpeed: 3},
	})
	require.NoError(t, err)

	rule, ok := table.Match("/site/0day/rel/f.zip")
	require.True(t, ok)
	assert.Equal(t, 1.0, rule.MinSpeed)

	rule, ok = table.Match("/site/xbx/rel/f.zip")
	require.True(t, ok)
	assert.Equal(t, 2.0, rule.MinSpeed)

	rule, ok = table.Match("/site/mv/rel/f.nfo")
	require.True(t, ok)
	assert.Equal(t, 3.0, rule.MinSpeed)

	_, ok = table.Match("/site/apps/rel/f.nfo")
	assert.False(t, ok)
}

func TestNewTableRejectsEmptyMask(t *testing.T) {
	_, err := NewTable([]DirectoryRule{{Mask: ""}})
	assert.Error(t, err)
}

func TestRulesReturnsCopy(t *testing.T) {
	table, err := NewTable(defaultRules())
	require.NoError(t, err)

	rules := table.Rules()
	require.Len(t, rules, 3)
	rules[0].MinSpeed = 1

	rule, ok := table.Match("/site/iso/a/b")
	require.True(t, ok)
	assert.Equal(t, 75.0, rule.MinSpeed)
	assert.Equal(t, 3, table.Len())
}

func TestTableFnmatchSyntax(t *testing.T) {
	tests := []struct {
		name string
		mask string
		path string
		want bool
	}{
		{name: "braces are literal", mask: "/site/{iso}/*", path: "/site/{iso}/rel/a.rar", want: true},
		{name: "braces do not alternate", mask: "/site/{iso,mp3}/*", path: "/site/iso/rel/a.rar", want: false},
		{name: "comma is literal", mask: "/site/a,b/*", path: "/site/a,b/rel/a.rar", want: true},
		{name: "caret negates", mask: "/site/[^x]so/*", path: "/site/iso/rel/a.rar", want: true},
		{name: "caret negation excludes", mask: "/site/[^i]so/*", path: "/site/iso/rel/a.rar", want: false},
		{name: "posix class", mask: "/site/[[:alpha:]]so/*", path: "/site/iso/rel/a.rar", want: true},
		{name: "posix class excludes", mask: "/site/[[:digit:]]so/*", path: "/site/iso/rel/a.rar", want: false},
		{name: "range mixed with list", mask: "/site/[a-c0-9_]day/*", path: "/site/0day/rel/f.zip", want: true},
		{name: "bracket first is literal", mask: "/site/[]x]/*", path: "/site/]/rel/f.zip", want: true},
		{name: "dash at end is literal", mask: "/site/[a-]/*", path: "/site/-/rel/f.zip", want: true},
		{name: "lone dash", mask: "/site/[-]/*", path: "/site/-/rel/f.zip", want: true},
		{name: "unterminated bracket", mask: "/site/[iso/*", path: "/site/[iso/rel/f.zip", want: true},
		{name: "escaped star", mask: `/site/\*/*`, path: "/site/*/rel/f.zip", want: true},
		{name: "escaped star is not a wildcard", mask: `/site/\*/*`, path: "/site/iso/rel/f.zip", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewTable([]DirectoryRule{{Mask: tt.mask, MinSpeed: 1}})
			require.NoError(t, err)

			_, ok := table.Match(tt.path)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestNewTableRejectsInvalidBrackets(t *testing.T) {
	for _, mask := range []string{
		"/site/[[:foo:]]/*",
		"/site/[[.a.]]/*",
		"/site/[[=a=]]/*",
		"/site/[z-a]/*",
	} {
		t.Run(mask, func(t *testing.T) {
			_, err := NewTable([]DirectoryRule{{Mask: mask}})
			assert.Error(t, err)
		})
	}
}
