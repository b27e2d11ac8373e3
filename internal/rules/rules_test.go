package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeRulesFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

// S2: last matching rule wins within an applicable set.
func TestShouldProcess_LastDecisionWins(t *testing.T) {
	dir := t.TempDir()
	writeRulesFile(t, dir, "2DA.json", `{"rules":[
		{"type":"2DA"},
		{"resourceType":"2DA","operations":["upscale"],"include":["START"],"exclude":[]},
		{"resourceType":"2DA","operations":["upscale"],"include":[],"exclude":["START"]}
	]}`)
	rulesDir := dir
	e := Load("", rulesDir, nil)

	require.False(t, e.ShouldProcess("upscale", "2DA", "START"))
	require.True(t, e.ShouldProcess("extract", "2DA", "START"))
}

// B1: a type-level file (2DA.json) loads before a resource-level file
// (START.2DA.json) because of lexicographic sort.
func TestLoad_TypeFileBeforeResourceFile(t *testing.T) {
	dir := t.TempDir()
	writeRulesFile(t, dir, "2DA.json", `{"rules":[{"operations":["*"],"exclude":["*"]}]}`)
	writeRulesFile(t, dir, "START.2DA.json", `{"rules":[{"operations":["*"],"include":["*"]}]}`)

	e := Load("", dir, nil)
	// The resource-level file's allow-all rule is evaluated after the
	// type-level deny-all rule, so its decision wins.
	require.True(t, e.ShouldProcess("extract", "2DA", "START"))
}

// P3: an exclude match always wins over an include match within the same
// rule, regardless of include globs.
func TestShouldProcess_ExcludeBeatsIncludeInSameRule(t *testing.T) {
	e := &Engine{rules: []Rule{
		{ResourceType: "BAM", Include: []string{"*"}, Exclude: []string{"FOO*"}},
	}}
	require.False(t, e.ShouldProcess("extract", "BAM", "FOOBAR"))
	require.True(t, e.ShouldProcess("extract", "BAM", "BAZ"))
}

func TestShouldProcess_NoApplicableRuleAllows(t *testing.T) {
	e := &Engine{rules: []Rule{
		{ResourceType: "BAM", Operations: []string{"upscale"}, Exclude: []string{"*"}},
	}}
	require.True(t, e.ShouldProcess("extract", "2DA", "ANYTHING"))
}

func TestShouldProcess_ApplicableRuleNoDecisionDenies(t *testing.T) {
	e := &Engine{rules: []Rule{
		{ResourceType: "2DA", Include: []string{"ONLYME"}},
	}}
	require.False(t, e.ShouldProcess("extract", "2DA", "OTHER"))
	require.True(t, e.ShouldProcess("extract", "2DA", "ONLYME"))
}

func TestMatchGlob_QuestionMarkAndCaseInsensitive(t *testing.T) {
	require.True(t, matchGlob("FO?", "foo"))
	require.True(t, matchGlob("*", ""))
	require.False(t, matchGlob("", ""))
}

func TestLoad_ResourceFileDefaultsIncludeToFilenameStem(t *testing.T) {
	dir := t.TempDir()
	writeRulesFile(t, dir, "START.2DA.json", `{"rules":[{"operations":["upscale"]}]}`)
	e := Load("", dir, nil)
	require.True(t, e.ShouldProcess("upscale", "2DA", "START"))
	require.False(t, e.ShouldProcess("upscale", "2DA", "OTHER"))
}

func TestLoad_MalformedFileReportsAndSkips(t *testing.T) {
	dir := t.TempDir()
	writeRulesFile(t, dir, "BAD.json", `{not valid json`)
	var reported error
	e := Load("", dir, func(err error) { reported = err })
	require.Error(t, reported)
	require.True(t, e.ShouldProcess("extract", "BAD", "ANYTHING"))
}
