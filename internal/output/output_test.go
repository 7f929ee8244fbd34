package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kosinter/kosinter/internal/core"
)

func sampleTable(t *testing.T) *core.ResultTable {
	t.Helper()
	table := core.NewResultTable("john.doe", []string{"john.doe", "johndoe"}, []string{"github", "github_gist", "twitter"})

	results := []*core.CheckResult{
		{Platform: "github", Handle: "john.doe", URL: "https://github.com/john.doe", Verdict: core.VerdictExists, Reason: core.ReasonStatusOK, StatusCode: 200},
		{Platform: "github_gist", Handle: "john.doe", URL: "https://gist.github.com/john.doe", Verdict: core.VerdictNotExists, Reason: core.ReasonStatusNotFound, StatusCode: 404},
		{Platform: "twitter", Handle: "john.doe", URL: "https://twitter.com/john.doe", Verdict: core.VerdictUncertain, Reason: core.ReasonTransportError, Note: "dial tcp: i/o timeout"},
		{Platform: "github", Handle: "johndoe", URL: "https://github.com/johndoe", Verdict: core.VerdictNotExists, Reason: core.ReasonStatusNotFound, StatusCode: 404},
		{Platform: "github_gist", Handle: "johndoe", URL: "https://gist.github.com/johndoe", Verdict: core.VerdictNotExists, Reason: core.ReasonStatusNotFound, StatusCode: 404},
		{Platform: "twitter", Handle: "johndoe", URL: "https://twitter.com/johndoe", Verdict: core.VerdictUncertain, Reason: core.ReasonNoMarker, StatusCode: 200, Note: core.NoteUncertain, ExtraData: map[string]any{"title": "X"}},
	}
	for _, r := range results {
		require.NoError(t, table.Put(r))
	}
	return table
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatConsole, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestConsoleFormatter(t *testing.T) {
	rendered, err := NewFormatter(FormatConsole, Options{NoColor: true}).FormatTable(sampleTable(t))
	require.NoError(t, err)

	require.Contains(t, rendered, "OSINT RESULTS FOR BASE: john.doe")
	require.Contains(t, rendered, "--- Username variant: john.doe ---")
	require.Contains(t, rendered, "[+] Github          FOUND  -> https://github.com/john.doe")
	require.Contains(t, rendered, "[-] Github Gist     not found")
	require.Contains(t, rendered, "[?] Twitter         uncertain (transport_error; dial tcp: i/o timeout)")
	require.Contains(t, rendered, "[?] Twitter         uncertain (no_marker; title=X)")
	require.Contains(t, rendered, "Scan complete: 1 exists, 3 not found, 2 uncertain.")
	require.NotContains(t, rendered, "\x1b[")

	// Only the second variant has no profile.
	require.Equal(t, 1, strings.Count(rendered, "No profiles found for this variant."))
	require.Less(t, strings.Index(rendered, "variant: john.doe"), strings.Index(rendered, "variant: johndoe"))
}

func TestConsoleFormatterUsesNames(t *testing.T) {
	rendered, err := NewFormatter(FormatConsole, Options{NoColor: true, Names: map[string]string{"github": "GitHub"}}).FormatTable(sampleTable(t))
	require.NoError(t, err)
	require.Contains(t, rendered, "[+] GitHub          FOUND")
}

func TestFormatters(t *testing.T) {
	table := sampleTable(t)

	tableRendered, err := NewFormatter(FormatTable, Options{}).FormatTable(table)
	require.NoError(t, err)
	require.Contains(t, tableRendered, "VARIANT")
	require.Contains(t, tableRendered, "Github Gist")
	require.Contains(t, tableRendered, "not found")
	require.Contains(t, strings.ToLower(tableRendered), "1 exists, 3 not found, 2 uncertain")

	jsonRendered, err := NewFormatter(FormatJSON, Options{}).FormatTable(table)
	require.NoError(t, err)
	require.Contains(t, jsonRendered, "\"base\": \"john.doe\"")
	require.Contains(t, jsonRendered, "\"verdict\": \"exists\"")
	require.Contains(t, jsonRendered, "\"reason\": \"transport_error\"")

	markdownRendered, err := NewFormatter(FormatMarkdown, Options{}).FormatTable(table)
	require.NoError(t, err)
	require.Contains(t, markdownRendered, "## Results for john.doe")
	require.Contains(t, markdownRendered, "| Platform | Verdict | Status | URL | Notes |")
	require.Contains(t, markdownRendered, "| Github | exists | 200 | https://github.com/john.doe | status_ok |")
	require.Contains(t, markdownRendered, "| Twitter | uncertain | - |")
}

func TestFormatTableListJSON(t *testing.T) {
	rendered, err := FormatTableList(FormatJSON, Options{}, []*core.ResultTable{sampleTable(t)})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(rendered, "["))
	require.Contains(t, rendered, "\"variants\": [")
}

func TestJSONReportGroupsByVariant(t *testing.T) {
	rendered, err := (&JSONFormatter{Compact: true}).FormatTable(sampleTable(t))
	require.NoError(t, err)

	var report struct {
		Base    string `json:"base"`
		Summary struct {
			Exists    int `json:"exists"`
			NotExists int `json:"not_exists"`
			Uncertain int `json:"uncertain"`
		} `json:"summary"`
		Variants []struct {
			Handle  string   `json:"handle"`
			Found   []string `json:"found"`
			Results []struct {
				Platform string `json:"platform"`
			} `json:"results"`
		} `json:"variants"`
	}
	require.NoError(t, json.Unmarshal([]byte(rendered), &report))

	require.Equal(t, "john.doe", report.Base)
	require.Equal(t, 1, report.Summary.Exists)
	require.Equal(t, 3, report.Summary.NotExists)
	require.Equal(t, 2, report.Summary.Uncertain)
	require.Len(t, report.Variants, 2)
	require.Equal(t, "john.doe", report.Variants[0].Handle)
	require.Equal(t, []string{"https://github.com/john.doe"}, report.Variants[0].Found)
	require.Equal(t, "johndoe", report.Variants[1].Handle)
	require.Empty(t, report.Variants[1].Found)

	platforms := make([]string, 0, len(report.Variants[0].Results))
	for _, result := range report.Variants[0].Results {
		platforms = append(platforms, result.Platform)
	}
	require.Equal(t, []string{"github", "github_gist", "twitter"}, platforms)
}

func TestFormatTableListJSONSkipsNil(t *testing.T) {
	rendered, err := FormatTableList(FormatJSON, Options{}, []*core.ResultTable{nil, sampleTable(t)})
	require.NoError(t, err)

	var reports []map[string]any
	require.NoError(t, json.Unmarshal([]byte(rendered), &reports))
	require.Len(t, reports, 1)
}

func TestFormatTableListSkipsNil(t *testing.T) {
	rendered, err := FormatTableList(FormatMarkdown, Options{}, []*core.ResultTable{nil, sampleTable(t)})
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(rendered, "## Results for"))
}

func TestEscapeMarkdownCell(t *testing.T) {
	require.Equal(t, `a\|b`, escapeMarkdownCell("a|b"))
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, true)
	require.Contains(t, buf.String(), "KOSINTER - OSINT Username Enumeration Tool.")
	require.NotContains(t, buf.String(), "\x1b[")
}

func TestDisplayName(t *testing.T) {
	require.Equal(t, "Github Gist", displayName(nil, "github_gist"))
	require.Equal(t, "Instagram", displayName(nil, "instagram"))
	require.Equal(t, "X", displayName(map[string]string{"twitter": "X"}, "twitter"))
}
