package output

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kosinter/kosinter/internal/core"
)

// displayName turns a platform id such as github_gist into "Github Gist"
// unless names carries an explicit label.
func displayName(names map[string]string, platform string) string {
	if name, ok := names[platform]; ok && strings.TrimSpace(name) != "" {
		return name
	}
	return cases.Title(language.English).String(strings.ReplaceAll(platform, "_", " "))
}

func verdictLabel(result *core.CheckResult) string {
	if result == nil {
		return "uncertain"
	}
	switch result.Verdict {
	case core.VerdictExists:
		return "exists"
	case core.VerdictNotExists:
		return "not found"
	default:
		return "uncertain"
	}
}

func statusText(result *core.CheckResult) string {
	if !result.HasStatus() {
		return "-"
	}
	return fmt.Sprintf("%d", result.StatusCode)
}

// formatNotes joins the reason, note and extra data into one cell.
func formatNotes(result *core.CheckResult) string {
	if result == nil {
		return ""
	}

	parts := []string{}
	if result.Reason != "" {
		parts = append(parts, string(result.Reason))
	}
	if note := strings.TrimSpace(result.Note); note != "" && note != string(result.Reason) && note != core.NoteUncertain {
		parts = append(parts, note)
	}

	if len(result.ExtraData) > 0 {
		keys := make([]string, 0, len(result.ExtraData))
		for key := range result.ExtraData {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", key, result.ExtraData[key]))
		}
	}

	return strings.Join(parts, "; ")
}

func summary(table *core.ResultTable) string {
	return fmt.Sprintf("%d exists, %d not found, %d uncertain",
		table.Count(core.VerdictExists),
		table.Count(core.VerdictNotExists),
		table.Count(core.VerdictUncertain),
	)
}
