package output

import (
	"fmt"
	"strings"

	"github.com/kosinter/kosinter/internal/core"
)

// MarkdownFormatter renders results as a markdown table per variant.
type MarkdownFormatter struct {
	Names map[string]string
}

// FormatTable renders a scan as Markdown.
func (f *MarkdownFormatter) FormatTable(table *core.ResultTable) (string, error) {
	if table == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Results for %s\n", escapeMarkdownCell(table.Base)))

	for _, variant := range table.Variants {
		sb.WriteString(fmt.Sprintf("\n### %s\n\n", escapeMarkdownCell(variant)))
		sb.WriteString("| Platform | Verdict | Status | URL | Notes |\n")
		sb.WriteString("|----------|---------|--------|-----|-------|\n")

		for _, r := range table.Row(variant) {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				escapeMarkdownCell(displayName(f.Names, r.Platform)),
				escapeMarkdownCell(verdictLabel(r)),
				escapeMarkdownCell(statusText(r)),
				escapeMarkdownCell(r.URL),
				escapeMarkdownCell(formatNotes(r)),
			))
		}
	}

	sb.WriteString(fmt.Sprintf("\n**Summary**: %s\n", summary(table)))
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
