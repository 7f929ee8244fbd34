package output

import (
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/kosinter/kosinter/internal/core"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct {
	Names map[string]string
}

// FormatTable renders a scan as a table.
func (f *TableFormatter) FormatTable(result *core.ResultTable) (string, error) {
	if result == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Results for " + result.Base)
	t.AppendHeader(table.Row{"Variant", "Platform", "Verdict", "Status", "URL", "Notes"})

	for i, variant := range result.Variants {
		if i > 0 {
			t.AppendSeparator()
		}
		for _, r := range result.Row(variant) {
			t.AppendRow(table.Row{
				variant,
				displayName(f.Names, r.Platform),
				verdictLabel(r),
				statusText(r),
				r.URL,
				formatNotes(r),
			})
		}
	}

	t.AppendFooter(table.Row{"", "", summary(result), "", "", ""})

	return t.Render(), nil
}
