package output

import (
	"encoding/json"

	"github.com/kosinter/kosinter/internal/core"
)

// JSONFormatter renders a scan as a report grouped by variant. Variants and
// the results inside them keep scan order, so two runs over the same
// responses produce identical documents.
type JSONFormatter struct {
	Compact bool
}

type scanReport struct {
	Base     string          `json:"base"`
	Summary  verdictSummary  `json:"summary"`
	Variants []variantReport `json:"variants"`
}

type verdictSummary struct {
	Exists    int `json:"exists"`
	NotExists int `json:"not_exists"`
	Uncertain int `json:"uncertain"`
}

type variantReport struct {
	Handle  string              `json:"handle"`
	Found   []string            `json:"found"`
	Results []*core.CheckResult `json:"results"`
}

func newScanReport(table *core.ResultTable) scanReport {
	report := scanReport{
		Base: table.Base,
		Summary: verdictSummary{
			Exists:    table.Count(core.VerdictExists),
			NotExists: table.Count(core.VerdictNotExists),
			Uncertain: table.Count(core.VerdictUncertain),
		},
		Variants: make([]variantReport, 0, len(table.Variants)),
	}

	for _, variant := range table.Variants {
		row := table.Row(variant)
		found := make([]string, 0, len(row))
		for _, result := range row {
			if result.Verdict == core.VerdictExists {
				found = append(found, result.URL)
			}
		}
		report.Variants = append(report.Variants, variantReport{Handle: variant, Found: found, Results: row})
	}
	return report
}

// FormatTable renders a scan as JSON.
func (f *JSONFormatter) FormatTable(table *core.ResultTable) (string, error) {
	if table == nil {
		return "", nil
	}
	return f.encode(newScanReport(table))
}

// FormatTables renders several scans as one JSON array, skipping nil tables.
func (f *JSONFormatter) FormatTables(tables []*core.ResultTable) (string, error) {
	reports := make([]scanReport, 0, len(tables))
	for _, table := range tables {
		if table != nil {
			reports = append(reports, newScanReport(table))
		}
	}
	return f.encode(reports)
}

func (f *JSONFormatter) encode(value any) (string, error) {
	if f.Compact {
		data, err := json.Marshal(value)
		return string(data), err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	return string(data), err
}
