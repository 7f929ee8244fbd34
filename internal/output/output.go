// Package output renders scan result tables.
package output

import (
	"fmt"
	"strings"

	"github.com/kosinter/kosinter/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatConsole  Format = "console"
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders one scan.
type Formatter interface {
	FormatTable(table *core.ResultTable) (string, error)
}

// Options tunes formatter construction.
type Options struct {
	NoColor bool

	// Names maps platform ids to display names. Missing ids are title-cased.
	Names map[string]string
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatConsole):
		return FormatConsole, nil
	case string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format, opts Options) Formatter {
	switch format {
	case FormatTable:
		return &TableFormatter{Names: opts.Names}
	case FormatJSON:
		return &JSONFormatter{}
	case FormatMarkdown:
		return &MarkdownFormatter{Names: opts.Names}
	default:
		return NewConsoleFormatter(opts)
	}
}

// FormatTableList renders several scans using the requested format.
func FormatTableList(format Format, opts Options, tables []*core.ResultTable) (string, error) {
	if format == FormatJSON {
		return (&JSONFormatter{}).FormatTables(tables)
	}

	formatter := NewFormatter(format, opts)
	rendered := make([]string, 0, len(tables))
	for _, table := range tables {
		if table == nil {
			continue
		}
		value, err := formatter.FormatTable(table)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(value) == "" {
			continue
		}
		rendered = append(rendered, value)
	}

	return strings.Join(rendered, "\n\n"), nil
}
