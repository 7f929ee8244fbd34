package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/kosinter/kosinter/internal/core"
)

const banner = `
██╗  ██╗ ██████╗ ███████╗██╗███╗   ██╗████████╗███████╗██████╗
██║ ██╔╝██╔═══██╗██╔════╝██║████╗  ██║╚══██╔══╝██╔════╝██╔══██╗
█████╔╝ ██║   ██║███████╗██║██╔██╗ ██║   ██║   █████╗  ██████╔╝
██╔═██╗ ██║   ██║╚════██║██║██║╚██╗██║   ██║   ██╔══╝  ██╔══██╗
██║  ██╗╚██████╔╝███████║██║██║ ╚████║   ██║   ███████╗██║  ██║
╚═╝  ╚═╝ ╚═════╝ ╚══════╝╚═╝╚═╝  ╚═══╝   ╚═╝   ╚══════╝╚═╝  ╚═╝
`

// ConsoleFormatter renders a scan the way an interactive session reads it:
// one block per variant, one line per platform.
type ConsoleFormatter struct {
	Names map[string]string

	found     *color.Color
	missing   *color.Color
	uncertain *color.Color
	heading   *color.Color
}

// NewConsoleFormatter builds a console formatter; NoColor disables escapes.
func NewConsoleFormatter(opts Options) *ConsoleFormatter {
	f := &ConsoleFormatter{
		Names:     opts.Names,
		found:     color.New(color.FgHiGreen),
		missing:   color.New(color.FgHiRed),
		uncertain: color.New(color.FgHiYellow),
		heading:   color.New(color.Bold),
	}
	if opts.NoColor {
		for _, c := range []*color.Color{f.found, f.missing, f.uncertain, f.heading} {
			c.DisableColor()
		}
	}
	return f
}

// FormatTable renders the scan as colored text.
func (f *ConsoleFormatter) FormatTable(table *core.ResultTable) (string, error) {
	if table == nil {
		return "", nil
	}

	var sb strings.Builder
	rule := strings.Repeat("=", 38)
	sb.WriteString(f.heading.Sprintf("%s\n     OSINT RESULTS FOR BASE: %s\n%s", rule, table.Base, rule))
	sb.WriteString("\n\n")

	for _, variant := range table.Variants {
		sb.WriteString(fmt.Sprintf("--- Username variant: %s ---\n", variant))

		anyFound := false
		for _, result := range table.Row(variant) {
			name := displayName(f.Names, result.Platform)
			switch result.Verdict {
			case core.VerdictExists:
				anyFound = true
				sb.WriteString(f.found.Sprintf("[+] %-15s FOUND  -> %s", name, result.URL))
			case core.VerdictNotExists:
				sb.WriteString(f.missing.Sprintf("[-] %-15s not found", name))
			default:
				line := fmt.Sprintf("[?] %-15s uncertain", name)
				if notes := formatNotes(result); notes != "" {
					line += " (" + notes + ")"
				}
				sb.WriteString(f.uncertain.Sprint(line))
			}
			sb.WriteString("\n")
		}

		if !anyFound {
			sb.WriteString(f.missing.Sprint("No profiles found for this variant."))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("Scan complete: %s.\n", summary(table)))
	return sb.String(), nil
}

// PrintBanner writes the start-up banner in yellow.
func PrintBanner(w io.Writer, noColor bool) {
	c := color.New(color.FgYellow)
	if noColor {
		c.DisableColor()
	}
	_, _ = c.Fprint(w, banner)
	_, _ = fmt.Fprint(w, "\n         KOSINTER - OSINT Username Enumeration Tool.\n\n")
}
