package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kosinter/kosinter/internal/core"
	"github.com/kosinter/kosinter/internal/core/checker"
	"github.com/kosinter/kosinter/internal/core/registry"
)

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List the platforms a scan checks",
	Args:  cobra.NoArgs,
	RunE:  runPlatforms,
}

func init() {
	rootCmd.AddCommand(platformsCmd)
	platformsCmd.Flags().Bool("json", false, "Print the registry as JSON")
}

type platformInfo struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	URLTemplate   string      `json:"url_template"`
	Family        core.Family `json:"family"`
	HandlePattern string      `json:"handle_pattern,omitempty"`
}

func runPlatforms(cmd *cobra.Command, args []string) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	reg, err := registry.Default()
	if err != nil {
		return err
	}
	infos := describePlatforms(reg, checker.DefaultStrategies())

	out := cmd.OutOrStdout()
	if asJSON {
		data, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Name", "URL", "Family", "Handle Rule"})
	for _, info := range infos {
		t.AppendRow(table.Row{info.ID, info.Name, info.URLTemplate, string(info.Family), info.HandlePattern})
	}
	fmt.Fprintln(out, t.Render())
	return nil
}

func describePlatforms(reg *registry.Registry, strategies map[string]checker.Strategy) []platformInfo {
	infos := make([]platformInfo, 0, reg.Len())
	for _, p := range reg.All() {
		family := core.FamilyHeuristic
		if strategy, ok := strategies[p.ID]; ok {
			family = strategy.Family()
		}
		infos = append(infos, platformInfo{
			ID:            p.ID,
			Name:          p.Name,
			URLTemplate:   p.URLTemplate,
			Family:        family,
			HandlePattern: p.HandlePattern,
		})
	}
	return infos
}
