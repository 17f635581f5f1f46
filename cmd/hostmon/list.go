package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Guliveer/hostmon/internal/monitor"
	"github.com/Guliveer/hostmon/internal/plugins"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show every known monitor and whether it would activate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// Exclusions are reported in the table, not the log.
			st := buildStack(cfg, zap.NewNop())
			defer st.Close(zap.NewNop())

			renderCatalog(cmd.OutOrStdout(), plugins.Catalog(), st.composite.Names(), st.exclusions)
			fmt.Fprintf(cmd.OutOrStdout(), "enabled: %v\n", st.enabled.Strings())
			return nil
		},
	}
}

// catalogRows pairs each candidate with its activation decision.
func catalogRows(candidates []monitor.Descriptor, active []string, excluded []monitor.Exclusion) [][]string {
	activeSet := make(map[string]bool, len(active))
	for _, name := range active {
		activeSet[name] = true
	}
	reasons := make(map[string]string, len(excluded))
	for _, e := range excluded {
		reason := e.Reason.Error()
		if e.Winner != "" {
			reason = fmt.Sprintf("%s (%s)", reason, e.Winner)
		}
		reasons[e.Descriptor.Namespace] = reason
	}

	rows := make([][]string, 0, len(candidates))
	for _, d := range candidates {
		category, variant, err := monitor.ParseNamespace(d.Namespace)
		status := "active"
		switch {
		case err != nil:
			status = err.Error()
		case !activeSet[category+"."+variant]:
			status = reasons[d.Namespace]
		}
		rows = append(rows, []string{category, variant, status, d.Description})
	}
	return rows
}

func renderCatalog(w io.Writer, candidates []monitor.Descriptor, active []string, excluded []monitor.Exclusion) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"CATEGORY", "VARIANT", "STATUS", "DESCRIPTION"})
	table.AppendBulk(catalogRows(candidates, active, excluded))
	table.Render()
}
