package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/observatorio-ti/observatorio/internal/dashboard"
	"github.com/observatorio-ti/observatorio/internal/dashboard/ui"
	"github.com/observatorio-ti/observatorio/internal/dataset"
)

// CheckSummary is the JSON output of the check command.
type CheckSummary struct {
	OK             bool   `json:"ok"`
	Source         string `json:"source"`
	FailedResource string `json:"failed_resource,omitempty"`
	Error          string `json:"error,omitempty"`
	Snapshot       string `json:"snapshot,omitempty"`
	Start          string `json:"start,omitempty"`
	End            string `json:"end,omitempty"`
	Months         int    `json:"months"`
	Destinations   int    `json:"destinations"`
	Origins        int    `json:"origins"`
	PeriodTotal    int64  `json:"period_total"`
	LatestValue    int    `json:"latest_value"`
}

func checkCmd(deps Deps, src *sourceFlags) *cobra.Command {
	var jsonOutput bool

	c := &cobra.Command{
		Use:   "check",
		Short: "Load the three aggregate files and report what the dashboard would show",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, loader, baseURL, err := src.resolve(deps)
			if err != nil {
				return err
			}
			ctx, cancel := src.context(cmd.Context())
			defer cancel()

			summary := CheckSummary{Source: baseURL}
			snap, loadErr := loader.LoadAll(ctx)
			if loadErr != nil {
				summary.Error = loadErr.Error()
				summary.FailedResource = dataset.FailedResource(loadErr)
			} else {
				v := dashboard.NewDeriver(cfg.TopDestinations).Derive(snap)
				summary.OK = true
				summary.Snapshot = v.SnapshotID.String()
				summary.Start = v.PeriodStart
				summary.End = v.PeriodEnd
				summary.Months = len(snap.Series)
				summary.Destinations = len(snap.Destinations)
				summary.Origins = len(snap.Origins)
				summary.PeriodTotal = v.PeriodTotal
				summary.LatestValue = v.LatestValue
			}

			if jsonOutput {
				if err := json.NewEncoder(deps.Stdout).Encode(summary); err != nil {
					return fmt.Errorf("check: encode json: %w", err)
				}
			} else {
				renderCheckHuman(deps.Stdout, summary)
			}
			if loadErr != nil {
				return fmt.Errorf("check: %w", loadErr)
			}
			return nil
		},
	}
	c.Flags().BoolVar(&jsonOutput, "json", false, "print the summary as JSON")
	return c
}

func renderCheckHuman(out io.Writer, s CheckSummary) {
	_, _ = fmt.Fprintf(out, "Fonte: %s\n", s.Source)
	if !s.OK {
		_, _ = fmt.Fprintf(out, "Falha ao carregar %s: %s\n", s.FailedResource, s.Error)
		return
	}
	_, _ = fmt.Fprintf(out, "Snapshot %s\n", s.Snapshot)
	_, _ = fmt.Fprintf(out, "Período: %s a %s (%d meses)\n", ui.FormatMonth(s.Start), ui.FormatMonth(s.End), s.Months)
	_, _ = fmt.Fprintf(out, "Evasões no período (total): %s\n", ui.FormatCount(s.PeriodTotal))
	_, _ = fmt.Fprintf(out, "Último mês: %s\n", ui.FormatCount(s.LatestValue))
	_, _ = fmt.Fprintf(out, "Destinos: %d, órgãos: %d\n", s.Destinations, s.Origins)
}
