package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/observatorio-ti/observatorio/internal/dashboard"
	"github.com/observatorio-ti/observatorio/internal/dashboard/export"
)

func exportCmd(deps Deps, src *sourceFlags) *cobra.Command {
	var (
		kind    string
		out     string
		filters dashboard.Filters
	)

	c := &cobra.Command{
		Use:   "export",
		Short: "Write one of the dashboard CSV exports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !validKind(kind) {
				return fmt.Errorf("export: unknown kind %q (expected %s)", kind, strings.Join(exportKinds(), ", "))
			}
			cfg, loader, _, err := src.resolve(deps)
			if err != nil {
				return err
			}
			ctx, cancel := src.context(cmd.Context())
			defer cancel()

			snap, err := loader.LoadAll(ctx)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			state := dashboard.NewState(dashboard.NewDeriver(cfg.TopDestinations))
			v := state.Apply(snap)
			resolved := state.Resolve(dashboard.FilterRequest{Filters: filters, SnapshotID: snap.ID.String()})

			var w io.Writer = deps.Stdout
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				defer f.Close()
				w = f
			}
			if _, err := export.Write(w, kind, v, resolved); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			return nil
		},
	}
	c.Flags().StringVarP(&kind, "kind", "k", export.KindSummary, "export kind: "+strings.Join(exportKinds(), ", "))
	c.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	c.Flags().StringVar(&filters.Start, "start", "", "period start (YYYY-MM)")
	c.Flags().StringVar(&filters.End, "end", "", "period end (YYYY-MM)")
	c.Flags().StringVar(&filters.Origin, "origin-filter", "", "origin organ selection")
	c.Flags().StringVar(&filters.Destination, "destination-filter", "", "destination selection")
	return c
}

func exportKinds() []string {
	return []string{export.KindSummary, export.KindSeries, export.KindDestinations, export.KindOrigins}
}

func validKind(kind string) bool {
	for _, k := range exportKinds() {
		if k == kind {
			return true
		}
	}
	return false
}
