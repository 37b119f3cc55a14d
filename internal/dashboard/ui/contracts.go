// Package ui maps the derived dashboard view onto what the templates and the JSON API
// render.
package ui

import (
	"html/template"
	"time"

	"github.com/google/uuid"

	"github.com/observatorio-ti/observatorio/internal/dashboard"
	"github.com/observatorio-ti/observatorio/internal/dashboard/svg"
	"github.com/observatorio-ti/observatorio/internal/departures"
)

// Load states of the dashboard page.
const (
	StateLoading = "loading"
	StateError   = "error"
	StateReady   = "ready"
)

// KPICard is one headline number.
type KPICard struct {
	Label string
	Value string
	Hint  string
}

// FilterOption is one entry of a filter select.
type FilterOption struct {
	Value    string
	Selected bool
}

// FilterPanel holds the filter controls. The origin and destination selects are shown
// but do not slice the charts.
type FilterPanel struct {
	SnapshotID   string
	MinMonth     string
	MaxMonth     string
	Start        string
	End          string
	Origins      []FilterOption
	Destinations []FilterOption
}

// RankRow is a ranked bar with its tooltip lines already formatted.
type RankRow struct {
	Label   string
	Value   int
	Details []string
}

// DashboardViewModel combines all dashboard data for rendering.
type DashboardViewModel struct {
	State        string
	Error        string
	LoadedAt     time.Time
	KPIs         []KPICard
	Filters      FilterPanel
	Series       []departures.MonthlySeriesRow
	Destinations []RankRow
	Origins      []RankRow
	SeriesSVG    template.HTML
	DestSVG      template.HTML
	OriginSVG    template.HTML
}

// LineRenderer abstracts SVG line chart rendering for the dashboard.
type LineRenderer interface {
	Line(width, height int, points []svg.Point, opts svg.LineOpts) (template.HTML, error)
}

// BarRenderer abstracts SVG ranked bar rendering for the dashboard.
type BarRenderer interface {
	HBars(width int, items []svg.BarItem, opts svg.BarOpts) (template.HTML, error)
}

// KPIs builds the headline cards of a view.
func KPIs(view *dashboard.View) []KPICard {
	return []KPICard{
		{Label: "Evasões no período (total)", Value: FormatCount(view.PeriodTotal), Hint: "Confirmadas (destino fora do Judiciário identificado)"},
		{Label: "Último mês", Value: FormatCount(view.LatestValue), Hint: "Consolidado do mês mais recente no dataset"},
		{Label: "Cobertura", Value: "Órgãos (Admin)", Hint: "Cadernos administrativos analisados"},
	}
}

// NewFilterPanel builds the filter controls for a view and the resolved filters.
func NewFilterPanel(view *dashboard.View, filters dashboard.Filters) FilterPanel {
	panel := FilterPanel{
		MinMonth:     view.PeriodStart,
		MaxMonth:     view.PeriodEnd,
		Start:        filters.Start,
		End:          filters.End,
		Origins:      options(view.OriginLabels, filters.Origin),
		Destinations: options(view.DestinationLabels, filters.Destination),
	}
	if view.SnapshotID != uuid.Nil {
		panel.SnapshotID = view.SnapshotID.String()
	}
	return panel
}

func options(labels []string, selected string) []FilterOption {
	out := make([]FilterOption, 0, len(labels))
	for _, label := range labels {
		out = append(out, FilterOption{Value: label, Selected: label == selected})
	}
	return out
}

// ToRankRows formats bars for display; detail lines read "name - DD/MM/YYYY".
func ToRankRows(bars []dashboard.Bar) []RankRow {
	rows := make([]RankRow, 0, len(bars))
	for _, bar := range bars {
		row := RankRow{Label: bar.Label, Value: bar.Value}
		for _, d := range bar.Details {
			row.Details = append(row.Details, d.PersonName+" - "+FormatDate(d.ActDate))
		}
		rows = append(rows, row)
	}
	return rows
}

// ToLinePoints converts the monthly series into chart points.
func ToLinePoints(series []departures.MonthlySeriesRow) []svg.Point {
	points := make([]svg.Point, 0, len(series))
	for _, row := range series {
		label := FormatMonth(row.Month)
		points = append(points, svg.Point{
			Label:   label,
			Value:   float64(row.Count),
			Tooltip: label + ": " + FormatCount(row.Count),
		})
	}
	return points
}

// ToBarItems converts rank rows into chart rows.
func ToBarItems(rows []RankRow) []svg.BarItem {
	items := make([]svg.BarItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, svg.BarItem{Label: row.Label, Value: float64(row.Value), Details: row.Details})
	}
	return items
}

// Build assembles the page model for the current load status. Charts are rendered by the
// caller.
func Build(status dashboard.Status, view *dashboard.View, filters dashboard.Filters) DashboardViewModel {
	switch {
	case status.Err != nil && !status.Loaded:
		return DashboardViewModel{State: StateError, Error: status.Err.Error()}
	case !status.Loaded || view == nil:
		return DashboardViewModel{State: StateLoading}
	}
	vm := DashboardViewModel{
		State:        StateReady,
		LoadedAt:     status.LoadedAt,
		KPIs:         KPIs(view),
		Filters:      NewFilterPanel(view, filters),
		Series:       view.Series,
		Destinations: ToRankRows(view.DestinationBars),
		Origins:      ToRankRows(view.OriginBars),
	}
	if status.Err != nil {
		// data from an earlier load is still shown
		vm.Error = status.Err.Error()
	}
	return vm
}
