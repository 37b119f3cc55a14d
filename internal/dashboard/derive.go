// Package dashboard derives the departure dashboard view from a loaded snapshot.
package dashboard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/observatorio-ti/observatorio/internal/departures"
)

// Period bounds used while no series has been loaded.
const (
	DefaultPeriodStart = "2025-01"
	DefaultPeriodEnd   = "2026-01"
)

// DefaultTopDestinations is the cutoff applied to the destination ranking.
const DefaultTopDestinations = 10

// Bar is one ranked row of a bar chart.
type Bar struct {
	Rank    int                          `json:"rank"`
	Name    string                       `json:"name"`
	Label   string                       `json:"label"`
	Value   int                          `json:"value"`
	Details []departures.DepartureDetail `json:"details,omitempty"`
}

// PeriodBounds returns the first and last month of the series.
func PeriodBounds(series []departures.MonthlySeriesRow) (string, string) {
	if len(series) == 0 {
		return DefaultPeriodStart, DefaultPeriodEnd
	}
	return series[0].Month, series[len(series)-1].Month
}

// PeriodTotal sums every month of the series.
func PeriodTotal(series []departures.MonthlySeriesRow) int64 {
	var total int64
	for _, row := range series {
		total += int64(row.Count)
	}
	return total
}

// LatestValue returns the count of the most recent month, or 0 for an empty series.
func LatestValue(series []departures.MonthlySeriesRow) int {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1].Count
}

// OriginLabels lists origin names in ascending order. Duplicates are kept.
func OriginLabels(rows []departures.OriginAggregateRow) []string {
	labels := make([]string, 0, len(rows))
	for _, row := range rows {
		labels = append(labels, row.OriginName)
	}
	sort.Strings(labels)
	return labels
}

// DestinationLabels lists destination names in ascending order. Duplicates are kept.
func DestinationLabels(rows []departures.DestinationAggregateRow) []string {
	labels := make([]string, 0, len(rows))
	for _, row := range rows {
		labels = append(labels, row.DestinationName)
	}
	sort.Strings(labels)
	return labels
}

// DestinationBars ranks destinations by total, highest first, and truncates the ranking
// to limit entries when limit is positive. Names keep their published casing.
func DestinationBars(rows []departures.DestinationAggregateRow, limit int) []Bar {
	sorted := append([]departures.DestinationAggregateRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Total > sorted[j].Total })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	bars := make([]Bar, 0, len(sorted))
	for i, row := range sorted {
		bars = append(bars, Bar{
			Rank:  i + 1,
			Name:  row.DestinationName,
			Label: rankLabel(i+1, row.DestinationName),
			Value: row.Total,
		})
	}
	return bars
}

// OriginBars ranks origins by total, highest first. Origin names are court codes such
// as "trt14" and are displayed uppercased. Details pass through untouched.
func OriginBars(rows []departures.OriginAggregateRow) []Bar {
	sorted := append([]departures.OriginAggregateRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Total > sorted[j].Total })
	bars := make([]Bar, 0, len(sorted))
	for i, row := range sorted {
		bars = append(bars, Bar{
			Rank:    i + 1,
			Name:    row.OriginName,
			Label:   rankLabel(i+1, strings.ToUpper(row.OriginName)),
			Value:   row.Total,
			Details: row.Details,
		})
	}
	return bars
}

func rankLabel(rank int, name string) string {
	return fmt.Sprintf("%dº %s", rank, name)
}
