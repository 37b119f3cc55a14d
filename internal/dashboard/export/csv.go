// Package export writes dashboard data as CSV.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/observatorio-ti/observatorio/internal/dashboard"
	"github.com/observatorio-ti/observatorio/internal/departures"
)

// Kinds accepted by Write.
const (
	KindSummary      = "summary"
	KindSeries       = "series"
	KindDestinations = "destinations"
	KindOrigins      = "origins"
)

// Write dispatches to the writer for kind. It reports false for an unknown kind.
func Write(w io.Writer, kind string, view *dashboard.View, filters dashboard.Filters) (bool, error) {
	switch kind {
	case KindSummary:
		return true, WriteSummaryCSV(w, view, filters)
	case KindSeries:
		return true, WriteSeriesCSV(w, view.Series)
	case KindDestinations:
		return true, WriteRankingCSV(w, "destino", view.DestinationBars)
	case KindOrigins:
		return true, WriteRankingCSV(w, "orgao", view.OriginBars)
	default:
		return false, nil
	}
}

// WriteSummaryCSV serialises the headline metrics together with the filters in effect.
func WriteSummaryCSV(w io.Writer, view *dashboard.View, filters dashboard.Filters) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"metrica", "valor"}); err != nil {
		return err
	}
	records := [][]string{
		{"snapshot", view.SnapshotID.String()},
		{"periodo_inicio", filters.Start},
		{"periodo_fim", filters.End},
		{"orgao", filters.Origin},
		{"destino", filters.Destination},
		{"evasoes_periodo", strconv.FormatInt(view.PeriodTotal, 10)},
		{"ultimo_mes", strconv.Itoa(view.LatestValue)},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSeriesCSV emits the monthly series.
func WriteSeriesCSV(w io.Writer, series []departures.MonthlySeriesRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"mes", "evasoes"}); err != nil {
		return err
	}
	for _, row := range series {
		if err := writer.Write([]string{row.Month, strconv.Itoa(row.Count)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteRankingCSV emits a ranking with one line per bar. Detail rows are not expanded.
func WriteRankingCSV(w io.Writer, nameColumn string, bars []dashboard.Bar) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"posicao", nameColumn, "total"}); err != nil {
		return err
	}
	for _, bar := range bars {
		if err := writer.Write([]string{strconv.Itoa(bar.Rank), bar.Name, strconv.Itoa(bar.Value)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
