package svg

import (
	"fmt"
	"html/template"
	"strings"
)

// HBars renders a horizontal ranked bar chart, one row per item in the given order.
// The chart grows with the number of rows; height is derived from opts.RowHeight.
func HBars(width int, items []BarItem, opts BarOpts) (template.HTML, error) {
	if len(items) == 0 {
		return "", ErrNoData
	}
	if width <= 0 {
		width = DefaultWidth
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	rowHeight := opts.RowHeight
	if rowHeight <= 0 {
		rowHeight = DefaultRowHeight
	}
	labelWidth := opts.LabelWidth
	if labelWidth <= 0 {
		labelWidth = DefaultLabelWidth
	}
	color := fallback(opts.Color, "#0f766e")
	axisColor := fallback(opts.AxisColor, "#334155")
	trackColor := fallback(opts.TrackColor, "#e2e8f0")

	// right gutter holds the value labels
	barArea := float64(width) - 2*padding - labelWidth - 40
	if barArea <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}
	height := int(2*padding + rowHeight*float64(len(items)))

	maxVal := 0.0
	for _, item := range items {
		if item.Value > maxVal {
			maxVal = item.Value
		}
	}
	if almostEqual(maxVal, 0) {
		maxVal = 1
	}

	titleID := makeID(opts.Title, "bar-title")
	descID := makeID(opts.Title, "bar-desc")

	var b strings.Builder
	fmt.Fprintf(&b, "<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\" class=\"chart chart-bars\">", width, height, titleID, descID)
	fmt.Fprintf(&b, "<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, "Ranking")))
	fmt.Fprintf(&b, "<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, "Ranking em ordem decrescente")))

	barX := padding + labelWidth
	barHeight := rowHeight * 0.64
	for i, item := range items {
		top := padding + float64(i)*rowHeight
		barY := top + (rowHeight-barHeight)/2
		textY := top + rowHeight/2 + 4
		w := item.Value / maxVal * barArea
		if w < 0 {
			w = 0
		}

		b.WriteString("<g>")
		if tip := tooltip(item); tip != "" {
			fmt.Fprintf(&b, "<title>%s</title>", template.HTMLEscapeString(tip))
		}
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"11\" text-anchor=\"end\">%s</text>", barX-8, textY, axisColor, template.HTMLEscapeString(item.Label))
		fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\" aria-hidden=\"true\"></rect>", barX, barY, barArea, barHeight, trackColor)
		fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\" rx=\"2\"></rect>", barX, barY, w, barHeight, color)
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"11\" text-anchor=\"start\">%s</text>", barX+w+6, textY, axisColor, template.HTMLEscapeString(formatTick(item.Value)))
		b.WriteString("</g>")
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

func tooltip(item BarItem) string {
	if len(item.Details) == 0 {
		return ""
	}
	lines := make([]string, 0, len(item.Details)+1)
	lines = append(lines, item.Label)
	lines = append(lines, item.Details...)
	return strings.Join(lines, "\n")
}
