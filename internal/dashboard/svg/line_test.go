package svg

import (
	"errors"
	"strings"
	"testing"
)

func TestLineProducesSVG(t *testing.T) {
	html, err := Line(400, 200, []Point{
		{Label: "jan 2025", Value: 4, Tooltip: "jan 2025: 4"},
		{Label: "fev 2025", Value: 9},
		{Label: "mar 2025", Value: 2},
	}, LineOpts{Title: "Evasões por mês", ShowDots: true})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	output := string(html)
	if !strings.HasPrefix(output, "<svg") {
		t.Fatalf("expected svg output, got %s", output)
	}
	if !strings.Contains(output, "<path") {
		t.Fatalf("expected path element in svg")
	}
	if !strings.Contains(output, "aria-labelledby=\"evas-es-por-m-s-line-title") {
		t.Fatalf("expected accessibility attributes, got %s", output)
	}
	if !strings.Contains(output, "<title>jan 2025: 4</title>") {
		t.Fatalf("expected point tooltip")
	}
	if strings.Contains(output, "style=") {
		t.Fatalf("inline styles are not allowed")
	}
}

func TestLineSinglePoint(t *testing.T) {
	html, err := Line(0, 0, []Point{{Label: "jan 2025", Value: 0}}, LineOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(html), "jan 2025") {
		t.Fatalf("expected axis label")
	}
}

func TestLineEscapesLabels(t *testing.T) {
	html, err := Line(400, 200, []Point{{Label: "<b>", Value: 1}}, LineOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(html), "<b>") {
		t.Fatalf("label must be escaped")
	}
}

func TestLineWithoutData(t *testing.T) {
	if _, err := Line(400, 200, nil, LineOpts{}); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}
