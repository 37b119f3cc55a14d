package svg

// Point is one sample of a line chart. Tooltip, when set, is shown on hover.
type Point struct {
	Label   string
	Value   float64
	Tooltip string
}

// BarItem is one row of a horizontal ranked bar chart. Each Details entry becomes a
// line of the row tooltip.
type BarItem struct {
	Label   string
	Value   float64
	Details []string
}

// LineOpts customises the line chart renderer.
type LineOpts struct {
	Title       string
	Description string
	StrokeColor string
	FillColor   string
	AxisColor   string
	GridColor   string
	Padding     float64
	ShowDots    bool
	TickCount   int
	// LabelEvery thins the x-axis labels; 0 picks a step that keeps about 12 labels.
	LabelEvery int
}

// BarOpts customises the horizontal bar renderer.
type BarOpts struct {
	Title       string
	Description string
	Color       string
	AxisColor   string
	TrackColor  string
	LabelWidth  float64
	RowHeight   float64
	Padding     float64
}

// Defaults for the dashboard charts.
const (
	DefaultWidth      = 720
	DefaultHeight     = 240
	DefaultPadding    = 24.0
	DefaultTicks      = 5
	DefaultRowHeight  = 26.0
	DefaultLabelWidth = 220.0
)
