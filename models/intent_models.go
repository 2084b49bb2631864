package models

// IntentKind is the classified purpose of an inbound message
type IntentKind string

const (
	IntentConversation IntentKind = "conversation"
	IntentDocument     IntentKind = "document"
	IntentChart        IntentKind = "chart"
)

// ChartVariant selects the visual form of a generated chart
type ChartVariant string

const (
	ChartBar     ChartVariant = "bar"
	ChartLine    ChartVariant = "line"
	ChartPie     ChartVariant = "pie"
	ChartScatter ChartVariant = "scatter"
)

// Intent is the result of classifying a message. Variant is only set for IntentChart.
type Intent struct {
	Kind    IntentKind
	Variant ChartVariant
}

// ConversationIntent is the fallback intent
func ConversationIntent() Intent {
	return Intent{Kind: IntentConversation}
}

// DocumentIntent requests a PDF artifact
func DocumentIntent() Intent {
	return Intent{Kind: IntentDocument}
}

// ChartIntent requests a chart artifact of the given variant (bar when empty)
func ChartIntent(variant ChartVariant) Intent {
	if variant == "" {
		variant = ChartBar
	}
	return Intent{Kind: IntentChart, Variant: variant}
}

func (i Intent) String() string {
	if i.Kind == IntentChart {
		return string(i.Kind) + ":" + string(i.Variant)
	}
	return string(i.Kind)
}

// ExtractedSeries is a label -> value series recovered from provider output.
// Labels and Values are parallel.
type ExtractedSeries struct {
	Labels []string
	Values []float64
}

// Valid reports whether the series holds at least one label/value pair and
// both slices have equal length
func (s *ExtractedSeries) Valid() bool {
	return s != nil && len(s.Labels) > 0 && len(s.Labels) == len(s.Values)
}

// Len returns the number of points in the series
func (s *ExtractedSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Labels)
}
