package services

import (
	"bytes"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"sync"
	"unicode/utf8"

	"atomrouter/models"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	defaultChartWidth  = 1200
	defaultChartHeight = 700

	// Labels are rotated when there are more categories or longer labels than this
	maxFlatLabels      = 5
	maxFlatLabelLength = 10

	fallbackPreviewLength = 200
)

var (
	steelBlue     = color.NRGBA{70, 130, 180, 255}
	steelBlueBar  = color.NRGBA{70, 130, 180, 204}
	steelBlueDot  = color.NRGBA{70, 130, 180, 153}
	markerOrange  = color.NRGBA{255, 165, 0, 255}
	gridGray      = color.NRGBA{220, 220, 220, 255}
	axisGray      = color.NRGBA{90, 90, 90, 255}
	textDark      = color.NRGBA{40, 40, 40, 255}
	diagnosticBox = color.NRGBA{245, 222, 179, 128}

	// Set3 qualitative palette
	piePalette = []color.NRGBA{
		{141, 211, 199, 255}, {255, 255, 179, 255}, {190, 186, 218, 255}, {251, 128, 114, 255},
		{128, 177, 211, 255}, {253, 180, 98, 255}, {179, 222, 105, 255}, {252, 205, 229, 255},
		{217, 217, 217, 255}, {188, 128, 189, 255}, {204, 235, 197, 255}, {255, 237, 111, 255},
	}
)

var chartTitles = map[models.ChartVariant]string{
	models.ChartBar:     "Bar Chart",
	models.ChartLine:    "Line Chart",
	models.ChartPie:     "Pie Chart",
	models.ChartScatter: "Scatter Plot",
}

type chartFonts struct {
	regular *truetype.Font
	bold    *truetype.Font
}

var (
	fontsOnce   sync.Once
	loadedFonts chartFonts
	fontsErr    error
)

func loadChartFonts() (chartFonts, error) {
	fontsOnce.Do(func() {
		regular, err := truetype.Parse(goregular.TTF)
		if err != nil {
			fontsErr = fmt.Errorf("failed to parse regular font: %w", err)
			return
		}
		bold, err := truetype.Parse(gobold.TTF)
		if err != nil {
			fontsErr = fmt.Errorf("failed to parse bold font: %w", err)
			return
		}
		loadedFonts = chartFonts{regular: regular, bold: bold}
	})
	return loadedFonts, fontsErr
}

// ChartRenderer draws extracted series as PNG images
type ChartRenderer struct {
	Width  int
	Height int
}

// NewChartRenderer creates a renderer producing 1200x700 images
func NewChartRenderer() *ChartRenderer {
	return &ChartRenderer{Width: defaultChartWidth, Height: defaultChartHeight}
}

// Render extracts a series from provider output and draws it. When no series can
// be recovered the image explains the expected format and previews the raw text.
func (c *ChartRenderer) Render(content string, variant models.ChartVariant) ([]byte, error) {
	series := ExtractSeries(content)
	if series == nil {
		slog.Warn("could not extract structured data from provider output", "variant", variant, "chars", len(content))
	} else {
		slog.Info("extracted chart data", "variant", variant, "points", series.Len())
	}
	return c.RenderSeries(series, variant, content)
}

// RenderSeries draws series in the requested variant; an invalid or nil series
// produces the diagnostic image built from raw
func (c *ChartRenderer) RenderSeries(series *models.ExtractedSeries, variant models.ChartVariant, raw string) ([]byte, error) {
	fonts, err := loadChartFonts()
	if err != nil {
		return nil, &RenderError{Kind: "chart", Err: err}
	}

	dc := gg.NewContext(c.Width, c.Height)
	dc.SetColor(color.White)
	dc.Clear()

	cv := &chartCanvas{dc: dc, fonts: fonts, width: float64(c.Width), height: float64(c.Height)}
	switch {
	case !series.Valid():
		cv.drawDiagnostic(fallbackMessage(raw))
	case variant == models.ChartLine:
		cv.drawLine(series)
	case variant == models.ChartPie:
		cv.drawPie(series)
	case variant == models.ChartScatter:
		cv.drawScatter(series)
	default:
		cv.drawBar(series)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, &RenderError{Kind: "chart", Err: err}
	}
	return buf.Bytes(), nil
}

func fallbackMessage(raw string) string {
	preview := raw
	if utf8.RuneCountInString(preview) > fallbackPreviewLength {
		preview = string([]rune(preview)[:fallbackPreviewLength])
	}
	return "Could not extract structured data\n\n" +
		"Please provide data in format:\n" +
		`JSON: {"2020": 50000, "2021": 55000, "2022": 60000}` + "\n\n" +
		"Received response:\n" + preview
}

func shouldRotateLabels(labels []string) bool {
	if len(labels) > maxFlatLabels {
		return true
	}
	for _, l := range labels {
		if utf8.RuneCountInString(l) > maxFlatLabelLength {
			return true
		}
	}
	return false
}

type plotArea struct {
	left, top, right, bottom float64
}

func newPlotArea(width, height float64, rotated bool) plotArea {
	bottomMargin := 90.0
	if rotated {
		bottomMargin = 170.0
	}
	return plotArea{left: 110, top: 80, right: width - 40, bottom: height - bottomMargin}
}

func (p plotArea) width() float64  { return p.right - p.left }
func (p plotArea) height() float64 { return p.bottom - p.top }

// y maps a value onto the vertical pixel axis for the range [lo, hi]
func (p plotArea) y(v, lo, hi float64) float64 {
	return p.bottom - (v-lo)/(hi-lo)*p.height()
}

// categoryCenters spreads n categories evenly across the plot width
func categoryCenters(p plotArea, n int) []float64 {
	slot := p.width() / float64(n)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = p.left + slot*(float64(i)+0.5)
	}
	return xs
}

// valueRange always includes zero and leaves 10% headroom
func valueRange(values []float64) (float64, float64) {
	lo, hi := 0.0, 0.0
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}
	pad := (hi - lo) * 0.1
	if hi > 0 {
		hi += pad
	}
	if lo < 0 {
		lo -= pad
	}
	return lo, hi
}

type chartCanvas struct {
	dc     *gg.Context
	fonts  chartFonts
	width  float64
	height float64
}

func (cv *chartCanvas) face(bold bool, size float64) font.Face {
	f := cv.fonts.regular
	if bold {
		f = cv.fonts.bold
	}
	return truetype.NewFace(f, &truetype.Options{Size: size})
}

func (cv *chartCanvas) drawTitle(title string) {
	cv.dc.SetFontFace(cv.face(true, 22))
	cv.dc.SetColor(textDark)
	cv.dc.DrawStringAnchored(title, cv.width/2, 40, 0.5, 0.5)
}

// drawAxes draws the horizontal grid, y tick labels, both axis lines and the axis titles
func (cv *chartCanvas) drawAxes(area plotArea, lo, hi float64, xTitle string, verticalGrid []float64) {
	dc := cv.dc
	const ticks = 5

	dc.SetLineWidth(1)
	dc.SetColor(gridGray)
	for i := 0; i <= ticks; i++ {
		y := area.y(lo+(hi-lo)*float64(i)/ticks, lo, hi)
		dc.DrawLine(area.left, y, area.right, y)
		dc.Stroke()
	}
	for _, x := range verticalGrid {
		dc.DrawLine(x, area.top, x, area.bottom)
		dc.Stroke()
	}

	dc.SetFontFace(cv.face(false, 13))
	dc.SetColor(textDark)
	for i := 0; i <= ticks; i++ {
		v := lo + (hi-lo)*float64(i)/ticks
		dc.DrawStringAnchored(formatTick(v, hi-lo), area.left-10, area.y(v, lo, hi), 1, 0.35)
	}

	dc.SetColor(axisGray)
	dc.SetLineWidth(1.5)
	dc.DrawLine(area.left, area.top, area.left, area.bottom)
	dc.DrawLine(area.left, area.bottom, area.right, area.bottom)
	dc.Stroke()

	dc.SetFontFace(cv.face(true, 15))
	dc.SetColor(textDark)
	dc.DrawStringAnchored(xTitle, area.left+area.width()/2, cv.height-20, 0.5, 0)

	dc.Push()
	dc.RotateAbout(gg.Radians(-90), 30, area.top+area.height()/2)
	dc.DrawStringAnchored("Values", 30, area.top+area.height()/2, 0.5, 0.5)
	dc.Pop()
}

func (cv *chartCanvas) drawCategoryLabels(area plotArea, labels []string, xs []float64) {
	dc := cv.dc
	rotated := shouldRotateLabels(labels)
	y := area.bottom + 10

	dc.SetFontFace(cv.face(false, 13))
	dc.SetColor(textDark)
	for i, label := range labels {
		if !rotated {
			dc.DrawStringAnchored(label, xs[i], y, 0.5, 1)
			continue
		}
		dc.Push()
		dc.RotateAbout(gg.Radians(-45), xs[i], y)
		dc.DrawStringAnchored(label, xs[i], y, 1, 0.5)
		dc.Pop()
	}
}

func (cv *chartCanvas) drawBar(series *models.ExtractedSeries) {
	dc := cv.dc
	area := newPlotArea(cv.width, cv.height, shouldRotateLabels(series.Labels))
	lo, hi := valueRange(series.Values)
	xs := categoryCenters(area, series.Len())

	cv.drawTitle(chartTitles[models.ChartBar])
	cv.drawAxes(area, lo, hi, "Categories", nil)

	barWidth := area.width() / float64(series.Len()) * 0.6
	base := area.y(0, lo, hi)

	dc.SetFontFace(cv.face(false, 13))
	for i, v := range series.Values {
		top := area.y(v, lo, hi)
		dc.DrawRectangle(xs[i]-barWidth/2, min(base, top), barWidth, math.Abs(base-top))
		dc.SetColor(steelBlueBar)
		dc.FillPreserve()
		dc.SetColor(color.Black)
		dc.SetLineWidth(1)
		dc.Stroke()

		dc.SetColor(textDark)
		if v >= 0 {
			dc.DrawStringAnchored(fmt.Sprintf("%.1f", v), xs[i], top-6, 0.5, 0)
		} else {
			dc.DrawStringAnchored(fmt.Sprintf("%.1f", v), xs[i], top+6, 0.5, 1)
		}
	}

	cv.drawCategoryLabels(area, series.Labels, xs)
}

func (cv *chartCanvas) drawLine(series *models.ExtractedSeries) {
	dc := cv.dc
	area := newPlotArea(cv.width, cv.height, shouldRotateLabels(series.Labels))
	lo, hi := valueRange(series.Values)
	xs := categoryCenters(area, series.Len())

	cv.drawTitle(chartTitles[models.ChartLine])
	cv.drawAxes(area, lo, hi, "Categories", xs)

	dc.SetColor(steelBlue)
	dc.SetLineWidth(2)
	for i, v := range series.Values {
		if i == 0 {
			dc.MoveTo(xs[i], area.y(v, lo, hi))
		} else {
			dc.LineTo(xs[i], area.y(v, lo, hi))
		}
	}
	dc.Stroke()

	for i, v := range series.Values {
		dc.DrawCircle(xs[i], area.y(v, lo, hi), 6)
		dc.SetColor(markerOrange)
		dc.FillPreserve()
		dc.SetColor(color.Black)
		dc.SetLineWidth(1)
		dc.Stroke()
	}

	cv.drawCategoryLabels(area, series.Labels, xs)
}

func (cv *chartCanvas) drawScatter(series *models.ExtractedSeries) {
	dc := cv.dc
	area := newPlotArea(cv.width, cv.height, shouldRotateLabels(series.Labels))
	lo, hi := valueRange(series.Values)
	xs := categoryCenters(area, series.Len())

	cv.drawTitle(chartTitles[models.ChartScatter])
	cv.drawAxes(area, lo, hi, "Index", xs)

	for i, v := range series.Values {
		dc.DrawCircle(xs[i], area.y(v, lo, hi), 10)
		dc.SetColor(steelBlueDot)
		dc.FillPreserve()
		dc.SetColor(color.Black)
		dc.SetLineWidth(1.5)
		dc.Stroke()
	}

	cv.drawCategoryLabels(area, series.Labels, xs)
}

func (cv *chartCanvas) drawPie(series *models.ExtractedSeries) {
	dc := cv.dc
	cv.drawTitle(chartTitles[models.ChartPie])

	total := 0.0
	for _, v := range series.Values {
		if v > 0 {
			total += v
		}
	}
	if total <= 0 {
		cv.drawDiagnostic("No positive values to plot")
		return
	}

	cx, cy := cv.width/2, cv.height/2+25
	radius := min(cv.width, cv.height) * 0.32

	// Wedges start at 12 o'clock and advance counter-clockwise
	angle := -math.Pi / 2
	for i, v := range series.Values {
		if v <= 0 {
			continue
		}
		sweep := v / total * 2 * math.Pi
		next := angle - sweep

		dc.NewSubPath()
		dc.MoveTo(cx, cy)
		dc.DrawArc(cx, cy, radius, angle, next)
		dc.ClosePath()
		dc.SetColor(piePalette[i%len(piePalette)])
		dc.FillPreserve()
		dc.SetColor(color.White)
		dc.SetLineWidth(1.5)
		dc.Stroke()

		mid := angle - sweep/2
		cos, sin := math.Cos(mid), math.Sin(mid)

		dc.SetFontFace(cv.face(true, 13))
		dc.SetColor(textDark)
		dc.DrawStringAnchored(fmt.Sprintf("%.1f%%", v/total*100), cx+radius*0.6*cos, cy+radius*0.6*sin, 0.5, 0.35)

		ax := 0.0
		if cos < 0 {
			ax = 1
		}
		dc.SetFontFace(cv.face(false, 14))
		dc.DrawStringAnchored(series.Labels[i], cx+radius*1.1*cos, cy+radius*1.1*sin, ax, 0.35)

		angle = next
	}
}

func (cv *chartCanvas) drawDiagnostic(message string) {
	dc := cv.dc
	dc.SetFontFace(cv.face(false, 16))

	boxWidth := cv.width * 0.7
	lines := dc.WordWrap(message, boxWidth-60)
	lineHeight := dc.FontHeight() * 1.5
	boxHeight := float64(len(lines))*lineHeight + 60

	x := (cv.width - boxWidth) / 2
	y := (cv.height - boxHeight) / 2
	dc.DrawRoundedRectangle(x, y, boxWidth, boxHeight, 14)
	dc.SetColor(diagnosticBox)
	dc.Fill()

	dc.SetColor(textDark)
	dc.DrawStringWrapped(message, cv.width/2, cv.height/2, 0.5, 0.5, boxWidth-60, 1.5, gg.AlignCenter)
}

func formatTick(v, span float64) string {
	if span >= 10 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
