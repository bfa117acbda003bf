// Package report renders processed profiles as charts: an interactive HTML
// page via go-echarts and a static PNG via gonum/plot.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/ctd.report/internal/pipeline"
	"github.com/banshee-data/ctd.report/internal/profile"
)

// AssetsHost overrides where the HTML page loads echarts from. Empty uses
// the go-echarts default CDN.
var AssetsHost = ""

// PNG size.
const (
	PNGWidth  = 6 * vg.Inch
	PNGHeight = 8 * vg.Inch
)

// ErrNoData is returned when an outcome has nothing to plot.
var ErrNoData = errors.New("outcome has no plottable samples")

type series struct {
	name   string
	values []float64
	color  color.RGBA
}

func temperatureSeries(o *pipeline.Outcome) []series {
	out := []series{
		{"TEMP", o.Profile.Temperature, color.RGBA{R: 31, G: 119, B: 180, A: 255}},
	}
	if o.Profile.InternalTemperature != nil {
		out = append(out, series{"TEMP_CNDC", o.Profile.InternalTemperature, color.RGBA{R: 255, G: 127, B: 14, A: 255}})
	}
	out = append(out, series{"TEMPcell", o.TemperatureCell, color.RGBA{R: 44, G: 160, B: 44, A: 255}})
	return out
}

func anomalySeries(o *pipeline.Outcome) []series {
	return []series{
		{"Tshort", o.ShortTerm, color.RGBA{R: 214, G: 39, B: 40, A: 255}},
		{"Tlong", o.LongTerm, color.RGBA{R: 148, G: 103, B: 189, A: 255}},
	}
}

func subtitle(o *pipeline.Outcome) string {
	p := o.Profile
	s := fmt.Sprintf("id=%s samples=%d", p.ID, p.Len())
	if p.Platform != "" {
		s = fmt.Sprintf("platform=%s cycle=%d %s", p.Platform, p.Cycle, s)
	}
	return s
}

// scatterPoints pairs pressure with values, skipping missing samples.
func scatterPoints(pres, values []float64) []opts.ScatterData {
	pts := make([]opts.ScatterData, 0, len(values))
	for i, v := range values {
		if i >= len(pres) || profile.IsMissing(v) || profile.IsMissing(pres[i]) {
			continue
		}
		pts = append(pts, opts.ScatterData{Value: []interface{}{pres[i], v}})
	}
	return pts
}

func newScatter(title, sub, yName string) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: sub}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Pressure (dbar)", NameLocation: "middle", NameGap: 25, Min: "dataMin", Max: "dataMax"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: yName, NameLocation: "middle", NameGap: 45, Min: "dataMin", Max: "dataMax"}),
	)
	return scatter
}

// WriteHTML renders temperature, anomaly and profiling-speed charts of o
// against pressure as one HTML page.
func WriteHTML(w io.Writer, o *pipeline.Outcome) error {
	if o == nil || o.Profile == nil || o.Profile.Len() == 0 {
		return ErrNoData
	}
	pres := o.Profile.Pressure
	sub := subtitle(o)

	temps := newScatter("Temperature", sub, "°C")
	for _, s := range temperatureSeries(o) {
		temps.AddSeries(s.name, scatterPoints(pres, s.values), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	}

	anomalies := newScatter("Thermal-mass anomalies", sub, "°C")
	for _, s := range anomalySeries(o) {
		anomalies.AddSeries(s.name, scatterPoints(pres, s.values), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	}

	speed := newScatter("Profiling speed", sub, "Vp (cm/s)")
	speed.AddSeries("Vp", scatterPoints(pres, o.ProfilingSpeed), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	page := components.NewPage()
	page.PageTitle = "CTD profile " + o.Profile.ID
	if AssetsHost != "" {
		page.SetAssetsHost(AssetsHost)
	}
	page.AddCharts(temps, anomalies, speed)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// newPlot builds the temperature-versus-pressure plot.
func newPlot(o *pipeline.Outcome) (*plot.Plot, error) {
	if o == nil || o.Profile == nil || o.Profile.Len() == 0 {
		return nil, ErrNoData
	}
	p := plot.New()
	p.Title.Text = "Cell thermal-mass correction (" + subtitle(o) + ")"
	p.X.Label.Text = "Temperature (°C)"
	p.Y.Label.Text = "-Pressure (dbar)"

	pres := o.Profile.Pressure
	added := 0
	for _, s := range temperatureSeries(o) {
		pts := make(plotter.XYs, 0, len(s.values))
		for i, v := range s.values {
			if profile.IsMissing(v) || profile.IsMissing(pres[i]) {
				continue
			}
			// Negate pressure so depth increases downward.
			pts = append(pts, plotter.XY{X: v, Y: -pres[i]})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = s.color
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.name, line)
		added++
	}
	if added == 0 {
		return nil, ErrNoData
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WritePNG saves a temperature-versus-pressure plot of o to path.
func WritePNG(path string, o *pipeline.Outcome) error {
	p, err := newPlot(o)
	if err != nil {
		return err
	}
	if err := p.Save(PNGWidth, PNGHeight, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}

// RenderPNG writes the same plot as WritePNG to w.
func RenderPNG(w io.Writer, o *pipeline.Outcome) error {
	p, err := newPlot(o)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(PNGWidth, PNGHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
