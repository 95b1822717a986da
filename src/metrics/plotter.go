package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"autonomity/src/datamodels"
	"autonomity/src/utils/errors"
)

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 8 * vg.Inch
)

// MetricPlotter renders per-agent equity curves and the replayed price to a
// PNG. It doubles as a MetricsWriter that collects portfolio metrics.
type MetricPlotter struct {
	metrics  []datamodels.Metric
	filename string
	title    string
	mutex    sync.RWMutex
}

func NewMetricPlotter() *MetricPlotter {
	return &MetricPlotter{title: "Portfolio value by agent"}
}

func (pb *MetricPlotter) WithMetrics(metrics []datamodels.Metric) *MetricPlotter {
	pb.UpdateMetrics(metrics)
	return pb
}

func (pb *MetricPlotter) WithFileOutput(filename string) *MetricPlotter {
	pb.filename = filename
	return pb
}

func (pb *MetricPlotter) WithTitle(title string) *MetricPlotter {
	pb.title = title
	return pb
}

func (pb *MetricPlotter) Build() (*MetricPlotter, error) {
	if pb.filename == "" {
		return nil, errors.New("plot filename is not set")
	}
	return pb, nil
}

func (pb *MetricPlotter) UpdateMetrics(metrics []datamodels.Metric) {
	pb.mutex.Lock()
	defer pb.mutex.Unlock()
	pb.metrics = append([]datamodels.Metric{}, metrics...)
}

// Write keeps portfolio value metrics and ignores everything else.
func (pb *MetricPlotter) Write(ctx context.Context, metric datamodels.Metric) error {
	if metric.MetricName != datamodels.MetricNamePortfolioValue {
		return nil
	}
	pb.mutex.Lock()
	defer pb.mutex.Unlock()
	pb.metrics = append(pb.metrics, metric)
	return nil
}

func (pb *MetricPlotter) Close() error {
	return nil
}

func (pb *MetricPlotter) getMetrics() []datamodels.Metric {
	pb.mutex.RLock()
	defer pb.mutex.RUnlock()
	metricsCopy := make([]datamodels.Metric, len(pb.metrics))
	copy(metricsCopy, pb.metrics)
	return metricsCopy
}

// Plot writes the PNG to the configured filename.
func (pb *MetricPlotter) Plot() error {
	series, err := decodePortfolioSeries(pb.getMetrics())
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return errors.New("no portfolio metrics to plot")
	}

	valuePlot, err := plotEquityCurves(pb.title, series)
	if err != nil {
		return err
	}
	pricePlot, err := plotPrice(series)
	if err != nil {
		return err
	}

	img := vgimg.New(plotWidth, plotHeight)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Points(10),
		PadBottom: vg.Points(10),
		PadLeft:   vg.Points(10),
		PadRight:  vg.Points(10),
	}
	plotGrid := [][]*plot.Plot{{valuePlot}, {pricePlot}}
	canvases := plot.Align(plotGrid, tiles, dc)
	valuePlot.Draw(canvases[0][0])
	pricePlot.Draw(canvases[1][0])

	if err := os.MkdirAll(filepath.Dir(pb.filename), 0755); err != nil {
		return errors.Wrapf(err, "cannot create plot directory")
	}
	f, err := os.Create(pb.filename)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", pb.filename)
	}
	defer f.Close()
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		return errors.Wrapf(err, "cannot write %s", pb.filename)
	}
	slog.Info("MetricPlotter saved plot", "filename", pb.filename, "agents", len(series))
	return nil
}

// decodePortfolioSeries groups metrics by agent, ordered by step.
func decodePortfolioSeries(metrics []datamodels.Metric) (map[string][]datamodels.PortfolioStepMetrics, error) {
	series := map[string][]datamodels.PortfolioStepMetrics{}
	for _, metric := range metrics {
		if metric.MetricName != datamodels.MetricNamePortfolioValue {
			continue
		}
		var m datamodels.PortfolioStepMetrics
		if err := json.Unmarshal(metric.MetricValue, &m); err != nil {
			return nil, errors.Wrapf(err, "cannot decode portfolio metric")
		}
		series[m.AgentName] = append(series[m.AgentName], m)
	}
	for name := range series {
		sort.SliceStable(series[name], func(i, j int) bool {
			return series[name][i].Step < series[name][j].Step
		})
	}
	return series, nil
}

func sortedAgents(series map[string][]datamodels.PortfolioStepMetrics) []string {
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func plotEquityCurves(title string, series map[string][]datamodels.PortfolioStepMetrics) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Portfolio value"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = true

	for i, name := range sortedAgents(series) {
		points := series[name]
		pts := make(plotter.XYs, len(points))
		for j, m := range points {
			pts[j].X = float64(m.Step)
			pts[j].Y = m.PortfolioValue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot plot %s", name)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i / len(plotutil.DefaultColors))
		p.Add(line)
		p.Legend.Add(name, line)
	}
	return p, nil
}

func plotPrice(series map[string][]datamodels.PortfolioStepMetrics) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Price"
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Close"
	p.Add(plotter.NewGrid())

	// every agent sees the same bar, so any one series carries the prices
	points := series[sortedAgents(series)[0]]
	pts := make(plotter.XYs, len(points))
	for j, m := range points {
		pts[j].X = float64(m.Step)
		pts[j].Y = m.Price
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot plot price")
	}
	line.Color = plotutil.Color(0)
	p.Add(line)
	return p, nil
}
