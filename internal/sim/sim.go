// Package sim generates synthetic terminal telemetry: a fleet of devices
// random-walking inside a boundary polygon, feeding reports into the engine
// at a configurable rate.
package sim

import (
	"context"
	"encoding/csv"
	"math/rand"
	"os"
	"strconv"
	"time"

	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vsatlink/termtrack/internal/model"
	"github.com/vsatlink/termtrack/internal/spatial"
)

// Ingester receives generated reports.
type Ingester interface {
	Ingest(ctx context.Context, report model.Report) (*model.IngestResult, error)
}

// indiaOutline is a coarse boundary polygon for the default walk area,
// in lon/lat order.
var indiaOutline = [][2]float64{
	{75.298346, 37.109318}, {79.980722, 35.860280}, {81.582569, 30.453842}, {80.022675, 28.879888},
	{87.989875, 26.458814}, {88.124059, 27.950510}, {88.845300, 27.980139}, {89.013031, 26.983175},
	{91.981861, 26.953277}, {91.981861, 27.817079}, {96.024167, 29.378043}, {97.366011, 28.246433},
	{97.097642, 27.162397}, {92.615252, 21.353003}, {91.393220, 23.165416}, {92.454443, 24.904206},
	{89.692141, 26.171505}, {88.381217, 26.563018}, {89.036679, 21.853482}, {77.765732, 8.224025},
	{67.931950, 23.683655}, {69.597233, 27.259897}, {72.497122, 35.938934}, {74.621793, 37.115564},
	{75.298346, 37.109318},
}

// seedCoordinates are the fleet's starting positions (lat, lon), spread across
// the default walk area.
var seedCoordinates = [][2]float64{
	{20.5937, 78.9629}, {11.059821, 78.387451}, {17.12318, 79.208824},
	{29.065773, 76.040497}, {27.391277, 73.432617}, {15.317277, 75.713890},
	{22.309425, 72.136230}, {25.096073, 85.313118}, {21.251385, 81.629641},
	{26.8467088, 80.9461592},
}

const (
	deviceIDPrefix = "1712328952086-29105A"
	saiStart       = 198086
)

// Options configures a Generator.
type Options struct {
	// Devices is the fleet size. Beyond the seed list, extra devices start
	// from recycled seeds.
	Devices int
	// RatePerSec is the total report rate across the fleet.
	RatePerSec float64
	// StepDeg is the maximum per-step coordinate change in degrees.
	StepDeg float64
	// Seed fixes the random source; 0 seeds from the clock.
	Seed int64
	// Boundary overrides the walk area polygon. Nil uses the default outline.
	Boundary geom.T
	// CSVPath appends generated rows to a CSV file when set.
	CSVPath string
}

// Generator drives the synthetic fleet.
type Generator struct {
	sink     Ingester
	boundary geom.T
	rng      *rand.Rand
	step     float64
	limiter  *rate.Limiter
	csvPath  string
	log      *zap.Logger

	positions []model.Point
}

// New creates a Generator. Devices <= 0 defaults to the seed list size.
func New(sink Ingester, opts Options) *Generator {
	devices := opts.Devices
	if devices <= 0 {
		devices = len(seedCoordinates)
	}
	step := opts.StepDeg
	if step <= 0 {
		step = 0.05
	}
	ratePerSec := opts.RatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 2.0
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	boundary := opts.Boundary
	if boundary == nil {
		boundary = defaultBoundary()
	}

	positions := make([]model.Point, devices)
	for i := range positions {
		s := seedCoordinates[i%len(seedCoordinates)]
		positions[i] = model.Point{Lat: s[0], Lon: s[1]}
	}

	return &Generator{
		sink:      sink,
		boundary:  boundary,
		rng:       rand.New(rand.NewSource(seed)),
		step:      step,
		limiter:   rate.NewLimiter(rate.Limit(ratePerSec), 1),
		csvPath:   opts.CSVPath,
		log:       zap.L().Named("sim"),
		positions: positions,
	}
}

func defaultBoundary() geom.T {
	flat := make([]float64, 0, len(indiaOutline)*2)
	for _, c := range indiaOutline {
		flat = append(flat, c[0], c[1])
	}
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}

// DeviceID returns the id of the i-th simulated device.
func DeviceID(i int) string {
	return deviceIDPrefix + strconv.Itoa(i)
}

// Step advances one device and returns its new position. The walk is nudged
// back toward the interior when a step would leave the boundary polygon.
func (g *Generator) Step(device int) model.Point {
	p := g.positions[device]
	lat := p.Lat + g.uniform(-g.step, g.step)
	lon := p.Lon + g.uniform(-g.step, g.step)

	if !spatial.Contains(g.boundary, lon, lat) {
		switch {
		case lat < 21:
			lat += g.uniform(0, g.step)
		case lon < 79:
			lon += g.uniform(0, g.step)
		default:
			lat -= g.uniform(0, g.step)
			lon -= g.uniform(0, g.step)
		}
	}

	next := model.Point{Lat: lat, Lon: lon}
	g.positions[device] = next
	return next
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// Run generates reports until ctx is cancelled, cycling through the fleet
// under the configured rate limit. Returns the number of reports delivered.
func (g *Generator) Run(ctx context.Context) (int, error) {
	var csvw *csv.Writer
	if g.csvPath != "" {
		f, err := os.OpenFile(g.csvPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return 0, err
		}
		defer f.Close()
		csvw = csv.NewWriter(f)
		defer csvw.Flush()
	}

	var delivered int
	for device := 0; ; device = (device + 1) % len(g.positions) {
		if err := g.limiter.Wait(ctx); err != nil {
			return delivered, nil
		}

		p := g.Step(device)
		report := model.Report{
			DeviceID:  DeviceID(device),
			SAI:       saiStart + device,
			Lat:       p.Lat,
			Lon:       p.Lon,
			Timestamp: time.Now().UTC(),
		}

		result, err := g.sink.Ingest(ctx, report)
		if err != nil {
			g.log.Warn("report rejected", zap.String("device_id", report.DeviceID), zap.Error(err))
			continue
		}
		delivered++

		if csvw != nil {
			csvw.Write([]string{
				report.Timestamp.Format(time.RFC3339),
				strconv.Itoa(report.SAI),
				report.DeviceID,
				strconv.FormatFloat(report.Lat, 'f', 5, 64),
				strconv.FormatFloat(report.Lon, 'f', 5, 64),
				result.Region.District,
				result.Region.State,
				string(result.Status),
			})
		}
	}
}
