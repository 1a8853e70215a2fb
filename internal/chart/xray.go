// Package chart renders raster charts from SWPC time-series data.
package chart

import (
	"bytes"
	"fmt"
	"image/png"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fogleman/gg"

	"solarscout/internal/logging"
	"solarscout/internal/models"
	"solarscout/internal/spaceweather"
)

const (
	chartWidth  = 900
	chartHeight = 540

	marginLeft   = 70.0
	marginRight  = 24.0
	marginTop    = 48.0
	marginBottom = 64.0

	// Log-scale flux bounds in W/m².
	fluxMin = 1e-9
	fluxMax = 1e-2
)

type sample struct {
	at    time.Time
	short float64 // 0.05-0.4 nm band
	long  float64 // 0.1-0.8 nm band
}

// RenderXRayFlux draws the 6-hour GOES X-ray flux chart from the raw SWPC
// samples and returns it as a PNG image attachment.
func RenderXRayFlux(points []spaceweather.XRayPoint) (*models.Image, error) {
	samples, err := groupByTimestamp(points)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetHexColor("#1a1a1a")
	dc.Clear()

	plotW := float64(chartWidth) - marginLeft - marginRight
	plotH := float64(chartHeight) - marginTop - marginBottom

	dc.SetHexColor("#0d0d0d")
	dc.DrawRectangle(marginLeft, marginTop, plotW, plotH)
	dc.Fill()

	start := samples[0].at
	end := samples[len(samples)-1].at
	span := end.Sub(start)
	if span <= 0 {
		return nil, fmt.Errorf("X-ray series covers no time span")
	}

	x := func(t time.Time) float64 {
		return marginLeft + plotW*t.Sub(start).Seconds()/span.Seconds()
	}
	y := func(flux float64) float64 {
		frac := (math.Log10(flux) - math.Log10(fluxMin)) /
			(math.Log10(fluxMax) - math.Log10(fluxMin))
		return marginTop + plotH*(1-frac)
	}

	drawGrid(dc, x, y, start, end)
	drawClassLines(dc, y, plotW)

	// Long wavelength (0.1-0.8 nm) in red, short (0.05-0.4 nm) in cyan.
	drawSeries(dc, samples, func(s sample) float64 { return s.long }, x, y, "#FF6B6B")
	drawSeries(dc, samples, func(s sample) float64 { return s.short }, x, y, "#4ECDC4")

	dc.SetHexColor("#FFFFFF")
	dc.DrawStringAnchored("GOES Solar X-Ray Flux (6-hour)", float64(chartWidth)/2, marginTop/2, 0.5, 0.5)
	dc.DrawStringAnchored("Time (UTC)", marginLeft+plotW/2, float64(chartHeight)-16, 0.5, 0.5)

	drawLegend(dc)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode chart PNG: %w", err)
	}
	logging.Info("Generated GOES X-ray flux chart (%d samples)", len(samples))
	return &models.Image{
		Data:        buf.Bytes(),
		ContentType: "image/png",
		AltText:     "GOES Solar X-Ray Flux chart for past 6 hours",
	}, nil
}

// groupByTimestamp merges the interleaved per-wavelength entries into one
// sample per timestamp, dropping non-positive readings.
func groupByTimestamp(points []spaceweather.XRayPoint) ([]sample, error) {
	byTime := map[time.Time]*sample{}
	for _, p := range points {
		if p.Flux <= 0 {
			continue
		}
		at, err := parseTimeTag(p.TimeTag)
		if err != nil {
			logging.Warn("Skipping X-ray entry with bad time tag %q: %v", p.TimeTag, err)
			continue
		}
		s, ok := byTime[at]
		if !ok {
			s = &sample{at: at}
			byTime[at] = s
		}
		switch {
		case strings.Contains(p.Energy, "0.05-0.4"):
			s.short = p.Flux
		case strings.Contains(p.Energy, "0.1-0.8"):
			s.long = p.Flux
		}
	}

	samples := make([]sample, 0, len(byTime))
	for _, s := range byTime {
		samples = append(samples, *s)
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].at.Before(samples[j].at) })
	if len(samples) < 2 {
		return nil, fmt.Errorf("not enough valid X-ray data points: %d", len(samples))
	}
	return samples, nil
}

func parseTimeTag(tag string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, tag); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", tag)
}

func drawGrid(dc *gg.Context, x func(time.Time) float64, y func(float64) float64, start, end time.Time) {
	dc.SetHexColor("#555555")
	dc.SetLineWidth(1)
	dc.SetDash(2, 4)

	// Horizontal decade lines with axis labels.
	for exp := -9; exp <= -2; exp++ {
		flux := math.Pow(10, float64(exp))
		yy := y(flux)
		dc.DrawLine(marginLeft, yy, float64(chartWidth)-marginRight, yy)
		dc.Stroke()
		dc.DrawStringAnchored(fmt.Sprintf("1e%d", exp), marginLeft-8, yy, 1, 0.5)
	}

	// Vertical hour lines.
	for t := start.Truncate(time.Hour).Add(time.Hour); t.Before(end); t = t.Add(time.Hour) {
		xx := x(t)
		dc.DrawLine(xx, marginTop, xx, float64(chartHeight)-marginBottom)
		dc.Stroke()
		dc.DrawStringAnchored(t.UTC().Format("15:04"), xx, float64(chartHeight)-marginBottom+14, 0.5, 0.5)
	}
	dc.SetDash()
}

// drawClassLines marks the flare-class reference levels.
func drawClassLines(dc *gg.Context, y func(float64) float64, plotW float64) {
	classes := []struct {
		flux  float64
		label string
		color string
	}{
		{1e-3, "X", "#FF3838"},
		{1e-4, "M", "#FF8C42"},
		{1e-5, "C", "#FFD93D"},
		{1e-6, "B", "#6BCF7F"},
	}
	dc.SetLineWidth(1)
	dc.SetDash(6, 4)
	for _, cl := range classes {
		yy := y(cl.flux)
		dc.SetHexColor(cl.color)
		dc.DrawLine(marginLeft, yy, marginLeft+plotW, yy)
		dc.Stroke()
		dc.DrawStringAnchored(cl.label, marginLeft+12, yy-8, 0.5, 0.5)
	}
	dc.SetDash()
}

func drawSeries(dc *gg.Context, samples []sample, value func(sample) float64, x func(time.Time) float64, y func(float64) float64, color string) {
	dc.SetHexColor(color)
	dc.SetLineWidth(2)
	started := false
	for _, s := range samples {
		v := value(s)
		if v <= 0 {
			continue
		}
		if !started {
			dc.MoveTo(x(s.at), y(v))
			started = true
			continue
		}
		dc.LineTo(x(s.at), y(v))
	}
	dc.Stroke()
}

func drawLegend(dc *gg.Context) {
	entries := []struct {
		label string
		color string
	}{
		{"0.1-0.8 nm", "#FF6B6B"},
		{"0.05-0.4 nm", "#4ECDC4"},
	}
	lx := marginLeft + 12
	ly := marginTop + 16.0
	for _, e := range entries {
		dc.SetHexColor(e.color)
		dc.DrawLine(lx, ly, lx+24, ly)
		dc.SetLineWidth(2)
		dc.Stroke()
		dc.SetHexColor("#FFFFFF")
		dc.DrawStringAnchored(e.label, lx+32, ly, 0, 0.5)
		ly += 16
	}
}
