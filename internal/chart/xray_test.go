package chart_test

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"solarscout/internal/chart"
	"solarscout/internal/spaceweather"
)

func sixHourSeries() []spaceweather.XRayPoint {
	start := time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC)
	var points []spaceweather.XRayPoint
	for i := 0; i < 360; i += 10 {
		tag := start.Add(time.Duration(i) * time.Minute).Format(time.RFC3339)
		points = append(points,
			spaceweather.XRayPoint{TimeTag: tag, Flux: 4e-7, Energy: "0.05-0.4nm"},
			spaceweather.XRayPoint{TimeTag: tag, Flux: 2.1e-6, Energy: "0.1-0.8nm"},
		)
	}
	return points
}

func TestRenderXRayFlux(t *testing.T) {
	t.Parallel()

	img, err := chart.RenderXRayFlux(sixHourSeries())
	if err != nil {
		t.Fatalf("RenderXRayFlux returned error: %v", err)
	}
	if img.ContentType != "image/png" {
		t.Errorf("content type = %q, want image/png", img.ContentType)
	}
	if img.AltText == "" {
		t.Errorf("chart has no alt text")
	}

	decoded, err := png.Decode(bytes.NewReader(img.Data))
	if err != nil {
		t.Fatalf("chart is not a valid PNG: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != 900 || bounds.Dy() != 540 {
		t.Errorf("chart is %dx%d, want 900x540", bounds.Dx(), bounds.Dy())
	}
}

func TestRenderXRayFlux_SkipsBadEntries(t *testing.T) {
	t.Parallel()

	points := sixHourSeries()
	points = append(points,
		spaceweather.XRayPoint{TimeTag: "not a time", Flux: 1e-6, Energy: "0.1-0.8nm"},
		spaceweather.XRayPoint{TimeTag: time.Now().UTC().Format(time.RFC3339), Flux: -1, Energy: "0.1-0.8nm"},
	)
	if _, err := chart.RenderXRayFlux(points); err != nil {
		t.Fatalf("RenderXRayFlux rejected series with a few bad entries: %v", err)
	}
}

func TestRenderXRayFlux_NotEnoughData(t *testing.T) {
	t.Parallel()

	cases := map[string][]spaceweather.XRayPoint{
		"empty": nil,
		"single timestamp": {
			{TimeTag: "2026-03-14T12:00:00Z", Flux: 1e-6, Energy: "0.1-0.8nm"},
			{TimeTag: "2026-03-14T12:00:00Z", Flux: 2e-7, Energy: "0.05-0.4nm"},
		},
		"all non-positive": {
			{TimeTag: "2026-03-14T12:00:00Z", Flux: 0, Energy: "0.1-0.8nm"},
			{TimeTag: "2026-03-14T12:01:00Z", Flux: -5, Energy: "0.1-0.8nm"},
		},
	}
	for name, points := range cases {
		points := points
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := chart.RenderXRayFlux(points); err == nil {
				t.Errorf("RenderXRayFlux succeeded, want error")
			}
		})
	}
}

func TestRenderXRayFlux_SecondTimeFormat(t *testing.T) {
	t.Parallel()

	points := []spaceweather.XRayPoint{
		{TimeTag: "2026-03-14 12:00:00", Flux: 1e-6, Energy: "0.1-0.8nm"},
		{TimeTag: "2026-03-14 13:00:00", Flux: 2e-6, Energy: "0.1-0.8nm"},
	}
	if _, err := chart.RenderXRayFlux(points); err != nil {
		t.Fatalf("RenderXRayFlux rejected space-separated time tags: %v", err)
	}
}
