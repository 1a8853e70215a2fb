package spaceweather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	"solarscout/internal/logging"
	"solarscout/internal/models"
)

// DefaultBaseURL is the NOAA Space Weather Prediction Center host.
const DefaultBaseURL = "https://services.swpc.noaa.gov"

// SWPC endpoint paths.
const (
	solarFluxPath = "/json/f107_cm_flux.json"
	kIndexPath    = "/json/planetary_k_index_1m.json"
	scalesPath    = "/products/noaa-scales.json"
	xray6hPath    = "/json/goes/primary/xrays-6-hour.json"
	auroraPath    = "/text/aurora-nowcast-hemi-power.txt"

	drapImagePath   = "/images/animations/d-rap/global/d-rap/latest.png"
	auroraImagePath = "/images/animations/ovation/north/latest.jpg"
)

// Client fetches space-weather telemetry from the SWPC.
type Client struct {
	http *resty.Client
}

// NewClient creates a client against the given base URL.
// An empty baseURL selects the production SWPC host.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second)
	return &Client{http: client}
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.http.Close()
}

func (c *Client) r(ctx context.Context) *resty.Request {
	return c.http.R().WithContext(ctx)
}

type fluxEntry struct {
	Flux              json.Number `json:"flux"`
	ReportingSchedule string      `json:"reporting_schedule"`
}

type kIndexEntry struct {
	KpIndex json.Number `json:"kp_index"`
}

type scaleValue struct {
	Scale *string `json:"Scale"`
}

type scaleEntry struct {
	R scaleValue `json:"R"`
	S scaleValue `json:"S"`
	G scaleValue `json:"G"`
}

// XRayPoint is one GOES X-ray flux sample.
type XRayPoint struct {
	TimeTag string  `json:"time_tag"`
	Flux    float64 `json:"flux"`
	Energy  string  `json:"energy"`
}

// FetchSnapshot gathers all telemetry and derives the propagation fields.
// Individual endpoint failures degrade the matching fields; only when no
// endpoint could be reached at all does it return an error.
func (c *Client) FetchSnapshot(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{Timestamp: time.Now().UTC()}
	fetched := 0

	if flux, err := c.fetchSolarFlux(ctx); err != nil {
		logging.Error("Error fetching solar flux: %v", err)
	} else {
		snap.SolarFlux = flux
		snap.HasSolarFlux = true
		fetched++
		logging.Info("Fetched Solar Flux: %.0f", flux)
	}

	if k, err := c.fetchKIndex(ctx); err != nil {
		logging.Error("Error fetching K-index: %v", err)
	} else {
		snap.KIndex = k
		snap.HasKIndex = true
		fetched++
		logging.Info("Fetched K-index: %.0f", k)
	}

	if r, s, g, err := c.fetchScales(ctx); err != nil {
		logging.Error("Error fetching NOAA scales: %v", err)
	} else {
		snap.RScale, snap.SScale, snap.GScale = r, s, g
		fetched++
		logging.Info("Fetched NOAA Scales - R:%s S:%s G:%s", r, s, g)
	}

	if flux, err := c.fetchLatestXRayFlux(ctx); err != nil {
		logging.Error("Error fetching X-ray data: %v", err)
	} else if flux > 0 {
		snap.XRayFlux = flux
		snap.XRayClass = ClassifyXRay(flux)
		snap.HasXRay = true
		fetched++
		logging.Info("Fetched X-ray class: %s", snap.XRayClass)
	}

	if power, err := c.fetchAuroraPower(ctx); err != nil {
		logging.Error("Error fetching aurora data: %v", err)
	} else {
		snap.AuroraPower = power
		snap.HasAurora = true
		fetched++
		logging.Info("Fetched Aurora power: %.1f", power)
	}

	if fetched == 0 {
		return nil, fmt.Errorf("no SWPC endpoint reachable")
	}

	Derive(snap)
	return snap, nil
}

// fetchSolarFlux returns the F10.7cm solar flux index, preferring the most
// recent Noon report over intermediate readings.
func (c *Client) fetchSolarFlux(ctx context.Context) (float64, error) {
	var entries []fluxEntry
	if err := c.getJSON(ctx, solarFluxPath, &entries); err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("empty flux response")
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].ReportingSchedule == "Noon" {
			return entries[i].Flux.Float64()
		}
	}
	return entries[len(entries)-1].Flux.Float64()
}

func (c *Client) fetchKIndex(ctx context.Context) (float64, error) {
	var entries []kIndexEntry
	if err := c.getJSON(ctx, kIndexPath, &entries); err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("empty k-index response")
	}
	return entries[len(entries)-1].KpIndex.Float64()
}

// fetchScales returns the current R/S/G scale levels. Entry "0" holds the
// current observation; missing scales come back as "N/A".
func (c *Client) fetchScales(ctx context.Context) (string, string, string, error) {
	var scales map[string]scaleEntry
	if err := c.getJSON(ctx, scalesPath, &scales); err != nil {
		return "", "", "", err
	}
	current, ok := scales["0"]
	if !ok {
		return "", "", "", fmt.Errorf("scales response missing current entry")
	}
	return scaleString(current.R), scaleString(current.S), scaleString(current.G), nil
}

func scaleString(v scaleValue) string {
	if v.Scale == nil || *v.Scale == "" {
		return "N/A"
	}
	return *v.Scale
}

// FetchXRaySeries returns the 6-hour GOES X-ray flux samples, both
// wavelength bands interleaved as SWPC serves them.
func (c *Client) FetchXRaySeries(ctx context.Context) ([]XRayPoint, error) {
	var points []XRayPoint
	if err := c.getJSON(ctx, xray6hPath, &points); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("empty X-ray response")
	}
	return points, nil
}

func (c *Client) fetchLatestXRayFlux(ctx context.Context) (float64, error) {
	points, err := c.FetchXRaySeries(ctx)
	if err != nil {
		return 0, err
	}
	return points[len(points)-1].Flux, nil
}

// fetchAuroraPower parses the hemispheric power text product. Data lines
// hold "observation forecast north-power south-power"; the last
// non-comment line is the freshest.
func (c *Client) fetchAuroraPower(ctx context.Context) (float64, error) {
	res, err := c.r(ctx).Get(auroraPath)
	if err != nil {
		return 0, err
	}
	if res.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("aurora fetch returned status %d", res.StatusCode())
	}
	lines := strings.Split(strings.TrimSpace(res.String()), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 3 {
			continue
		}
		power, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			continue
		}
		return power, nil
	}
	return 0, fmt.Errorf("no parsable aurora power line")
}

// DownloadDRAPImage fetches the global D-RAP absorption map.
func (c *Client) DownloadDRAPImage(ctx context.Context) (*models.Image, error) {
	return c.downloadImage(ctx, drapImagePath,
		"D-Region Absorption Prediction map showing HF radio wave absorption")
}

// DownloadAuroraImage fetches the northern-hemisphere aurora oval forecast.
func (c *Client) DownloadAuroraImage(ctx context.Context) (*models.Image, error) {
	return c.downloadImage(ctx, auroraImagePath,
		"Aurora oval forecast showing auroral activity in northern hemisphere")
}

func (c *Client) downloadImage(ctx context.Context, path, altText string) (*models.Image, error) {
	res, err := c.r(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("failed to download image %s: %w", path, err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("failed to download image %s: status code %d", path, res.StatusCode())
	}
	data := res.Bytes()
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image response for %s", path)
	}
	return &models.Image{
		Data:        data,
		ContentType: http.DetectContentType(data),
		AltText:     altText,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	res, err := c.r(ctx).SetResult(out).Get(path)
	if err != nil {
		return err
	}
	if res.StatusCode() != http.StatusOK {
		return fmt.Errorf("%s returned status %d", path, res.StatusCode())
	}
	if !res.IsSuccess() {
		return fmt.Errorf("%s request failed", path)
	}
	return nil
}
