package spaceweather_test

import (
	"math"
	"strings"
	"testing"
	"time"

	"solarscout/internal/models"
	"solarscout/internal/spaceweather"
)

func TestClassifyXRay(t *testing.T) {
	t.Parallel()

	cases := []struct {
		flux float64
		want string
	}{
		{2.5e-4, "X2.5"},
		{1.0e-4, "X1.0"},
		{5.0e-5, "M5.0"},
		{2.1e-6, "C2.1"},
		{3.0e-7, "B3.0"},
		{4.0e-8, "A4.0"},
	}
	for _, tc := range cases {
		if got := spaceweather.ClassifyXRay(tc.flux); got != tc.want {
			t.Errorf("ClassifyXRay(%g) = %s, want %s", tc.flux, got, tc.want)
		}
	}
}

func TestEstimateFoF2(t *testing.T) {
	t.Parallel()

	// SFI 100 is the reference point of the empirical curve.
	if got := spaceweather.EstimateFoF2(100); math.Abs(got-7.0) > 1e-9 {
		t.Errorf("EstimateFoF2(100) = %f, want 7.0", got)
	}
	// Readings below 50 are clamped.
	if spaceweather.EstimateFoF2(10) != spaceweather.EstimateFoF2(50) {
		t.Errorf("EstimateFoF2 should clamp SFI below 50")
	}
	if lo, hi := spaceweather.EstimateFoF2(70), spaceweather.EstimateFoF2(200); lo >= hi {
		t.Errorf("EstimateFoF2 not monotonic: f(70)=%f >= f(200)=%f", lo, hi)
	}
}

func TestDLayerAbsorption(t *testing.T) {
	t.Parallel()

	t.Run("night is low", func(t *testing.T) {
		t.Parallel()
		factor, desc := spaceweather.DLayerAbsorption(3, 150, 2)
		if factor >= 0.2 {
			t.Errorf("night absorption = %f, want < 0.2", factor)
		}
		if !strings.Contains(desc, "Night") {
			t.Errorf("desc = %q, want night marker", desc)
		}
	})

	t.Run("noon peaks", func(t *testing.T) {
		t.Parallel()
		noon, _ := spaceweather.DLayerAbsorption(12, 150, 2)
		morning, _ := spaceweather.DLayerAbsorption(8, 150, 2)
		if noon <= morning {
			t.Errorf("noon=%f <= morning=%f, absorption should peak at solar noon", noon, morning)
		}
	})

	t.Run("storm adds absorption", func(t *testing.T) {
		t.Parallel()
		quiet, _ := spaceweather.DLayerAbsorption(12, 150, 2)
		storm, _ := spaceweather.DLayerAbsorption(12, 150, 6)
		if storm <= quiet {
			t.Errorf("storm=%f <= quiet=%f, K>=5 should add absorption", storm, quiet)
		}
	})

	t.Run("capped at one", func(t *testing.T) {
		t.Parallel()
		factor, _ := spaceweather.DLayerAbsorption(12, 400, 9)
		if factor > 1.0 {
			t.Errorf("absorption = %f, want <= 1.0", factor)
		}
	})
}

func TestBandConditions(t *testing.T) {
	t.Parallel()

	byName := func(t *testing.T, conds []models.BandCondition, name string) models.BandCondition {
		t.Helper()
		for _, c := range conds {
			if c.Band == name {
				return c
			}
		}
		t.Fatalf("band %s missing", name)
		return models.BandCondition{}
	}

	t.Run("solar maximum daytime", func(t *testing.T) {
		t.Parallel()
		conds := spaceweather.BandConditions(9.0, 36.0, 0.4, 2, 12)
		if len(conds) != 10 {
			t.Fatalf("got %d bands, want 10", len(conds))
		}
		if c := byName(t, conds, "15m"); c.Quality != "Good" {
			t.Errorf("15m = %s, want Good with high foF2 and quiet K", c.Quality)
		}
		// 28.5 MHz sits well above 2.5x foF2, so 10m is marginal even
		// when open.
		if c := byName(t, conds, "10m"); c.Quality != "Fair" {
			t.Errorf("10m = %s, want Fair", c.Quality)
		}
		if c := byName(t, conds, "6m"); c.Quality != "Closed" {
			t.Errorf("6m = %s, want Closed above MUF 36", c.Quality)
		}
		if c := byName(t, conds, "80m"); c.Quality != "Fair" {
			t.Errorf("80m daytime = %s, want Fair", c.Quality)
		}
	})

	t.Run("solar minimum closes high bands", func(t *testing.T) {
		t.Parallel()
		conds := spaceweather.BandConditions(5.0, 20.0, 0.1, 2, 2)
		if c := byName(t, conds, "6m"); c.Quality != "Closed" {
			t.Errorf("6m = %s, want Closed above MUF", c.Quality)
		}
		if c := byName(t, conds, "80m"); c.Quality != "Good" {
			t.Errorf("80m at night = %s, want Good", c.Quality)
		}
	})
}

func TestBestBandsNow(t *testing.T) {
	t.Parallel()

	if got := spaceweather.BestBandsNow(12, 9.0); got != "20m, 17m, 15m, 12m" {
		t.Errorf("day high foF2 = %q", got)
	}
	if got := spaceweather.BestBandsNow(2, 5.0); got != "80m, 40m, 30m" {
		t.Errorf("night low foF2 = %q", got)
	}
}

func TestPropagationAssessment(t *testing.T) {
	t.Parallel()

	cases := []struct {
		sfi, k float64
		want   string
	}{
		{180, 1, "🟢 Excellent"},
		{130, 3, "🟢 Good"},
		{100, 4, "🟡 Fair"},
		{80, 6, "🟠 Poor"},
		{65, 7, "🔴 Very Poor"},
	}
	for _, tc := range cases {
		if got := spaceweather.PropagationAssessment(tc.sfi, tc.k); got != tc.want {
			t.Errorf("PropagationAssessment(%g, %g) = %s, want %s", tc.sfi, tc.k, got, tc.want)
		}
	}
}

func TestDerive(t *testing.T) {
	t.Parallel()

	snap := &models.Snapshot{
		Timestamp:    time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		SolarFlux:    142,
		HasSolarFlux: true,
		KIndex:       3,
		HasKIndex:    true,
	}
	spaceweather.Derive(snap)

	// K=3 gives A = 3*3*3.3 = 29.7, truncated.
	if snap.AIndex != 29 {
		t.Errorf("AIndex = %d, want 29", snap.AIndex)
	}
	if snap.FoF2 <= 0 || snap.MUF != math.Round(snap.FoF2*4.0*10)/10 {
		t.Errorf("FoF2=%f MUF=%f, want MUF = 4*foF2", snap.FoF2, snap.MUF)
	}
	if len(snap.Bands) != 10 {
		t.Errorf("got %d bands, want 10", len(snap.Bands))
	}
	if snap.Propagation == "" || snap.BestBandsNow == "" || snap.AbsorptionDesc == "" {
		t.Errorf("derived summary fields incomplete: %+v", snap)
	}
}

func TestDerive_PartialSnapshot(t *testing.T) {
	t.Parallel()

	snap := &models.Snapshot{Timestamp: time.Now().UTC()}
	spaceweather.Derive(snap)

	if snap.FoF2 != 0 || len(snap.Bands) != 0 {
		t.Errorf("derive without solar flux filled fields: %+v", snap)
	}
}
