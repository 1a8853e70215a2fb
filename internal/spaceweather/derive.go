package spaceweather

import (
	"fmt"
	"math"

	"github.com/samber/lo"

	"solarscout/internal/models"
)

type bandInfo struct {
	name    string
	freqMHz float64
	desc    string
}

// HF bands from low to high.
var bands = []bandInfo{
	{"160m", 1.9, "Regional/DX at night"},
	{"80m", 3.6, "Reliable day/night"},
	{"40m", 7.1, "Most reliable"},
	{"30m", 10.1, "CW/digital DX"},
	{"20m", 14.2, "Premier DX"},
	{"17m", 18.1, "Underused gem"},
	{"15m", 21.2, "Solar-dependent"},
	{"12m", 24.9, "Solar-dependent"},
	{"10m", 28.5, "Magic band"},
	{"6m", 50.1, "VHF magic"},
}

// Derive fills the computed propagation fields of a snapshot from the
// fetched indices. Safe to call with partially populated snapshots.
func Derive(snap *models.Snapshot) {
	if snap.HasKIndex {
		snap.AIndex = int(snap.KIndex * snap.KIndex * 3.3)
	}
	if !snap.HasSolarFlux {
		return
	}

	utcHour := snap.Timestamp.UTC().Hour()
	k := 2.0
	if snap.HasKIndex {
		k = snap.KIndex
	}

	snap.FoF2 = math.Round(EstimateFoF2(snap.SolarFlux)*10) / 10
	factor, desc := DLayerAbsorption(utcHour, snap.SolarFlux, k)
	snap.AbsorptionFactor = factor
	snap.AbsorptionDesc = desc
	// Simplified MUF for a long (~3000 km) path.
	snap.MUF = math.Round(snap.FoF2*4.0*10) / 10
	snap.Propagation = PropagationAssessment(snap.SolarFlux, k)
	snap.Bands = BandConditions(snap.FoF2, snap.MUF, factor, k, utcHour)
	snap.BestBandsNow = BestBandsNow(utcHour, snap.FoF2)
}

// EstimateFoF2 estimates the ionospheric critical frequency in MHz from
// the solar flux index. Empirical: roughly 4-5 MHz at solar minimum
// (SFI~70) up to 10-12 MHz at solar maximum (SFI~200+).
func EstimateFoF2(sfi float64) float64 {
	const baseFoF2 = 7.0
	return baseFoF2 * math.Sqrt(math.Max(sfi, 50)/100.0)
}

// DLayerAbsorption predicts D-layer absorption for the given UTC hour.
// Absorption peaks at solar noon and nearly vanishes at night; high SFI
// and geomagnetic storms push it up. The factor is 0 (none) to 1 (total).
func DLayerAbsorption(utcHour int, solarFlux, kIndex float64) (float64, string) {
	hourAngle := math.Abs(float64(utcHour) - 12)

	var base float64
	var timeDesc string
	if hourAngle > 6 {
		base = 0.05
		timeDesc = "Night"
	} else {
		base = 0.3 + 0.4*(1.0-hourAngle/6.0)
		timeDesc = "Day"
	}

	base *= math.Min(solarFlux/150.0, 2.0)
	if kIndex >= 5 {
		base += 0.2
	}
	absorption := math.Min(base, 1.0)

	var desc string
	switch {
	case absorption < 0.2:
		desc = fmt.Sprintf("🟢 Low (%s)", timeDesc)
	case absorption < 0.4:
		desc = fmt.Sprintf("🟡 Moderate (%s)", timeDesc)
	case absorption < 0.6:
		desc = fmt.Sprintf("🟠 High (%s)", timeDesc)
	default:
		desc = fmt.Sprintf("🔴 Very High (%s)", timeDesc)
	}
	return absorption, desc
}

// BandConditions rates each HF band for the current conditions.
func BandConditions(fof2, muf, absorption, kIndex float64, utcHour int) []models.BandCondition {
	isNight := utcHour < 6 || utcHour > 18

	return lo.Map(bands, func(b bandInfo, _ int) models.BandCondition {
		cond := models.BandCondition{Band: b.name, FreqMHz: b.freqMHz, Desc: b.desc}

		rate := func(emoji, quality string) models.BandCondition {
			cond.Emoji = emoji
			cond.Quality = quality
			return cond
		}

		switch {
		case b.freqMHz > muf:
			return rate("🔴", "Closed")
		case b.freqMHz > fof2*2.5:
			return rate("🟡", "Fair")
		case b.name == "160m" || b.name == "80m":
			if isNight {
				return rate("🟢", "Good")
			}
			return rate("🟡", "Fair")
		case b.name == "15m" || b.name == "12m" || b.name == "10m" || b.name == "6m":
			if fof2 > 7.0 && kIndex < 4 {
				return rate("🟢", "Good")
			}
			if fof2 > 5.0 {
				return rate("🟡", "Fair")
			}
			return rate("🔴", "Poor")
		default:
			// Mid bands (40m..17m) are generally dependable.
			if kIndex < 4 && absorption < 0.5 {
				return rate("🟢", "Good")
			}
			return rate("🟡", "Fair")
		}
	})
}

// BestBandsNow recommends bands for the current UTC hour.
func BestBandsNow(utcHour int, fof2 float64) string {
	isDay := utcHour >= 6 && utcHour <= 18
	if isDay {
		switch {
		case fof2 > 8.0:
			return "20m, 17m, 15m, 12m"
		case fof2 > 6.0:
			return "40m, 30m, 20m, 17m"
		default:
			return "40m, 30m, 20m"
		}
	}
	if fof2 > 7.0 {
		return "80m, 40m, 30m, 20m"
	}
	return "80m, 40m, 30m"
}

// PropagationAssessment grades overall HF conditions.
func PropagationAssessment(sfi, kIndex float64) string {
	switch {
	case sfi > 150 && kIndex < 3:
		return "🟢 Excellent"
	case sfi > 120 && kIndex < 4:
		return "🟢 Good"
	case sfi > 90 && kIndex < 5:
		return "🟡 Fair"
	case sfi > 70:
		return "🟠 Poor"
	default:
		return "🔴 Very Poor"
	}
}

// ClassifyXRay converts a GOES X-ray flux reading (W/m²) into the
// conventional A/B/C/M/X flare class string.
func ClassifyXRay(flux float64) string {
	switch {
	case flux >= 1e-4:
		return fmt.Sprintf("X%.1f", flux/1e-4)
	case flux >= 1e-5:
		return fmt.Sprintf("M%.1f", flux/1e-5)
	case flux >= 1e-6:
		return fmt.Sprintf("C%.1f", flux/1e-6)
	case flux >= 1e-7:
		return fmt.Sprintf("B%.1f", flux/1e-7)
	default:
		return fmt.Sprintf("A%.1f", flux/1e-8)
	}
}
