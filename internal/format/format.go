// Package format turns a space-weather snapshot into an ordered thread of
// posts that fit a platform's character budget.
package format

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"solarscout/internal/models"
)

const hashtags = "#SolarScout #HamRadio"

// Thread formats a snapshot into the five-post thread:
//
//	1. Solar indices + NOAA scales
//	2. Band conditions + best bands now
//	3. D-region absorption (D-RAP map attached)
//	4. Aurora forecast (ovation image attached)
//	5. GOES X-ray flux (rendered chart attached)
//
// Every post is guaranteed to fit within limit; a post that does not fit
// is a formatting bug and returns an error rather than a truncated body.
func Thread(snap *models.Snapshot, limit int, includeHashtags bool) ([]models.PostUnit, error) {
	f := formatter{snap: snap, limit: limit, includeHashtags: includeHashtags}

	sections := []struct {
		text  string
		image *models.Image
	}{
		{f.solarIndices(), nil},
		{f.bandConditions(), nil},
		{f.absorption(), snap.DRAPImage},
		{f.aurora(), snap.AuroraImage},
		{f.xray(), snap.XRayChart},
	}

	units := make([]models.PostUnit, 0, len(sections))
	for i, s := range sections {
		if n := utf8.RuneCountInString(s.text); n > limit {
			return nil, fmt.Errorf("post %d exceeds %d char limit: %d chars", i+1, limit, n)
		}
		units = append(units, models.PostUnit{Index: i + 1, Text: s.text, Image: s.image})
	}
	return units, nil
}

type formatter struct {
	snap            *models.Snapshot
	limit           int
	includeHashtags bool
}

// condensed reports whether the tight Bluesky budget applies.
func (f formatter) condensed() bool {
	return f.limit <= models.BlueskyCharLimit
}

func (f formatter) tags() string {
	if !f.includeHashtags {
		return ""
	}
	return "\n\n" + hashtags
}

func (f formatter) solarIndices() string {
	s := f.snap
	absPct := "N/A"
	if s.HasSolarFlux {
		absPct = fmt.Sprintf("%d%%", int(s.AbsorptionFactor*100))
	}

	return fmt.Sprintf(`☀️ SOLAR INDICES (1/5)

SFI: %s
A-index: %s
K-index: %s
foF2: %s MHz
MUF (DX): %s MHz
D-Layer: %s

📊 NOAA Scales
📻R%s Radio Blackout
☢️S%s Radiation Storm
🧲G%s Geomagnetic Storm`+f.tags(),
		orNA(s.HasSolarFlux, fmt.Sprintf("%.0f", s.SolarFlux)),
		orNA(s.HasKIndex, fmt.Sprintf("%d", s.AIndex)),
		orNA(s.HasKIndex, fmt.Sprintf("%.0f", s.KIndex)),
		orNA(s.HasSolarFlux, fmt.Sprintf("%.1f", s.FoF2)),
		orNA(s.HasSolarFlux, fmt.Sprintf("%.1f", s.MUF)),
		absPct,
		naIfEmpty(s.RScale), naIfEmpty(s.SScale), naIfEmpty(s.GScale))
}

func (f formatter) bandConditions() string {
	s := f.snap
	lines := make([]string, 0, len(s.Bands))
	for _, b := range s.Bands {
		lines = append(lines, fmt.Sprintf("%s: %s %s", b.Band, b.Emoji, b.Quality))
	}
	bandsText := "No band data"
	if len(lines) > 0 {
		bandsText = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(`📻 BAND CONDITIONS (2/5)

%s

🎯 Best Now: %s

Based on MUF=%sMHz`+f.tags(),
		bandsText,
		naIfEmpty(s.BestBandsNow),
		orNA(s.HasSolarFlux, fmt.Sprintf("%.1f", s.MUF)))
}

func (f formatter) absorption() string {
	s := f.snap
	now := s.Timestamp.UTC()

	var timeNote string
	switch hour := now.Hour(); {
	case hour >= 10 && hour <= 16:
		timeNote = "Peak daytime"
	case hour < 6 || hour > 20:
		timeNote = "Low nighttime"
	default:
		timeNote = "Transitional"
	}

	bandRec := "All bands good"
	switch {
	case strings.Contains(s.AbsorptionDesc, "High"):
		bandRec = "Try 80m/40m"
	case strings.Contains(s.AbsorptionDesc, "Moderate"):
		bandRec = "Mid bands OK"
	}

	helper := "Real-time HF absorption from solar X-rays\n🔴Red=High (HF challenging) 🟡Yellow=Moderate 🟢Green/Blue=Low (HF good)\nHigher absorption = lower frequencies work better"
	if f.condensed() {
		helper = "🔴High=HF bad 🟡Med 🟢Low=HF good\nTry 40m/80m high absorption"
	}

	return fmt.Sprintf(`📡 D-REGION ABSORPTION (3/5)
%s

⏰ %s - %sZ
💡 %s

%s`+f.tags(),
		naIfEmpty(s.AbsorptionDesc), timeNote, now.Format("15:04"), bandRec, helper)
}

func (f formatter) aurora() string {
	s := f.snap

	auroraDesc, visibility, radio := "N/A", "Data N/A", ""
	if s.HasAurora && s.HasKIndex {
		switch {
		case s.KIndex >= 7 || s.AuroraPower >= 100:
			auroraDesc, visibility, radio = "🔴 STRONG", "Mid-lat visible", "VHF aurora scatter!"
		case s.KIndex >= 5 || s.AuroraPower >= 50:
			auroraDesc, visibility, radio = "🟡 MODERATE", "High-lat good", "2m/6m auroral-E"
		case s.KIndex >= 4 || s.AuroraPower >= 20:
			auroraDesc, visibility, radio = "🟢 MINOR", "Polar regions", "VHF enhanced"
		default:
			auroraDesc, visibility, radio = "⚪ QUIET", "Minimal", "Normal VHF"
		}
	}

	powerStr := "N/A"
	if s.HasAurora {
		powerStr = fmt.Sprintf("%.0f GW", s.AuroraPower)
	}

	helper := "🟢Green=2m/6m scatter possible 🟡Yellow=Enhanced 🔴Red=Intense aurora\nPoint antennas north, use SSB/CW modes. Best during K≥4 activity."
	if f.condensed() {
		helper = "🟢2m/6m scatter 🟡Enhanced 🔴Intense\nPoint N, SSB/CW, K≥4 best"
	}

	return fmt.Sprintf(`🌌 AURORA FORECAST (4/5)
%s

Power: %s
K-index: %s
%s

📻 %s

%s`+f.tags(),
		auroraDesc, powerStr,
		orNA(s.HasKIndex, fmt.Sprintf("%.0f", s.KIndex)),
		visibility, radio, helper)
}

func (f formatter) xray() string {
	s := f.snap

	impact, advice := "Data N/A", ""
	if s.HasXRay && s.XRayClass != "" {
		switch s.XRayClass[0] {
		case 'X':
			impact, advice = "🔴 MAJOR FLARE", "HF blackouts likely!"
		case 'M':
			impact, advice = "🟡 MEDIUM FLARE", "Minor HF disruption"
		case 'C':
			impact, advice = "🟢 SMALL FLARE", "Minimal impact"
		default:
			impact, advice = "⚪ QUIET", "Background levels"
		}
	}

	helper := "Flare Classes: X=Major (HF blackouts) M=Medium (regional HF degradation) C=Minor (slight absorption) B=Weak (normal)\nRed line=0.1-0.8nm Cyan=0.05-0.4nm. Spikes=flares causing radio blackouts."
	if f.condensed() {
		helper = "X=Major/HF blackout M=Med/regional C=Minor B=Weak\nRed=long λ Cyan=short λ"
	}

	return fmt.Sprintf(`☀️ X-RAY FLUX (5/5)
Past 6hr

Current: %s
%s

%s

%s

NOAA SWPC %sZ`+f.tags(),
		orNA(s.HasXRay, s.XRayClass), impact, advice, helper,
		s.Timestamp.UTC().Format("15:04"))
}

func orNA(ok bool, value string) string {
	if !ok {
		return "N/A"
	}
	return value
}

func naIfEmpty(value string) string {
	if value == "" {
		return "N/A"
	}
	return value
}

// Stats describes the fit of a formatted thread, used for logging.
type Stats struct {
	Count   int
	Longest int
	Limit   int
}

// ThreadStats inspects a formatted thread.
func ThreadStats(units []models.PostUnit, limit int) Stats {
	st := Stats{Count: len(units), Limit: limit}
	for _, u := range units {
		if n := utf8.RuneCountInString(u.Text); n > st.Longest {
			st.Longest = n
		}
	}
	return st
}
