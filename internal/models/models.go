package models

import (
	"time"
)

// PlatformKind identifies a supported social platform.
type PlatformKind string

const (
	PlatformBluesky  PlatformKind = "bluesky"
	PlatformMastodon PlatformKind = "mastodon"
)

// Character budgets per platform. The formatter must stay within these;
// the publisher re-checks them before any network call.
const (
	BlueskyCharLimit  = 300
	MastodonCharLimit = 500
)

// CharLimit returns the per-post character budget for the platform.
func (k PlatformKind) CharLimit() int {
	if k == PlatformMastodon {
		return MastodonCharLimit
	}
	return BlueskyCharLimit
}

// Credentials holds the secrets needed to open a session on a platform.
// Bluesky uses Identifier+AppPassword, Mastodon uses Server+AccessToken.
type Credentials struct {
	Identifier  string // Bluesky handle or email
	AppPassword string // Bluesky app password
	Server      string // Mastodon instance base URL
	AccessToken string // Mastodon access token
}

// PlatformTarget is one configured destination for a thread.
// Loaded once at startup and read-only for the lifetime of a run.
type PlatformTarget struct {
	Kind        PlatformKind
	Enabled     bool
	Credentials Credentials
	CharLimit   int
}

// Image is a raster attachment ready for upload.
type Image struct {
	Data        []byte
	ContentType string
	AltText     string
}

// PostUnit is one unit of a thread: an ordered text body with an
// optional image. Index is 1-based and contiguous within a thread.
type PostUnit struct {
	Index int
	Text  string
	Image *Image
}

// BandCondition describes the state of one HF band.
type BandCondition struct {
	Band    string // "20m"
	FreqMHz float64
	Emoji   string
	Quality string // "Good", "Fair", "Poor", "Closed"
	Desc    string
}

// Snapshot is an immutable record of space-weather metrics for one run.
// Fields that could not be fetched are left at their zero value with the
// matching Has* flag false.
type Snapshot struct {
	Timestamp time.Time

	SolarFlux    float64
	HasSolarFlux bool
	KIndex       float64
	HasKIndex    bool
	AIndex       int

	FoF2             float64 // estimated critical frequency, MHz
	MUF              float64 // maximum usable frequency for DX paths, MHz
	AbsorptionFactor float64 // 0..1
	AbsorptionDesc   string  // "🟢 Low (Night)" etc.

	RScale string // NOAA radio blackout scale, "0".."5"
	SScale string
	GScale string

	XRayClass    string // "C2.1", "M5.0", ...
	XRayFlux     float64
	HasXRay      bool
	AuroraPower  float64 // hemispheric power, GW
	HasAurora    bool
	Propagation  string // overall assessment, e.g. "🟢 Good"
	BestBandsNow string

	Bands []BandCondition

	// Image payloads gathered alongside the metrics. Nil when the
	// download or rendering failed; the matching post goes out bare.
	DRAPImage   *Image
	AuroraImage *Image
	XRayChart   *Image
}

// ErrorKind classifies a publish failure.
type ErrorKind string

const (
	ErrKindNone        ErrorKind = ""
	ErrAuthFailed      ErrorKind = "AuthenticationFailed"
	ErrImageDegraded   ErrorKind = "ImageUploadDegraded"
	ErrPublishFailed   ErrorKind = "PublishFailed"
	ErrChainBroken     ErrorKind = "ChainBroken"
	ErrPayloadTooLarge ErrorKind = "PayloadTooLarge"
	ErrTimeout         ErrorKind = "Timeout"
)

// PublishResult is the outcome of publishing one PostUnit to one target.
type PublishResult struct {
	Unit     int       `json:"unit"`
	Success  bool      `json:"success"`
	RemoteID string    `json:"remote_id,omitempty"`
	Kind     ErrorKind `json:"error_kind,omitempty"`
	Message  string    `json:"message,omitempty"`
	// Degraded marks a successful text post whose image upload failed.
	Degraded bool `json:"degraded,omitempty"`
}

// BranchReport collects the results for one platform target.
type BranchReport struct {
	Platform PlatformKind    `json:"platform"`
	Results  []PublishResult `json:"results"`
}

// Succeeded reports whether every unit in the branch was published.
func (b BranchReport) Succeeded() bool {
	for _, r := range b.Results {
		if !r.Success {
			return false
		}
	}
	return len(b.Results) > 0
}

// FailedEntirely reports whether no unit in the branch was published.
func (b BranchReport) FailedEntirely() bool {
	for _, r := range b.Results {
		if r.Success {
			return false
		}
	}
	return true
}

// RunStatus is the aggregate outcome of one publish run.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
	RunEmpty   RunStatus = "empty" // no enabled targets
)

// RunReport is the terminal artifact of one publish run.
type RunReport struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Branches   []BranchReport `json:"branches"`
}

// Status derives the aggregate outcome. The run counts as failed only
// when every enabled branch failed entirely.
func (r RunReport) Status() RunStatus {
	if len(r.Branches) == 0 {
		return RunEmpty
	}
	allOK := true
	allFailed := true
	for _, b := range r.Branches {
		if b.Succeeded() {
			allFailed = false
		} else {
			allOK = false
			if !b.FailedEntirely() {
				allFailed = false
			}
		}
	}
	switch {
	case allOK:
		return RunSuccess
	case allFailed:
		return RunFailed
	default:
		return RunPartial
	}
}
