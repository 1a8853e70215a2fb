package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"

	"solarscout/internal/chart"
	"solarscout/internal/config"
	"solarscout/internal/database"
	"solarscout/internal/format"
	"solarscout/internal/logging"
	"solarscout/internal/models"
	"solarscout/internal/publish"
	"solarscout/internal/spaceweather"
)

// ErrTooSoon is returned when a run is skipped because the previous
// successful run is still inside the minimum spacing window.
var ErrTooSoon = errors.New("previous run too recent")

// Bot ties the fetch, format and publish steps into scheduled runs.
type Bot struct {
	Config    *config.Config
	DB        *database.DB
	Weather   *spaceweather.Client
	Publisher *publish.Publisher

	cron *cron.Cron
}

// New creates a Bot instance.
func New(cfg *config.Config, db *database.DB, weather *spaceweather.Client, publisher *publish.Publisher) *Bot {
	return &Bot{
		Config:    cfg,
		DB:        db,
		Weather:   weather,
		Publisher: publisher,
	}
}

// Run starts the scheduler and blocks until the context is cancelled.
// A first cycle runs immediately; the spacing guard keeps a restart
// from double-posting.
func (b *Bot) Run(ctx context.Context) error {
	logging.Info("Starting initial posting cycle...")
	b.runScheduled(ctx)

	b.cron = cron.New()
	_, err := b.cron.AddFunc(b.Config.Schedule, func() {
		logging.Info("Starting scheduled posting cycle...")
		b.runScheduled(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid posting schedule %q: %w", b.Config.Schedule, err)
	}
	b.cron.Start()

	<-ctx.Done()
	logging.Info("Stopping scheduler due to context cancellation.")
	stopCtx := b.cron.Stop()
	<-stopCtx.Done()
	return nil
}

// runScheduled wraps RunOnce for the scheduler: a skipped or failed
// cycle is logged and the next tick tries again.
func (b *Bot) runScheduled(ctx context.Context) {
	if _, err := b.RunOnce(ctx, false); err != nil {
		if errors.Is(err, ErrTooSoon) {
			logging.Info("Skipping cycle: %v", err)
			return
		}
		logging.Error("Posting cycle failed: %v", err)
	}
}

// RunOnce performs one full posting cycle: fetch the space-weather
// snapshot, gather images, format the thread per platform budget and
// publish to every enabled target. The resulting report is recorded in
// the run journal. With force set, the spacing guard is bypassed.
func (b *Bot) RunOnce(ctx context.Context, force bool) (models.RunReport, error) {
	if !force {
		if err := b.checkSpacing(); err != nil {
			return models.RunReport{}, err
		}
	}

	fetchStart := time.Now()
	snap, err := b.Weather.FetchSnapshot(ctx)
	if err != nil {
		return models.RunReport{}, fmt.Errorf("failed to fetch space weather data: %w", err)
	}
	fetchDuration.Observe(time.Since(fetchStart).Seconds())
	logging.Info("Snapshot: SFI=%.0f K=%.1f X-ray=%s aurora=%.0fGW",
		snap.SolarFlux, snap.KIndex, snap.XRayClass, snap.AuroraPower)

	b.gatherImages(ctx, snap)

	report, err := b.publish(ctx, snap)
	if err != nil {
		return report, err
	}

	b.observe(report)
	if err := b.DB.RecordRun(report); err != nil {
		logging.Error("Failed to record run: %v", err)
	}
	return report, nil
}

// checkSpacing enforces the minimum interval between posting runs.
// Only runs that actually published something count.
func (b *Bot) checkSpacing() error {
	last, err := b.DB.LastPostedAt()
	if err != nil {
		return err
	}
	if !last.Valid {
		return nil
	}
	elapsed := time.Since(last.Time)
	if elapsed < b.Config.MinRunSpacing {
		return fmt.Errorf("%w: last post %s ago, minimum spacing %s",
			ErrTooSoon, elapsed.Round(time.Second), b.Config.MinRunSpacing)
	}
	return nil
}

// gatherImages attaches the DRAP and aurora maps plus the rendered
// X-ray chart to the snapshot. Each image is best effort: a failure is
// logged and the matching post goes out without an attachment.
func (b *Bot) gatherImages(ctx context.Context, snap *models.Snapshot) {
	if img, err := b.Weather.DownloadDRAPImage(ctx); err != nil {
		logging.Warn("Failed to download DRAP absorption map: %v", err)
	} else {
		snap.DRAPImage = img
	}

	if img, err := b.Weather.DownloadAuroraImage(ctx); err != nil {
		logging.Warn("Failed to download aurora forecast image: %v", err)
	} else {
		snap.AuroraImage = img
	}

	points, err := b.Weather.FetchXRaySeries(ctx)
	if err != nil {
		logging.Warn("Failed to fetch X-ray flux series: %v", err)
		return
	}
	img, err := chart.RenderXRayFlux(points)
	if err != nil {
		logging.Warn("Failed to render X-ray flux chart: %v", err)
		return
	}
	snap.XRayChart = img
}

// publish formats the thread once per distinct character budget among
// the enabled targets and publishes each group concurrently, merging
// the branch reports into a single run report.
func (b *Bot) publish(ctx context.Context, snap *models.Snapshot) (models.RunReport, error) {
	report := models.RunReport{StartedAt: time.Now().UTC()}

	targets := b.Config.Targets()
	enabled := lo.Filter(targets, func(t models.PlatformTarget, _ int) bool { return t.Enabled })
	if len(enabled) == 0 {
		logging.Warn("No platforms enabled, nothing to publish")
		report.FinishedAt = time.Now().UTC()
		return report, nil
	}

	groups := lo.GroupBy(enabled, func(t models.PlatformTarget) int { return t.CharLimit })

	// Format every group before spawning anything, so a formatting error
	// never leaves publish goroutines running behind the early return.
	threads := make(map[int][]models.PostUnit, len(groups))
	for limit := range groups {
		units, err := format.Thread(snap, limit, b.Config.IncludeHashtags)
		if err != nil {
			return report, fmt.Errorf("failed to format thread for %d char budget: %w", limit, err)
		}
		st := format.ThreadStats(units, limit)
		logging.Debug("Formatted %d units, longest %d/%d chars", st.Count, st.Longest, st.Limit)
		threads[limit] = units
	}

	type groupResult struct {
		report models.RunReport
		err    error
	}
	results := make([]groupResult, 0, len(groups))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for limit, group := range groups {
		wg.Add(1)
		go func(units []models.PostUnit, group []models.PlatformTarget) {
			defer wg.Done()
			start := time.Now()
			rep, err := b.Publisher.PublishThread(ctx, units, group)
			publishDuration.Observe(time.Since(start).Seconds())
			mu.Lock()
			results = append(results, groupResult{report: rep, err: err})
			mu.Unlock()
		}(threads[limit], group)
	}
	wg.Wait()

	for _, r := range results {
		if r.err != nil {
			return report, r.err
		}
		report.Branches = append(report.Branches, r.report.Branches...)
	}
	report.FinishedAt = time.Now().UTC()
	return report, nil
}

// observe updates the Prometheus metrics and logs a per-branch summary.
func (b *Bot) observe(report models.RunReport) {
	status := report.Status()
	runsTotal.WithLabelValues(string(status)).Inc()
	lastRunTimestamp.Set(float64(report.FinishedAt.Unix()))

	for _, branch := range report.Branches {
		ok, degraded, failed := 0, 0, 0
		for _, r := range branch.Results {
			outcome := "success"
			switch {
			case r.Success && r.Degraded:
				outcome = "degraded"
				degraded++
				ok++
			case r.Success:
				ok++
			default:
				outcome = string(r.Kind)
				failed++
			}
			postsTotal.WithLabelValues(string(branch.Platform), outcome).Inc()
		}
		logging.Info("Published to %s: %d ok (%d degraded), %d failed",
			branch.Platform, ok, degraded, failed)
	}
	logging.Info("Posting cycle finished with status: %s", status)
}
