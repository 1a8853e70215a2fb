package bot_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"solarscout/internal/bot"
	"solarscout/internal/config"
	"solarscout/internal/database"
	"solarscout/internal/models"
	"solarscout/internal/platform"
	"solarscout/internal/publish"
	"solarscout/internal/spaceweather"
)

type stubSession struct {
	mu    sync.Mutex
	posts []string
}

func (s *stubSession) UploadImage(ctx context.Context, img models.Image) (platform.ImageRef, error) {
	return "blob", nil
}

func (s *stubSession) CreatePost(ctx context.Context, text string, image platform.ImageRef, reply *platform.ReplyRef) (platform.PostRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, text)
	id := fmt.Sprintf("post-%d", len(s.posts))
	return platform.PostRef{ID: id, URI: "at://" + id, CID: "cid"}, nil
}

func (s *stubSession) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}

type stubClient struct {
	kind    models.PlatformKind
	session *stubSession
}

func (c *stubClient) Kind() models.PlatformKind { return c.kind }

func (c *stubClient) Authenticate(ctx context.Context, creds models.Credentials) (platform.Session, error) {
	return c.session, nil
}

// newSWPCServer serves just enough SWPC fixtures for a full snapshot.
func newSWPCServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	serve := func(path, contentType, body string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", contentType)
			w.Write([]byte(body))
		})
	}
	serve("/json/f107_cm_flux.json", "application/json",
		`[{"flux": 142, "reporting_schedule": "Noon"}]`)
	serve("/json/planetary_k_index_1m.json", "application/json",
		`[{"kp_index": 3}]`)
	serve("/products/noaa-scales.json", "application/json",
		`{"0": {"R": {"Scale": "0"}, "S": {"Scale": "0"}, "G": {"Scale": "1"}}}`)
	serve("/json/goes/primary/xrays-6-hour.json", "application/json",
		`[{"time_tag": "2026-03-14T11:00:00Z", "flux": 1.8e-6, "energy": "0.1-0.8nm"},
		  {"time_tag": "2026-03-14T12:00:00Z", "flux": 2.1e-6, "energy": "0.1-0.8nm"}]`)
	serve("/text/aurora-nowcast-hemi-power.txt", "text/plain",
		"2026-03-14_12:00 2026-03-14_12:45 36 22")

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestBot(t *testing.T, blueskyStub, mastodonStub *stubSession) (*bot.Bot, *database.DB) {
	t.Helper()

	cfg := &config.Config{
		MinRunSpacing:       time.Hour,
		PublishTimeout:      time.Minute,
		RetryBackoff:        time.Millisecond,
		BlueskyEnabled:      blueskyStub != nil,
		BlueskyIdentifier:   "scout.example.com",
		BlueskyAppPassword:  "app-password",
		MastodonEnabled:     mastodonStub != nil,
		MastodonServer:      "https://mastodon.example",
		MastodonAccessToken: "token",
		IncludeHashtags:     true,
	}

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := newSWPCServer(t)
	weather := spaceweather.NewClient(srv.URL)
	t.Cleanup(func() { weather.Close() })

	registry := platform.Registry{}
	if blueskyStub != nil {
		registry[models.PlatformBluesky] = &stubClient{kind: models.PlatformBluesky, session: blueskyStub}
	}
	if mastodonStub != nil {
		registry[models.PlatformMastodon] = &stubClient{kind: models.PlatformMastodon, session: mastodonStub}
	}
	publisher := publish.New(registry, cfg.RetryBackoff, cfg.PublishTimeout)

	return bot.New(cfg, db, weather, publisher), db
}

func TestRunOnce_PublishesFullThread(t *testing.T) {
	t.Parallel()

	bskySession := &stubSession{}
	mastoSession := &stubSession{}
	b, db := newTestBot(t, bskySession, mastoSession)

	report, err := b.RunOnce(context.Background(), false)
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	if got := report.Status(); got != models.RunSuccess {
		t.Errorf("status = %s, want %s", got, models.RunSuccess)
	}
	if len(report.Branches) != 2 {
		t.Fatalf("got %d branches, want one per platform", len(report.Branches))
	}
	for _, branch := range report.Branches {
		if len(branch.Results) != 5 {
			t.Errorf("%s: got %d results, want the 5 thread posts", branch.Platform, len(branch.Results))
		}
	}
	if bskySession.count() != 5 || mastoSession.count() != 5 {
		t.Errorf("post counts = %d/%d, want 5 each", bskySession.count(), mastoSession.count())
	}

	last, err := db.LastRun()
	if err != nil || last == nil {
		t.Fatalf("run not recorded: rec=%v err=%v", last, err)
	}
	if last.Status != models.RunSuccess {
		t.Errorf("journal status = %s, want %s", last.Status, models.RunSuccess)
	}
}

func TestRunOnce_SpacingGuard(t *testing.T) {
	t.Parallel()

	session := &stubSession{}
	b, _ := newTestBot(t, session, nil)

	if _, err := b.RunOnce(context.Background(), false); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	_, err := b.RunOnce(context.Background(), false)
	if !errors.Is(err, bot.ErrTooSoon) {
		t.Fatalf("second run error = %v, want ErrTooSoon", err)
	}
	if session.count() != 5 {
		t.Errorf("post count = %d, second run should not have posted", session.count())
	}

	// force bypasses the spacing window.
	if _, err := b.RunOnce(context.Background(), true); err != nil {
		t.Fatalf("forced run failed: %v", err)
	}
	if session.count() != 10 {
		t.Errorf("post count = %d after forced run, want 10", session.count())
	}
}

func TestRunOnce_NoEnabledPlatforms(t *testing.T) {
	t.Parallel()

	b, db := newTestBot(t, nil, nil)

	report, err := b.RunOnce(context.Background(), false)
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if got := report.Status(); got != models.RunEmpty {
		t.Errorf("status = %s, want %s", got, models.RunEmpty)
	}

	// Empty runs are journaled but never move the spacing clock.
	at, err := db.LastPostedAt()
	if err != nil {
		t.Fatalf("LastPostedAt failed: %v", err)
	}
	if at.Valid {
		t.Errorf("empty run counted as a posting run")
	}
}
