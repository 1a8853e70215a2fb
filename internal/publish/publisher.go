// Package publish drives an ordered thread of posts through every
// enabled platform target, independently per target, and aggregates the
// outcomes into a single run report.
package publish

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"solarscout/internal/logging"
	"solarscout/internal/models"
	"solarscout/internal/platform"
)

// Publisher publishes threads via the registered platform clients.
// Branches share no mutable state, so one Publisher is safe for
// concurrent use across targets within a run.
type Publisher struct {
	Clients platform.Registry
	// RetryBackoff is the fixed delay before the single retry of a
	// failed text post.
	RetryBackoff time.Duration
	// Timeout bounds the whole publish step. Zero means the caller's
	// context is the only deadline.
	Timeout time.Duration
}

// New creates a Publisher over the given client registry.
func New(clients platform.Registry, retryBackoff, timeout time.Duration) *Publisher {
	return &Publisher{
		Clients:      clients,
		RetryBackoff: retryBackoff,
		Timeout:      timeout,
	}
}

// PublishThread publishes the units, in order, to every enabled target.
// Each enabled target is processed on its own goroutine; a failure on one
// target never affects another. The returned report contains exactly one
// result per (unit, enabled target) pair.
//
// The error return covers caller contract violations only (empty or
// non-contiguous unit sequence); publishing failures are reported inside
// the RunReport, never as an error.
func (p *Publisher) PublishThread(ctx context.Context, units []models.PostUnit, targets []models.PlatformTarget) (models.RunReport, error) {
	report := models.RunReport{StartedAt: time.Now().UTC()}

	if err := validateUnits(units); err != nil {
		return report, err
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	enabled := lo.Filter(targets, func(t models.PlatformTarget, _ int) bool {
		return t.Enabled
	})
	if len(enabled) == 0 {
		logging.Warn("No enabled platform targets, nothing to publish")
		report.FinishedAt = time.Now().UTC()
		return report, nil
	}

	branches := make([]models.BranchReport, len(enabled))
	var wg sync.WaitGroup
	for i, target := range enabled {
		wg.Add(1)
		go func(i int, target models.PlatformTarget) {
			defer wg.Done()
			branches[i] = p.publishBranch(ctx, units, target)
		}(i, target)
	}
	wg.Wait()

	report.Branches = branches
	report.FinishedAt = time.Now().UTC()
	return report, nil
}

// validateUnits enforces the formatter contract: a non-empty sequence
// contiguously ordered from 1.
func validateUnits(units []models.PostUnit) error {
	if len(units) == 0 {
		return errors.New("unit sequence is empty")
	}
	for i, u := range units {
		if u.Index != i+1 {
			return fmt.Errorf("unit at position %d has index %d, want %d", i, u.Index, i+1)
		}
	}
	return nil
}

// publishBranch runs the state machine for one platform target:
// authenticate, then post each unit as a reply to its predecessor. It
// always produces exactly one result per unit and never panics outward.
func (p *Publisher) publishBranch(ctx context.Context, units []models.PostUnit, target models.PlatformTarget) (branch models.BranchReport) {
	branch.Platform = target.Kind

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Publish branch for %s panicked: %v", target.Kind, r)
			for i := len(branch.Results); i < len(units); i++ {
				branch.Results = append(branch.Results, models.PublishResult{
					Unit:    units[i].Index,
					Kind:    models.ErrPublishFailed,
					Message: fmt.Sprintf("internal error: %v", r),
				})
			}
		}
	}()

	session, err := p.authenticate(ctx, target)
	if err != nil {
		kind := models.ErrAuthFailed
		if deadlineHit(ctx, err) {
			kind = models.ErrTimeout
		}
		logging.Error("Authentication failed for %s: %v", target.Kind, err)
		for _, u := range units {
			branch.Results = append(branch.Results, models.PublishResult{
				Unit:    u.Index,
				Kind:    kind,
				Message: err.Error(),
			})
		}
		return branch
	}

	var root, parent *platform.PostRef
	chainBroken := false

	for _, unit := range units {
		switch {
		case ctx.Err() != nil:
			// Deadline exceeded: abandon the rest of the branch.
			branch.Results = append(branch.Results, models.PublishResult{
				Unit:    unit.Index,
				Kind:    models.ErrTimeout,
				Message: ctx.Err().Error(),
			})
			continue
		case chainBroken:
			branch.Results = append(branch.Results, models.PublishResult{
				Unit:    unit.Index,
				Kind:    models.ErrChainBroken,
				Message: "predecessor post failed",
			})
			continue
		}

		var reply *platform.ReplyRef
		if parent != nil {
			reply = &platform.ReplyRef{Root: *root, Parent: *parent}
		}

		result, ref := p.publishUnit(ctx, session, target, unit, reply)
		branch.Results = append(branch.Results, result)
		if !result.Success {
			chainBroken = true
			continue
		}
		if root == nil {
			root = &ref
		}
		parent = &ref
	}

	return branch
}

func (p *Publisher) authenticate(ctx context.Context, target models.PlatformTarget) (platform.Session, error) {
	client, ok := p.Clients[target.Kind]
	if !ok {
		return nil, fmt.Errorf("no client registered for platform %s", target.Kind)
	}
	return client.Authenticate(ctx, target.Credentials)
}

// publishUnit posts one unit: best-effort image upload, then the text
// post with a single retry after a fixed backoff.
func (p *Publisher) publishUnit(ctx context.Context, session platform.Session, target models.PlatformTarget, unit models.PostUnit, reply *platform.ReplyRef) (models.PublishResult, platform.PostRef) {
	result := models.PublishResult{Unit: unit.Index}

	// The formatter owns the character budget; a violation here is a
	// contract breach and is failed without touching the network.
	if n := utf8.RuneCountInString(unit.Text); n > target.CharLimit {
		result.Kind = models.ErrPayloadTooLarge
		result.Message = fmt.Sprintf("post is %d chars, limit %d", n, target.CharLimit)
		logging.Error("Unit %d for %s: %s", unit.Index, target.Kind, result.Message)
		return result, platform.PostRef{}
	}

	var imageRef platform.ImageRef
	if unit.Image != nil {
		ref, err := session.UploadImage(ctx, *unit.Image)
		if err != nil {
			// Image uploads are best effort: the text still goes out.
			logging.Warn("Image upload for unit %d on %s failed, posting without image: %v", unit.Index, target.Kind, err)
			result.Degraded = true
			result.Kind = models.ErrImageDegraded
			result.Message = err.Error()
		} else {
			imageRef = ref
		}
	}

	ref, err := p.createPostWithRetry(ctx, session, unit.Text, imageRef, reply)
	if err != nil {
		if deadlineHit(ctx, err) {
			result.Kind = models.ErrTimeout
		} else {
			result.Kind = models.ErrPublishFailed
		}
		result.Degraded = false
		result.Message = err.Error()
		logging.Error("Unit %d for %s failed: %v", unit.Index, target.Kind, err)
		return result, platform.PostRef{}
	}

	result.Success = true
	result.RemoteID = ref.ID
	logging.Info("Published unit %d to %s: %s", unit.Index, target.Kind, ref.ID)
	return result, ref
}

// createPostWithRetry makes the text-post call, retrying exactly once
// after the fixed backoff. Image uploads are never retried.
func (p *Publisher) createPostWithRetry(ctx context.Context, session platform.Session, text string, image platform.ImageRef, reply *platform.ReplyRef) (platform.PostRef, error) {
	ref, err := session.CreatePost(ctx, text, image, reply)
	if err == nil {
		return ref, nil
	}
	if ctx.Err() != nil {
		return platform.PostRef{}, err
	}

	logging.Warn("Post failed, retrying once after %s: %v", p.RetryBackoff, err)
	select {
	case <-time.After(p.RetryBackoff):
	case <-ctx.Done():
		return platform.PostRef{}, ctx.Err()
	}

	ref, retryErr := session.CreatePost(ctx, text, image, reply)
	if retryErr != nil {
		return platform.PostRef{}, fmt.Errorf("post failed after retry: %w", retryErr)
	}
	return ref, nil
}

// deadlineHit reports whether err is due to the run deadline rather than
// a platform failure.
func deadlineHit(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded)
}
