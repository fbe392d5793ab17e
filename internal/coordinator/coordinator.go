// Package coordinator sequences one user's analysis session: staging
// images, asking the AI provider for songs, enriching them from the
// catalog and applying the results.
//
// Every analysis run is stamped with a token taken from a monotonically
// increasing counter. Only the run holding the current token may change
// the session; Cancel, Reset and newer runs bump the counter, so the
// outcome of a superseded run is dropped when it eventually arrives.
// Network calls are never aborted by cancellation.
//
// The session lock is never held across a network call.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/vibetrack/internal/metrics"
	"github.com/lehigh-university-libraries/vibetrack/internal/models"
	"github.com/lehigh-university-libraries/vibetrack/internal/providers"
	"github.com/lehigh-university-libraries/vibetrack/internal/staging"
)

var (
	ErrNoImages     = errors.New("no images staged")
	ErrBusy         = errors.New("an analysis is already running")
	ErrNotAnalyzing = errors.New("no analysis in progress")
	ErrNoResults    = errors.New("no results to extend")
	ErrClosed       = errors.New("session is closed")
	ErrInvalidState = errors.New("operation not allowed in current state")
)

// AppendFailedMessage prefixes the notice raised when "generate more" fails
const AppendFailedMessage = "Failed to generate more songs"

// Enricher attaches catalog metadata to suggestions, preserving order.
// It must not fail; songs it cannot enrich come back bare.
type Enricher interface {
	EnrichAll(ctx context.Context, songs []models.SongSuggestion) []models.EnrichedSong
}

// Coordinator owns one Session and the staged images behind it
type Coordinator struct {
	suggester providers.Suggester
	enricher  Enricher

	mu        sync.Mutex
	store     *staging.Store
	status    models.Status
	results   []models.EnrichedSong
	errMsg    string
	appending bool
	token     uint64
	notices   []models.Notice
	closed    bool
}

// New creates a coordinator in the idle state. Preview handles for staged
// images are taken from previews.
func New(suggester providers.Suggester, enricher Enricher, previews *staging.Previews) *Coordinator {
	return &Coordinator{
		suggester: suggester,
		enricher:  enricher,
		store:     staging.NewStore(previews),
		status:    models.StatusIdle,
	}
}

// AddImages stages uploads. An idle session moves to staging.
func (c *Coordinator) AddImages(uploads ...staging.Upload) ([]models.ImageView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	added, err := c.store.Add(uploads...)
	if err != nil {
		return nil, err
	}

	if c.status == models.StatusIdle && c.store.Len() > 0 {
		c.status = models.StatusStaging
	}

	slog.Debug("Images staged", "added", len(added), "total", c.store.Len())
	return imageViews(added), nil
}

// RemoveImage drops the staged image at index and releases its preview.
// The session returns to staging, or to idle once the last image is gone.
// Either way results and errors are discarded and a running analysis is
// invalidated, since they no longer describe the staged images.
func (c *Coordinator) RemoveImage(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if err := c.store.Remove(index); err != nil {
		return err
	}

	next := models.StatusStaging
	if c.store.Len() == 0 {
		next = models.StatusIdle
	}
	if c.status != next {
		c.token++
		c.status = next
		c.results = nil
		c.errMsg = ""
		c.appending = false
	}
	return nil
}

// StartAnalysis launches a run over the staged images.
//
// With excludePriorResults false the results are cleared and the session
// moves to analyzing. With it true the session must be in success; it
// stays there with the appending flag set, and the provider is told to
// avoid every song already shown.
//
// The run continues in the background on a context that ignores ctx's
// cancellation; use Cancel to abandon it.
func (c *Coordinator) StartAnalysis(ctx context.Context, excludePriorResults bool) (*Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return nil, ErrClosed
	case c.store.Len() == 0:
		return nil, ErrNoImages
	case c.status == models.StatusAnalyzing || c.appending:
		return nil, ErrBusy
	case excludePriorResults && c.status != models.StatusSuccess:
		return nil, ErrNoResults
	}

	c.token++
	run := newRun(c.token, excludePriorResults)

	staged := c.store.Images()
	req := providers.Request{Images: make([]providers.Image, len(staged))}
	for i, img := range staged {
		req.Images[i] = providers.Image{Data: img.Data, MIMEType: img.MIMEType}
	}

	if excludePriorResults {
		req.Exclude = make([]string, len(c.results))
		for i, r := range c.results {
			req.Exclude[i] = r.ExclusionKey()
		}
		c.appending = true
	} else {
		c.results = nil
		c.errMsg = ""
		c.status = models.StatusAnalyzing
	}

	slog.Info("Analysis started", "token", run.token, "mode", run.mode(), "images", len(req.Images), "exclude", len(req.Exclude))

	go c.execute(context.WithoutCancel(ctx), run, req)
	return run, nil
}

// Cancel abandons the running analysis and returns to staging at once.
// It only applies to a fresh analysis, not to an appending run.
func (c *Coordinator) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.status != models.StatusAnalyzing {
		return ErrNotAnalyzing
	}

	c.token++
	c.status = models.StatusStaging
	slog.Info("Analysis cancelled", "token", c.token)
	return nil
}

// Restage leaves a finished session (success or error) for staging,
// keeping the images so the user can edit the collection and run again.
func (c *Coordinator) Restage() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.status != models.StatusSuccess && c.status != models.StatusError {
		return ErrInvalidState
	}

	c.token++
	c.status = models.StatusStaging
	c.results = nil
	c.errMsg = ""
	c.appending = false
	return nil
}

// Reset releases every staged image and returns to an empty idle session
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// Close resets the session and refuses any further operation
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	c.closed = true
}

func (c *Coordinator) resetLocked() {
	c.token++
	released := c.store.Clear()
	c.status = models.StatusIdle
	c.results = nil
	c.errMsg = ""
	c.appending = false
	c.notices = nil
	slog.Debug("Session reset", "released", released)
}

// Snapshot returns a copy of the session state
func (c *Coordinator) Snapshot() models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	results := make([]models.EnrichedSong, len(c.results))
	copy(results, c.results)

	return models.Session{
		Status:    c.status,
		Images:    imageViews(c.store.Images()),
		Results:   results,
		Error:     c.errMsg,
		Appending: c.appending,
		Token:     c.token,
	}
}

// DrainNotices returns pending one-shot notices and clears them
func (c *Coordinator) DrainNotices() []models.Notice {
	c.mu.Lock()
	defer c.mu.Unlock()

	notices := c.notices
	c.notices = nil
	return notices
}

func (c *Coordinator) execute(ctx context.Context, run *Run, req providers.Request) {
	start := time.Now()
	songs, err := c.suggester.Suggest(ctx, req)
	if err != nil {
		metrics.SuggestionDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		c.fail(run, err)
		return
	}
	metrics.SuggestionDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	if !c.isCurrent(run.token) {
		c.discard(run)
		return
	}

	enriched := c.enricher.EnrichAll(ctx, songs)
	c.apply(run, enriched)
}

func (c *Coordinator) isCurrent(token uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return token == c.token
}

func (c *Coordinator) apply(run *Run, songs []models.EnrichedSong) {
	c.mu.Lock()
	if run.token != c.token {
		c.mu.Unlock()
		c.discard(run)
		return
	}

	if run.appending {
		merged := make([]models.EnrichedSong, 0, len(c.results)+len(songs))
		merged = append(merged, c.results...)
		c.results = append(merged, songs...)
	} else {
		c.results = songs
	}
	c.status = models.StatusSuccess
	c.appending = false
	total := len(c.results)
	c.mu.Unlock()

	slog.Info("Analysis applied", "token", run.token, "mode", run.mode(), "added", len(songs), "total", total)
	metrics.AnalysisRuns.WithLabelValues(run.mode(), string(OutcomeApplied)).Inc()
	run.finish(OutcomeApplied, nil)
}

func (c *Coordinator) fail(run *Run, err error) {
	c.mu.Lock()
	if run.token != c.token {
		c.mu.Unlock()
		c.discard(run)
		return
	}

	if run.appending {
		c.appending = false
		c.notices = append(c.notices, models.Notice{
			Token:   run.token,
			Message: AppendFailedMessage + ": " + err.Error(),
		})
	} else {
		c.status = models.StatusError
		c.errMsg = err.Error()
		c.results = nil
	}
	c.mu.Unlock()

	slog.Error("Analysis failed", "token", run.token, "mode", run.mode(), "err", err)
	metrics.AnalysisRuns.WithLabelValues(run.mode(), string(OutcomeFailed)).Inc()
	run.finish(OutcomeFailed, err)
}

func (c *Coordinator) discard(run *Run) {
	slog.Debug("Discarding stale analysis outcome", "token", run.token)
	metrics.AnalysisRuns.WithLabelValues(run.mode(), string(OutcomeDiscarded)).Inc()
	run.finish(OutcomeDiscarded, nil)
}

func imageViews(images []staging.StagedImage) []models.ImageView {
	views := make([]models.ImageView, len(images))
	for i, img := range images {
		views[i] = models.ImageView{
			Name:     img.Name,
			MIMEType: img.MIMEType,
			Size:     len(img.Data),
			Preview:  string(img.Preview),
		}
	}
	return views
}
