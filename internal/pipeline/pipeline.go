// Package pipeline resolves a video page into stream URLs and download
// routes. A run drives a browser session until the player requests its
// manifest, derives the per-quality segment URLs and, for media runs, zips
// them with the download routes scraped from the page. Every run is bounded
// by a deadline and delivers exactly one Result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"tubesb/internal/browser"
	"tubesb/internal/diag"
	"tubesb/internal/extract"
	"tubesb/internal/httputil"
	"tubesb/internal/log"
	"tubesb/internal/media"
	"tubesb/internal/provider"
	"tubesb/internal/site"
)

// Options tune a Pipeline.
type Options struct {
	// Timeout bounds a whole run.
	Timeout time.Duration
	// ResolutionGap is how long to wait after the manifest request before
	// reading the quality menu.
	ResolutionGap time.Duration
	// SkipResolution disables the quality menu probe; segments are then
	// labelled by index.
	SkipResolution bool
}

// DefaultOptions returns the stock run settings.
func DefaultOptions() Options {
	return Options{
		Timeout:       10 * time.Second,
		ResolutionGap: time.Second,
	}
}

// Pipeline runs stream resolutions against one site.
type Pipeline struct {
	opts    Options
	profile site.Profile
	open    browser.Factory
	site    *provider.Site
}

// New creates a Pipeline. open is called once per browser-backed run.
func New(opts Options, open browser.Factory, s *provider.Site) *Pipeline {
	return &Pipeline{
		opts:    opts,
		profile: s.Profile(),
		open:    open,
		site:    s,
	}
}

// Streams resolves the stream segments of a video page.
func (p *Pipeline) Streams(ctx context.Context, pageURL string) Result[media.StreamSegment] {
	return execute(ctx, p, "streams", func(ctx context.Context, r *run) ([]media.StreamSegment, error) {
		if err := r.validate(pageURL); err != nil {
			return nil, err
		}
		return p.streams(ctx, r, pageURL)
	})
}

// Media resolves the stream segments of a video page and pairs each with
// its download route. The route listing is scraped while the browser works.
func (p *Pipeline) Media(ctx context.Context, pageURL string) Result[media.Media] {
	return execute(ctx, p, "media", func(ctx context.Context, r *run) ([]media.Media, error) {
		if err := r.validate(pageURL); err != nil {
			return nil, err
		}

		ctx, cancel := context.WithCancelCause(ctx)
		defer cancel(nil)

		type routeResult struct {
			routes []media.Route
			err    error
		}
		routesCh := make(chan routeResult, 1)
		go func() {
			routes, err := guarded(r, func() ([]media.Route, error) {
				return p.site.Routes(ctx, pageURL, r.trace)
			})
			if err != nil {
				cancel(err)
			}
			routesCh <- routeResult{routes, err}
		}()

		segments, err := p.streams(ctx, r, pageURL)
		if err != nil {
			return nil, err
		}

		var rr routeResult
		select {
		case rr = <-routesCh:
		case <-ctx.Done():
			return nil, context.Cause(ctx)
		}
		if rr.err != nil {
			return nil, rr.err
		}
		r.trace.Addf("- merging %d routes with %d streams", len(rr.routes), len(segments))
		return extract.Merge(rr.routes, segments)
	})
}

// Routes scrapes the download routes of a video page. No browser is used.
func (p *Pipeline) Routes(ctx context.Context, pageURL string) Result[media.Route] {
	return execute(ctx, p, "routes", func(ctx context.Context, r *run) ([]media.Route, error) {
		if err := r.validate(pageURL); err != nil {
			return nil, err
		}
		r.setState(Extracting)
		return p.site.Routes(ctx, pageURL, r.trace)
	})
}

// StartStreams runs Streams in the background and passes the result to fn.
func (p *Pipeline) StartStreams(ctx context.Context, pageURL string, fn func(Result[media.StreamSegment])) {
	go func() { fn(p.Streams(ctx, pageURL)) }()
}

// StartMedia runs Media in the background and passes the result to fn.
func (p *Pipeline) StartMedia(ctx context.Context, pageURL string, fn func(Result[media.Media])) {
	go func() { fn(p.Media(ctx, pageURL)) }()
}

// StartRoutes runs Routes in the background and passes the result to fn.
func (p *Pipeline) StartRoutes(ctx context.Context, pageURL string, fn func(Result[media.Route])) {
	go func() { fn(p.Routes(ctx, pageURL)) }()
}

// execute runs body under the deadline and returns the single result of the
// run, whichever of body and the timer finishes first.
func execute[T any](ctx context.Context, p *Pipeline, op string, body func(context.Context, *run) ([]T, error)) Result[T] {
	r := newRun(op)
	r.trace.Addf("- %s run started", op)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan Result[T], 1)

	r.gov.Arm(p.opts.Timeout, func() {
		r.gov.Complete(func() {
			err := extract.Errorf(extract.Timeout, "%s\ntimeout : %d ms", extract.MsgTimeout, p.opts.Timeout.Milliseconds())
			r.setState(TimedOut)
			// The session is blanked with the run context still live.
			r.teardown()
			cancel()
			r.log.Warn("run timed out")
			out <- failure[T](err, r.trace.Freeze())
		})
	})

	go func() {
		payload, err := guarded(r, func() ([]T, error) { return body(ctx, r) })
		r.gov.Disarm()
		r.gov.Complete(func() {
			r.teardown()
			if err != nil {
				e := extract.Classify(err)
				r.trace.Addf("- failed: %v", e)
				r.setState(Failed)
				r.log.WithField("kind", e.Kind).Debug("run failed")
				out <- failure[T](e, r.trace.Freeze())
				return
			}
			r.trace.Addf("- delivering %d results", len(payload))
			r.setState(Completed)
			out <- success(payload, r.trace.Freeze())
		})
	}()

	return <-out
}

// streams drives the browser to the manifest request and turns it into
// labelled segment URLs.
func (p *Pipeline) streams(ctx context.Context, r *run, pageURL string) ([]media.StreamSegment, error) {
	playURL, err := p.profile.PlayURL(pageURL)
	if err != nil {
		return nil, extract.Wrap(extract.InvalidInput, extract.MsgInvalidURL, err)
	}
	r.trace.Addf("- play url %s", playURL)

	manifest, labels, err := p.capture(ctx, r, playURL)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}

	r.setState(Extracting)
	r.teardown()

	urls, err := extract.Segments(manifest, p.profile.SegmentSuffix)
	if err != nil {
		return nil, err
	}
	r.trace.Addf("- %d stream segments", len(urls))
	return extract.Label(urls, labels), nil
}

// capture opens a session, loads the player page and waits for the first
// manifest request. It returns the raw manifest URL and the quality labels,
// if probed.
func (p *Pipeline) capture(ctx context.Context, r *run, playURL string) (string, []string, error) {
	sess, err := p.open(ctx)
	if err != nil {
		if !p.profile.ScriptFallback {
			return "", nil, extract.Wrap(extract.UnexpectedFailure, "opening browser session", err)
		}
		r.trace.Addf("- browser unavailable (%v), reading player script", err)
		manifest, err := p.manifestFromPage(ctx, r, playURL)
		return manifest, nil, err
	}
	if !r.attach(sess) {
		return "", nil, context.Cause(ctx)
	}
	r.trace.Add("- browser session opened")

	found := make(chan string, 1)
	var once sync.Once
	sess.OnResourceLoad(func(u string) {
		if !strings.Contains(u, p.profile.ManifestExt) {
			return
		}
		once.Do(func() { found <- u })
	})

	r.setState(PageLoading)
	loaded := make(chan error, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				loaded <- r.recovered(v)
			}
		}()
		if err := sess.Load(ctx, playURL); err != nil {
			loaded <- err
			return
		}
		r.trace.Add("- page loaded, injecting stream trigger")
		if err := sess.Evaluate(ctx, p.profile.TriggerScript, nil); err != nil {
			r.trace.Addf("- stream trigger failed: %v", err)
		}
		loaded <- nil
	}()

	var manifest string
	for manifest == "" {
		select {
		case manifest = <-found:
		case err := <-loaded:
			if err != nil {
				var xe *extract.Error
				switch {
				case errors.As(err, &xe):
					return "", nil, xe
				case ctx.Err() != nil:
					return "", nil, context.Cause(ctx)
				}
				return "", nil, extract.Wrap(extract.NetworkFailure, "loading player page", err)
			}
			loaded = nil
			r.setState(ManifestWait)
		case <-ctx.Done():
			return "", nil, context.Cause(ctx)
		}
	}
	r.trace.Addf("- manifest captured %s", manifest)

	if p.opts.SkipResolution {
		r.trace.Add("- resolution probe skipped")
		return manifest, nil, nil
	}
	r.setState(ResolutionProbing)
	return manifest, probeResolutions(ctx, sess, p.opts.ResolutionGap, p.profile.ProbeScript, r.trace), nil
}

// manifestFromPage reads the manifest URL out of the player page's scripts.
func (p *Pipeline) manifestFromPage(ctx context.Context, r *run, playURL string) (string, error) {
	doc, err := p.site.FetchDocument(ctx, playURL)
	if err != nil {
		return "", err
	}
	manifest, err := extract.ManifestFromScripts(doc, p.profile)
	if err != nil {
		return "", err
	}
	r.trace.Addf("- manifest found in player script %s", manifest)
	return manifest, nil
}

// run is the per-invocation state shared by the coordinator, the route
// scraper and the deadline timer.
type run struct {
	trace *diag.Log
	log   *logrus.Entry
	gov   Governor
	state atomic.Int32

	mu      sync.Mutex
	session browser.Session
	closed  bool
}

func newRun(op string) *run {
	entry := log.NewRun(op)
	return &run{
		trace: diag.New(func(s string) { entry.Debug(s) }),
		log:   entry,
	}
}

func (r *run) validate(pageURL string) error {
	r.trace.Addf("- target url %s", pageURL)
	if err := httputil.ValidateURL(pageURL); err != nil {
		return extract.Wrap(extract.InvalidInput, extract.MsgInvalidURL, err)
	}
	return nil
}

// setState moves the run to next unless it already ended.
func (r *run) setState(next State) bool {
	for {
		cur := State(r.state.Load())
		if cur.Terminal() {
			return false
		}
		if r.state.CompareAndSwap(int32(cur), int32(next)) {
			r.trace.Addf("- state %s -> %s", cur, next)
			return true
		}
	}
}

// State returns the current stage of the run.
func (r *run) State() State {
	return State(r.state.Load())
}

// attach hands the session to the run. If the run was already torn down
// the session is destroyed at once and attach returns false.
func (r *run) attach(s browser.Session) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		s.Destroy()
		return false
	}
	r.session = s
	r.mu.Unlock()
	return true
}

// teardown destroys the attached session exactly once.
func (r *run) teardown() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	s := r.session
	r.mu.Unlock()

	if s == nil {
		return
	}
	if err := s.Destroy(); err != nil {
		r.trace.Addf("- destroying session: %v", err)
		log.Warnf("destroying browser session: %v", err)
		return
	}
	r.trace.Add("- browser session destroyed")
}

// recovered turns a panic value from one of the run's goroutines into an
// UnexpectedFailure.
func (r *run) recovered(v any) error {
	log.Errorf("panic in run: %v\n%s", v, debug.Stack())
	r.trace.Addf("- panic: %v", v)
	return extract.Wrap(extract.UnexpectedFailure, "panic", fmt.Errorf("%v", v))
}

// guarded calls fn, reporting a panic as an error.
func guarded[T any](r *run, fn func() ([]T, error)) (payload []T, err error) {
	defer func() {
		if v := recover(); v != nil {
			payload, err = nil, r.recovered(v)
		}
	}()
	return fn()
}
