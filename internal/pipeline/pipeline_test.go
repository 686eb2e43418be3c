package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tubesb/internal/browser"
	"tubesb/internal/extract"
	"tubesb/internal/media"
	"tubesb/internal/provider"
	"tubesb/internal/site"
)

const testManifest = "https://cdn.streamhost.to/hls/,l0,n0,x0,.urlset/master.m3u8"

// fakeSession replays a fixed list of resource requests on Load.
type fakeSession struct {
	resources []string
	loadErr   error
	hang      bool // block Load until ctx is done
	labels    []string
	probeErr  error
	panics    bool // panic inside Load

	mu        sync.Mutex
	listeners []func(string)
	loaded    []string
	scripts   []string

	loadCtx       context.Context
	destroys      atomic.Int32
	liveAtDestroy atomic.Bool
}

func (f *fakeSession) Load(ctx context.Context, url string) error {
	f.mu.Lock()
	f.loaded = append(f.loaded, url)
	f.loadCtx = ctx
	listeners := append([]func(string){}, f.listeners...)
	f.mu.Unlock()

	if f.panics {
		panic("renderer crashed")
	}
	if f.loadErr != nil {
		return f.loadErr
	}
	for _, res := range f.resources {
		for _, fn := range listeners {
			fn(res)
		}
	}
	if f.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *fakeSession) OnResourceLoad(fn func(string)) {
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
}

func (f *fakeSession) Evaluate(ctx context.Context, script string, out any) error {
	f.mu.Lock()
	f.scripts = append(f.scripts, script)
	f.mu.Unlock()

	if out == nil {
		return nil
	}
	if f.probeErr != nil {
		return f.probeErr
	}
	if p, ok := out.(*[]string); ok {
		*p = append([]string(nil), f.labels...)
	}
	return nil
}

func (f *fakeSession) Destroy() error {
	f.mu.Lock()
	if f.loadCtx != nil && f.loadCtx.Err() == nil {
		f.liveAtDestroy.Store(true)
	}
	f.mu.Unlock()
	f.destroys.Add(1)
	return nil
}

func (f *fakeSession) factory() browser.Factory {
	return func(context.Context) (browser.Session, error) { return f, nil }
}

// fixtureServer serves the listing for video pages and the packed player
// script for /play/ pages.
func fixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := "testdata/listing.html"
		switch {
		case strings.HasPrefix(r.URL.Path, "/missing"):
			http.NotFound(w, r)
			return
		case strings.HasPrefix(r.URL.Path, "/play/"):
			name = "testdata/play_packed.html"
		}
		data, err := os.ReadFile(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestPipeline(t *testing.T, opts Options, open browser.Factory) (*Pipeline, *httptest.Server) {
	t.Helper()
	srv := fixtureServer(t)
	return New(opts, open, provider.New(site.Default(), srv.Client(), "")), srv
}

func testOptions() Options {
	return Options{Timeout: 2 * time.Second, ResolutionGap: 10 * time.Millisecond}
}

func TestStreams(t *testing.T) {
	tests := []struct {
		name       string
		skip       bool
		labels     []string
		probeErr   error
		wantLabels []string
	}{
		{
			name:       "probed labels",
			labels:     []string{"360p", "480p", "720p"},
			wantLabels: []string{"360p", "480p", "720p"},
		},
		{
			name:       "probe error falls back to index",
			probeErr:   errors.New("menu not rendered"),
			wantLabels: []string{"0", "1", "2"},
		},
		{
			name:       "too few labels",
			labels:     []string{"720p"},
			wantLabels: []string{"0", "1", "2"},
		},
		{
			name:       "probe skipped",
			skip:       true,
			labels:     []string{"360p", "480p", "720p"},
			wantLabels: []string{"0", "1", "2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeSession{
				resources: []string{"https://streamhost.to/js/player.js", testManifest, "https://cdn.streamhost.to/other.m3u8"},
				labels:    tt.labels,
				probeErr:  tt.probeErr,
			}
			opts := testOptions()
			opts.SkipResolution = tt.skip
			p, _ := newTestPipeline(t, opts, fake.factory())

			res := p.Streams(context.Background(), "https://streamhost.to/abc123")
			got, err := res.Payload()
			if err != nil {
				t.Fatalf("Streams() error: %v\n%s", err, res.Diagnostics())
			}
			if len(got) != 3 {
				t.Fatalf("expected 3 segments, got %d", len(got))
			}
			if got[0].URL != "https://cdn.streamhost.to/hls/l0/index-v1-a1.m3u8" {
				t.Errorf("got[0].URL = %q", got[0].URL)
			}
			for i, seg := range got {
				if seg.Resolution != tt.wantLabels[i] {
					t.Errorf("got[%d].Resolution = %q, want %q", i, seg.Resolution, tt.wantLabels[i])
				}
			}
			if n := fake.destroys.Load(); n != 1 {
				t.Errorf("Destroy called %d times, want 1", n)
			}
			if fake.loaded[0] != "https://streamhost.to/play/abc123" {
				t.Errorf("loaded %q, want play page", fake.loaded[0])
			}
			if len(res.Diagnostics()) == 0 {
				t.Error("expected diagnostics on success")
			}
		})
	}
}

func TestStreamsTimeout(t *testing.T) {
	fake := &fakeSession{resources: []string{"https://streamhost.to/js/player.js"}}
	opts := testOptions()
	opts.Timeout = 50 * time.Millisecond
	p, _ := newTestPipeline(t, opts, fake.factory())

	res := p.Streams(context.Background(), "https://streamhost.to/abc123")
	if res.Ok() {
		t.Fatal("expected timeout")
	}
	if !errors.Is(res.Err(), extract.ErrTimeout) {
		t.Fatalf("error = %v, want Timeout", res.Err())
	}
	if res.Err().Error() != "Task is timeout.\ntimeout : 50 ms" {
		t.Errorf("message = %q", res.Err().Error())
	}
	if !strings.Contains(res.Diagnostics().String(), "TimedOut") {
		t.Error("diagnostics missing TimedOut transition")
	}

	time.Sleep(50 * time.Millisecond)
	if n := fake.destroys.Load(); n != 1 {
		t.Errorf("Destroy called %d times, want 1", n)
	}
}

func TestTimeoutDestroysBeforeCancel(t *testing.T) {
	fake := &fakeSession{}
	opts := testOptions()
	opts.Timeout = 50 * time.Millisecond
	p, _ := newTestPipeline(t, opts, fake.factory())

	res := p.Streams(context.Background(), "https://streamhost.to/abc123")
	if !errors.Is(res.Err(), extract.ErrTimeout) {
		t.Fatalf("error = %v, want Timeout", res.Err())
	}
	if n := fake.destroys.Load(); n != 1 {
		t.Fatalf("Destroy called %d times, want 1", n)
	}
	if !fake.liveAtDestroy.Load() {
		t.Error("session destroyed after the run context was cancelled")
	}
}

func TestPanicBecomesUnexpectedFailure(t *testing.T) {
	tests := []struct {
		name     string
		fake     *fakeSession
		open     func(*fakeSession) browser.Factory
		destroys int32
	}{
		{
			name:     "load",
			fake:     &fakeSession{panics: true},
			open:     (*fakeSession).factory,
			destroys: 1,
		},
		{
			name: "open",
			fake: &fakeSession{},
			open: func(*fakeSession) browser.Factory {
				return func(context.Context) (browser.Session, error) { panic("launcher crashed") }
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPipeline(t, testOptions(), tt.open(tt.fake))

			start := time.Now()
			res := p.Streams(context.Background(), "https://streamhost.to/abc123")
			if !errors.Is(res.Err(), extract.ErrUnexpected) {
				t.Fatalf("error = %v, want UnexpectedFailure", res.Err())
			}
			if !strings.Contains(res.Err().Error(), "panic") {
				t.Errorf("message = %q", res.Err().Error())
			}
			if time.Since(start) > time.Second {
				t.Error("panic was not reported before the deadline")
			}
			if n := tt.fake.destroys.Load(); n != tt.destroys {
				t.Errorf("Destroy called %d times, want %d", n, tt.destroys)
			}
		})
	}
}

func TestStreamsLoadFailure(t *testing.T) {
	fake := &fakeSession{loadErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	p, _ := newTestPipeline(t, testOptions(), fake.factory())

	res := p.Streams(context.Background(), "https://streamhost.to/abc123")
	if !errors.Is(res.Err(), extract.ErrNetworkFailure) {
		t.Fatalf("error = %v, want NetworkFailure", res.Err())
	}
	if n := fake.destroys.Load(); n != 1 {
		t.Errorf("Destroy called %d times, want 1", n)
	}
}

func TestStreamsSegmentsInsufficient(t *testing.T) {
	fake := &fakeSession{resources: []string{"https://cdn.streamhost.to/hls/master.m3u8"}}
	opts := testOptions()
	opts.SkipResolution = true
	p, _ := newTestPipeline(t, opts, fake.factory())

	res := p.Streams(context.Background(), "https://streamhost.to/abc123")
	if !errors.Is(res.Err(), extract.ErrManifestSegmentsInsufficient) {
		t.Fatalf("error = %v, want ManifestSegmentsInsufficient", res.Err())
	}
}

func TestInvalidInput(t *testing.T) {
	var opened atomic.Bool
	open := func(context.Context) (browser.Session, error) {
		opened.Store(true)
		return &fakeSession{}, nil
	}
	p, _ := newTestPipeline(t, testOptions(), open)

	for _, u := range []string{"", "not a url", "ftp://streamhost.to/abc", "https:///abc"} {
		if res := p.Streams(context.Background(), u); !errors.Is(res.Err(), extract.ErrInvalidInput) {
			t.Errorf("Streams(%q) error = %v, want InvalidInput", u, res.Err())
		}
		if res := p.Media(context.Background(), u); !errors.Is(res.Err(), extract.ErrInvalidInput) {
			t.Errorf("Media(%q) error = %v, want InvalidInput", u, res.Err())
		}
		if res := p.Routes(context.Background(), u); !errors.Is(res.Err(), extract.ErrInvalidInput) {
			t.Errorf("Routes(%q) error = %v, want InvalidInput", u, res.Err())
		}
	}
	if opened.Load() {
		t.Error("browser opened for invalid input")
	}
}

func TestMedia(t *testing.T) {
	fake := &fakeSession{
		resources: []string{testManifest},
		labels:    []string{"360p", "480p", "720p"},
	}
	p, srv := newTestPipeline(t, testOptions(), fake.factory())

	res := p.Media(context.Background(), srv.URL+"/abc123")
	got, err := res.Payload()
	if err != nil {
		t.Fatalf("Media() error: %v\n%s", err, res.Diagnostics())
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 media, got %d", len(got))
	}

	want := []media.Media{
		{Quality: "Low quality", Resolution: "640x360", FileSize: "58.2 MB", URL: "https://cdn.streamhost.to/hls/l0/index-v1-a1.m3u8"},
		{Quality: "Normal quality", Resolution: "854x480", FileSize: "120.1 MB", URL: "https://cdn.streamhost.to/hls/n0/index-v1-a1.m3u8"},
		{Quality: "High quality", Resolution: "1280x720", FileSize: "240.9 MB", URL: "https://cdn.streamhost.to/hls/x0/index-v1-a1.m3u8"},
	}
	for i, w := range want {
		if got[i].Quality != w.Quality || got[i].Resolution != w.Resolution || got[i].FileSize != w.FileSize || got[i].URL != w.URL {
			t.Errorf("got[%d] = %+v, want %+v", i, got[i], w)
		}
		if !strings.Contains(got[i].DownloadRouteURL, "op=download_orig") {
			t.Errorf("got[%d].DownloadRouteURL = %q", i, got[i].DownloadRouteURL)
		}
	}
	if n := fake.destroys.Load(); n != 1 {
		t.Errorf("Destroy called %d times, want 1", n)
	}
}

func TestMediaArityMismatch(t *testing.T) {
	fake := &fakeSession{resources: []string{"https://cdn.streamhost.to/hls/,l0,n0,.urlset/master.m3u8"}}
	opts := testOptions()
	opts.SkipResolution = true
	p, srv := newTestPipeline(t, opts, fake.factory())

	res := p.Media(context.Background(), srv.URL+"/abc123")
	if !errors.Is(res.Err(), extract.ErrMergeArityMismatch) {
		t.Fatalf("error = %v, want MergeArityMismatch", res.Err())
	}
}

func TestMediaRouteFailureShortCircuits(t *testing.T) {
	fake := &fakeSession{hang: true}
	opts := testOptions()
	opts.Timeout = 5 * time.Second
	p, srv := newTestPipeline(t, opts, fake.factory())

	start := time.Now()
	res := p.Media(context.Background(), srv.URL+"/missing/abc123")
	if !errors.Is(res.Err(), extract.ErrNetworkFailure) {
		t.Fatalf("error = %v, want NetworkFailure", res.Err())
	}
	if time.Since(start) > 2*time.Second {
		t.Error("route failure did not end the run early")
	}
	if n := fake.destroys.Load(); n != 1 {
		t.Errorf("Destroy called %d times, want 1", n)
	}
}

func TestRoutes(t *testing.T) {
	p, srv := newTestPipeline(t, testOptions(), nil)

	res := p.Routes(context.Background(), srv.URL+"/abc123")
	got, err := res.Payload()
	if err != nil {
		t.Fatalf("Routes() error: %v", err)
	}
	if len(got) != 3 || got[2].Quality != "High quality" {
		t.Errorf("unexpected routes %+v", got)
	}
}

func TestScriptFallback(t *testing.T) {
	open := func(context.Context) (browser.Session, error) {
		return nil, errors.New("chrome not found")
	}
	p, srv := newTestPipeline(t, testOptions(), open)

	res := p.Streams(context.Background(), srv.URL+"/abc123")
	got, err := res.Payload()
	if err != nil {
		t.Fatalf("Streams() error: %v\n%s", err, res.Diagnostics())
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(got))
	}
	if got[1].Resolution != "1" || got[1].URL != "https://cdn.streamhost.to/hls/n0/index-v1-a1.m3u8" {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestNoFallbackWhenDisabled(t *testing.T) {
	open := func(context.Context) (browser.Session, error) {
		return nil, errors.New("chrome not found")
	}
	srv := fixtureServer(t)
	profile := site.Default()
	profile.ScriptFallback = false
	p := New(testOptions(), open, provider.New(profile, srv.Client(), ""))

	res := p.Streams(context.Background(), srv.URL+"/abc123")
	if !errors.Is(res.Err(), extract.ErrUnexpected) {
		t.Fatalf("error = %v, want UnexpectedFailure", res.Err())
	}
}

func TestCallerCancel(t *testing.T) {
	fake := &fakeSession{hang: true}
	p, _ := newTestPipeline(t, testOptions(), fake.factory())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	res := p.Streams(ctx, "https://streamhost.to/abc123")
	if !errors.Is(res.Err(), extract.ErrUnexpected) {
		t.Fatalf("error = %v, want UnexpectedFailure", res.Err())
	}
	if !errors.Is(res.Err(), context.Canceled) {
		t.Errorf("error %v does not wrap context.Canceled", res.Err())
	}
	if n := fake.destroys.Load(); n != 1 {
		t.Errorf("Destroy called %d times, want 1", n)
	}
}

func TestStartStreamsCallsBackOnce(t *testing.T) {
	fake := &fakeSession{resources: []string{testManifest}}
	opts := testOptions()
	opts.SkipResolution = true
	p, _ := newTestPipeline(t, opts, fake.factory())

	var calls atomic.Int32
	done := make(chan Result[media.StreamSegment], 2)
	p.StartStreams(context.Background(), "https://streamhost.to/abc123", func(res Result[media.StreamSegment]) {
		calls.Add(1)
		done <- res
	})

	select {
	case res := <-done:
		if !res.Ok() {
			t.Fatalf("unexpected failure: %v", res.Err())
		}
	case <-time.After(3 * time.Second):
		t.Fatal("callback never called")
	}
	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("callback called %d times, want 1", calls.Load())
	}
}

// Completion racing the deadline must still deliver exactly one result.
func TestCompletionRacesTimeout(t *testing.T) {
	for i := 0; i < 50; i++ {
		fake := &fakeSession{resources: []string{testManifest}}
		opts := Options{Timeout: time.Millisecond, SkipResolution: true}
		p, _ := newTestPipeline(t, opts, fake.factory())

		res := p.Streams(context.Background(), "https://streamhost.to/abc123")
		if !res.Ok() && !errors.Is(res.Err(), extract.ErrTimeout) {
			t.Fatalf("iteration %d: error = %v", i, res.Err())
		}
		time.Sleep(5 * time.Millisecond)
		if n := fake.destroys.Load(); n > 1 {
			t.Fatalf("iteration %d: Destroy called %d times", i, n)
		}
	}
}
