package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// blankTimeout bounds the about:blank navigation during teardown.
const blankTimeout = 2 * time.Second

// ChromeOptions configures the Chrome process.
type ChromeOptions struct {
	ExecPath  string // empty: let chromedp find Chrome
	Headless  bool
	UserAgent string
}

// NewChromeFactory returns a Factory that starts one Chrome process per
// session.
func NewChromeFactory(opts ChromeOptions) Factory {
	return func(ctx context.Context) (Session, error) {
		return OpenChrome(ctx, opts)
	}
}

type chromeSession struct {
	ctx context.Context

	mu        sync.Mutex
	listeners []func(string)

	destroyOnce sync.Once
	blank       func()
	cancels     []context.CancelFunc
}

// OpenChrome launches Chrome and opens a tab with network events enabled.
func OpenChrome(ctx context.Context, opts ChromeOptions) (Session, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	s := &chromeSession{
		ctx:     tabCtx,
		cancels: []context.CancelFunc{cancelTab, cancelAlloc},
	}
	s.blank = func() {
		bctx, cancel := context.WithTimeout(tabCtx, blankTimeout)
		defer cancel()
		_ = chromedp.Run(bctx, chromedp.Navigate("about:blank"))
	}

	chromedp.ListenTarget(tabCtx, s.handleEvent)

	// The first Run starts the browser.
	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		s.Destroy()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}
	return s, nil
}

func (s *chromeSession) handleEvent(ev interface{}) {
	if e, ok := ev.(*network.EventRequestWillBeSent); ok {
		s.emit(e.Request.URL)
	}
}

func (s *chromeSession) emit(url string) {
	s.mu.Lock()
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(url)
	}
}

func (s *chromeSession) OnResourceLoad(fn func(url string)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *chromeSession) Load(ctx context.Context, url string) error {
	actx, cancel := s.actionContext(ctx)
	defer cancel()

	if err := chromedp.Run(actx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("loading %s: %w", url, err)
	}
	return nil
}

func (s *chromeSession) Evaluate(ctx context.Context, script string, out any) error {
	actx, cancel := s.actionContext(ctx)
	defer cancel()

	if err := chromedp.Run(actx, chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("evaluating script: %w", err)
	}
	return nil
}

// Destroy is safe to call concurrently and more than once.
func (s *chromeSession) Destroy() error {
	s.destroyOnce.Do(func() {
		if s.blank != nil {
			s.blank()
		}
		for _, cancel := range s.cancels {
			cancel()
		}
	})
	return nil
}

// actionContext derives a context for one chromedp action. It stays bound to
// the tab but is also cancelled when ctx is.
func (s *chromeSession) actionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	actx, cancel := context.WithCancel(s.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return actx, func() {
		stop()
		cancel()
	}
}
