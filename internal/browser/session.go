// Package browser drives a headless browser tab for the stream pipeline.
// The pipeline only depends on the Session interface; the Chrome
// implementation lives in chrome.go.
package browser

import "context"

// Session is one scriptable browser tab.
type Session interface {
	// Load navigates to url and returns once the page has loaded.
	Load(ctx context.Context, url string) error

	// OnResourceLoad registers fn to be called with the URL of every
	// resource the page requests. fn runs on the browser's event loop and
	// must not block.
	OnResourceLoad(fn func(url string))

	// Evaluate runs script in the page. If out is non-nil the script's
	// result is decoded into it as JSON.
	Evaluate(ctx context.Context, script string, out any) error

	// Destroy blanks the page and tears the session down. Calling it again
	// is a no-op.
	Destroy() error
}

// Factory opens a new Session.
type Factory func(ctx context.Context) (Session, error)
