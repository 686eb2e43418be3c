// Package provider scrapes the hosting site's HTML pages: the download
// listing of a video page and the direct link behind a download route.
package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"

	"tubesb/internal/diag"
	"tubesb/internal/extract"
	"tubesb/internal/httputil"
	"tubesb/internal/media"
	"tubesb/internal/site"
)

// Site fetches and parses pages of one hosting site.
type Site struct {
	profile   site.Profile
	client    *http.Client
	userAgent string
}

// New creates a Site. A nil client gets a default hardened client.
func New(profile site.Profile, client *http.Client, userAgent string) *Site {
	if client == nil {
		client = httputil.NewClient(httputil.Options{})
	}
	return &Site{
		profile:   profile,
		client:    client,
		userAgent: userAgent,
	}
}

// Profile returns the site profile.
func (s *Site) Profile() site.Profile {
	return s.profile
}

// Client returns the HTTP client, which holds the site's cookies.
func (s *Site) Client() *http.Client {
	return s.client
}

// Routes fetches a video page and extracts its download routes.
func (s *Site) Routes(ctx context.Context, pageURL string, trace *diag.Log) ([]media.Route, error) {
	trace.Add("- started route extractor")
	trace.Addf("- target url %s", pageURL)

	doc, err := s.FetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	trace.Add("- url has scraped")

	return ExtractRoutes(doc, httputil.Host(pageURL), s.profile, trace)
}

// DirectLink fetches a download route page and returns the direct download
// link it points to.
func (s *Site) DirectLink(ctx context.Context, routeURL string, trace *diag.Log) (string, error) {
	trace.Addf("- resolving direct link from %s", routeURL)

	doc, err := s.FetchDocument(ctx, routeURL)
	if err != nil {
		return "", err
	}

	link, err := parseDirectLink(doc, s.profile.DirectLinkSelector)
	if err != nil {
		return "", err
	}
	trace.Addf("- direct link %s", link)
	return link, nil
}

// FetchDocument fetches a URL and parses it into a goquery Document.
// Every failure is reported as NetworkFailure.
func (s *Site) FetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := httputil.Get(ctx, s.client, url, s.userAgent)
	if err != nil {
		return nil, extract.Wrap(extract.NetworkFailure, "fetching "+url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, extract.Wrap(extract.NetworkFailure, "fetching "+url,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, extract.Wrap(extract.NetworkFailure, "parsing HTML", err)
	}

	return doc, nil
}
