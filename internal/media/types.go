// Package media defines shared types for the tubesb application.
package media

// Route is one row of the site's download listing.
type Route struct {
	Quality          string `json:"quality"`    // Anchor text, e.g. "High quality"
	Resolution       string `json:"resolution"` // e.g. "1280x720"
	FileSize         string `json:"file_size"`  // e.g. "210.4 MB"
	DownloadRouteURL string `json:"download_route_url"`
}

func (r Route) String() string { return r.Quality }

// StreamSegment is one playable per-quality stream URL.
type StreamSegment struct {
	Resolution string `json:"resolution"` // Probe label ("720p") or index ("0")
	URL        string `json:"url"`
}

func (s StreamSegment) String() string { return s.Resolution }

// Media pairs a Route with the StreamSegment at the same position.
type Media struct {
	Quality          string `json:"quality"`
	Resolution       string `json:"resolution"`
	FileSize         string `json:"file_size"`
	URL              string `json:"url"`
	DownloadRouteURL string `json:"download_route_url"`
}

func (m Media) String() string { return m.Quality }
