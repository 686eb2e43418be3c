package extract

import (
	"github.com/samber/lo"

	"tubesb/internal/media"
)

// Merge zips routes and stream segments by position. Nothing in the page
// links a listing row to a manifest segment, so the two lists must have the
// same length; a mismatch is reported instead of guessing.
func Merge(routes []media.Route, segments []media.StreamSegment) ([]media.Media, error) {
	if len(routes) != len(segments) {
		return nil, Errorf(MergeArityMismatch,
			"%d download routes but %d stream segments", len(routes), len(segments))
	}

	return lo.Map(routes, func(r media.Route, i int) media.Media {
		return media.Media{
			Quality:          r.Quality,
			Resolution:       r.Resolution,
			FileSize:         r.FileSize,
			URL:              segments[i].URL,
			DownloadRouteURL: r.DownloadRouteURL,
		}
	}), nil
}
