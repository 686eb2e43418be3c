package provider

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tubesb/internal/diag"
	"tubesb/internal/extract"
	"tubesb/internal/media"
	"tubesb/internal/site"
)

// ExtractRoutes reads the download listing table of a video page. Rows are
// returned in document order; the first malformed row aborts extraction.
func ExtractRoutes(doc *goquery.Document, host string, profile site.Profile, trace *diag.Log) ([]media.Route, error) {
	routeRe, err := regexp.Compile(profile.RoutePattern)
	if err != nil {
		return nil, extract.Wrap(extract.UnexpectedFailure, "compiling route pattern", err)
	}

	if doc.Find(profile.TableSelector).Length() == 0 {
		trace.Add("- listing table not found")
		return nil, extract.Errorf(extract.NoRoutesFound, extract.MsgNoRoutes)
	}

	rows := doc.Find(profile.RowSelector)
	trace.Addf("- selected tr elements : %d", rows.Length())

	routes := make([]media.Route, 0, rows.Length())
	var rowErr error

	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.Find("td")
		trace.Addf("- selected td elements for %d tr : %d", i, cells.Length())
		if cells.Length() < 2 {
			return true
		}

		route, err := parseRouteRow(cells, host, routeRe, profile)
		if err != nil {
			trace.Addf("- row %d rejected: %v", i, err)
			rowErr = err
			return false
		}
		routes = append(routes, route)
		return true
	})

	if rowErr != nil {
		return nil, rowErr
	}
	return routes, nil
}

// parseRouteRow turns one listing row into a Route.
//
//	<td><a onclick="download_video('id','n','hash')">Normal quality</a></td>
//	<td>854x480, 120.1 MB</td>
func parseRouteRow(cells *goquery.Selection, host string, routeRe *regexp.Regexp, profile site.Profile) (media.Route, error) {
	anchor := cells.Eq(0).Find("a").First()
	if anchor.Length() == 0 {
		return media.Route{}, extract.Errorf(extract.AnchorMissing, extract.MsgAnchorMissing)
	}

	onclick, _ := anchor.Attr("onclick")
	m := routeRe.FindStringSubmatch(onclick)
	if len(m) != 4 {
		return media.Route{}, extract.Errorf(extract.RouteRegexMismatch, extract.MsgRouteRegexMismatch)
	}

	details := strings.Split(cells.Eq(1).Text(), ",")
	if len(details) < 2 {
		return media.Route{}, extract.Errorf(extract.NoFileSizeInfo, extract.MsgNoFileSize)
	}

	return media.Route{
		Quality:          strings.TrimSpace(anchor.Text()),
		Resolution:       strings.TrimSpace(details[0]),
		FileSize:         strings.TrimSpace(details[1]),
		DownloadRouteURL: profile.RouteURL(host, m[1], m[2], m[3]),
	}, nil
}

// parseDirectLink returns the href of the first anchor matching selector.
func parseDirectLink(doc *goquery.Document, selector string) (string, error) {
	href, ok := doc.Find(selector).First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return "", extract.Errorf(extract.DirectLinkNotFound, extract.MsgDirectLinkNotFound)
	}
	return href, nil
}
