// Package site holds everything that ties tubesb to the markup and URL
// conventions of one hosting site: selectors, patterns, URL templates and the
// scripts injected into the player page. Swapping the Profile retargets the
// extractors without code changes.
//
// The combined media operation zips the listing table rows with the segment
// URLs by position. A profile is only valid for sites where the table lists
// qualities in the same order as the manifest's segment list, lowest first.
package site

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Profile describes a hosting site.
type Profile struct {
	// ManifestExt is matched against browser resource URLs.
	ManifestExt string `toml:"manifest_ext"`
	// SegmentSuffix is appended to every generated segment URL.
	SegmentSuffix string `toml:"segment_suffix"`
	// PlayPrefix is inserted before the page path to get the player page.
	PlayPrefix string `toml:"play_prefix"`

	TableSelector      string `toml:"table_selector"`
	RowSelector        string `toml:"row_selector"`
	DirectLinkSelector string `toml:"direct_link_selector"`

	// RoutePattern must capture id, mode and hash from the anchor's onclick.
	RoutePattern string `toml:"route_pattern"`
	// RouteTemplate takes host, id, mode, hash in that order.
	RouteTemplate string `toml:"route_template"`

	// ManifestPattern captures the manifest URL from an unpacked player script.
	ManifestPattern string `toml:"manifest_pattern"`
	// ScriptFallback enables the static player-script path when no browser
	// session can be opened.
	ScriptFallback bool `toml:"script_fallback"`

	TriggerScript string `toml:"-"`
	ProbeScript   string `toml:"-"`
}

// Default returns the profile of the supported site.
func Default() Profile {
	return Profile{
		ManifestExt:        ".m3u8",
		SegmentSuffix:      "/index-v1-a1.m3u8",
		PlayPrefix:         "/play",
		TableSelector:      "div#content table.tbl1",
		RowSelector:        "div#content table.tbl1 tbody tr:has(td)",
		DirectLinkSelector: "div#container div.contentbox span a",
		RoutePattern:       `download_video\('([^']*)','([^']*)','([^']*)'\)`,
		RouteTemplate:      "https://%s/dl?op=download_orig&id=%s&mode=%s&hash=%s",
		ManifestPattern:    `file\s*:\s*["']([^"']+\.m3u8[^"']*)["']`,
		ScriptFallback:     true,
		TriggerScript:      triggerScript,
		ProbeScript:        probeScript,
	}
}

// Validate checks that the patterns compile and required fields are set.
func (p Profile) Validate() error {
	if p.ManifestExt == "" {
		return fmt.Errorf("manifest extension cannot be empty")
	}
	if p.RowSelector == "" || p.TableSelector == "" {
		return fmt.Errorf("listing table selectors cannot be empty")
	}
	re, err := regexp.Compile(p.RoutePattern)
	if err != nil {
		return fmt.Errorf("route pattern: %w", err)
	}
	if re.NumSubexp() != 3 {
		return fmt.Errorf("route pattern must have 3 capture groups, has %d", re.NumSubexp())
	}
	if strings.Count(p.RouteTemplate, "%s") != 4 {
		return fmt.Errorf("route template must have 4 %%s verbs: %q", p.RouteTemplate)
	}
	if _, err := regexp.Compile(p.ManifestPattern); err != nil {
		return fmt.Errorf("manifest pattern: %w", err)
	}
	return nil
}

// RouteURL builds the download route URL for one listing row.
func (p Profile) RouteURL(host, id, mode, hash string) string {
	return fmt.Sprintf(p.RouteTemplate, host, id, mode, hash)
}

// PlayURL rewrites a video page URL into its player page:
// https://host/abc123 -> https://host/play/abc123
func (p Profile) PlayURL(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parsing URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL has no host")
	}
	return fmt.Sprintf("%s://%s%s%s", u.Scheme, u.Host, p.PlayPrefix, u.Path), nil
}

// triggerScript waits for the player's loading overlay to disappear and
// clicks the last div, which starts playback and the manifest request.
const triggerScript = `(function () {
  let loadingDiv = document.getElementById("loading");
  if (!loadingDiv) { return; }
  let observer = new MutationObserver(function () {
    if (loadingDiv.style.display === "none") {
      observer.disconnect();
      let divList = document.querySelectorAll("div");
      if (divList.length >= 1) {
        divList[divList.length - 1].click();
      }
    }
  });
  observer.observe(loadingDiv, { attributes: true, childList: false });
})();`

// probeScript reads the quality labels of the player's settings submenu,
// lowest quality first.
const probeScript = `(function () {
  let resolutionList = [];
  let menuList = document.querySelectorAll("div.jw-reset.jw-settings-submenu");
  if (menuList.length >= 2) {
    menuList[1].childNodes.forEach((button) => {
      let resolution = button.innerText || "";
      if (!resolution.startsWith("Auto")) {
        resolutionList.push(resolution);
      }
    });
    resolutionList.reverse();
  }
  return resolutionList;
})();`
