package extract

import (
	"strconv"
	"strings"

	"github.com/samber/lo"

	"tubesb/internal/media"
)

// minManifestParts is prefix + at least one segment + trailing marker.
const minManifestParts = 3

// Segments derives the per-quality stream URLs from a raw manifest URL of the
// form "prefix,seg1,seg2,...,segN,marker". The prefix and trailing marker
// are not segments themselves; every segment becomes prefix+segment+suffix.
func Segments(rawManifestURL, suffix string) ([]string, error) {
	parts := strings.Split(rawManifestURL, ",")
	if len(parts) < minManifestParts {
		return nil, Errorf(ManifestSegmentsInsufficient, "%s (%d parts)", MsgSegmentsShort, len(parts))
	}

	prefix := parts[0]
	urls := make([]string, 0, len(parts)-2)
	for _, seg := range parts[1 : len(parts)-1] {
		urls = append(urls, prefix+seg+suffix)
	}
	return urls, nil
}

// Label attaches labels to segment URLs. Labels are used only when there is
// one for every URL; otherwise the index is used as the label.
func Label(urls []string, labels []string) []media.StreamSegment {
	useLabels := len(labels) > 0 && len(labels) >= len(urls)
	return lo.Map(urls, func(u string, i int) media.StreamSegment {
		res := strconv.Itoa(i)
		if useLabels {
			res = labels[i]
		}
		return media.StreamSegment{Resolution: res, URL: u}
	})
}
