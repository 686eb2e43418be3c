package cmd

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"tubesb/internal/media"
	"tubesb/internal/ui"
)

var streamsCmd = &cobra.Command{
	Use:   "streams <url>",
	Short: "List the stream of every quality without download routes",
	Args:  cobra.ExactArgs(1),
	RunE:  streamsRun,
}

var routesCmd = &cobra.Command{
	Use:   "routes <url>",
	Short: "List the download routes of a video page (no browser)",
	Args:  cobra.ExactArgs(1),
	RunE:  routesRun,
}

// mediaRun is the default command: tubesb <url>
func mediaRun(cmd *cobra.Command, args []string) error {
	site := newSite()
	res := newPipeline(site).Media(cmd.Context(), args[0])

	items, err := report(res, ui.MediaTable)
	if err != nil || !wantsAction() {
		return err
	}

	options := lo.Map(items, func(m media.Media, _ int) ui.Option {
		return ui.Option{Title: m.Quality, Description: fmt.Sprintf("%s, %s", m.Resolution, m.FileSize)}
	})
	idx, err := choose("Quality", options)
	if err != nil {
		return err
	}

	m := items[idx]
	return act(cmd.Context(), site, target{title: m.Quality, stream: m.URL, route: m.DownloadRouteURL})
}

func streamsRun(cmd *cobra.Command, args []string) error {
	site := newSite()
	res := newPipeline(site).Streams(cmd.Context(), args[0])

	items, err := report(res, ui.StreamTable)
	if err != nil || !wantsAction() {
		return err
	}

	options := lo.Map(items, func(s media.StreamSegment, _ int) ui.Option {
		return ui.Option{Title: s.Resolution, Description: s.URL}
	})
	idx, err := choose("Stream", options)
	if err != nil {
		return err
	}

	s := items[idx]
	return act(cmd.Context(), site, target{title: s.Resolution, stream: s.URL})
}

func routesRun(cmd *cobra.Command, args []string) error {
	site := newSite()
	res := newPipeline(site).Routes(cmd.Context(), args[0])

	items, err := report(res, ui.RouteTable)
	if err != nil || !wantsAction() {
		return err
	}

	options := lo.Map(items, func(r media.Route, _ int) ui.Option {
		return ui.Option{Title: r.Quality, Description: fmt.Sprintf("%s, %s", r.Resolution, r.FileSize)}
	})
	idx, err := choose("Route", options)
	if err != nil {
		return err
	}

	r := items[idx]
	return act(cmd.Context(), site, target{title: r.Quality, route: r.DownloadRouteURL})
}
