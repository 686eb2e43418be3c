package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"tubesb/internal/diag"
	"tubesb/internal/log"
	"tubesb/internal/provider"
	"tubesb/internal/ui"
)

var linkCmd = &cobra.Command{
	Use:   "link <route-url>",
	Short: "Resolve a download route to its direct download link",
	Args:  cobra.ExactArgs(1),
	RunE:  linkRun,
}

func linkRun(cmd *cobra.Command, args []string) error {
	site := newSite()
	entry := log.NewRun("link")
	trace := diag.New(func(s string) { entry.Debug(s) })

	link, err := site.DirectLink(cmd.Context(), args[0], trace)
	if flagTrace {
		fmt.Fprint(os.Stderr, ui.Trace(trace.Freeze()))
	}
	if err != nil {
		return err
	}

	return finishLink(cmd.Context(), site, os.Stdout, args[0], link)
}

// finishLink prints the resolved link and then plays or downloads it if
// asked to.
func finishLink(ctx context.Context, site *provider.Site, w io.Writer, route, link string) error {
	if flagJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]string{"route": route, "link": link}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w, link)
	}

	if wantsAction() {
		return act(ctx, site, target{title: "download", link: link})
	}
	return nil
}
