package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/term"

	"tubesb/internal/diag"
	"tubesb/internal/download"
	"tubesb/internal/log"
	"tubesb/internal/pipeline"
	"tubesb/internal/player"
	"tubesb/internal/provider"
	"tubesb/internal/ui"
)

// configDownloadDir is the --download value used when the flag is given
// without a directory. It selects download_dir from the config.
const configDownloadDir = "auto"

// jsonReport is the --json output of a run.
type jsonReport struct {
	Items       any           `json:"items"`
	Error       string        `json:"error,omitempty"`
	Kind        string        `json:"kind,omitempty"`
	Diagnostics diag.Snapshot `json:"diagnostics,omitempty"`
}

// report prints a run result as a table or JSON and returns its payload.
func report[T any](res pipeline.Result[T], table func([]T) string) ([]T, error) {
	items, _ := res.Payload()
	rerr := res.Err()

	if flagJSON {
		out := jsonReport{Items: items}
		if items == nil {
			out.Items = []T{}
		}
		if rerr != nil {
			out.Error = rerr.Error()
			out.Kind = rerr.Kind.String()
		}
		if flagTrace {
			out.Diagnostics = res.Diagnostics()
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return nil, fmt.Errorf("encoding JSON: %w", err)
		}
	} else if flagTrace {
		fmt.Fprint(os.Stderr, ui.Trace(res.Diagnostics()))
	}

	if rerr != nil {
		return nil, rerr
	}
	if !flagJSON {
		fmt.Println(table(items))
	}
	return items, nil
}

func wantsAction() bool {
	return flagPlay || flagDownload != ""
}

// choose returns the index of the item to act on: the user's pick with
// --select, otherwise the last (highest quality) item.
func choose(title string, options []ui.Option) (int, error) {
	if len(options) == 0 {
		return -1, fmt.Errorf("nothing to choose from")
	}
	if !flagSelect {
		return len(options) - 1, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return -1, fmt.Errorf("--select needs an interactive terminal")
	}
	return ui.Select(title, options)
}

// target is the item chosen for --play or --download.
type target struct {
	title  string
	stream string // HLS stream URL
	route  string // download route, resolved to link on demand
	link   string // direct file link
}

func (t *target) directLink(ctx context.Context, site *provider.Site) (string, error) {
	if t.link != "" {
		return t.link, nil
	}
	if t.route == "" {
		return "", fmt.Errorf("no download route for %s", t.title)
	}
	link, err := site.DirectLink(ctx, t.route, nil)
	if err != nil {
		return "", err
	}
	t.link = link
	return link, nil
}

// act plays or downloads the chosen item.
func act(ctx context.Context, site *provider.Site, t target) error {
	if flagPlay {
		url := t.stream
		if url == "" {
			link, err := t.directLink(ctx, site)
			if err != nil {
				return err
			}
			url = link
		}

		p := player.New(cfg.Player)
		if !p.Available() {
			return fmt.Errorf("%s not found in PATH", p.Name())
		}
		log.Infof("playing %s with %s", url, p.Name())
		return p.Play(ctx, url, t.title)
	}

	dir := flagDownload
	if dir == configDownloadDir {
		var err error
		if dir, err = cfg.ExpandDownloadDir(); err != nil {
			return err
		}
	}

	// Prefer the original file behind the download route over remuxing HLS.
	if t.route != "" || t.link != "" {
		link, err := t.directLink(ctx, site)
		if err != nil {
			return err
		}
		path, err := download.File(ctx, site.Client(), link, cfg.UserAgent, dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved %s\n", path)
		return nil
	}

	path, err := download.Stream(ctx, t.stream, t.title, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Saved %s\n", path)
	return nil
}
