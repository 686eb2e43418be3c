package player

import (
	"context"
)

// MPV implements the Player interface for mpv.
type MPV struct{}

func (m *MPV) Name() string { return "mpv" }

func (m *MPV) Available() bool { return lookPath("mpv") }

func (m *MPV) Play(ctx context.Context, url, title string) error {
	return run(ctx, "mpv", m.args(url, title))
}

func (m *MPV) args(url, title string) []string {
	args := []string{url, "--really-quiet"}
	if title != "" {
		args = append(args, "--force-media-title="+title)
	}
	return args
}
