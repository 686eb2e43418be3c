package player

import (
	"context"
)

// VLC implements the Player interface for VLC media player.
type VLC struct{}

func (v *VLC) Name() string { return "vlc" }

func (v *VLC) Available() bool { return lookPath("vlc") }

func (v *VLC) Play(ctx context.Context, url, title string) error {
	return run(ctx, "vlc", v.args(url, title))
}

func (v *VLC) args(url, title string) []string {
	args := []string{url, "--play-and-exit"}
	if title != "" {
		args = append(args, "--meta-title", title)
	}
	return args
}
