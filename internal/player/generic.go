package player

import (
	"context"
)

// Generic implements the Player interface for players like iina and celluloid
// that accept mpv-compatible arguments.
type Generic struct {
	name string
}

func (g *Generic) Name() string { return g.name }

func (g *Generic) Available() bool { return lookPath(g.name) }

func (g *Generic) Play(ctx context.Context, url, title string) error {
	return run(ctx, g.name, g.args(url, title))
}

func (g *Generic) args(url, title string) []string {
	args := []string{url}
	if title != "" {
		args = append(args, "--force-media-title="+title)
	}
	return args
}
