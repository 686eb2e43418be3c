// Package player launches an external media player on a resolved stream.
// All player invocations use exec.Command with explicit argument slices;
// URLs scraped from pages never pass through a shell.
package player

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Player is the interface for media player implementations.
type Player interface {
	// Play starts playback of a stream URL and blocks until the player exits.
	Play(ctx context.Context, url, title string) error

	// Name returns the player name.
	Name() string

	// Available checks if the player binary exists in PATH.
	Available() bool
}

// New creates a player by name.
func New(name string) Player {
	switch name {
	case "mpv":
		return &MPV{}
	case "vlc":
		return &VLC{}
	case "iina", "celluloid":
		return &Generic{name: name}
	default:
		return &MPV{} // Default to mpv
	}
}

func lookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// run starts the player attached to the terminal. A non-zero exit is how
// most players report a user quit, so it is not an error.
func run(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return nil
		}
		return fmt.Errorf("running %s: %w", name, err)
	}
	return nil
}
