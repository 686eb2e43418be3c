// Package download saves resolved media to disk. HLS streams go through
// ffmpeg; direct links are fetched over HTTP. Both validate output paths
// against directory traversal.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"

	"tubesb/internal/httputil"
)

// Stream remuxes an HLS stream into an mp4 file using ffmpeg.
func Stream(ctx context.Context, streamURL, title, outputDir string) (string, error) {
	// Validate ffmpeg is available
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	dest, err := outputPath(outputDir, httputil.SanitizeFilename(title)+".mp4")
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, ffmpegPath, ffmpegArgs(streamURL, title, dest)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	fmt.Fprintf(os.Stderr, "Downloading to: %s\n", dest)

	if err := cmd.Run(); err != nil {
		// Clean up partial download on failure
		os.Remove(dest)
		return "", fmt.Errorf("ffmpeg download failed: %w", err)
	}

	return dest, nil
}

func ffmpegArgs(streamURL, title, outputPath string) []string {
	return []string{
		"-y", // Overwrite output
		"-loglevel", "warning",
		"-i", streamURL,
		"-c", "copy", // No re-encoding
		"-bsf:a", "aac_adtstoasc",
		"-metadata", "title=" + title,
		outputPath,
	}
}

// File downloads a direct link into outputDir, naming the file after the
// last path element of the URL. The body is written to a .part file that is
// renamed once complete.
func File(ctx context.Context, client *http.Client, link, userAgent, outputDir string) (string, error) {
	target, err := outputPath(outputDir, httputil.FilenameFromURL(link))
	if err != nil {
		return "", err
	}

	// The page client's timeout would cut off large files mid-body.
	resp, err := httputil.Get(ctx, httputil.WithoutTimeout(client), link, userAgent)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: unexpected status %d", link, resp.StatusCode)
	}

	part := target + ".part"
	f, err := os.Create(part)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", part, err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(part)
		return "", fmt.Errorf("writing %s: %w", part, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(part)
		return "", fmt.Errorf("closing %s: %w", part, err)
	}

	if err := os.Rename(part, target); err != nil {
		return "", fmt.Errorf("renaming download: %w", err)
	}
	return target, nil
}

// outputPath creates outputDir and returns the validated path of filename
// inside it.
func outputPath(outputDir, filename string) (string, error) {
	absDir, err := filepath.Abs(outputDir)
	if err != nil {
		return "", fmt.Errorf("resolving output directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path, err := httputil.SafeDownloadPath(absDir, filename)
	if err != nil {
		return "", fmt.Errorf("invalid output path: %w", err)
	}
	return path, nil
}
