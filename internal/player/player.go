// Package player launches an external media player on a resolved stream.
// Players are started with exec.CommandContext and an explicit argument
// slice; no shell is involved.
package player

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Supported lists the player names New accepts.
var Supported = []string{"mpv", "vlc", "iina", "celluloid"}

// Target is what to play.
type Target struct {
	URL   string
	Title string
	// Subtitle is a local file or an HLS subtitle playlist URL.
	Subtitle string
}

// Player is the interface for media player implementations.
type Player interface {
	// Name returns the player binary name.
	Name() string

	// Available checks if the player binary exists in PATH.
	Available() bool

	// Args returns the command-line arguments for playing t.
	Args(t Target) []string

	// Play runs the player until it exits.
	Play(ctx context.Context, t Target) error
}

// New creates a player by name. Unknown names fall back to mpv.
func New(name string) Player {
	switch strings.ToLower(name) {
	case "vlc":
		return &VLC{}
	case "iina", "celluloid":
		return &MPV{name: strings.ToLower(name)}
	default:
		return &MPV{name: "mpv"}
	}
}

// MPV drives mpv and players that accept mpv-style flags (iina, celluloid).
type MPV struct {
	name string
}

func (m *MPV) Name() string { return m.name }

func (m *MPV) Available() bool { return available(m.name) }

func (m *MPV) Args(t Target) []string {
	args := []string{
		t.URL,
		"--force-media-title=" + t.Title,
	}
	if m.name == "mpv" {
		args = append(args, "--really-quiet")
	}
	if t.Subtitle != "" {
		args = append(args, "--sub-file="+t.Subtitle)
	}
	return args
}

func (m *MPV) Play(ctx context.Context, t Target) error {
	return run(ctx, m.name, m.Args(t))
}

// VLC drives VLC media player.
type VLC struct{}

func (v *VLC) Name() string { return "vlc" }

func (v *VLC) Available() bool { return available("vlc") }

func (v *VLC) Args(t Target) []string {
	args := []string{
		t.URL,
		"--meta-title", t.Title,
		"--play-and-exit",
	}
	if t.Subtitle != "" {
		args = append(args, "--sub-file", t.Subtitle)
	}
	return args
}

func (v *VLC) Play(ctx context.Context, t Target) error {
	return run(ctx, "vlc", v.Args(t))
}

func available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func run(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		// Players exit non-zero when the user quits mid-stream.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return fmt.Errorf("running %s: %w", name, err)
	}
	return nil
}
