// Package download provides ffmpeg-based downloading of resolved videos.
// ffmpeg is run with an explicit argument slice and the output path is
// validated against directory traversal.
package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"odkdl/internal/httputil"
	"odkdl/internal/media"
)

// ErrNoFormat is returned for videos without any downloadable format.
var ErrNoFormat = errors.New("video has no downloadable format")

// Request describes one download.
type Request struct {
	Info      *media.Info
	OutputDir string
	// Subtitle is a local file or an HLS subtitle playlist URL; empty skips subtitles.
	Subtitle string
}

// OutputPath returns where the video will be written inside absDir.
func OutputPath(absDir string, info *media.Info) (string, error) {
	name := info.Title
	if name == "" {
		name = info.ID
	}
	return httputil.SafeDownloadPath(absDir, httputil.SanitizeFilename(name)+".mkv")
}

// Args builds the ffmpeg argument list for the best format of req.Info.
func Args(req Request, outputPath string) ([]string, error) {
	format := req.Info.BestFormat()
	if format == nil {
		return nil, ErrNoFormat
	}

	args := []string{
		"-y", // Overwrite output
		"-user_agent", httputil.UserAgent,
		"-i", format.URL,
	}

	if req.Subtitle != "" {
		args = append(args,
			"-i", req.Subtitle,
			"-c:s", "srt", // Convert subtitles to SRT for MKV
		)
	}

	args = append(args,
		"-c:v", "copy",
		"-c:a", "copy",
	)

	if req.Subtitle != "" {
		args = append(args,
			"-map", "0:v?",
			"-map", "0:a?",
			"-map", "1:s",
		)
	}

	args = append(args, "-metadata", fmt.Sprintf("title=%s", req.Info.Title))
	if req.Info.Series != "" {
		args = append(args, "-metadata", fmt.Sprintf("show=%s", req.Info.Series))
	}
	if req.Info.EpisodeNumber > 0 {
		args = append(args, "-metadata", fmt.Sprintf("episode_id=%d", req.Info.EpisodeNumber))
	}

	return append(args, outputPath), nil
}

// Download fetches the best format of req.Info to a local file using ffmpeg.
func Download(ctx context.Context, req Request) (string, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	absDir, err := filepath.Abs(req.OutputDir)
	if err != nil {
		return "", fmt.Errorf("resolving output directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	outputPath, err := OutputPath(absDir, req.Info)
	if err != nil {
		return "", fmt.Errorf("invalid output path: %w", err)
	}

	args, err := Args(req, outputPath)
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	log.WithContext(ctx).WithFields(log.Fields{
		"id":     req.Info.ID,
		"format": req.Info.BestFormat().FormatID,
		"output": outputPath,
	}).Info("Downloading")

	if err := cmd.Run(); err != nil {
		// Clean up partial download on failure
		os.Remove(outputPath)
		return "", fmt.Errorf("ffmpeg download failed: %w", err)
	}

	return outputPath, nil
}
