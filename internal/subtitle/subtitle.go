// Package subtitle picks subtitle tracks by language and stages them for ffmpeg.
// Downloads go to an os.MkdirTemp directory with a random suffix.
package subtitle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"

	"odkdl/internal/httputil"
	"odkdl/internal/media"
)

// maxSubtitleBytes caps a single subtitle download.
var maxSubtitleBytes int64 = 10 * 1024 * 1024

// Candidate is a subtitle track together with the language key it was listed under.
type Candidate struct {
	Language string
	Track    media.SubtitleTrack
}

// Flatten lists every track, ordered by language key.
func Flatten(subtitles map[string][]media.SubtitleTrack) []Candidate {
	langs := lo.Keys(subtitles)
	slices.Sort(langs)
	return lo.FlatMap(langs, func(lang string, _ int) []Candidate {
		return lo.Map(subtitles[lang], func(track media.SubtitleTrack, _ int) Candidate {
			return Candidate{Language: lang, Track: track}
		})
	})
}

// Filter returns tracks whose language key or name contains language (case-insensitive).
func Filter(subtitles map[string][]media.SubtitleTrack, language string) []Candidate {
	all := Flatten(subtitles)
	if language == "" {
		return all
	}

	lang := strings.ToLower(language)
	return lo.Filter(all, func(c Candidate, _ int) bool {
		return strings.Contains(strings.ToLower(c.Language), lang) ||
			strings.Contains(strings.ToLower(c.Track.Name), lang)
	})
}

// BestMatch returns the best track for the given language, or nil.
// An exact language key wins over a partial match, and SDH variants
// are used only when nothing else matches.
func BestMatch(subtitles map[string][]media.SubtitleTrack, language string) *Candidate {
	filtered := Filter(subtitles, language)
	if len(filtered) == 0 {
		return nil
	}

	lang := strings.ToLower(language)
	isSDH := func(c Candidate) bool {
		return strings.Contains(strings.ToLower(c.Track.Name), "sdh")
	}

	if c, ok := lo.Find(filtered, func(c Candidate) bool {
		return strings.ToLower(c.Language) == lang && !isSDH(c)
	}); ok {
		return &c
	}
	if c, ok := lo.Find(filtered, func(c Candidate) bool { return !isSDH(c) }); ok {
		return &c
	}
	return &filtered[0]
}

// IsPlaylist reports whether the track is an HLS subtitle playlist, which
// ffmpeg reads directly instead of from a downloaded file.
func IsPlaylist(track media.SubtitleTrack) bool {
	return track.Protocol == "m3u8_native" || strings.HasSuffix(strings.ToLower(track.URL), ".m3u8")
}

// TempDir manages a secure temporary directory for subtitle files.
type TempDir struct {
	path string
}

// NewTempDir creates a randomized temporary directory for subtitle files.
func NewTempDir() (*TempDir, error) {
	dir, err := os.MkdirTemp("", "odkdl-subs-*")
	if err != nil {
		return nil, fmt.Errorf("creating subtitle temp dir: %w", err)
	}
	return &TempDir{path: dir}, nil
}

// Cleanup removes the temporary directory and all contents.
func (t *TempDir) Cleanup() {
	if t.path != "" {
		os.RemoveAll(t.path)
	}
}

// Download fetches a subtitle file to the temp directory and returns the local path.
func (t *TempDir) Download(ctx context.Context, hc *http.Client, track media.SubtitleTrack) (string, error) {
	if err := httputil.ValidateURL(track.URL); err != nil {
		return "", fmt.Errorf("invalid subtitle URL: %w", err)
	}

	filename := "subtitle." + lo.Ternary(track.Ext != "", track.Ext, "vtt")
	if parts := strings.Split(track.URL, "/"); len(parts) > 0 {
		last := parts[len(parts)-1]
		if idx := strings.Index(last, "?"); idx != -1 {
			last = last[:idx]
		}
		if last != "" {
			filename = httputil.SanitizeFilename(last)
		}
	}

	localPath := filepath.Join(t.path, filename)

	resp, err := httputil.NewRestClient(hc).R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(track.URL)
	if err != nil {
		return "", fmt.Errorf("downloading subtitle: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("subtitle download returned status %d", resp.StatusCode())
	}

	f, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("creating subtitle file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(body, maxSubtitleBytes+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n > maxSubtitleBytes {
		err = fmt.Errorf("subtitle exceeds %d bytes", maxSubtitleBytes)
	}
	if err != nil {
		os.Remove(localPath)
		return "", fmt.Errorf("writing subtitle file: %w", err)
	}

	return localPath, nil
}
