package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"odkdl/internal/download"
	"odkdl/internal/extract"
	"odkdl/internal/history"
	"odkdl/internal/httputil"
	"odkdl/internal/media"
	"odkdl/internal/player"
	"odkdl/internal/subtitle"
	"odkdl/internal/ui"
)

func resolveRun(cmd *cobra.Command, args []string) error {
	return resolveURL(cmd, args[0])
}

// resolveURL resolves rawURL and then prints, downloads or plays it
// according to the flags.
func resolveURL(cmd *cobra.Command, rawURL string) error {
	ctx := cmd.Context()
	hc := httputil.NewClient()
	styled := !flagJSON && ui.IsTerminal(os.Stdout)

	resolver := extract.New(extract.Options{
		HTTPClient: hc,
		RESTBase:   cfg.RESTBase,
		SiteURL:    cfg.SiteURL,
	})

	info, err := resolver.Resolve(ctx, rawURL)
	if err != nil {
		if msg, ok := userMessage(err); ok {
			ui.RenderError(cmd.ErrOrStderr(), msg, ui.IsTerminal(os.Stderr))
			cmd.SilenceErrors = true
			return errReported
		}
		return fmt.Errorf("resolving %s: %w", rawURL, err)
	}

	logger := log.WithContext(ctx).WithFields(log.Fields{"id": info.ID, "extractor": info.Extractor})
	logger.WithField("formats", len(info.Formats)).Debug("Resolved")

	if cfg.History {
		saveHistory(ctx, info)
	}

	if flagJSON {
		if err := writeJSON(cmd.OutOrStdout(), info); err != nil {
			return err
		}
	} else if err := ui.RenderInfo(cmd.OutOrStdout(), info, styled); err != nil {
		return err
	}

	if flagDownload == "" && !flagPlay {
		return nil
	}

	subFile, cleanup := stageSubtitle(ctx, hc, info)
	defer cleanup()

	if flagDownload != "" {
		dir, err := downloadDir(cfg)
		if err != nil {
			return err
		}
		outputPath, err := download.Download(ctx, download.Request{
			Info:      info,
			OutputDir: dir,
			Subtitle:  subFile,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Downloaded: %s\n", outputPath)
		if summary, err := download.Probe(ctx, outputPath); err != nil {
			logger.WithError(err).Debug("Couldn't probe download")
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", summary)
		}
		return nil
	}

	best := info.BestFormat()
	if best == nil {
		return download.ErrNoFormat
	}
	p := player.New(cfg.Player)
	if !p.Available() {
		return fmt.Errorf("player %q not found in PATH", cfg.Player)
	}
	if err := p.Play(ctx, player.Target{URL: best.URL, Title: info.Title, Subtitle: subFile}); err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}
	return nil
}

// userMessage returns the text to show for expected extraction failures.
func userMessage(err error) (string, bool) {
	var e *extract.Error
	if !errors.As(err, &e) || !e.Expected {
		return "", false
	}
	if e.Kind == extract.KindGeoRestricted {
		return "video is geo-restricted; available in: " + strings.Join(e.Countries, ", "), true
	}
	return e.Error(), true
}

func writeJSON(w io.Writer, info *media.Info) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func saveHistory(ctx context.Context, info *media.Info) {
	store, err := history.OpenDefault(ctx)
	if err != nil {
		log.WithError(err).Warn("Couldn't open history")
		return
	}
	defer store.Close()

	if err := store.Save(ctx, history.EntryFor(info)); err != nil {
		log.WithError(err).Warn("Couldn't save history")
	}
}

// stageSubtitle picks the subtitle matching the configured language and
// returns what to pass to ffmpeg or the player. HLS subtitle playlists are
// passed through; other tracks are downloaded to a temp dir.
func stageSubtitle(ctx context.Context, hc *http.Client, info *media.Info) (string, func()) {
	noop := func() {}
	if flagNoSubs || len(info.Subtitles) == 0 {
		return "", noop
	}

	best := subtitle.BestMatch(info.Subtitles, cfg.SubsLanguage)
	if best == nil {
		log.WithField("language", cfg.SubsLanguage).Info("No matching subtitles")
		return "", noop
	}
	if subtitle.IsPlaylist(best.Track) {
		return best.Track.URL, noop
	}

	tmpDir, err := subtitle.NewTempDir()
	if err != nil {
		log.WithError(err).Warn("Continuing without subtitles")
		return "", noop
	}
	path, err := tmpDir.Download(ctx, hc, best.Track)
	if err != nil {
		log.WithError(err).Warn("Subtitle download failed, continuing without subtitles")
		tmpDir.Cleanup()
		return "", noop
	}
	log.WithField("file", path).Debug("Staged subtitle")
	return path, tmpDir.Cleanup
}
