// Package manifest turns player source descriptors into downloadable formats.
// HLS master playlists are fetched and listed (variants and subtitle
// renditions); segments and containers are left to ffmpeg.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"odkdl/internal/httputil"
	"odkdl/internal/media"
)

// SourceURLField is the key a source descriptor must carry its stream URL under.
const SourceURLField = "file"

// ErrNoFormats is returned when none of the sources yielded a format.
var ErrNoFormats = errors.New("no video formats found")

var labelHeightPattern = regexp.MustCompile(`^(\d{3,4})[pP]?\b`)

// Options control how sources are interpreted.
type Options struct {
	// M3U8ID prefixes the format IDs of HLS variants.
	M3U8ID string
	// MPDID is the format ID given to DASH manifests.
	MPDID string
	// BaseURL resolves relative source URLs.
	BaseURL string
}

// Parser resolves source descriptors, fetching HLS playlists as needed.
type Parser struct {
	client *resty.Client
}

// NewParser creates a Parser that fetches playlists with hc.
func NewParser(hc *http.Client) *Parser {
	return &Parser{client: httputil.NewRestClient(hc)}
}

// Parse converts sources into formats ordered worst to best, plus any
// subtitles found in HLS master playlists, keyed by language.
func (p *Parser) Parse(ctx context.Context, sources []map[string]any, videoID string, opts Options) ([]media.Format, map[string][]media.SubtitleTrack, error) {
	logger := log.WithContext(ctx).WithField("videoID", videoID)

	var formats []media.Format
	subtitles := map[string][]media.SubtitleTrack{}
	seen := map[string]bool{}

	for _, src := range sources {
		file, _ := src[SourceURLField].(string)
		if file == "" {
			continue
		}
		sourceURL := resolveURL(opts.BaseURL, file)
		if seen[sourceURL] {
			continue
		}
		seen[sourceURL] = true

		sourceType := strings.ToLower(stringAttr(src, "type"))
		ext := DetermineExt(sourceURL)

		switch {
		case sourceType == "hls" || ext == "m3u8":
			fmts, subs, err := p.hls(ctx, sourceURL, opts.M3U8ID)
			if err != nil {
				logger.WithError(err).WithField("manifest", sourceURL).Warn("Couldn't download m3u8 manifest, skipping source")
				continue
			}
			formats = append(formats, fmts...)
			for lang, tracks := range subs {
				subtitles[lang] = append(subtitles[lang], tracks...)
			}
		case sourceType == "dash" || ext == "mpd":
			id := opts.MPDID
			if id == "" {
				id = "dash"
			}
			formats = append(formats, media.Format{FormatID: id, URL: sourceURL, Ext: "mp4", Protocol: "dash"})
		default:
			formats = append(formats, progressiveFormat(src, sourceURL, ext))
		}
	}

	if len(formats) == 0 {
		return nil, nil, ErrNoFormats
	}

	slices.SortStableFunc(formats, func(a, b media.Format) int {
		if a.Height != b.Height {
			return a.Height - b.Height
		}
		switch {
		case a.TBR < b.TBR:
			return -1
		case a.TBR > b.TBR:
			return 1
		}
		return 0
	})

	if len(subtitles) == 0 {
		subtitles = nil
	}
	return formats, subtitles, nil
}

func (p *Parser) hls(ctx context.Context, manifestURL, m3u8ID string) ([]media.Format, map[string][]media.SubtitleTrack, error) {
	resp, err := p.client.R().SetContext(ctx).Get(manifestURL)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	return ParseM3U8(resp.String(), manifestURL, m3u8ID)
}

func progressiveFormat(src map[string]any, sourceURL, ext string) media.Format {
	label := stringAttr(src, "label")
	height := intAttr(src, "height")
	if height == 0 {
		if m := labelHeightPattern.FindStringSubmatch(label); m != nil {
			height, _ = strconv.Atoi(m[1])
		}
	}
	if ext == "" {
		ext = "mp4"
	}
	formatID := label
	if formatID == "" {
		formatID = ext
	}
	return media.Format{
		FormatID: formatID,
		URL:      sourceURL,
		Ext:      ext,
		Protocol: strings.SplitN(sourceURL, ":", 2)[0],
		Width:    intAttr(src, "width"),
		Height:   height,
		TBR:      float64(intAttr(src, "bitrate")),
	}
}

// DetermineExt returns the lowercase extension of a URL's path, or "".
func DetermineExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func resolveURL(base, ref string) string {
	if base == "" {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func stringAttr(src map[string]any, key string) string {
	switch v := src[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func intAttr(src map[string]any, key string) int {
	switch v := src[key].(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	}
	return 0
}
