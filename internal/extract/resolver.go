package extract

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"odkdl/internal/media"
)

// maxRedirects bounds how many URL results are followed for one request.
const maxRedirects = 5

// Resolver dispatches URLs to the first matching extractor and follows
// redirect results until an extractor returns video metadata.
type Resolver struct {
	extractors []Extractor
}

// NewResolver creates a Resolver trying extractors in order.
func NewResolver(extractors ...Extractor) *Resolver {
	return &Resolver{extractors: extractors}
}

// Find returns the first extractor matching rawURL.
func (r *Resolver) Find(rawURL string) (Extractor, bool) {
	for _, e := range r.extractors {
		if e.Match(rawURL) {
			return e, true
		}
	}
	return nil, false
}

// Resolve extracts rawURL, following redirect results.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*media.Info, error) {
	current := rawURL
	var overrides []*media.Info

	for hop := 0; hop <= maxRedirects; hop++ {
		ext, ok := r.Find(current)
		if !ok {
			return nil, fmt.Errorf("unsupported URL: %s", current)
		}

		logger := log.WithContext(ctx).WithFields(log.Fields{"extractor": ext.Name(), "url": current})
		logger.Debug("Extracting")

		res, err := ext.Extract(ctx, current)
		if err != nil {
			return nil, err
		}

		if !res.IsRedirect() {
			if res.Info == nil {
				return nil, malformedError("", ext.Name()+" returned an empty result")
			}
			info := res.Info
			// Innermost overrides were pushed last and apply first.
			for i := len(overrides) - 1; i >= 0; i-- {
				mergeInfo(info, overrides[i])
			}
			if info.Extractor == "" {
				info.Extractor = ext.Name()
			}
			if info.WebpageURL == "" {
				info.WebpageURL = current
			}
			info.OriginalURL = rawURL
			return info, nil
		}

		logger.WithFields(log.Fields{"target": res.URL, "transparent": res.Transparent}).Debug("Following redirect")
		if res.Transparent && res.Info != nil {
			overrides = append(overrides, res.Info)
		}
		current = res.URL
	}

	return nil, malformedError("", fmt.Sprintf("too many redirects resolving %s", rawURL))
}

// mergeInfo copies the non-empty fields of overlay onto dst. Formats and
// subtitles always come from dst.
func mergeInfo(dst, overlay *media.Info) {
	if overlay.ID != "" {
		dst.ID = overlay.ID
	}
	if overlay.Title != "" {
		dst.Title = overlay.Title
	}
	if overlay.Thumbnail != "" {
		dst.Thumbnail = overlay.Thumbnail
	}
	if overlay.ReleaseTimestamp != nil {
		dst.ReleaseTimestamp = overlay.ReleaseTimestamp
	}
	if overlay.Episode != "" {
		dst.Episode = overlay.Episode
	}
	if overlay.EpisodeID != "" {
		dst.EpisodeID = overlay.EpisodeID
	}
	if overlay.EpisodeNumber != 0 {
		dst.EpisodeNumber = overlay.EpisodeNumber
	}
	if overlay.Duration != 0 {
		dst.Duration = overlay.Duration
	}
	if overlay.Uploader != "" {
		dst.Uploader = overlay.Uploader
	}
	if len(overlay.Categories) > 0 {
		dst.Categories = overlay.Categories
	}
	if overlay.Series != "" {
		dst.Series = overlay.Series
	}
	if overlay.SeriesID != "" {
		dst.SeriesID = overlay.SeriesID
	}
}
