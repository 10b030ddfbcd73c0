// Package extract resolves OnDemandKorea page URLs into playable video metadata.
package extract

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"odkdl/internal/httputil"
	"odkdl/internal/manifest"
	"odkdl/internal/media"
)

const (
	// DefaultRESTBase is the versioned playback API.
	DefaultRESTBase = "https://odkmedia.io/odx/api/v2"
	// DefaultSiteURL is the site origin used for legacy redirect lookups.
	DefaultSiteURL = "https://www.ondemandkorea.com"
)

// GeoCountries are the countries the site serves.
var GeoCountries = []string{"US", "CA"}

// Extractor resolves a page URL it matches into a Result.
type Extractor interface {
	// Name identifies the extractor in logs and output.
	Name() string

	// Match reports whether the extractor handles rawURL.
	Match(rawURL string) bool

	// Extract resolves rawURL. Callers must check Match first.
	Extract(ctx context.Context, rawURL string) (*media.Result, error)
}

// FormatParser turns source descriptors into formats and subtitles.
type FormatParser interface {
	Parse(ctx context.Context, sources []map[string]any, videoID string, opts manifest.Options) ([]media.Format, map[string][]media.SubtitleTrack, error)
}

// Options configure the extractors built by New.
type Options struct {
	HTTPClient *http.Client
	RESTBase   string
	SiteURL    string
}

func (o Options) withDefaults() Options {
	if o.HTTPClient == nil {
		o.HTTPClient = httputil.NewClient()
	}
	if o.RESTBase == "" {
		o.RESTBase = DefaultRESTBase
	}
	if o.SiteURL == "" {
		o.SiteURL = DefaultSiteURL
	}
	return o
}

// New returns a Resolver wired with the OnDemandKorea extractors.
func New(opts Options) *Resolver {
	opts = opts.withDefaults()
	return NewResolver(
		NewOnDemandKorea(opts),
		NewOnDemandKoreaLegacy(opts),
	)
}

// fetcher issues GET requests and maps failures onto *Error.
type fetcher struct {
	client *resty.Client
}

func newFetcher(hc *http.Client) fetcher {
	return fetcher{client: httputil.NewRestClient(hc)}
}

// get downloads rawURL. Non-2xx responses become transport errors
// carrying the status code.
func (f fetcher) get(ctx context.Context, videoID, rawURL, note string, headers map[string]string) ([]byte, error) {
	log.WithContext(ctx).WithFields(log.Fields{"videoID": videoID, "url": rawURL}).Debug(note)

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(rawURL)
	if err != nil {
		return nil, transportError(videoID, "request to "+rawURL+" failed", 0, err)
	}

	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, transportError(videoID, fmt.Sprintf("unexpected status %d for %s", code, rawURL), code, nil)
	}

	return resp.Body(), nil
}
