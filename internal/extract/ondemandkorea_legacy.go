package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"odkdl/internal/media"
)

// e.g. https://www.ondemandkorea.com/ask-us-anything-e351.html
var legacyURLPattern = regexp.MustCompile(`^https?://(?:www\.|classic\.)?ondemandkorea\.com/([^/]+)\.html`)

// buildIDCache holds the site deployment's Next.js build id.
//
// The value is never invalidated: after a site redeploy the cached id keeps
// producing 404s on the redirect lookup until the process restarts. There is
// no locking, so an OnDemandKoreaLegacy must not serve concurrent calls.
type buildIDCache struct {
	value string
}

func (c *buildIDCache) get() (string, bool) {
	return c.value, c.value != ""
}

func (c *buildIDCache) set(id string) {
	if id != "" {
		c.value = id
	}
}

// OnDemandKoreaLegacy maps old <slug>.html URLs to their current player URL.
type OnDemandKoreaLegacy struct {
	fetch   fetcher
	siteURL string
	buildID buildIDCache
}

// NewOnDemandKoreaLegacy creates the legacy URL extractor.
func NewOnDemandKoreaLegacy(opts Options) *OnDemandKoreaLegacy {
	opts = opts.withDefaults()
	return &OnDemandKoreaLegacy{
		fetch:   newFetcher(opts.HTTPClient),
		siteURL: strings.TrimRight(opts.SiteURL, "/"),
	}
}

func (o *OnDemandKoreaLegacy) Name() string { return "OnDemandKoreaLegacy" }

func (o *OnDemandKoreaLegacy) Match(rawURL string) bool {
	return legacyURLPattern.MatchString(rawURL)
}

// LegacySlug returns the page slug of a legacy URL.
func LegacySlug(rawURL string) (string, bool) {
	m := legacyURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Extract looks up the redirect target of a legacy page and returns it as a
// transparent URL result.
func (o *OnDemandKoreaLegacy) Extract(ctx context.Context, rawURL string) (*media.Result, error) {
	videoID, ok := LegacySlug(rawURL)
	if !ok {
		return nil, malformedError("", "not a legacy URL: "+rawURL)
	}

	buildID, ok := o.buildID.get()
	if !ok {
		var err error
		buildID, err = o.fetchBuildID(ctx, rawURL, videoID)
		if err != nil {
			return nil, err
		}
		o.buildID.set(buildID)
	}

	target, err := o.fetchRedirect(ctx, buildID, videoID)
	if err != nil {
		return nil, err
	}

	log.WithContext(ctx).WithFields(log.Fields{
		"videoID": videoID,
		"buildID": buildID,
		"target":  target,
	}).Debug("Resolved legacy redirect")

	return &media.Result{URL: target, Transparent: true}, nil
}

func (o *OnDemandKoreaLegacy) fetchBuildID(ctx context.Context, rawURL, videoID string) (string, error) {
	body, err := o.fetch.get(ctx, videoID, rawURL, "Downloading legacy website", nil)
	if err != nil {
		return "", classify(err, videoID, "video page is not available (yet)")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindMalformed, VideoID: videoID, Message: "parsing legacy website", Err: err}
	}

	script := doc.Find("script#__NEXT_DATA__").First()
	if script.Length() == 0 {
		return "", malformedError(videoID, "legacy website has no __NEXT_DATA__")
	}

	data := strings.TrimSpace(script.Text())
	if !gjson.Valid(data) {
		return "", malformedError(videoID, "__NEXT_DATA__ is not valid JSON")
	}

	buildID := gjson.Get(data, "buildId").String()
	if buildID == "" {
		return "", malformedError(videoID, "__NEXT_DATA__ has no buildId")
	}
	return buildID, nil
}

func (o *OnDemandKoreaLegacy) fetchRedirect(ctx context.Context, buildID, videoID string) (string, error) {
	dataURL := fmt.Sprintf("%s/_next/data/%s/en/player/legacy/%s.json", o.siteURL, buildID, videoID)

	body, err := o.fetch.get(ctx, videoID, dataURL, "Downloading NextJS data containing redirect link", nil)
	if err != nil {
		return "", classify(err, videoID, "video redirect is not available (yet)")
	}

	if !gjson.ValidBytes(body) {
		return "", malformedError(videoID, "NextJS data is not valid JSON")
	}

	path := gjson.GetBytes(body, `pageProps.__N_REDIRECT`)
	if !path.Exists() || path.String() == "" {
		return "", malformedError(videoID, "NextJS data has no pageProps.__N_REDIRECT")
	}
	return o.siteURL + path.String(), nil
}

// classify maps HTTP 403 and 404 failures onto geo-restriction and
// not-yet-available errors. Anything else is returned unchanged.
func classify(err error, videoID, notFound string) error {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindTransport {
		return err
	}
	switch e.StatusCode {
	case http.StatusForbidden:
		return geoRestrictedError(videoID, GeoCountries)
	case http.StatusNotFound:
		// The outer error already names the video.
		cause := *e
		cause.VideoID = ""
		return unavailableError(videoID, notFound, &cause)
	}
	return err
}
