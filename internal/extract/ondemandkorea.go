package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"odkdl/internal/httputil"
	"odkdl/internal/manifest"
	"odkdl/internal/media"
)

// e.g. https://www.ondemandkorea.com/en/player/vod/ask-us-anything?contentId=686471
var vodURLPattern = regexp.MustCompile(`^https?://(?:www\.|classic\.)?ondemandkorea\.com/.*player/vod/.*contentId=([^/]+)`)

// OnDemandKorea extracts videos from current player URLs via the playback API.
type OnDemandKorea struct {
	fetch    fetcher
	formats  FormatParser
	restBase string
}

// NewOnDemandKorea creates the player URL extractor.
func NewOnDemandKorea(opts Options) *OnDemandKorea {
	opts = opts.withDefaults()
	return &OnDemandKorea{
		fetch:    newFetcher(opts.HTTPClient),
		formats:  manifest.NewParser(opts.HTTPClient),
		restBase: opts.RESTBase,
	}
}

func (o *OnDemandKorea) Name() string { return "OnDemandKorea" }

func (o *OnDemandKorea) Match(rawURL string) bool {
	return vodURLPattern.MatchString(rawURL)
}

// ContentID returns the contentId query value of a player URL, up to the next "/".
func ContentID(rawURL string) (string, bool) {
	m := vodURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// playbackResponse is the playback API document. Pointers and raw values
// distinguish absent keys from zero values and nulls.
type playbackResponse struct {
	Result *struct {
		Sources  []map[string]any `json:"sources"`
		Episode  *playbackEpisode `json:"episode"`
		Program  *playbackProgram `json:"program"`
		Duration json.RawMessage  `json:"duration"`
	} `json:"result"`
}

type playbackEpisode struct {
	ID          media.FlexID   `json:"id"`
	Slug        string         `json:"slug"`
	Title       string         `json:"title"`
	Number      int            `json:"number"`
	ReleaseDate string         `json:"release_date"`
	Images      map[string]any `json:"images"`
}

type playbackProgram struct {
	ID       media.FlexID `json:"id"`
	Title    string       `json:"title"`
	Provider *struct {
		Name string `json:"name"`
	} `json:"provider"`
	Categories []playbackCategory `json:"categories"`
}

type playbackCategory struct {
	Title string `json:"title"`
}

// Extract fetches the playback document for the URL's content ID and
// maps it onto media.Info.
func (o *OnDemandKorea) Extract(ctx context.Context, rawURL string) (*media.Result, error) {
	videoID, ok := ContentID(rawURL)
	if !ok {
		return nil, malformedError("", "not a player URL: "+rawURL)
	}

	body, err := o.fetch.get(ctx, videoID, httputil.BuildURL(o.restBase, "playback", videoID),
		"Downloading playback JSON", map[string]string{
			"Accept-Language": "en",
			"Service-name":    "odk",
		})
	if err != nil {
		return nil, err
	}

	var doc playbackResponse
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &Error{Kind: KindMalformed, VideoID: videoID, Message: "parsing playback JSON", Err: err}
	}
	res := doc.Result
	switch {
	case res == nil:
		return nil, malformedError(videoID, "playback JSON has no result")
	case res.Sources == nil:
		return nil, malformedError(videoID, "playback JSON has no sources")
	case res.Episode == nil:
		return nil, malformedError(videoID, "playback JSON has no episode")
	case res.Episode.Images == nil:
		return nil, malformedError(videoID, "playback JSON has no episode images")
	case len(res.Duration) == 0:
		return nil, malformedError(videoID, "playback JSON has no duration")
	case res.Program != nil && res.Program.Provider == nil:
		return nil, malformedError(videoID, "playback JSON program has no provider")
	}

	duration, err := parseDuration(res.Duration)
	if err != nil {
		return nil, &Error{Kind: KindMalformed, VideoID: videoID, Message: "playback JSON duration", Err: err}
	}

	if err := renameSourceURLs(res.Sources); err != nil {
		return nil, &Error{Kind: KindMalformed, VideoID: videoID, Message: "playback JSON", Err: err}
	}

	formats, subtitles, err := o.formats.Parse(ctx, res.Sources, videoID, manifest.Options{
		M3U8ID:  "hls",
		BaseURL: rawURL,
	})
	if err != nil {
		return nil, &Error{Kind: KindMalformed, VideoID: videoID, Message: "parsing sources", Err: err}
	}

	episode := res.Episode
	thumbnail, _ := episode.Images["thumbnail"].(string)
	info := &media.Info{
		ID:               episode.Slug,
		Title:            episode.Title,
		Thumbnail:        thumbnail,
		ReleaseTimestamp: media.ParseISO8601(episode.ReleaseDate),
		Episode:          episode.Title,
		EpisodeID:        string(episode.ID),
		EpisodeNumber:    episode.Number,
		Duration:         duration,
		Formats:          formats,
		Subtitles:        subtitles,
	}

	if program := res.Program; program != nil {
		info.Uploader = program.Provider.Name
		info.Categories = lo.Map(program.Categories, func(c playbackCategory, _ int) string {
			return c.Title
		})
		info.Series = program.Title
		info.SeriesID = string(program.ID)
	}

	log.WithContext(ctx).WithFields(log.Fields{
		"videoID": videoID,
		"id":      info.ID,
		"formats": len(formats),
	}).Debug("Extracted playback info")

	return &media.Result{Info: info}, nil
}

// parseDuration reads a present duration value; null means unknown.
func parseDuration(raw json.RawMessage) (float64, error) {
	if string(raw) == "null" {
		return 0, nil
	}
	var d float64
	if err := json.Unmarshal(raw, &d); err != nil {
		return 0, err
	}
	return d, nil
}

// renameSourceURLs moves each source's "url" key to manifest.SourceURLField in place.
func renameSourceURLs(sources []map[string]any) error {
	for i, src := range sources {
		u, ok := src["url"]
		if !ok {
			return fmt.Errorf("source %d has no url", i)
		}
		delete(src, "url")
		src[manifest.SourceURLField] = u
	}
	return nil
}
