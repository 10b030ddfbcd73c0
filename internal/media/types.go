// Package media defines shared types for the odkdl application.
package media

import (
	"encoding/json"
	"strings"
	"time"
)

// Info is the normalized metadata for one resolved video.
// Optional fields are left at their zero value when the site does not supply them.
type Info struct {
	ID               string                     `json:"id"`
	Title            string                     `json:"title"`
	Thumbnail        string                     `json:"thumbnail,omitempty"`
	ReleaseTimestamp *int64                     `json:"release_timestamp,omitempty"`
	Episode          string                     `json:"episode,omitempty"`
	EpisodeID        string                     `json:"episode_id,omitempty"`
	EpisodeNumber    int                        `json:"episode_number,omitempty"`
	Duration         float64                    `json:"duration,omitempty"`
	Uploader         string                     `json:"uploader,omitempty"`
	Categories       []string                   `json:"categories,omitempty"`
	Series           string                     `json:"series,omitempty"`
	SeriesID         string                     `json:"series_id,omitempty"`
	Formats          []Format                   `json:"formats,omitempty"`
	Subtitles        map[string][]SubtitleTrack `json:"subtitles,omitempty"`
	WebpageURL       string                     `json:"webpage_url,omitempty"`
	OriginalURL      string                     `json:"original_url,omitempty"`
	Extractor        string                     `json:"extractor,omitempty"`
}

// Ext returns the container extension of the best format.
func (i *Info) Ext() string {
	if f := i.BestFormat(); f != nil {
		return f.Ext
	}
	return ""
}

// BestFormat returns the last format, formats being ordered worst to best.
func (i *Info) BestFormat() *Format {
	if len(i.Formats) == 0 {
		return nil
	}
	return &i.Formats[len(i.Formats)-1]
}

// Format is one downloadable rendition of a video.
type Format struct {
	FormatID string  `json:"format_id"`
	URL      string  `json:"url"`
	Ext      string  `json:"ext"`
	Protocol string  `json:"protocol,omitempty"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	TBR      float64 `json:"tbr,omitempty"` // kbit/s
}

// SubtitleTrack is one subtitle file for a language.
type SubtitleTrack struct {
	URL      string `json:"url"`
	Ext      string `json:"ext"`
	Name     string `json:"name,omitempty"`
	Protocol string `json:"protocol,omitempty"`
}

// Result is what an extractor hands back to the resolver: either
// metadata for a video, or a URL the resolver must extract next.
type Result struct {
	Info *Info

	// URL is set for redirect results. When Transparent is true the
	// resolver treats the target as if it had been requested directly,
	// and non-empty fields of Info (if any) override the target's.
	URL         string
	Transparent bool
}

// IsRedirect reports whether the result points at another URL.
func (r *Result) IsRedirect() bool {
	return r != nil && r.URL != ""
}

// FlexID holds an identifier that the remote API may encode as a JSON
// number or a JSON string.
type FlexID string

// UnmarshalJSON accepts numbers, strings and null.
func (f *FlexID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*f = FlexID(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

var iso8601Layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseISO8601 converts an ISO-8601 date string to a unix timestamp.
// Values without a zone are read as UTC. It returns nil for empty or
// unparsable input.
func ParseISO8601(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range iso8601Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts := t.Unix()
			return &ts
		}
	}
	return nil
}

// HistoryEntry is one resolved video recorded in the history store.
type HistoryEntry struct {
	ID         string
	Title      string
	Series     string
	Episode    int
	URL        string
	ResolvedAt time.Time
}
