package ui

import (
	"bytes"
	"strings"
	"testing"

	"odkdl/internal/media"
)

func sampleInfo() *media.Info {
	released := int64(1663977600)
	return &media.Info{
		ID:               "ask-us-anything-e351",
		Title:            "Ask Us Anything : E351",
		ReleaseTimestamp: &released,
		EpisodeNumber:    351,
		Duration:         5412,
		Uploader:         "JTBC",
		Categories:       []string{"Variety", "Talk Show"},
		Series:           "Ask Us Anything",
		Formats: []media.Format{
			{FormatID: "hls-2200", Ext: "mp4", Height: 720, TBR: 2200},
			{FormatID: "hls-4000", Ext: "mp4", Height: 1080, TBR: 4000},
		},
		Subtitles: map[string][]media.SubtitleTrack{
			"Korean":  {{URL: "https://a/ko.m3u8"}},
			"English": {{URL: "https://a/en.m3u8"}},
		},
		WebpageURL: "https://www.ondemandkorea.com/player/vod/ask-us-anything?contentId=686471",
	}
}

func TestRenderInfoPlain(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderInfo(&buf, sampleInfo(), false); err != nil {
		t.Fatalf("RenderInfo() error: %v", err)
	}

	want := strings.Join([]string{
		"Ask Us Anything : E351",
		"id: ask-us-anything-e351",
		"series: Ask Us Anything",
		"episode: 351",
		"released: 2022-09-24",
		"duration: 1:30:12",
		"uploader: JTBC",
		"categories: Variety, Talk Show",
		"best: hls-4000 1080p 4000k mp4",
		"subtitles: English, Korean",
		"url: https://www.ondemandkorea.com/player/vod/ask-us-anything?contentId=686471",
	}, "\n") + "\n"
	if got := buf.String(); got != want {
		t.Errorf("RenderInfo() =\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderInfoStyled(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderInfo(&buf, sampleInfo(), true); err != nil {
		t.Fatalf("RenderInfo() error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Ask Us Anything : E351", "hls-4000*", "hls-2200", "JTBC"} {
		if !strings.Contains(out, want) {
			t.Errorf("styled output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderInfoSparse(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderInfo(&buf, &media.Info{ID: "x", Title: "X"}, false); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "X\nid: x\n"; got != want {
		t.Errorf("RenderInfo() = %q, want %q", got, want)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00"},
		{59.9, "0:59"},
		{2106.5, "35:06"},
		{5412, "1:30:12"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		out     string
		want    int
		wantErr bool
	}{
		{"1\tAsk Us Anything E351\n", 1, false},
		{"0\tfirst", 0, false},
		{"", -1, true},
		{"7\tout of range", -1, true},
		{"x\tnot a number", -1, true},
	}
	for _, tt := range tests {
		got, err := parseSelection(tt.out, 3)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseSelection(%q) = (%d, %v), want (%d, wantErr %v)", tt.out, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestNumbered(t *testing.T) {
	if got, want := numbered([]string{"a", "b"}), "0\ta\n1\tb\n"; got != want {
		t.Errorf("numbered() = %q, want %q", got, want)
	}
}
