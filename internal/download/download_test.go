package download

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"odkdl/internal/httputil"
	"odkdl/internal/media"
)

func testInfo() *media.Info {
	return &media.Info{
		ID:            "ask-us-anything-e351",
		Title:         "Ask Us Anything : Guests - 09/24/2022",
		Series:        "Ask Us Anything",
		EpisodeNumber: 351,
		Formats: []media.Format{
			{FormatID: "hls-850", URL: "https://cdn.example.com/360p.m3u8"},
			{FormatID: "hls-4000", URL: "https://cdn.example.com/1080p.m3u8"},
		},
	}
}

func TestArgs(t *testing.T) {
	tests := []struct {
		name     string
		subtitle string
		want     []string
	}{
		{
			name: "video only",
			want: []string{
				"-y", "-user_agent", httputil.UserAgent,
				"-i", "https://cdn.example.com/1080p.m3u8",
				"-c:v", "copy", "-c:a", "copy",
				"-metadata", "title=Ask Us Anything : Guests - 09/24/2022",
				"-metadata", "show=Ask Us Anything",
				"-metadata", "episode_id=351",
				"/out/video.mkv",
			},
		},
		{
			name:     "with subtitle playlist",
			subtitle: "https://cdn.example.com/subs/en.m3u8",
			want: []string{
				"-y", "-user_agent", httputil.UserAgent,
				"-i", "https://cdn.example.com/1080p.m3u8",
				"-i", "https://cdn.example.com/subs/en.m3u8", "-c:s", "srt",
				"-c:v", "copy", "-c:a", "copy",
				"-map", "0:v?", "-map", "0:a?", "-map", "1:s",
				"-metadata", "title=Ask Us Anything : Guests - 09/24/2022",
				"-metadata", "show=Ask Us Anything",
				"-metadata", "episode_id=351",
				"/out/video.mkv",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Args(Request{Info: testInfo(), Subtitle: tt.subtitle}, "/out/video.mkv")
			if err != nil {
				t.Fatalf("Args() error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Args() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestArgsNoFormat(t *testing.T) {
	_, err := Args(Request{Info: &media.Info{ID: "x"}}, "/out/x.mkv")
	if !errors.Is(err, ErrNoFormat) {
		t.Errorf("Args() error = %v, want ErrNoFormat", err)
	}
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()

	got, err := OutputPath(dir, testInfo())
	if err != nil {
		t.Fatalf("OutputPath() error: %v", err)
	}
	want := filepath.Join(dir, "Ask Us Anything _ Guests - 09_24_2022.mkv")
	if got != want {
		t.Errorf("OutputPath() = %q, want %q", got, want)
	}

	got, err = OutputPath(dir, &media.Info{ID: "work-later-drink-now-e1"})
	if err != nil {
		t.Fatalf("OutputPath() error: %v", err)
	}
	if want := filepath.Join(dir, "work-later-drink-now-e1.mkv"); got != want {
		t.Errorf("OutputPath() without title = %q, want %q", got, want)
	}
}
