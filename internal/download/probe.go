package download

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/vansante/go-ffprobe.v2"
)

// probeFunc matches ffprobe.ProbeURL so tests can substitute it.
type probeFunc func(ctx context.Context, path string, extraOpts ...string) (*ffprobe.ProbeData, error)

var probe probeFunc = ffprobe.ProbeURL

// Summary is what ffprobe reports about a finished download.
type Summary struct {
	Container  string
	VideoCodec string
	AudioCodec string
	Width      int
	Height     int
	Duration   float64
	Subtitles  int
}

func (s Summary) String() string {
	var parts []string
	if s.Height > 0 {
		parts = append(parts, fmt.Sprintf("%dx%d", s.Width, s.Height))
	}
	if s.VideoCodec != "" {
		parts = append(parts, s.VideoCodec)
	}
	if s.AudioCodec != "" {
		parts = append(parts, s.AudioCodec)
	}
	if s.Duration > 0 {
		parts = append(parts, fmt.Sprintf("%.0fs", s.Duration))
	}
	if s.Subtitles > 0 {
		parts = append(parts, fmt.Sprintf("%d subtitle stream(s)", s.Subtitles))
	}
	return strings.Join(parts, " ")
}

// Probe inspects the file at path with ffprobe.
func Probe(ctx context.Context, path string) (*Summary, error) {
	data, err := probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}
	return summarize(data), nil
}

func summarize(data *ffprobe.ProbeData) *Summary {
	s := &Summary{}
	if data == nil {
		return s
	}
	if data.Format != nil {
		s.Container = data.Format.FormatName
		s.Duration = data.Format.DurationSeconds
	}
	if v := data.FirstVideoStream(); v != nil {
		s.VideoCodec = codecName(v)
		s.Width, s.Height = v.Width, v.Height
	}
	if a := data.FirstAudioStream(); a != nil {
		s.AudioCodec = codecName(a)
	}
	s.Subtitles = len(data.StreamType(ffprobe.StreamSubtitle))
	return s
}

func codecName(stream *ffprobe.Stream) string {
	if stream.CodecName != "" {
		return stream.CodecName
	}
	return stream.CodecLongName
}
