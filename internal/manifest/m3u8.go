package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grafov/m3u8"

	"odkdl/internal/media"
)

// ParseM3U8 lists the variants and subtitle renditions of an HLS playlist.
// A media playlist (no variants) yields a single format for manifestURL itself.
func ParseM3U8(body, manifestURL, m3u8ID string) ([]media.Format, map[string][]media.SubtitleTrack, error) {
	if !strings.HasPrefix(strings.TrimSpace(body), "#EXTM3U") {
		return nil, nil, fmt.Errorf("%s is not an m3u8 playlist", manifestURL)
	}
	if m3u8ID == "" {
		m3u8ID = "hls"
	}

	playlist, listType, err := m3u8.DecodeFrom(strings.NewReader(body), false)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding playlist %s: %w", manifestURL, err)
	}

	master, ok := playlist.(*m3u8.MasterPlaylist)
	if listType != m3u8.MASTER || !ok || len(master.Variants) == 0 {
		return []media.Format{{
			FormatID: m3u8ID,
			URL:      manifestURL,
			Ext:      "mp4",
			Protocol: "m3u8_native",
		}}, nil, nil
	}

	var (
		formats   []media.Format
		subtitles = map[string][]media.SubtitleTrack{}
		seen      = map[string]bool{}
	)

	for _, v := range master.Variants {
		if v == nil || v.URI == "" {
			continue
		}
		formats = append(formats, variantFormat(v, resolveURL(manifestURL, v.URI), m3u8ID, len(formats)))

		// Renditions may be attached to one variant or repeated on each.
		for _, alt := range v.Alternatives {
			if alt == nil || alt.Type != "SUBTITLES" || alt.URI == "" || seen[alt.URI] {
				continue
			}
			seen[alt.URI] = true
			lang := subtitleLanguage(alt)
			subtitles[lang] = append(subtitles[lang], subtitleTrack(alt, manifestURL))
		}
	}

	if len(subtitles) == 0 {
		subtitles = nil
	}
	return formats, subtitles, nil
}

func variantFormat(v *m3u8.Variant, uri, m3u8ID string, index int) media.Format {
	f := media.Format{
		URL:      uri,
		Ext:      "mp4",
		Protocol: "m3u8_native",
	}

	bandwidth := v.AverageBandwidth
	if bandwidth == 0 {
		bandwidth = v.Bandwidth
	}
	if bandwidth > 0 {
		f.TBR = float64(bandwidth) / 1000
	}

	if w, h, ok := strings.Cut(v.Resolution, "x"); ok {
		f.Width, _ = strconv.Atoi(w)
		f.Height, _ = strconv.Atoi(h)
	}

	if f.TBR > 0 {
		f.FormatID = fmt.Sprintf("%s-%d", m3u8ID, int(f.TBR))
	} else {
		f.FormatID = fmt.Sprintf("%s-%d", m3u8ID, index)
	}
	return f
}

func subtitleTrack(alt *m3u8.Alternative, manifestURL string) media.SubtitleTrack {
	uri := resolveURL(manifestURL, alt.URI)
	track := media.SubtitleTrack{
		URL:  uri,
		Ext:  DetermineExt(uri),
		Name: alt.Name,
	}
	if track.Ext == "m3u8" {
		track.Ext = "vtt"
		track.Protocol = "m3u8_native"
	}
	return track
}

func subtitleLanguage(alt *m3u8.Alternative) string {
	if alt.Language != "" {
		return alt.Language
	}
	if alt.Name != "" {
		return alt.Name
	}
	return "und"
}
