package extract

import (
	"context"
	"strings"
	"testing"

	"odkdl/internal/media"
)

// stubExtractor matches URLs with a prefix and returns a fixed result.
type stubExtractor struct {
	name   string
	prefix string
	result *media.Result
	calls  int
}

func (s *stubExtractor) Name() string { return s.name }

func (s *stubExtractor) Match(rawURL string) bool { return strings.HasPrefix(rawURL, s.prefix) }

func (s *stubExtractor) Extract(context.Context, string) (*media.Result, error) {
	s.calls++
	return s.result, nil
}

func TestResolveLegacyURL(t *testing.T) {
	site := newFakeSite(t).withLegacy().withPlayback()
	r := New(site.options())

	info, err := r.Resolve(context.Background(), legacyURL)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if info.ID != "ask-us-anything-e351" {
		t.Errorf("ID = %q, want ask-us-anything-e351", info.ID)
	}
	if !strings.Contains(info.Title, "Ask Us Anything") {
		t.Errorf("Title = %q, want it to contain %q", info.Title, "Ask Us Anything")
	}
	if info.Ext() != "mp4" {
		t.Errorf("Ext() = %q, want mp4", info.Ext())
	}
	if info.Extractor != "OnDemandKorea" {
		t.Errorf("Extractor = %q, want OnDemandKorea", info.Extractor)
	}
	if info.WebpageURL != modernURL686471 {
		t.Errorf("WebpageURL = %q, want %q", info.WebpageURL, modernURL686471)
	}
	if info.OriginalURL != legacyURL {
		t.Errorf("OriginalURL = %q, want %q", info.OriginalURL, legacyURL)
	}
}

func TestResolveLegacyURLOnClassicSite(t *testing.T) {
	const (
		classicURL     = "https://classic.ondemandkorea.com/ask-us-anything-e351.html"
		classicPageKey = "classic.ondemandkorea.com/ask-us-anything-e351.html"
		classicNextKey = "classic.ondemandkorea.com/_next/data/" + legacyBuildID + "/en/player/legacy/ask-us-anything-e351.json"
	)

	site := newFakeSite(t).withPlayback()
	site.handleFile(classicPageKey, "legacy_page.html")
	site.handleFile(classicNextKey, "legacy_redirect.json")

	opts := site.options()
	opts.SiteURL = "https://classic.ondemandkorea.com"
	info, err := New(opts).Resolve(context.Background(), classicURL)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if info.ID != "ask-us-anything-e351" {
		t.Errorf("ID = %q, want ask-us-anything-e351", info.ID)
	}
	if want := "https://classic.ondemandkorea.com/player/vod/ask-us-anything?contentId=686471"; info.WebpageURL != want {
		t.Errorf("WebpageURL = %q, want %q", info.WebpageURL, want)
	}
	if got := site.hitCount(classicNextKey); got != 1 {
		t.Errorf("redirect lookups = %d, want 1", got)
	}
}

func TestResolveModernURL(t *testing.T) {
	site := newFakeSite(t).withPlayback()
	r := New(site.options())

	info, err := r.Resolve(context.Background(), modernURL602310)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if _, ok := info.Subtitles["English"]; !ok {
		t.Errorf("Subtitles = %v, want an English key", info.Subtitles)
	}
	if info.OriginalURL != modernURL602310 || info.WebpageURL != modernURL602310 {
		t.Errorf("OriginalURL = %q, WebpageURL = %q, want both %q", info.OriginalURL, info.WebpageURL, modernURL602310)
	}
}

func TestResolveUnsupported(t *testing.T) {
	r := New(Options{})
	_, err := r.Resolve(context.Background(), "https://example.com/watch?v=1")
	if err == nil || !strings.Contains(err.Error(), "unsupported URL") {
		t.Errorf("Resolve() error = %v, want unsupported URL", err)
	}
}

func TestResolveTransparentOverride(t *testing.T) {
	inner := &stubExtractor{
		name:   "inner",
		prefix: "inner://",
		result: &media.Result{Info: &media.Info{ID: "inner-id", Title: "Inner title", Series: "Inner series"}},
	}
	middle := &stubExtractor{
		name:   "middle",
		prefix: "middle://",
		result: &media.Result{URL: "inner://video", Transparent: true, Info: &media.Info{Title: "Middle title", Series: "Middle series"}},
	}
	outer := &stubExtractor{
		name:   "outer",
		prefix: "outer://",
		result: &media.Result{URL: "middle://video", Transparent: true, Info: &media.Info{Title: "Outer title"}},
	}
	r := NewResolver(outer, middle, inner)

	info, err := r.Resolve(context.Background(), "outer://video")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if info.ID != "inner-id" {
		t.Errorf("ID = %q, want inner-id", info.ID)
	}
	if info.Title != "Outer title" {
		t.Errorf("Title = %q, want Outer title", info.Title)
	}
	if info.Series != "Middle series" {
		t.Errorf("Series = %q, want Middle series", info.Series)
	}
	if info.Extractor != "inner" {
		t.Errorf("Extractor = %q, want inner", info.Extractor)
	}
}

func TestResolveTooManyRedirects(t *testing.T) {
	loop := &stubExtractor{
		name:   "loop",
		prefix: "loop://",
		result: &media.Result{URL: "loop://again", Transparent: true},
	}
	r := NewResolver(loop)

	_, err := r.Resolve(context.Background(), "loop://start")
	if got := KindOf(err); got != KindMalformed {
		t.Fatalf("KindOf() = %v, want %v (err: %v)", got, KindMalformed, err)
	}
	if !strings.Contains(err.Error(), "too many redirects") {
		t.Errorf("error = %v, want too many redirects", err)
	}
	if loop.calls != maxRedirects+1 {
		t.Errorf("extractor called %d times, want %d", loop.calls, maxRedirects+1)
	}
}

func TestResolveEmptyResult(t *testing.T) {
	empty := &stubExtractor{name: "empty", prefix: "empty://", result: &media.Result{}}
	_, err := NewResolver(empty).Resolve(context.Background(), "empty://x")
	if got := KindOf(err); got != KindMalformed {
		t.Errorf("KindOf() = %v, want %v", got, KindMalformed)
	}
}
