package extract

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"testing"
)

const originalHostHeader = "X-Original-Host"

// rewriteTransport sends every request to a local test server while
// keeping the requested URL's path and query intact.
type rewriteTransport struct {
	target *url.URL
	base   http.RoundTripper
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set(originalHostHeader, req.URL.Host)
	r.URL.Scheme = rt.target.Scheme
	r.URL.Host = rt.target.Host
	r.Host = ""
	return rt.base.RoundTrip(r)
}

type route struct {
	status int
	body   string
}

// fakeSite serves canned responses keyed by "<host><path>" of the
// originally requested URL and counts hits per key.
type fakeSite struct {
	t   *testing.T
	srv *httptest.Server

	mu      sync.Mutex
	routes  map[string]route
	hits    map[string]int
	headers map[string]http.Header
}

func newFakeSite(t *testing.T) *fakeSite {
	t.Helper()
	s := &fakeSite{
		t:       t,
		routes:  map[string]route{},
		hits:    map[string]int{},
		headers: map[string]http.Header{},
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *fakeSite) serve(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(originalHostHeader) + r.URL.Path

	s.mu.Lock()
	s.hits[key]++
	s.headers[key] = r.Header.Clone()
	rt, ok := s.routes[key]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(rt.status)
	w.Write([]byte(rt.body))
}

func (s *fakeSite) handle(key string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[key] = route{status: status, body: body}
}

func (s *fakeSite) handleFile(key, name string) {
	s.t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		s.t.Fatalf("reading fixture %s: %v", name, err)
	}
	s.handle(key, http.StatusOK, string(data))
}

func (s *fakeSite) hitCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[key]
}

func (s *fakeSite) requestHeader(key string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers[key]
}

func (s *fakeSite) client() *http.Client {
	target, err := url.Parse(s.srv.URL)
	if err != nil {
		s.t.Fatalf("parsing test server URL: %v", err)
	}
	return &http.Client{Transport: rewriteTransport{target: target, base: s.srv.Client().Transport}}
}

func (s *fakeSite) options() Options {
	return Options{HTTPClient: s.client()}
}

const (
	playbackKey686471 = "odkmedia.io/odx/api/v2/playback/686471"
	playbackKey602310 = "odkmedia.io/odx/api/v2/playback/602310"
	masterKey686471   = "vod.odkmedia.io/vod/686471/master.m3u8"
	masterKey602310   = "vod.odkmedia.io/vod/602310/master.m3u8"

	legacyURL       = "https://www.ondemandkorea.com/ask-us-anything-e351.html"
	legacyPageKey   = "www.ondemandkorea.com/ask-us-anything-e351.html"
	legacyBuildID   = "q8v3Zk1Yb2xHn0aLrT5cE"
	legacyNextKey   = "www.ondemandkorea.com/_next/data/" + legacyBuildID + "/en/player/legacy/ask-us-anything-e351.json"
	modernURL686471 = "https://www.ondemandkorea.com/player/vod/ask-us-anything?contentId=686471"
	modernURL602310 = "https://www.ondemandkorea.com/player/vod/work-later-drink-now?contentId=602310"
)

// withPlayback registers both playback documents and their master playlists.
func (s *fakeSite) withPlayback() *fakeSite {
	s.handleFile(playbackKey686471, "playback_686471.json")
	s.handleFile(masterKey686471, "master_686471.m3u8")
	s.handleFile(playbackKey602310, "playback_602310.json")
	s.handleFile(masterKey602310, "master_602310.m3u8")
	return s
}

// withLegacy registers the legacy page and its redirect data.
func (s *fakeSite) withLegacy() *fakeSite {
	s.handleFile(legacyPageKey, "legacy_page.html")
	s.handleFile(legacyNextKey, "legacy_redirect.json")
	return s
}
