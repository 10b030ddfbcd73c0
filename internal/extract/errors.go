package extract

import (
	"errors"
	"fmt"
	"strings"
)

// Kind tags the failure classes the caller has to tell apart.
type Kind int

const (
	// KindTransport covers network failures and non-2xx HTTP responses.
	KindTransport Kind = iota + 1
	// KindMalformed means a response lacked a field the extractor needs.
	KindMalformed
	// KindGeoRestricted means the site refused the request for this region.
	KindGeoRestricted
	// KindUnavailable means the video does not exist or is not published yet.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindMalformed:
		return "malformed"
	case KindGeoRestricted:
		return "geo-restricted"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is the error type returned by extractors.
type Error struct {
	Kind    Kind
	VideoID string
	Message string

	// StatusCode is the HTTP status for transport errors caused by a response.
	StatusCode int
	// Countries lists where a geo-restricted video can be watched.
	Countries []string
	// Expected marks conditions to report to the user without a stack of context.
	Expected bool

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.VideoID != "" {
		fmt.Fprintf(&b, "%s: ", e.VideoID)
	}
	b.WriteString(e.Message)
	if e.Kind == KindGeoRestricted && len(e.Countries) > 0 {
		fmt.Fprintf(&b, " (available in: %s)", strings.Join(e.Countries, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsExpected reports whether err is a user-facing condition rather than a bug or outage.
func IsExpected(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Expected
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

func transportError(videoID, msg string, status int, cause error) *Error {
	return &Error{Kind: KindTransport, VideoID: videoID, Message: msg, StatusCode: status, Err: cause}
}

func malformedError(videoID, msg string) *Error {
	return &Error{Kind: KindMalformed, VideoID: videoID, Message: msg}
}

func geoRestrictedError(videoID string, countries []string) *Error {
	return &Error{
		Kind:      KindGeoRestricted,
		VideoID:   videoID,
		Message:   "video is not available from your location",
		Countries: countries,
		Expected:  true,
	}
}

func unavailableError(videoID, msg string, cause error) *Error {
	return &Error{Kind: KindUnavailable, VideoID: videoID, Message: msg, Expected: true, Err: cause}
}
