package routing

import "strings"

// authMarkers are upstream phrases that indicate a rejected credential
// even when no 401 status is rendered in the message.
var authMarkers = []string{
	"api_key_invalid",
	"unauthenticated",
	"invalid api key",
	"api key not valid",
}

// Classify maps a generation failure to an ErrorKind by inspecting its
// message. Rules are checked in priority order; nil maps to KindOther.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindOther
	}
	return ClassifyMessage(err.Error())
}

// ClassifyMessage applies the classification rules to a raw error message
func ClassifyMessage(msg string) ErrorKind {
	switch {
	case strings.Contains(msg, "429"):
		return KindRateLimited
	case strings.Contains(msg, "401") || hasAuthMarker(msg):
		return KindUnauthorized
	case strings.Contains(msg, "404"):
		return KindNotFound
	default:
		return KindOther
	}
}

func hasAuthMarker(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range authMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
