package resource

import (
	"net/url"
	"strings"

	"github.com/analyzere/analyzere-go/faults"
)

// ParseHref splits a resource link into its collection name and id. The
// last two path segments are used so links under a base path parse too.
func ParseHref(href string) (string, string, error) {
	parsed, err := url.Parse(href)
	if err != nil {
		return "", "", faults.NewTypedError(faults.ValidationError, "invalid reference href "+href, err)
	}

	segments := pathSegments(parsed.Path)
	if len(segments) < 2 {
		return "", "", faults.NewTypedError(
			faults.ValidationError,
			"reference href "+href+" must have a /{collection}/{id} path",
			nil,
		)
	}
	return segments[len(segments)-2], segments[len(segments)-1], nil
}

// RebaseHref swaps the collection and id at the end of href, keeping its
// scheme, host and base path.
func RebaseHref(href string, collection string, id string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return collection + "/" + id
	}

	segments := pathSegments(parsed.Path)
	if len(segments) >= 2 {
		segments = segments[:len(segments)-2]
	}
	segments = append(segments, collection, id)
	parsed.Path = "/" + strings.Join(segments, "/")
	parsed.RawPath = ""
	return parsed.String()
}

// JoinURL resolves a relative API path against the base URL. The base path is
// kept: "https://host/api/" + "layers/1" is "https://host/api/layers/1".
func JoinURL(baseURL string, requestPath string) (string, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", faults.NewTypedError(faults.ValidationError, "invalid base URL", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", faults.NewTypedError(faults.ValidationError, "base URL must be absolute", nil)
	}

	relative, err := url.Parse(requestPath)
	if err != nil {
		return "", faults.NewTypedError(faults.ValidationError, "invalid request path "+requestPath, err)
	}
	if relative.IsAbs() {
		return relative.String(), nil
	}

	joined := *base
	basePath := strings.TrimSuffix(base.Path, "/")
	trimmed := strings.TrimPrefix(relative.Path, "/")
	if trimmed == "" {
		joined.Path = basePath + "/"
	} else {
		joined.Path = basePath + "/" + trimmed
	}
	joined.RawPath = ""
	joined.RawQuery = relative.RawQuery
	joined.Fragment = ""
	return joined.String(), nil
}

func pathSegments(value string) []string {
	raw := strings.Split(value, "/")
	segments := make([]string, 0, len(raw))
	for _, segment := range raw {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}
