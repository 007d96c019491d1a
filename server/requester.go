package server

import (
	"context"
	"net/http"

	"github.com/analyzere/analyzere-go/resource"
)

// Requester is the request primitive every resource operation goes through.
type Requester interface {
	// Execute sends spec and returns the raw response. Non-2xx responses are
	// returned as typed faults.
	Execute(ctx context.Context, spec RequestSpec) (*Response, error)
	// Request sends spec as JSON and decodes the JSON response. An empty
	// response body decodes to "".
	Request(ctx context.Context, spec RequestSpec) (resource.Value, error)
}

// AccessTokenProvider is implemented by requesters that can hand out the
// bearer token they attach to requests.
type AccessTokenProvider interface {
	GetAccessToken(ctx context.Context) (string, error)
}

// RequestSpec describes one API call. Path is relative to the configured base
// URL. Body is serialized as JSON; RawBody is sent verbatim and wins when both
// are set.
type RequestSpec struct {
	Method  string
	Path    string
	Query   map[string]string
	Headers map[string]string
	Body    resource.Value
	RawBody []byte

	// DisableAutoRetry surfaces 503 Retry-After responses instead of sleeping
	// and resending.
	DisableAutoRetry bool
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}
