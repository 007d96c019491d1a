package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	debugctx "github.com/analyzere/analyzere-go/debugctx"
	"github.com/analyzere/analyzere-go/resource"
	"github.com/analyzere/analyzere-go/server"
)

// Request sends spec as JSON and decodes the JSON response.
func (g *Gateway) Request(ctx context.Context, spec server.RequestSpec) (resource.Value, error) {
	headers := make(map[string]string, len(spec.Headers)+2)
	headers["Accept"] = defaultMediaType
	if spec.Body != nil && spec.RawBody == nil {
		headers["Content-Type"] = defaultMediaType
	}
	for key, value := range spec.Headers {
		headers[key] = value
	}
	spec.Headers = headers

	response, err := g.Execute(ctx, spec)
	if err != nil {
		return nil, err
	}
	return decodeRequestResponse(response)
}

// Execute sends spec, resending it while the server answers 503 with a
// Retry-After delay and auto retry is on. A 401 under client credentials
// refetches the token and resends once.
func (g *Gateway) Execute(ctx context.Context, spec server.RequestSpec) (*server.Response, error) {
	method := strings.ToUpper(strings.TrimSpace(spec.Method))
	if method == "" {
		return nil, validationError("request method is required", nil)
	}
	spec.Method = method

	body, err := encodeRequestBody(spec)
	if err != nil {
		return nil, err
	}

	refreshedToken := false
	for {
		response, err := g.send(ctx, spec, body)
		if err != nil {
			return nil, err
		}

		switch {
		case response.StatusCode == http.StatusUnauthorized && g.auth.mode == authModeOAuth2 && !refreshedToken:
			refreshedToken = true
			debugctx.Printf(ctx, "http request unauthorized, refreshing oauth2 token method=%q path=%q", spec.Method, spec.Path)
			g.invalidateToken()
			continue
		case response.StatusCode == http.StatusServiceUnavailable:
			delay, ok := parseRetryAfter(response.Header.Get("Retry-After"), g.now())
			if ok && !spec.DisableAutoRetry {
				debugctx.Printf(ctx, "http request retry method=%q path=%q retry_after=%s", spec.Method, spec.Path, delay)
				g.metrics.ObserveRetry()
				if err := g.sleep(ctx, delay); err != nil {
					return nil, transportError("interrupted while waiting to retry", err)
				}
				continue
			}
			return nil, classifyStatusError(response, delay)
		case response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices:
			return nil, classifyStatusError(response, 0)
		}
		return response, nil
	}
}

func (g *Gateway) send(ctx context.Context, spec server.RequestSpec, body []byte) (*server.Response, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, transportError("rate limiter wait failed", err)
		}
	}

	request, err := g.newRequest(ctx, spec, body)
	if err != nil {
		return nil, err
	}

	response, err := g.doRequest(ctx, purposeResource, request, g.client)
	if err != nil {
		return nil, transportError("remote request failed", err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, transportError("failed to read remote response body", err)
	}

	return &server.Response{
		StatusCode: response.StatusCode,
		Header:     response.Header.Clone(),
		Body:       responseBody,
	}, nil
}

func (g *Gateway) newRequest(ctx context.Context, spec server.RequestSpec, body []byte) (*http.Request, error) {
	targetURL, err := g.resolveRequestURL(spec.Path, spec.Query)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	request, err := http.NewRequestWithContext(ctx, spec.Method, targetURL, bodyReader)
	if err != nil {
		return nil, internalError("failed to create remote request", err)
	}

	request.Header.Set("User-Agent", g.userAgent)
	setHeaders(request.Header, g.defaultHeaders)
	setHeaders(request.Header, spec.Headers)

	if err := g.applyAuth(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

func setHeaders(target http.Header, values map[string]string) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		target.Set(key, values[key])
	}
}

func (g *Gateway) resolveRequestURL(requestPath string, query map[string]string) (string, error) {
	if parsed, err := url.Parse(requestPath); err == nil && parsed.Scheme != "" {
		return "", validationError("request path must be relative to base-url", nil)
	}

	joined, err := resource.JoinURL(g.baseURL.String(), requestPath)
	if err != nil {
		return "", err
	}
	target, err := url.Parse(joined)
	if err != nil {
		return "", validationError("invalid request path "+requestPath, err)
	}

	if len(query) > 0 {
		values := target.Query()
		keys := make([]string, 0, len(query))
		for key := range query {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			values.Set(key, query[key])
		}
		target.RawQuery = values.Encode()
	}

	return target.String(), nil
}

func encodeRequestBody(spec server.RequestSpec) ([]byte, error) {
	if spec.RawBody != nil {
		return spec.RawBody, nil
	}
	if spec.Body == nil {
		return nil, nil
	}

	normalized, err := resource.Normalize(resource.ToWire(spec.Body))
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(normalized)
	if err != nil {
		return nil, validationError("failed to encode JSON request body", err)
	}
	return encoded, nil
}
