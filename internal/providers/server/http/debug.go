package http

import (
	"context"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	debugctx "github.com/analyzere/analyzere-go/debugctx"
)

func (g *Gateway) doRequest(ctx context.Context, purpose string, request *http.Request, client *http.Client) (*http.Response, error) {
	redactedURL := redactURLForDebug(request.URL)

	ctx, span := g.tracer.Start(ctx, "analyzere "+purpose+" "+request.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", request.Method),
			attribute.String("url.full", redactedURL),
			attribute.String("analyzere.purpose", purpose),
			attribute.String("analyzere.auth_mode", g.auth.mode.String()),
		),
	)
	defer span.End()

	debugctx.Printf(
		ctx,
		"http request purpose=%q method=%q url=%q auth=%s %s",
		purpose,
		request.Method,
		redactedURL,
		g.auth.mode,
		g.tlsDebug,
	)

	started := g.now()
	response, err := client.Do(request.WithContext(ctx))
	elapsed := g.now().Sub(started)
	if err != nil {
		g.metrics.ObserveRequest(purpose, request.Method, 0, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		debugctx.Printf(
			ctx,
			"http request failed purpose=%q method=%q url=%q error=%v",
			purpose,
			request.Method,
			redactedURL,
			err,
		)
		return nil, err
	}

	g.metrics.ObserveRequest(purpose, request.Method, response.StatusCode, elapsed)
	span.SetAttributes(attribute.Int("http.response.status_code", response.StatusCode))
	if response.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(response.StatusCode))
	}
	debugctx.Printf(
		ctx,
		"http response purpose=%q method=%q url=%q status=%d",
		purpose,
		request.Method,
		redactedURL,
		response.StatusCode,
	)
	return response, nil
}

func redactURLForDebug(value *url.URL) string {
	if value == nil {
		return ""
	}

	cloned := *value
	cloned.User = nil

	query := cloned.Query()
	if len(query) > 0 {
		for key, values := range query {
			redacted := make([]string, len(values))
			for idx := range values {
				redacted[idx] = "<redacted>"
			}
			query[key] = redacted
		}
		cloned.RawQuery = query.Encode()
	}

	return cloned.String()
}
