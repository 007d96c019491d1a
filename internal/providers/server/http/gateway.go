package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/analyzere/analyzere-go/config"
	"github.com/analyzere/analyzere-go/internal/metrics"
	"github.com/analyzere/analyzere-go/internal/providers/shared/tlsconfig"
	"github.com/analyzere/analyzere-go/server"
)

const (
	defaultMediaType   = "application/json"
	tracerName         = "github.com/analyzere/analyzere-go/internal/providers/server/http"
	purposeResource    = "resource"
	purposeOAuth2Token = "oauth2-token"
)

var _ server.Requester = (*Gateway)(nil)
var _ server.AccessTokenProvider = (*Gateway)(nil)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Gateway is the HTTP request primitive. It owns the cached access token, so
// one Gateway should be shared by every call made with the same credentials.
type Gateway struct {
	baseURL        *url.URL
	userAgent      string
	defaultHeaders map[string]string
	auth           authConfig
	client         *http.Client
	tlsDebug       string

	limiter *rate.Limiter
	metrics *metrics.Recorder
	tracer  trace.Tracer
	sleep   Sleeper
	now     func() time.Time

	tokenGroup       singleflight.Group
	oauthMu          sync.Mutex
	oauthAccessToken string
	oauthExpiresAt   time.Time
}

type GatewayOption func(*Gateway)

// WithHTTPClient replaces the client built from the TLS and timeout settings.
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *Gateway) {
		if client != nil {
			g.client = client
		}
	}
}

func WithSleeper(sleep Sleeper) GatewayOption {
	return func(g *Gateway) {
		if sleep != nil {
			g.sleep = sleep
		}
	}
}

// WithClock sets the time source used for access token expiry.
func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

func WithMetrics(recorder *metrics.Recorder) GatewayOption {
	return func(g *Gateway) {
		g.metrics = recorder
	}
}

func WithTracerProvider(provider trace.TracerProvider) GatewayOption {
	return func(g *Gateway) {
		if provider != nil {
			g.tracer = provider.Tracer(tracerName)
		}
	}
}

func NewGateway(cfg config.Client, opts ...GatewayOption) (*Gateway, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	tlsConfig, err := tlsconfig.Build(cfg.TLS)
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if tlsConfig != nil {
		transport.TLSClientConfig = tlsConfig
	}

	gateway := &Gateway{
		baseURL:        baseURL,
		userAgent:      cfg.UserAgent,
		defaultHeaders: cloneStringMap(cfg.DefaultHeaders),
		auth:           buildAuthConfig(cfg.Auth),
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		tlsDebug: tlsconfig.Describe(cfg.TLS),
		tracer:   otel.GetTracerProvider().Tracer(tracerName),
		sleep:    sleepContext,
		now:      time.Now,
	}
	if cfg.RateLimit != nil {
		burst := cfg.RateLimit.Burst
		if burst <= 0 {
			burst = 1
		}
		gateway.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), burst)
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(gateway)
	}
	return gateway, nil
}

// BaseURL returns the configured API root.
func (g *Gateway) BaseURL() string {
	return g.baseURL.String()
}

func parseBaseURL(value string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(value))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, validationError("base-url must be an absolute http or https URL", err)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	return parsed, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func cloneStringMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	cloned := make(map[string]string, len(values))
	for key, value := range values {
		cloned[key] = value
	}
	return cloned
}
