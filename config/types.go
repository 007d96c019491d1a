package config

import "time"

type ContextSelection struct {
	Name string
}

const (
	ContextFileEnvVar         = "ANALYZERE_CONTEXTS_FILE"
	DefaultContextCatalogPath = "~/.analyzere/contexts.yaml"

	DefaultBaseURL      = "http://localhost:8000/"
	DefaultUserAgent    = "analyzere-go 0.8-dev"
	DefaultTimeout      = 30 * time.Second
	OneMegabyte         = 1 << 20
	DefaultChunkSize    = 16 * OneMegabyte
	MaxChunkSize        = 1024 * OneMegabyte
	DefaultPollInterval = 100 * time.Millisecond
)

type ContextCatalog struct {
	Contexts   []Context `yaml:"contexts"`
	CurrentCtx string    `yaml:"current-ctx"`
}

type Context struct {
	Name   string `yaml:"name"`
	Client Client `yaml:",inline"`
}

// Client holds everything needed to talk to one API deployment. It is passed
// explicitly to the request primitive; there is no package-level state.
type Client struct {
	BaseURL        string            `yaml:"base-url"`
	UserAgent      string            `yaml:"user-agent,omitempty"`
	Timeout        time.Duration     `yaml:"timeout,omitempty"`
	DefaultHeaders map[string]string `yaml:"default-headers,omitempty"`
	Auth           *HTTPAuth         `yaml:"auth,omitempty"`
	TLS            *TLS              `yaml:"tls,omitempty"`
	Upload         *Upload           `yaml:"upload,omitempty"`
	RateLimit      *RateLimit        `yaml:"rate-limit,omitempty"`
}

// HTTPAuth lists the configured credentials. When more than one is present
// the request primitive picks basic, then bearer token, then oauth2.
type HTTPAuth struct {
	Anonymous   bool             `yaml:"anonymous,omitempty"`
	BasicAuth   *BasicAuth       `yaml:"basic-auth,omitempty"`
	BearerToken *BearerTokenAuth `yaml:"bearer-token,omitempty"`
	OAuth2      *OAuth2          `yaml:"oauth2,omitempty"`
}

type BasicAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type BearerTokenAuth struct {
	Token string `yaml:"token"`
}

// OAuth2 configures the client-credentials grant.
type OAuth2 struct {
	TokenURL     string `yaml:"token-url"`
	ClientID     string `yaml:"client-id"`
	ClientSecret string `yaml:"client-secret"`
	Scope        string `yaml:"scope,omitempty"`
}

type TLS struct {
	CACertFile         string `yaml:"ca-cert-file,omitempty"`
	ClientCertFile     string `yaml:"client-cert-file,omitempty"`
	ClientKeyFile      string `yaml:"client-key-file,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecure-skip-verify,omitempty"`
}

type Upload struct {
	ChunkSize    int64         `yaml:"chunk-size,omitempty"`
	PollInterval time.Duration `yaml:"poll-interval,omitempty"`
}

type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests-per-second"`
	Burst             int     `yaml:"burst,omitempty"`
}

// WithDefaults fills unset optional fields.
func (c Client) WithDefaults() Client {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	upload := Upload{}
	if c.Upload != nil {
		upload = *c.Upload
	}
	if upload.ChunkSize == 0 {
		upload.ChunkSize = DefaultChunkSize
	}
	if upload.PollInterval == 0 {
		upload.PollInterval = DefaultPollInterval
	}
	c.Upload = &upload
	return c
}
