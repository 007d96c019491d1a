package config

import (
	"errors"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/analyzere/analyzere-go/faults"
)

// Validate checks the client configuration and reports every problem found
// as a single ValidationError.
func (c Client) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(httpURL)),
		validation.Field(&c.Timeout, validation.Min(0)),
		validation.Field(&c.Auth),
		validation.Field(&c.Upload),
		validation.Field(&c.RateLimit),
	)
	if err != nil {
		return faults.NewTypedError(faults.ValidationError, "invalid client configuration", err)
	}
	return nil
}

func (a HTTPAuth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.BasicAuth),
		validation.Field(&a.BearerToken),
		validation.Field(&a.OAuth2),
	)
}

func (b BasicAuth) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Username, validation.Required),
		validation.Field(&b.Password, validation.Required),
	)
}

func (b BearerTokenAuth) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Token, validation.Required),
	)
}

func (o OAuth2) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.TokenURL, validation.Required, validation.By(httpURL)),
		validation.Field(&o.ClientID, validation.Required),
		validation.Field(&o.ClientSecret, validation.Required),
	)
}

func (u Upload) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.ChunkSize, validation.Min(int64(0)), validation.Max(int64(MaxChunkSize))),
		validation.Field(&u.PollInterval, validation.Min(0)),
	)
}

func (r RateLimit) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RequestsPerSecond, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&r.Burst, validation.Min(0)),
	)
}

func httpURL(value any) error {
	raw, _ := value.(string)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return errors.New("must be a valid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("must use http or https")
	}
	if parsed.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}
