package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/analyzere/analyzere-go/config"
)

type authMode int

const (
	authModeNone authMode = iota
	authModeAnonymous
	authModeBasic
	authModeBearer
	authModeOAuth2
)

func (m authMode) String() string {
	switch m {
	case authModeAnonymous:
		return "anonymous"
	case authModeBasic:
		return "basic"
	case authModeBearer:
		return "bearer"
	case authModeOAuth2:
		return "oauth2"
	default:
		return "none"
	}
}

type authConfig struct {
	mode        authMode
	basicAuth   config.BasicAuth
	bearerToken config.BearerTokenAuth
	oauth2      *clientcredentials.Config
}

// buildAuthConfig picks the credentials used for every call: basic auth, then
// a static bearer token, then client credentials.
func buildAuthConfig(cfg *config.HTTPAuth) authConfig {
	if cfg == nil {
		return authConfig{mode: authModeNone}
	}

	switch {
	case cfg.BasicAuth != nil && cfg.BasicAuth.Username != "" && cfg.BasicAuth.Password != "":
		return authConfig{mode: authModeBasic, basicAuth: *cfg.BasicAuth}
	case cfg.BearerToken != nil && cfg.BearerToken.Token != "":
		return authConfig{mode: authModeBearer, bearerToken: *cfg.BearerToken}
	case cfg.OAuth2 != nil && cfg.OAuth2.ClientID != "":
		return authConfig{mode: authModeOAuth2, oauth2: &clientcredentials.Config{
			ClientID:     cfg.OAuth2.ClientID,
			ClientSecret: cfg.OAuth2.ClientSecret,
			TokenURL:     cfg.OAuth2.TokenURL,
			Scopes:       strings.Fields(cfg.OAuth2.Scope),
			AuthStyle:    oauth2.AuthStyleInParams,
		}}
	case cfg.Anonymous:
		return authConfig{mode: authModeAnonymous}
	default:
		return authConfig{mode: authModeNone}
	}
}

func (g *Gateway) applyAuth(ctx context.Context, request *http.Request) error {
	switch g.auth.mode {
	case authModeBasic:
		request.SetBasicAuth(g.auth.basicAuth.Username, g.auth.basicAuth.Password)
	case authModeBearer:
		request.Header.Set("Authorization", "Bearer "+g.auth.bearerToken.Token)
	case authModeOAuth2:
		token, err := g.GetAccessToken(ctx)
		if err != nil {
			return err
		}
		request.Header.Set("Authorization", "Bearer "+token)
	case authModeAnonymous:
	default:
		return authError("no usable credentials configured: set basic-auth, bearer-token or oauth2, or mark the context anonymous", nil)
	}
	return nil
}

// GetAccessToken returns the bearer token attached to requests. Client
// credential tokens are cached until they expire; concurrent callers share
// one token fetch.
func (g *Gateway) GetAccessToken(ctx context.Context) (string, error) {
	switch g.auth.mode {
	case authModeBearer:
		return g.auth.bearerToken.Token, nil
	case authModeOAuth2:
	default:
		return "", authError("access tokens require bearer-token or oauth2 auth", nil)
	}

	if token, ok := g.cachedToken(); ok {
		return token, nil
	}

	result, err, _ := g.tokenGroup.Do("token", func() (any, error) {
		if token, ok := g.cachedToken(); ok {
			return token, nil
		}
		return g.fetchToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (g *Gateway) cachedToken() (string, bool) {
	g.oauthMu.Lock()
	defer g.oauthMu.Unlock()

	if g.oauthAccessToken == "" {
		return "", false
	}
	if !g.oauthExpiresAt.IsZero() && !g.now().Before(g.oauthExpiresAt) {
		return "", false
	}
	return g.oauthAccessToken, true
}

func (g *Gateway) invalidateToken() {
	g.oauthMu.Lock()
	g.oauthAccessToken = ""
	g.oauthExpiresAt = time.Time{}
	g.oauthMu.Unlock()
}

func (g *Gateway) fetchToken(ctx context.Context) (string, error) {
	fetchCtx := context.WithValue(ctx, oauth2.HTTPClient, g.tokenClient(ctx))
	g.metrics.ObserveTokenFetch()

	token, err := g.auth.oauth2.Token(fetchCtx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			status := 0
			if retrieveErr.Response != nil {
				status = retrieveErr.Response.StatusCode
			}
			return "", authError(
				fmt.Sprintf("oauth2 token request failed with status %d: %s", status, summarizeBody(retrieveErr.Body)),
				nil,
			)
		}
		return "", transportError("oauth2 token request failed", err)
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return "", authError("oauth2 token response does not include access_token", nil)
	}

	var expiresAt time.Time
	if lifetime, ok := tokenLifetime(token); ok {
		expiresAt = g.now().Add(lifetime)
	}

	g.oauthMu.Lock()
	g.oauthAccessToken = token.AccessToken
	g.oauthExpiresAt = expiresAt
	g.oauthMu.Unlock()

	return token.AccessToken, nil
}

// tokenClient logs and traces token requests like every other call.
func (g *Gateway) tokenClient(ctx context.Context) *http.Client {
	return &http.Client{
		Timeout: g.client.Timeout,
		Transport: roundTripperFunc(func(request *http.Request) (*http.Response, error) {
			return g.doRequest(ctx, purposeOAuth2Token, request, g.client)
		}),
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(request *http.Request) (*http.Response, error) {
	return f(request)
}

func tokenLifetime(token *oauth2.Token) (time.Duration, bool) {
	var seconds float64
	switch raw := token.Extra("expires_in").(type) {
	case float64:
		seconds = raw
	case int64:
		seconds = float64(raw)
	case json.Number:
		parsed, err := raw.Float64()
		if err != nil {
			return 0, false
		}
		seconds = parsed
	case string:
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, false
		}
		seconds = parsed
	default:
		return 0, false
	}
	if seconds <= 0 {
		return 0, false
	}
	return secondsDuration(seconds), true
}
