// Package lookup relays typed threat-intel queries to the VirusTotal v3 API.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dtroode/threatgate/internal/logger"
	"github.com/dtroode/threatgate/internal/model"
)

// DefaultBaseURL is the public VirusTotal v3 endpoint.
const DefaultBaseURL = "https://www.virustotal.com/api/v3"

const apiKeyHeader = "x-apikey"

// Config holds configuration for a VirusTotal gateway.
type Config struct {
	// APIKey authenticates every upstream request. An empty key makes
	// every lookup fail with model.ErrGatewayMisconfigured.
	APIKey string
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// Timeout bounds a single upstream request. Zero means none.
	Timeout time.Duration
	// HTTPClient defaults to a new client with Timeout.
	HTTPClient *http.Client
}

// VirusTotal implements model.LookupGateway. Responses are never cached and
// requests are never retried.
type VirusTotal struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

var _ model.LookupGateway = (*VirusTotal)(nil)

func NewVirusTotal(cfg Config, logger *logger.Logger) *VirusTotal {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &VirusTotal{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Lookup dispatches resource to the endpoint for kind and returns the
// upstream JSON body unmodified, whatever the upstream status code.
func (v *VirusTotal) Lookup(ctx context.Context, kind model.LookupKind, resource string) (json.RawMessage, error) {
	if v.apiKey == "" {
		return nil, model.ErrGatewayMisconfigured
	}

	req, err := v.newRequest(ctx, kind, resource)
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiKeyHeader, v.apiKey)
	req.Header.Set("Accept", "application/json")

	v.logger.Debug("Lookup gateway: sending request",
		"kind", kind,
		"method", req.Method,
		"path", req.URL.EscapedPath())

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, &model.UpstreamError{Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.UpstreamError{Cause: fmt.Errorf("read response body: %w", err)}
	}

	if !json.Valid(body) {
		return nil, &model.UpstreamError{Cause: fmt.Errorf("response is not JSON (status %d)", resp.StatusCode)}
	}

	v.logger.Debug("Lookup gateway: response relayed",
		"kind", kind,
		"status", resp.StatusCode,
		"bytes", len(body))

	return json.RawMessage(body), nil
}

func (v *VirusTotal) newRequest(ctx context.Context, kind model.LookupKind, resource string) (*http.Request, error) {
	var (
		req *http.Request
		err error
	)

	switch kind {
	case model.LookupKindURL:
		form := url.Values{"url": {resource}}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/urls", strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	case model.LookupKindDomain:
		req, err = v.get(ctx, "domains", resource)
	case model.LookupKindIP:
		req, err = v.get(ctx, "ip_addresses", resource)
	case model.LookupKindFile:
		req, err = v.get(ctx, "files", resource)
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnsupportedKind, kind)
	}
	if err != nil {
		return nil, &model.UpstreamError{Cause: fmt.Errorf("build request: %w", err)}
	}

	return req, nil
}

func (v *VirusTotal) get(ctx context.Context, collection, resource string) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/"+collection+"/"+escapeSegment(resource), nil)
}

// escapeSegment percent-encodes every reserved character, including the
// ":", "@", "+", "&", "=" and "$" that url.PathEscape keeps.
func escapeSegment(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// IsUpstream reports whether err is an upstream failure.
func IsUpstream(err error) bool {
	var upstreamErr *model.UpstreamError
	return errors.As(err, &upstreamErr)
}
