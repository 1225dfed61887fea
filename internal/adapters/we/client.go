// Package we talks to the WE (Telecom Egypt) customer self-service REST API.
package we

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bnema/we-quota-cli/internal/domain"
	"github.com/bnema/we-quota-cli/internal/ports"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://my.te.eg/echannel/service/besapp/base/rest/busiservice"

	loginPath = "v1/auth/userAuthenticate"
	quotaPath = "cz/cbs/bb/queryFreeUnit"

	channelID         = "702"
	csrfHeader        = "csrftoken"
	maxResponseBytes  = 1 << 20
	defaultReqTimeout = 30 * time.Second
)

type Config struct {
	BaseURL        string
	Retry          RetryPolicy
	RequestTimeout time.Duration
	// Transport is the round tripper below the retry layer; nil keeps resty's default transport.
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Client owns one portal session. Create one per service number.
type Client struct {
	baseURL        string
	transport      http.RoundTripper
	retry          RetryPolicy
	requestTimeout time.Duration
	logger         *slog.Logger

	mu         sync.Mutex
	httpClient *resty.Client
}

var _ ports.QuotaProvider = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := buildAPIURL(baseURL, loginPath); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient, err := NewSessionClient(cfg.Transport, cfg.Retry, logger)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:        baseURL,
		transport:      cfg.Transport,
		retry:          cfg.Retry,
		httpClient:     httpClient,
		requestTimeout: cfg.RequestTimeout,
		logger:         logger,
	}, nil
}

// FetchQuota fetches the free-unit payload for the session and maps it.
func (c *Client) FetchQuota(ctx context.Context, session domain.Session) (domain.QuotaSnapshot, error) {
	payload, err := c.Fetch(ctx, session)
	if err != nil {
		return domain.QuotaSnapshot{}, err
	}

	return MapQuota(payload)
}

func (c *Client) post(ctx context.Context, path string, body any, headers map[string]string) (envelope, error) {
	endpoint, err := buildAPIURL(c.baseURL, path)
	if err != nil {
		return envelope{}, err
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return envelope{}, fmt.Errorf("encode request body: %w", err)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req := c.session().R().
		SetContext(requestCtx).
		SetHeaders(map[string]string{
			"Content-Type": "application/json",
			"channelId":    channelID,
			"isSelfcare":   "true",
		}).
		SetHeaders(headers).
		SetBody(encoded).
		SetDoNotParseResponse(true)

	resp, err := execute(req, http.MethodPost, endpoint)
	if err != nil {
		return envelope{}, fmt.Errorf("perform request: %w", err)
	}
	rawBody := resp.RawBody()
	defer func() { _ = rawBody.Close() }()

	data, err := io.ReadAll(io.LimitReader(rawBody, maxResponseBytes))
	if err != nil {
		return envelope{}, fmt.Errorf("read response: %w", err)
	}

	var payload envelope
	decodeErr := json.Unmarshal(data, &payload)
	status := resp.StatusCode()
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		if decodeErr != nil || payload.Header == nil {
			return envelope{}, fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(data)))
		}
	}
	if decodeErr != nil {
		return envelope{}, fmt.Errorf("decode response: %w", decodeErr)
	}

	c.logger.Debug("portal response", "path", path, "status", status, "ret_code", payload.retCode())
	return payload, nil
}

func (c *Client) session() *resty.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.httpClient
}

// resetSession drops cookies from any previous login.
func (c *Client) resetSession() error {
	httpClient, err := NewSessionClient(c.transport, c.retry, c.logger)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.httpClient = httpClient
	c.mu.Unlock()
	return nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := c.requestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultReqTimeout
	}

	return context.WithTimeout(ctx, requestTimeout)
}

func buildAPIURL(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", errors.New("api base url is required")
	}
	if path == "" {
		return "", errors.New("api path is required")
	}

	parsed, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("api base url host is required")
	}

	endpoint, err := parsed.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("parse api path: %w", err)
	}
	return endpoint.String(), nil
}
