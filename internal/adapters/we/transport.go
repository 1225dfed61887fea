package we

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/bnema/we-quota-cli/internal/domain"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultConnectRetries = 3
	DefaultBackoffFactor  = 0.5

	maxRetryWait = time.Minute
)

// RetryPolicy bounds the retries of requests that never reached the server.
type RetryPolicy struct {
	ConnectRetries int
	BackoffFactor  float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{ConnectRetries: DefaultConnectRetries, BackoffFactor: DefaultBackoffFactor}
}

// Backoff returns the wait before the given retry (1-based): nothing before the
// first retry, then factor * 2^(retry-1).
func (p RetryPolicy) Backoff(retry int) time.Duration {
	if retry <= 1 || p.BackoffFactor <= 0 {
		return 0
	}

	seconds := p.BackoffFactor * math.Pow(2, float64(retry-1))
	return time.Duration(seconds * float64(time.Second))
}

// retryAfter maps the attempt that just failed to the policy's wait before the next one.
func (p RetryPolicy) retryAfter() resty.RetryAfterFunc {
	return func(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
		if resp == nil || resp.Request == nil {
			return 0, nil
		}
		return p.Backoff(resp.Request.Attempt), nil
	}
}

// NewSessionClient builds a resty client with a fresh cookie jar. Only
// connection failures are retried; HTTP statuses and bodies never are.
func NewSessionClient(base http.RoundTripper, policy RetryPolicy, logger *slog.Logger) (*resty.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	client := resty.New().
		SetCookieJar(jar).
		SetLogger(restyLogger{logger: logger}).
		SetRetryCount(max(policy.ConnectRetries, 0)).
		SetRetryWaitTime(0).
		SetRetryMaxWaitTime(maxRetryWait).
		SetRetryAfter(policy.retryAfter()).
		AddRetryCondition(func(_ *resty.Response, err error) bool {
			return isConnectError(err)
		}).
		AddRetryHook(func(resp *resty.Response, err error) {
			attempt := 0
			if resp != nil && resp.Request != nil {
				attempt = resp.Request.Attempt
			}
			logger.Debug("connection failed", "attempt", attempt, "error", err)
		})
	if base != nil {
		client.SetTransport(base)
	}

	return client, nil
}

// execute sends the request and reports a TransportError once the
// connection retries are used up.
func execute(req *resty.Request, method, endpoint string) (*resty.Response, error) {
	resp, err := req.Execute(method, endpoint)
	if err == nil {
		return resp, nil
	}
	if !isConnectError(err) || req.Context().Err() != nil {
		return nil, err
	}

	return nil, &domain.TransportError{Method: method, URL: redactURL(endpoint), Attempts: req.Attempt, Err: err}
}

func isConnectError(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func redactURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return parsed.Redacted()
}

// restyLogger sends resty's own messages to slog at debug level. Every
// failed attempt it reports also comes back to the caller as an error.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), "source", "resty")
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), "source", "resty")
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), "source", "resty")
}
