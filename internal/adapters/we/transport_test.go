package we

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/we-quota-cli/internal/domain"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRoundTripper struct {
	mu     sync.Mutex
	errs   []error
	bodies []string
	calls  int
}

func (s *scriptedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		_ = req.Body.Close()
		s.bodies = append(s.bodies, string(data))
	}

	call := s.calls
	s.calls++
	if call < len(s.errs) && s.errs[call] != nil {
		return nil, s.errs[call]
	}

	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`{}`)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func (s *scriptedRoundTripper) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func dialError() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// instantPolicy keeps the retry count of the default policy without waiting between attempts.
func instantPolicy() RetryPolicy {
	return RetryPolicy{ConnectRetries: DefaultConnectRetries}
}

func newScriptedSessionClient(t *testing.T, base http.RoundTripper, policy RetryPolicy) *resty.Client {
	t.Helper()

	client, err := NewSessionClient(base, policy, discardLogger())
	require.NoError(t, err)
	return client
}

func TestRetryPolicyBackoff(t *testing.T) {
	policy := DefaultRetryPolicy()

	assert.Equal(t, time.Duration(0), policy.Backoff(1))
	assert.Equal(t, time.Second, policy.Backoff(2))
	assert.Equal(t, 2*time.Second, policy.Backoff(3))
	assert.Equal(t, time.Duration(0), RetryPolicy{ConnectRetries: 3}.Backoff(3))
}

func TestRetryAfterFollowsPolicyPerFailedAttempt(t *testing.T) {
	retryAfter := DefaultRetryPolicy().retryAfter()

	var waits []time.Duration
	for attempt := 1; attempt <= DefaultConnectRetries; attempt++ {
		wait, err := retryAfter(nil, &resty.Response{Request: &resty.Request{Attempt: attempt}})
		require.NoError(t, err)
		waits = append(waits, wait)
	}

	assert.Equal(t, []time.Duration{0, time.Second, 2 * time.Second}, waits)

	wait, err := retryAfter(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, wait)
}

func TestSessionClientRetriesConnectErrorsAndReplaysBody(t *testing.T) {
	base := &scriptedRoundTripper{errs: []error{dialError(), dialError()}}
	client := newScriptedSessionClient(t, base, instantPolicy())

	resp, err := execute(client.R().SetBody([]byte(`{"acctId":"FBB1"}`)), http.MethodPost, "https://portal.example/login")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	assert.Equal(t, 3, base.callCount())
	assert.Equal(t, []string{`{"acctId":"FBB1"}`, `{"acctId":"FBB1"}`, `{"acctId":"FBB1"}`}, base.bodies)
}

func TestSessionClientSurfacesTransportErrorAfterRetries(t *testing.T) {
	base := &scriptedRoundTripper{errs: []error{dialError(), dialError(), dialError(), dialError(), dialError()}}
	client := newScriptedSessionClient(t, base, instantPolicy())

	_, err := execute(client.R().SetBody([]byte(`{}`)), http.MethodPost, "https://user:pw@portal.example/login")
	require.Error(t, err)

	var transportErr *domain.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 4, transportErr.Attempts)
	assert.Equal(t, http.MethodPost, transportErr.Method)
	assert.NotContains(t, transportErr.URL, "pw")
	assert.Equal(t, 4, base.callCount())
}

func TestSessionClientDoesNotRetryOtherErrors(t *testing.T) {
	readErr := errors.New("connection reset mid-response")
	base := &scriptedRoundTripper{errs: []error{readErr}}
	client := newScriptedSessionClient(t, base, instantPolicy())

	_, err := execute(client.R().SetBody([]byte(`{}`)), http.MethodPost, "https://portal.example/login")
	require.ErrorIs(t, err, readErr)

	var transportErr *domain.TransportError
	assert.False(t, errors.As(err, &transportErr))
	assert.Equal(t, 1, base.callCount())
}

func TestSessionClientDoesNotRetryHTTPStatus(t *testing.T) {
	calls := 0
	base := roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(strings.NewReader("upstream down")),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	})
	client := newScriptedSessionClient(t, base, instantPolicy())

	resp, err := execute(client.R(), http.MethodGet, "https://portal.example/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode())
	assert.Equal(t, 1, calls)
}

func TestSessionClientStopsWhenContextCanceled(t *testing.T) {
	base := &scriptedRoundTripper{errs: []error{dialError(), dialError()}}
	client := newScriptedSessionClient(t, base, DefaultRetryPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := execute(client.R().SetContext(ctx), http.MethodGet, "https://portal.example/")
	require.Error(t, err)

	var transportErr *domain.TransportError
	assert.False(t, errors.As(err, &transportErr))
	assert.LessOrEqual(t, base.callCount(), 1)
}

func TestSessionClientRetriesRealDialFailures(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	client := newScriptedSessionClient(t, nil, RetryPolicy{ConnectRetries: 2})
	assert.NotNil(t, client.GetClient().Jar)

	_, err = execute(client.R(), http.MethodGet, "http://"+addr+"/")
	require.Error(t, err)

	var transportErr *domain.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 3, transportErr.Attempts)
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
