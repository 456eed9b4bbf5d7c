package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/dropDatabas3/socialauth/internal/metrics"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

// HTTPDoer is the only thing strategies need from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	defaultTimeout   = 10 * time.Second
	defaultRetryWait = 200 * time.Millisecond
	maxBodyBytes     = 1 << 20
)

// Request is one outbound provider call.
type Request struct {
	Op     string // label for logs and metrics
	Method string
	URL    string
	Header http.Header
	Form   url.Values // sent as application/x-www-form-urlencoded when set
	JSON   any        // sent as application/json when set
}

// Response is a fully read provider reply.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status <= 299 }

// Transport sends provider requests with a per-attempt timeout. GETs are
// retried up to getRetries times on transport errors and 5xx replies; other
// methods get exactly one attempt.
type Transport struct {
	provider   string
	doer       HTTPDoer
	timeout    time.Duration
	getRetries uint
	retryWait  time.Duration
	log        *zap.Logger
}

// NewTransport builds a Transport for provider from deps, applying defaults.
func NewTransport(provider string, deps Deps) *Transport {
	t := &Transport{
		provider:  provider,
		doer:      deps.HTTP,
		timeout:   deps.Timeout,
		retryWait: deps.RetryWait,
		log:       logger.OrNop(deps.Log),
	}
	if t.doer == nil {
		t.doer = &http.Client{}
	}
	if t.timeout <= 0 {
		t.timeout = defaultTimeout
	}
	if t.retryWait <= 0 {
		t.retryWait = defaultRetryWait
	}
	if deps.GetRetries > 0 {
		t.getRetries = uint(deps.GetRetries)
	}
	return t
}

// retryableStatus carries a 5xx reply that will be retried.
type retryableStatus struct{ resp *Response }

func (e *retryableStatus) Error() string { return fmt.Sprintf("status %d", e.resp.Status) }

// Do sends r. A non-nil Response is returned for any HTTP reply, including
// non-2xx; the error is set only when no reply was received.
func (t *Transport) Do(ctx context.Context, r Request) (*Response, error) {
	body, contentType, err := r.encode()
	if err != nil {
		return nil, err
	}

	tries := uint(1)
	if r.Method == http.MethodGet {
		tries += t.getRetries
	}

	log := logger.FromOr(ctx, t.log).With(logger.Provider(t.provider), logger.Op(r.Op))
	attempt := 0
	op := func() (*Response, error) {
		attempt++
		resp, err := t.once(ctx, r, body, contentType)
		last := uint(attempt) >= tries
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, backoff.Permanent(err)
		case err != nil:
			if !last {
				log.Debug("provider call failed, retrying", logger.Attempt(attempt), logger.Err(err))
			}
			return nil, err
		case resp.Status >= 500 && !last:
			log.Debug("provider returned server error, retrying", logger.Attempt(attempt), logger.Status(resp.Status))
			return nil, &retryableStatus{resp: resp}
		default:
			return resp, nil
		}
	}

	return backoff.Retry(ctx, op,
		backoff.WithMaxTries(tries),
		backoff.WithBackOff(backoff.NewConstantBackOff(t.retryWait)),
	)
}

func (t *Transport) once(ctx context.Context, r Request, body []byte, contentType string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", redact(err))
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := t.doer.Do(req)
	if err != nil {
		err = redact(err)
		metrics.ObserveProviderCall(t.provider, r.Op, 0, err, time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	metrics.ObserveProviderCall(t.provider, r.Op, resp.StatusCode, err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", redact(err))
	}

	logger.FromOr(ctx, t.log).Debug("provider call",
		logger.Provider(t.provider),
		logger.Op(r.Op),
		logger.Method(r.Method),
		logger.URLHost(req.URL.Host),
		logger.Path(req.URL.Path),
		logger.Status(resp.StatusCode),
		logger.Duration(time.Since(start)),
	)
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: b}, nil
}

func (r Request) encode() ([]byte, string, error) {
	switch {
	case r.Form != nil:
		return []byte(r.Form.Encode()), "application/x-www-form-urlencoded", nil
	case r.JSON != nil:
		b, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("encode request: %w", err)
		}
		return b, "application/json", nil
	default:
		return nil, "", nil
	}
}

// redact strips the query string from URLs embedded in net/http errors.
// Some providers take the token as a query parameter.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = stripQuery(ue.URL)
	}
	return err
}

func stripQuery(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}

// truncate limits provider bodies written to logs.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
