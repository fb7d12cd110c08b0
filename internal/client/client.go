package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/skybi/fleetdash/internal/metrics"
	"github.com/skybi/fleetdash/internal/session"
	"golang.org/x/time/rate"
)

const (
	headerRequestID = "X-Request-ID"
	userAgent       = "fleetdash/1.0"
)

// Options configures a Client
type Options struct {
	// BaseURL is the address every request path is resolved against
	BaseURL string

	// Timeout bounds every request; zero disables the timeout
	Timeout time.Duration

	// RequestsPerSecond limits the outgoing request rate; zero or less means unlimited
	RequestsPerSecond float64

	// AutoRefresh makes the client exchange an expired token using its refresh token before
	// sending a request
	AutoRefresh bool

	// Metrics receives request metrics; may be nil
	Metrics *metrics.Metrics

	// Transport replaces the HTTP transport (used by tests)
	Transport http.RoundTripper
}

// RequestOptions describes a single backend request.
// Headers are merged with the JSON content type and the bearer authorization header.
type RequestOptions struct {
	Method  string
	Body    any
	Headers map[string]string
	Query   url.Values

	// Route is the path template used as metric label (defaults to the path)
	Route string
}

// Client is the single point of HTTP access to the fleet backend.
// It is safe for concurrent use.
type Client struct {
	resty       *resty.Client
	session     *session.Session
	limiter     *rate.Limiter
	metrics     *metrics.Metrics
	autoRefresh bool
}

// New creates a new client sending requests on behalf of the given session
func New(ses *session.Session, opts Options) *Client {
	restyClient := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("User-Agent", userAgent).
		SetRetryCount(0)
	if opts.Timeout > 0 {
		restyClient.SetTimeout(opts.Timeout)
	}
	if opts.Transport != nil {
		restyClient.SetTransport(opts.Transport)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		resty:       restyClient,
		session:     ses,
		limiter:     limiter,
		metrics:     opts.Metrics,
		autoRefresh: opts.AutoRefresh,
	}
}

// Session returns the session the client authenticates with
func (client *Client) Session() *session.Session {
	return client.session
}

// Request sends a request to the backend and decodes the JSON response body into result
// (which may be nil to discard the body).
//
// A 401 response ends the session and returns an error matching ErrUnauthenticated. Any other
// non-2xx response returns an *Error carrying the backend's message.
func (client *Client) Request(ctx context.Context, path string, opts *RequestOptions, result any) error {
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	route := opts.Route
	if route == "" {
		route = path
	}

	if client.autoRefresh && !strings.HasPrefix(path, "/auth/") && client.session.Expired() && client.session.RefreshToken() != "" {
		if _, err := client.Refresh(ctx); err != nil {
			return err
		}
	}

	if err := client.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	requestID := uuid.NewString()
	req := client.resty.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader(headerRequestID, requestID)
	for key, value := range opts.Headers {
		req.SetHeader(key, value)
	}
	if token := client.session.AccessToken(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	if opts.Query != nil {
		req.SetQueryParamsFromValues(opts.Query)
	}
	if opts.Body != nil {
		body, err := json.Marshal(opts.Body)
		if err != nil {
			return fmt.Errorf("could not encode request body: %w", err)
		}
		req.SetBody(body)
	}

	started := time.Now()
	resp, err := req.Execute(method, path)
	took := time.Since(started)
	if err != nil {
		client.metrics.ObserveRequest(method, route, "error", took.Seconds())
		log.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("backend request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	status := resp.StatusCode()
	client.metrics.ObserveRequest(method, route, strconv.Itoa(status), took.Seconds())
	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("took", took).
		Str("request_id", requestID).
		Msg("backend request")

	body := resp.Body()
	if status == http.StatusUnauthorized {
		client.metrics.ObserveUnauthenticated()
		if err := client.session.End(ctx); err != nil {
			log.Warn().Err(err).Msg("could not remove the expired session token")
		}
		message := extractMessage(body)
		if message == "" {
			message = messageAuthRequired
		}
		return &Error{Status: status, Message: message}
	}
	if status < 200 || status > 299 {
		message := extractMessage(body)
		if message == "" {
			message = messageGenericFailure
		}
		return &Error{Status: status, Message: message}
	}

	if result == nil || len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("could not decode response of %s %s: %w", method, path, err)
	}
	return nil
}

func escape(id fmt.Stringer) string {
	return url.PathEscape(id.String())
}
