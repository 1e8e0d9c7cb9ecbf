package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/fivetwenty-io/graphtutorial/internal/constants"
	"github.com/fivetwenty-io/graphtutorial/pkg/graph"
	"github.com/hashicorp/go-retryablehttp"
)

// DefaultUserAgent identifies the client to Graph.
const DefaultUserAgent = "graphtutorial-go/1.0"

// TokenManager supplies the bearer token attached to each request.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
}

// TokenInvalidator is implemented by token managers that can drop a token
// Graph rejected with 401.
type TokenInvalidator interface {
	Invalidate()
}

// ErrForeignHost is returned for absolute URLs, such as continuation links,
// that do not point at the Graph endpoint. The bearer token is never sent
// to them.
var ErrForeignHost = fmt.Errorf("%w: absolute URL does not match the Graph endpoint", graph.ErrInvalidResponse)

// Client is a retrying HTTP client for Graph.
type Client struct {
	baseURL      string
	httpClient   *retryablehttp.Client
	tokenManager TokenManager
	userAgent    string
	logger       graph.Logger
	debug        bool
	interceptors *graph.InterceptorChain
}

// Request represents an HTTP request.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
}

// Response represents an HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger graph.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithRetryConfig sets the retry policy. A negative retryMax disables retries.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		if retryMax < 0 {
			retryMax = 0
		}

		c.httpClient.RetryMax = retryMax

		if waitMin > 0 {
			c.httpClient.RetryWaitMin = waitMin
		}

		if waitMax > 0 {
			c.httpClient.RetryWaitMax = waitMax
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient.HTTPClient = httpClient
		}
	}
}

// WithRequestInterceptor appends a request interceptor.
func WithRequestInterceptor(interceptor graph.RequestInterceptor) Option {
	return func(c *Client) {
		c.interceptors.AddRequestInterceptor(interceptor)
	}
}

// WithResponseInterceptor appends a response interceptor.
func WithResponseInterceptor(interceptor graph.ResponseInterceptor) Option {
	return func(c *Client) {
		c.interceptors.AddResponseInterceptor(interceptor)
	}
}

// NewClient creates a new HTTP client. tokenManager may be nil for
// unauthenticated requests.
func NewClient(baseURL string, tokenManager TokenManager, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient = &http.Client{Timeout: constants.DefaultHTTPTimeout}
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil

	interceptors := graph.NewInterceptorChain()
	interceptors.AddRequestInterceptor(graph.RequestIDInterceptor())

	client := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   retryClient,
		tokenManager: tokenManager,
		userAgent:    DefaultUserAgent,
		interceptors: interceptors,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.logger != nil {
		client.httpClient.Logger = &leveledLogger{logger: client.logger, debug: client.debug}
	}

	return client
}

// Do performs an HTTP request. On a non-2xx status both the response and an
// error are returned: graph.ErrUnauthenticated for 401, *graph.RemoteError
// otherwise.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	intercepted := &graph.Request{
		Method:   req.Method,
		Path:     req.Path,
		Headers:  make(http.Header),
		Metadata: make(map[string]interface{}),
	}
	intercepted.Headers.Set("Accept", "application/json")
	intercepted.Headers.Set("User-Agent", c.userAgent)

	for key, value := range req.Headers {
		intercepted.Headers.Set(key, value)
	}

	fullURL, err := c.buildURL(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	if c.tokenManager != nil {
		token, err := c.tokenManager.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to get token: %w", graph.ErrUnauthenticated, err)
		}

		intercepted.Headers.Set("Authorization", "Bearer "+token)
	}

	err = c.interceptors.ExecuteRequestInterceptors(ctx, intercepted)
	if err != nil {
		return nil, cancelledOr(ctx, err)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header = intercepted.Headers

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method":     req.Method,
			"url":        fullURL,
			"request_id": intercepted.Headers.Get(graph.ClientRequestIDHeader),
		})
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, cancelledOr(ctx, fmt.Errorf("executing request: %w", err))
	}

	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, cancelledOr(ctx, fmt.Errorf("reading response body: %w", err))
	}

	response := &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Headers:    httpResp.Header,
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status":     httpResp.StatusCode,
			"body_bytes": len(body),
		})
	}

	err = c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, &graph.Response{
		StatusCode: response.StatusCode,
		Headers:    response.Headers,
		Body:       response.Body,
	})
	if err != nil {
		return response, err
	}

	switch {
	case response.StatusCode == http.StatusUnauthorized:
		if invalidator, ok := c.tokenManager.(TokenInvalidator); ok {
			invalidator.Invalidate()
		}

		return response, fmt.Errorf("%w: %s", graph.ErrUnauthenticated, graph.NewRemoteError(response.StatusCode, body).Error())
	case response.StatusCode < 200 || response.StatusCode >= 300:
		return response, graph.NewRemoteError(response.StatusCode, body)
	}

	return response, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
	})
}

// buildURL joins path onto the base URL. Absolute URLs, such as Graph
// continuation links, are used as is when they share the base URL's scheme
// and host.
func (c *Client) buildURL(path string, query url.Values) (string, error) {
	fullURL := c.baseURL + "/" + strings.TrimPrefix(path, "/")

	if strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		err := c.checkSameHost(path)
		if err != nil {
			return "", err
		}

		fullURL = path
	}

	encoded := encodeQuery(query)
	if encoded == "" {
		return fullURL, nil
	}

	if strings.Contains(fullURL, "?") {
		return fullURL + "&" + encoded, nil
	}

	return fullURL + "?" + encoded, nil
}

func (c *Client) checkSameHost(rawURL string) error {
	target, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrForeignHost, err)
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parsing base URL: %w", err)
	}

	if !strings.EqualFold(target.Scheme, base.Scheme) || !strings.EqualFold(target.Host, base.Host) {
		return fmt.Errorf("%w: %s://%s", ErrForeignHost, target.Scheme, target.Host)
	}

	return nil
}

var queryUnescaper = strings.NewReplacer("+", "%20", "%24", "$", "%2C", ",")

// encodeQuery encodes values sorted by key like url.Values.Encode but keeps
// OData's $ prefix and comma lists literal and encodes spaces as %20.
func encodeQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}

	var builder strings.Builder

	for _, key := range slices.Sorted(maps.Keys(values)) {
		escapedKey := queryUnescaper.Replace(url.QueryEscape(key))

		for _, value := range values[key] {
			if builder.Len() > 0 {
				builder.WriteByte('&')
			}

			builder.WriteString(escapedKey)
			builder.WriteByte('=')
			builder.WriteString(queryUnescaper.Replace(url.QueryEscape(value)))
		}
	}

	return builder.String()
}

func cancelledOr(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", graph.ErrCancelled, err)
	}

	return err
}

// leveledLogger adapts graph.Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger graph.Logger
	debug  bool
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, keyValueFields(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, keyValueFields(keysAndValues))
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	if l.debug {
		l.logger.Debug(msg, keyValueFields(keysAndValues))
	}
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keyValueFields(keysAndValues))
}

func keyValueFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return fields
}
