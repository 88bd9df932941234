// Package apiclient talks to the savings backend on behalf of a logged-in admin.
// Every call goes through one request primitive that attaches the bearer token and
// classifies the outcome; GET reads may be served from the shared TTL cache.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"savings-admin/console/internal/audit"
	"savings-admin/console/internal/cache"
	"savings-admin/console/internal/session"
	"savings-admin/console/internal/telemetry/domain"
)

const (
	defaultTimeout = 15 * time.Second
	scopeName      = "savings-admin/console/internal/apiclient"
)

// RequestOptions describes one backend call. Method defaults to GET. Body is sent as-is
// (callers marshal JSON) and Header is merged over the defaults.
type RequestOptions struct {
	Method string
	Body   []byte
	Header http.Header
}

func (o RequestOptions) method() string {
	if o.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(o.Method)
}

// Client is the session-and-cache context for backend calls. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      *session.Store
	cache      *cache.Cache
	audit      audit.AuditLogger
	tracer     trace.Tracer

	hits          metric.Int64Counter
	misses        metric.Int64Counter
	joined        metric.Int64Counter
	invalidations metric.Int64Counter
	expirations   metric.Int64Counter

	subMu  sync.Mutex
	subSeq int
	subs   map[int]func(context.Context)
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	timeout    time.Duration
	jar        http.CookieJar
	tp         trace.TracerProvider
	mp         metric.MeterProvider
	audit      audit.AuditLogger
}

// WithHTTPClient replaces the default client (15s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithTimeout sets the timeout of the default HTTP client. Ignored with WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithCookieJar sets the jar of the default HTTP client, so cookies mirrored by the session
// store travel with backend requests. Ignored with WithHTTPClient.
func WithCookieJar(jar http.CookieJar) Option {
	return func(o *clientOptions) { o.jar = jar }
}

// WithTracerProvider sets the provider for request spans. Default is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *clientOptions) { o.tp = tp }
}

// WithMeterProvider sets the provider for cache and session counters. Default is the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *clientOptions) { o.mp = mp }
}

// WithAuditLogger records login, logout, session expiry and device verification.
func WithAuditLogger(l audit.AuditLogger) Option {
	return func(o *clientOptions) { o.audit = l }
}

// New returns a Client for baseURL (including the version prefix, e.g. https://host/api/v1)
// that reads credentials from store and caches GET responses in c.
func New(baseURL string, store *session.Store, c *cache.Cache, opts ...Option) *Client {
	o := clientOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		timeout := o.timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		o.httpClient = &http.Client{Timeout: timeout, Jar: o.jar}
	}
	if o.tp == nil {
		o.tp = otel.GetTracerProvider()
	}
	if o.mp == nil {
		o.mp = otel.GetMeterProvider()
	}
	if c == nil {
		c = cache.New()
	}

	cl := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: o.httpClient,
		store:      store,
		cache:      c,
		audit:      o.audit,
		tracer:     o.tp.Tracer(scopeName),
		subs:       make(map[int]func(context.Context)),
	}
	meter := o.mp.Meter(scopeName)
	cl.hits = counter(meter, "apiclient.cache.hits", "GET responses served from the cache")
	cl.misses = counter(meter, "apiclient.cache.misses", "GET responses fetched from the backend")
	cl.joined = counter(meter, "apiclient.cache.joined", "GET responses shared from another caller's in-flight fetch")
	cl.invalidations = counter(meter, "apiclient.cache.invalidations", "Cache entries removed by invalidation")
	cl.expirations = counter(meter, "apiclient.session.expired", "Requests rejected with 401")
	return cl
}

func counter(m metric.Meter, name, desc string) metric.Int64Counter {
	c, err := m.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		log.Printf("apiclient: counter %s: %v", name, err)
		return noop.Int64Counter{}
	}
	return c
}

// Session returns the store the client reads credentials from.
func (c *Client) Session() *session.Store {
	return c.store
}

// OnSessionExpired registers fn to run after a 401 has cleared the session.
// fn runs synchronously on the goroutine that received the 401. The returned func unregisters it.
func (c *Client) OnSessionExpired(fn func(context.Context)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	c.subMu.Lock()
	c.subSeq++
	id := c.subSeq
	c.subs[id] = fn
	c.subMu.Unlock()
	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// Do performs one authenticated call to endpoint (path plus query, relative to the base URL)
// and returns the raw JSON body of a 2xx response.
//
// With no stored token it returns ErrUnauthenticated without sending anything. A 401 clears
// the token and the whole cache, notifies OnSessionExpired subscribers and returns
// ErrSessionExpired. Other non-2xx statuses return *RequestError.
func (c *Client) Do(ctx context.Context, endpoint string, opts RequestOptions) ([]byte, error) {
	token, ok := c.token()
	if !ok {
		return nil, ErrUnauthenticated
	}
	method := opts.method()

	ctx, span := c.tracer.Start(ctx, "apiclient.request", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", pathOf(endpoint)),
	)

	status, body, err := c.send(ctx, endpoint, method, token, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", status))

	switch {
	case status == http.StatusUnauthorized:
		c.expire(ctx, endpoint)
		span.SetStatus(codes.Error, ErrSessionExpired.Error())
		return nil, ErrSessionExpired
	case status < 200 || status >= 300:
		rerr := &RequestError{Status: status, Message: messageOr(body, fallbackRequestMessage)}
		span.SetStatus(codes.Error, rerr.Message)
		return nil, rerr
	}
	return jsonBody(endpoint, body)
}

// DoCached is Do for reads: a GET with ttl > 0 is answered from the cache while the entry is
// fresh and stored for ttl after a fetch. Any other method, or ttl <= 0, goes straight to Do.
// Identical concurrent misses share one request, which is not cancelled when the caller that
// started it gives up; it is bounded by the HTTP client timeout.
func (c *Client) DoCached(ctx context.Context, endpoint string, opts RequestOptions, ttl time.Duration) ([]byte, error) {
	if opts.method() != http.MethodGet || ttl <= 0 {
		return c.Do(ctx, endpoint, opts)
	}
	key := cache.NewKey(opts.method(), endpoint, opts.Body)
	data, src, err := c.cache.Do(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		return c.Do(ctx, endpoint, opts)
	})
	if err != nil {
		return nil, err
	}
	attrs := metric.WithAttributes(attribute.String("url.path", pathOf(endpoint)))
	switch src {
	case cache.Hit:
		c.hits.Add(ctx, 1, attrs)
	case cache.Joined:
		c.joined.Add(ctx, 1, attrs)
	default:
		c.misses.Add(ctx, 1, attrs)
	}
	return data, nil
}

// InvalidateCacheByPrefix removes cached entries matched by prefix (see cache.MatchMode)
// and returns how many were removed.
func (c *Client) InvalidateCacheByPrefix(prefix string) int {
	n := c.cache.InvalidatePrefix(prefix)
	if n > 0 {
		c.invalidations.Add(context.Background(), int64(n))
	}
	return n
}

// ClearAllCache drops every cached response.
func (c *Client) ClearAllCache() {
	c.cache.Clear()
	c.logEvent(context.Background(), c.adminID(), domain.EventCacheCleared, "", nil)
}

func (c *Client) token() (string, bool) {
	if c.store == nil {
		return "", false
	}
	return c.store.Token()
}

func (c *Client) adminID() string {
	if c.store == nil {
		return ""
	}
	if a := c.store.Admin(); a != nil {
		return a.ID
	}
	return ""
}

// send issues the HTTP request. token empty means no Authorization header.
func (c *Client) send(ctx context.Context, endpoint, method, token string, opts RequestOptions) (int, []byte, error) {
	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, vs := range opts.Header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("apiclient: read %s: %w", endpoint, err)
	}
	return resp.StatusCode, raw, nil
}

// expire tears the session down after a 401 and tells subscribers.
func (c *Client) expire(ctx context.Context, endpoint string) {
	adminID := c.adminID()
	if c.store != nil {
		if err := c.store.ClearToken(); err != nil {
			log.Printf("apiclient: clear token after 401: %v", err)
		}
	}
	c.cache.Clear()
	c.expirations.Add(ctx, 1)
	if c.audit != nil {
		c.audit.LogEvent(ctx, adminID, domain.EventSessionExpired, pathOf(endpoint), nil)
	}

	c.subMu.Lock()
	subs := make([]func(context.Context), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()
	for _, fn := range subs {
		fn(ctx)
	}
}

func (c *Client) logEvent(ctx context.Context, adminID, action, resource string, metadata map[string]string) {
	if c.audit != nil {
		c.audit.LogEvent(ctx, adminID, action, resource, metadata)
	}
}

// messageOr returns the message field of a JSON error body, or fallback.
func messageOr(body []byte, fallback string) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err != nil || e.Message == "" {
		return fallback
	}
	return e.Message
}

// jsonBody checks that a 2xx body is JSON. An empty body reads as null.
func jsonBody(endpoint string, body []byte) ([]byte, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return []byte("null"), nil
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("apiclient: %s: response is not JSON", pathOf(endpoint))
	}
	return body, nil
}

func decode[T any](endpoint string, data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("apiclient: decode %s: %w", pathOf(endpoint), err)
	}
	return &v, nil
}

func pathOf(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
