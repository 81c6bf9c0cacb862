// Package garminconnect synchronises activities with the Garmin Connect web service.
package garminconnect

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
	_ "time/tzdata" // activity zones are resolved by IANA name inside minimal containers

	shared "github.com/fitglue/garminconnect/pkg"
	"github.com/fitglue/garminconnect/pkg/domain/activity"
	httputil "github.com/fitglue/garminconnect/pkg/infrastructure/http"
)

const (
	DefaultBaseURL = "https://connect.garmin.com"
	DefaultTimeout = 30 * time.Second

	signinPath        = "/signin"
	usernamePath      = "/user/username"
	activityTypesPath = "/proxy/activity-service-1.2/json/activity_types"
	searchPath        = "/proxy/activity-search-service-1.0/json/activities"
	downloadPath      = "/proxy/download-service/files/activity/"
	uploadPath        = "/proxy/upload-service-1.1/json/upload/.fit"
	activityPropPath  = "/proxy/activity-service-1.2/json/"

	// maxResponseSize bounds every body read from the remote.
	maxResponseSize = 64 << 20
)

// DetailParser decodes a downloaded activity file into act.
type DetailParser interface {
	ParseDetail(data []byte, act *activity.Activity) error
}

// UploadDumper encodes act into the file format accepted by the upload endpoint.
type UploadDumper interface {
	DumpUpload(act *activity.Activity) ([]byte, error)
}

// Client talks to Garmin Connect on behalf of any number of accounts.
type Client struct {
	baseURL     string
	http        *http.Client
	logger      *slog.Logger
	cache       Cache
	credentials shared.CredentialStore
	parser      DetailParser
	dumper      UploadDumper
	taxonomy    atomic.Pointer[Taxonomy]
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host, such as a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default client and its timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger used for requests and sessions.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithCache shares a session cache between clients.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithCredentialStore sets the store that decrypts account credentials.
func WithCredentialStore(s shared.CredentialStore) Option {
	return func(c *Client) { c.credentials = s }
}

// WithDetailParser sets the codec FetchDetail hands downloaded files to.
func WithDetailParser(p DetailParser) Option {
	return func(c *Client) { c.parser = p }
}

// WithUploadDumper sets the codec Upload serializes activities with.
func WithUploadDumper(d UploadDumper) Option {
	return func(c *Client) { c.dumper = d }
}

// WithTaxonomy installs a preloaded taxonomy so no hierarchy fetch is needed.
func WithTaxonomy(t *Taxonomy) Option {
	return func(c *Client) { c.taxonomy.Store(t) }
}

// NewClient creates a client. Without WithCache every client gets its own SessionCache.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = NewSessionCache(DefaultSessionLifetime)
	}
	return c
}

// Taxonomy returns the currently installed taxonomy, or nil before the first refresh.
func (c *Client) Taxonomy() *Taxonomy {
	return c.taxonomy.Load()
}

// RefreshTaxonomy fetches the remote activity hierarchy and swaps it in.
// Callers already holding the previous taxonomy keep using it unchanged.
func (c *Client) RefreshTaxonomy(ctx context.Context) error {
	body, err := c.get(ctx, nil, activityTypesPath, nil)
	if err != nil {
		return fmt.Errorf("fetch activity hierarchy: %w", err)
	}
	parents, err := ParseHierarchy(body)
	if err != nil {
		return err
	}
	c.taxonomy.Store(NewTaxonomy(parents))
	c.logger.Debug("activity hierarchy loaded", "entries", len(parents))
	return nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do sends req with the session cookies attached and returns the body of a
// successful response. Non-2xx answers become *httputil.HTTPError.
func (c *Client) do(req *http.Request, session *Session) ([]byte, error) {
	if session != nil {
		session.apply(req)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.ParseErrorResponse(resp); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, session *Session, path string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.do(req, session)
}

func (c *Client) getRecord(ctx context.Context, session *Session, path string, query url.Values) (Record, error) {
	body, err := c.get(ctx, session, path, query)
	if err != nil {
		return nil, err
	}
	rec, err := decodeRecord(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return rec, nil
}

func (c *Client) postForm(ctx context.Context, session *Session, path string, form url.Values) (Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	body, err := c.do(req, session)
	if err != nil {
		return nil, err
	}
	rec, err := decodeRecord(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return rec, nil
}
