package catalog

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
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds every request to the catalog service.
const DefaultTimeout = 15 * time.Second

// Client calls the remote catalog service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	// details coalesces concurrent Detail calls for the same file; the
	// detail, wafer and export paths all ask for it at once.
	details singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the service rooted at baseURL,
// e.g. http://localhost:5000/api.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the response shape shared by every catalog endpoint.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Total   int    `json:"total"`
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// FilesResponse is the catalog listing for one tool.
type FilesResponse struct {
	Tool    string
	Total   int
	Records []MeasurementRecord
}

// Files fetches the full catalog for toolID. The id is sent unchanged;
// the service decides whether it is valid.
func (c *Client) Files(ctx context.Context, toolID string) (*FilesResponse, error) {
	var env envelope[[]MeasurementRecord]
	if err := c.get(ctx, "/afm-files", url.Values{"tool": {toolID}}, &env); err != nil {
		return nil, err
	}
	return &FilesResponse{Tool: env.Tool, Total: env.Total, Records: env.Data}, nil
}

// Detail fetches information, summary statistics, raw data and the
// available measurement points of one file.
func (c *Client) Detail(ctx context.Context, filename, toolID string) (*Detail, error) {
	key := toolID + "\x00" + filename
	v, err, shared := c.details.Do(key, func() (any, error) {
		var env envelope[Detail]
		path := "/afm-files/detail/" + url.PathEscape(filename)
		if err := c.get(ctx, path, url.Values{"tool": {toolID}}, &env); err != nil {
			return nil, err
		}
		return &env.Data, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("coalesced detail request", "filename", filename, "tool", toolID)
	}
	return v.(*Detail), nil
}

// Profile fetches the x/y/z profile of one measurement point.
func (c *Client) Profile(ctx context.Context, filename, point, toolID string, site *SiteInfo) ([]ProfilePoint, error) {
	var env envelope[[]ProfilePoint]
	if err := c.get(ctx, pointPath("profile", filename, point), pointQuery(toolID, site), &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// ProfileImage looks up the profile image of one measurement point.
func (c *Client) ProfileImage(ctx context.Context, filename, point, toolID string, site *SiteInfo) (*ImageInfo, error) {
	var env envelope[ImageInfo]
	if err := c.get(ctx, pointPath("image", filename, point), pointQuery(toolID, site), &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// ProfileImageURL returns the URL that serves the image bytes directly.
func (c *Client) ProfileImageURL(filename, point, toolID string, site *SiteInfo) string {
	return c.baseURL + pointPath("image-file", filename, point) + "?" + pointQuery(toolID, site).Encode()
}

// Wafer derives the wafer heat map of one file from its detail.
func (c *Client) Wafer(ctx context.Context, filename, toolID string) ([]WaferPoint, error) {
	d, err := c.Detail(ctx, filename, toolID)
	if err != nil {
		return nil, err
	}
	return BuildWaferMap(d), nil
}

// pointPath builds /afm-files/<kind>/<file>/<point>. A trailing .csv on
// the filename is dropped; the service keys points by the bare name.
func pointPath(kind, filename, point string) string {
	filename = strings.Replace(filename, ".csv", "", 1)
	return "/afm-files/" + kind + "/" + url.PathEscape(filename) + "/" + url.PathEscape(point)
}

func pointQuery(toolID string, site *SiteInfo) url.Values {
	q := url.Values{"tool": {toolID}}
	site.apply(q)
	return q
}

// get performs a GET and decodes a success envelope into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrNetwork, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %w", ErrNetwork, path, err)
	}

	var status struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}

	if resp.StatusCode >= 300 || !status.Success {
		msg := status.Error
		if msg == "" {
			msg = status.Message
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	return nil
}

// IsUnavailable reports whether err means the service could not be
// reached or answered with a failure, as opposed to a caller mistake.
func IsUnavailable(err error) bool {
	var apiErr *APIError
	return errors.Is(err, ErrNetwork) || errors.As(err, &apiErr)
}
