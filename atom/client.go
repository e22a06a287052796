// Package atom contains an event.Reader implementation reading streams
// from a remote store exposing them as Atom JSON feeds over HTTP.
package atom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/get-eventually/go-eventstore-http/event"
	"github.com/get-eventually/go-eventstore-http/logger"
)

// LongPollHeader is the request header used to ask the remote store to hold
// a read request, for the specified number of seconds, until new events are available.
const LongPollHeader = "ES-LongPoll"

var _ event.Reader = new(Client)

// StatusError is returned when the remote store replies with an
// unexpected HTTP status code.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("atom: unexpected status code %d for %s %s", e.StatusCode, e.Method, e.URL)
}

// Option specifies configuration options for the Client.
type Option interface {
	apply(*Client)
}

type optionFunc func(*Client)

func (fn optionFunc) apply(c *Client) { fn(c) }

// WithHTTPClient sets the http.Client used to perform requests.
// By default, http.DefaultClient is used.
func WithHTTPClient(httpClient *http.Client) Option {
	return optionFunc(func(c *Client) { c.httpClient = httpClient })
}

// WithBasicAuth sets the credentials sent with every request.
func WithBasicAuth(username, password string) Option {
	return optionFunc(func(c *Client) {
		c.username = username
		c.password = password
	})
}

// WithLogger sets the logger used by the Client.
func WithLogger(l logger.Logger) Option {
	return optionFunc(func(c *Client) { c.logger = l })
}

// Client reads streams from the HTTP API of the remote store.
//
// Use NewClient to create a new instance.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	username   string
	password   string
	logger     logger.Logger
}

// NewClient returns a new Client for the remote store listening at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("atom.NewClient: invalid base url, %w", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("atom.NewClient: base url '%s' must be absolute", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt.apply(c)
	}

	return c, nil
}

func (c *Client) get(ctx context.Context, target, accept string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request, %w", err)
	}

	req.Header.Set("Accept", accept)

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request, %w", err)
	}

	logger.Debug(c.logger, "remote store request performed",
		logger.With("url", target),
		logger.With("status", resp.StatusCode),
	)

	return resp, nil
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func longPollSeconds(timeout time.Duration) string {
	return strconv.Itoa(int(math.Max(1, math.Ceil(timeout.Seconds()))))
}

// ReadForward implements the event.Reader interface.
func (c *Client) ReadForward(
	ctx context.Context,
	stream string,
	from int64,
	maxCount int,
	longPoll time.Duration,
) (event.Slice, error) {
	if from < 0 {
		from = 0
	}

	u := c.baseURL.JoinPath("streams", stream, strconv.FormatInt(from, 10), "forward", strconv.Itoa(maxCount))
	u.RawQuery = url.Values{"embed": []string{"body"}}.Encode()

	var headers map[string]string
	if longPoll > 0 {
		headers = map[string]string{LongPollHeader: longPollSeconds(longPoll)}
	}

	resp, err := c.get(ctx, u.String(), MediaTypeAtomJSON, headers)
	if err != nil {
		return event.Slice{}, fmt.Errorf("atom.Client.ReadForward: %w", err)
	}
	defer drainAndClose(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return event.Slice{Status: event.ReadNotFound}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return event.Slice{}, fmt.Errorf("atom.Client.ReadForward: %w",
			StatusError{Method: http.MethodGet, URL: u.String(), StatusCode: resp.StatusCode})
	}

	var page feed
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return event.Slice{}, fmt.Errorf("atom.Client.ReadForward: failed to decode feed, %w", err)
	}

	if len(page.Entries) == 0 && page.HeadOfStream {
		return event.Slice{Status: event.ReadEndOfStream}, nil
	}

	return event.Slice{Status: event.ReadSuccess, Entries: page.envelopes()}, nil
}

// ReadSingle implements the event.Reader interface.
func (c *Client) ReadSingle(ctx context.Context, stream string, number int64) (event.Single, error) {
	if number < 0 {
		return event.Single{Status: event.ReadNotFound}, nil
	}

	u := c.baseURL.JoinPath("streams", stream, strconv.FormatInt(number, 10))

	resp, err := c.get(ctx, u.String(), MediaTypeAtomJSON, nil)
	if err != nil {
		return event.Single{}, fmt.Errorf("atom.Client.ReadSingle: %w", err)
	}
	defer drainAndClose(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return event.Single{Status: event.ReadNotFound}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return event.Single{}, fmt.Errorf("atom.Client.ReadSingle: %w",
			StatusError{Method: http.MethodGet, URL: u.String(), StatusCode: resp.StatusCode})
	}

	var doc document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return event.Single{}, fmt.Errorf("atom.Client.ReadSingle: failed to decode event, %w", err)
	}

	return event.Single{Status: event.ReadSuccess, Envelope: doc.envelope()}, nil
}

// ReadBody implements the event.Reader interface.
//
// event.ErrNotFound is returned if the remote store does not know the event yet.
func (c *Client) ReadBody(ctx context.Context, typ event.Type, link string) (any, error) {
	target, err := c.baseURL.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("atom.Client.ReadBody: invalid link '%s', %w", link, err)
	}

	resp, err := c.get(ctx, target.String(), MediaTypeJSON, nil)
	if err != nil {
		return nil, fmt.Errorf("atom.Client.ReadBody: %w", err)
	}
	defer drainAndClose(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("atom.Client.ReadBody: no event at '%s', %w", link, event.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("atom.Client.ReadBody: %w",
			StatusError{Method: http.MethodGet, URL: target.String(), StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("atom.Client.ReadBody: failed to read body, %w", err)
	}

	content, err := typ.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("atom.Client.ReadBody: %w", err)
	}

	return content, nil
}
