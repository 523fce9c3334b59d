package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// ErrTransport marks failures that happened before a response was received.
var ErrTransport = errors.New("transport failure")

// Client issues raw REST calls against a Kubernetes API server. It is
// immutable after New and safe for concurrent use when the underlying
// http.Client is.
type Client struct {
	client    *resty.Client
	masterURL string
	log       Logger
}

// New binds a Client to the handle's transport and master URL.
func New(handle ClusterHandle, log Logger) *Client {
	log = ensureLogger(log)

	hc := handle.HTTPClient()
	if hc == nil {
		hc = &http.Client{}
	}
	c := resty.NewWithClient(hc)
	c.SetLogger(restyLogger{log: log})

	return &Client{
		client:    c,
		masterURL: normalizeMasterURL(handle.MasterURL()),
		log:       log,
	}
}

func normalizeMasterURL(masterURL string) string {
	if strings.HasSuffix(masterURL, "/") {
		return masterURL
	}
	return masterURL + "/"
}

// MasterURL returns the normalized prefix, always ending in "/".
func (c *Client) MasterURL() string { return c.masterURL }

// BuildURL joins the master URL, endpoint and, unless blank, id. No escaping
// is applied.
func (c *Client) BuildURL(endpoint, id string) string {
	url := c.masterURL + endpoint
	if strings.TrimSpace(id) == "" {
		return url
	}
	return url + "/" + id
}

// Post sends json verbatim as an application/json body to masterURL+endpoint.
// The response body is closed before Post returns.
func (c *Client) Post(ctx context.Context, endpoint, json string) (*Response, error) {
	url := c.masterURL + endpoint
	c.log.DebugObj("posting", "url", url)

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(json).
		Post(url)
	if err != nil {
		return nil, transportError(http.MethodPost, url, err)
	}
	return c.statusOnly(resp), nil
}

// Get fetches endpoint, or endpoint/id when id is not blank.
//
// The returned StreamResponse holds the open response body; the caller owns it
// and must call Close.
func (c *Client) Get(ctx context.Context, endpoint, id string) (*StreamResponse, error) {
	url := c.BuildURL(endpoint, id)
	c.log.DebugObj("getting", "url", url)

	resp, err := c.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		if resp != nil && resp.RawBody() != nil {
			resp.RawBody().Close()
		}
		return nil, transportError(http.MethodGet, url, err)
	}
	c.log.DebugObj("response received", "status_code", resp.StatusCode())

	body := resp.RawBody()
	if body == nil {
		body = http.NoBody
	}
	return &StreamResponse{
		statusCode: resp.StatusCode(),
		status:     resp.Status(),
		header:     resp.Header(),
		body:       body,
	}, nil
}

// Delete removes endpoint, or endpoint/id when id is not blank. The response
// body is closed before Delete returns.
func (c *Client) Delete(ctx context.Context, endpoint, id string) (*Response, error) {
	url := c.BuildURL(endpoint, id)
	c.log.DebugObj("deleting", "url", url)

	resp, err := c.client.R().
		SetContext(ctx).
		Delete(url)
	if err != nil {
		return nil, transportError(http.MethodDelete, url, err)
	}
	return c.statusOnly(resp), nil
}

// statusOnly converts a fully read resty response; resty has already drained
// and closed the body.
func (c *Client) statusOnly(resp *resty.Response) *Response {
	c.log.DebugObj("response received", "status_code", resp.StatusCode())
	return &Response{
		statusCode: resp.StatusCode(),
		status:     resp.Status(),
		header:     resp.Header(),
	}
}

func transportError(method, url string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", method, url, ErrTransport, err)
}
