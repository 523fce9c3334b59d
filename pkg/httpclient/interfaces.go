package httpclient

import (
	"io"
	"net/http"
)

// ClusterHandle supplies the API server base URL and a transport that already
// carries authentication, TLS and timeouts.
type ClusterHandle interface {
	MasterURL() string
	HTTPClient() *http.Client
}

// Response is the status-only result of a POST or DELETE. The body has been
// drained and closed by the time it is returned.
type Response struct {
	statusCode int
	status     string
	header     http.Header
}

func (r *Response) StatusCode() int     { return r.statusCode }
func (r *Response) Status() string      { return r.status }
func (r *Response) Header() http.Header { return r.header }

// IsSuccess reports whether the status code is 2xx.
func (r *Response) IsSuccess() bool { return r.statusCode > 199 && r.statusCode < 300 }

// StreamResponse is the result of a GET. Its body is still open and the caller
// must call Close when done with it.
type StreamResponse struct {
	statusCode int
	status     string
	header     http.Header
	body       io.ReadCloser
}

func (r *StreamResponse) StatusCode() int     { return r.statusCode }
func (r *StreamResponse) Status() string      { return r.status }
func (r *StreamResponse) Header() http.Header { return r.header }
func (r *StreamResponse) Body() io.ReadCloser { return r.body }

// IsSuccess reports whether the status code is 2xx.
func (r *StreamResponse) IsSuccess() bool { return r.statusCode > 199 && r.statusCode < 300 }

// Close releases the response body. It is safe to call more than once.
func (r *StreamResponse) Close() error {
	if r == nil || r.body == nil {
		return nil
	}
	body := r.body
	r.body = http.NoBody
	return body.Close()
}
