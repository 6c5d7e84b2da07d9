package httpclient

import "net/http"

// Response is a fully read provider response.
type Response struct {
	StatusCode int
	Header     http.Header
	body       []byte
}

// Body returns the raw body.
func (r *Response) Body() []byte {
	return r.body
}

// String returns the body as text.
func (r *Response) String() string {
	return string(r.body)
}

// IsError reports a 4xx or 5xx status.
func (r *Response) IsError() bool {
	return r.StatusCode >= http.StatusBadRequest
}
