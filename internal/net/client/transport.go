package client

import (
	"bytes"
	"errors"
	"io"
	"net/http"
)

// Transport adapts the pool to http.RoundTripper for SDKs that build their
// own requests. Non-2xx answers come back as responses so the SDK can decode
// its own error bodies; the breaker and budget have already seen them.
func (p *Pool) Transport() http.RoundTripper {
	return poolTransport{pool: p}
}

type poolTransport struct {
	pool *Pool
}

func (t poolTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		body, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		clone.Body = io.NopCloser(bytes.NewReader(body))
		clone.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}

	resp, err := t.pool.Do(req.Context(), clone)
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return newResponse(req, statusErr.StatusCode, nil, statusErr.Body), nil
	}
	if err != nil {
		return nil, err
	}
	return newResponse(req, resp.StatusCode, resp.Header, resp.Body), nil
}

func newResponse(req *http.Request, status int, header http.Header, body []byte) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		Status:        http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
