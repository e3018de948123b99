package fixtures

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// Request is an HTTP request to the backend, independent of whichever client sends it.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

type Response struct {
	Status int
	Body   []byte
}

func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Requester sends a Request. An error means no response was received at all; any HTTP
// status, including errors, is returned as a Response.
type Requester interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// HTTPRequester sends requests with an http.Client.
type HTTPRequester struct {
	Client *http.Client
}

const defaultRequestTimeout = 10 * time.Second

func NewHTTPRequester() *HTTPRequester {
	return &HTTPRequester{Client: &http.Client{Timeout: defaultRequestTimeout}}
}

func (h *HTTPRequester) Do(ctx context.Context, req Request) (Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hr, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return Response{}, err
	}
	for k, v := range req.Headers {
		hr.Header.Set(k, v)
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(hr)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}
	return Response{Status: resp.StatusCode, Body: data}, nil
}
