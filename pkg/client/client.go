package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ChunkSize is the buffer size used when streaming response bodies.
const ChunkSize = 1024 * 1024

type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d (%s)", e.StatusCode, e.URL)
}

type Client struct {
	userAgent  string
	httpClient *retryablehttp.Client
}

// New returns a client that attempts every request exactly once and sends userAgent with it.
func New(userAgent string, timeout time.Duration) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.Logger = nil
	httpClient.RetryMax = 0
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	httpClient.HTTPClient.Timeout = timeout
	return &Client{
		userAgent:  userAgent,
		httpClient: httpClient,
	}
}

// StandardClient exposes the underlying transport for SDKs that expect a *http.Client.
func (c *Client) StandardClient() *http.Client {
	return c.httpClient.StandardClient()
}

func (c *Client) UserAgent() string {
	return c.userAgent
}

func setAccept(accept string) func(r *retryablehttp.Request) {
	return func(r *retryablehttp.Request) {
		r.Header.Set("Accept", accept)
	}
}

func (c *Client) sendRequest(ctx context.Context, method, url string, modifyRequestFns ...func(r *retryablehttp.Request)) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	for _, f := range modifyRequestFns {
		f(req)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: url}
	}
	return resp, nil
}

// GetJSON fetches url and decodes the response body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	resp, err := c.sendRequest(ctx, http.MethodGet, url, setAccept("application/json"))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

// Download streams the body of url into w in ChunkSize pieces and returns the number of bytes written.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	resp, err := c.sendRequest(ctx, http.MethodGet, url, setAccept("application/octet-stream"))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	buf := make([]byte, ChunkSize)
	var written int64
	for {
		n, rErr := resp.Body.Read(buf)
		if n > 0 {
			m, wErr := w.Write(buf[:n])
			written += int64(m)
			if wErr != nil {
				return written, fmt.Errorf("failed to write chunk: %w", wErr)
			}
		}
		if rErr == io.EOF {
			break
		}
		if rErr != nil {
			return written, fmt.Errorf("failed to read response body: %w", rErr)
		}
	}
	if resp.ContentLength >= 0 && written != resp.ContentLength {
		return written, fmt.Errorf("unexpected content length: %d (should be %d)", written, resp.ContentLength)
	}
	return written, nil
}
