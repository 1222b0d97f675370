// Package httpbackend implements backend.IBackend as a client of the HTTP
// file proxy served by rpc/fsproxy.
//
// Requests are spread round-robin over all configured endpoints. A request
// that fails at the transport level or with a 5xx status is retried on the
// next endpoint, up to the configured retry count. 4xx answers are final.
package httpbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("backend")

type httpBackend struct {
	serverURLs []*url.URL
	client     *http.Client
	counter    uint32
	retryCount int
}

// NewHTTPBackend parses the endpoints of config and returns a client backend.
func NewHTTPBackend(config common.BackendConfig) (backend.IBackend, error) {
	if len(config.Endpoints) == 0 {
		return nil, fmt.Errorf("http backend needs at least one endpoint")
	}
	parsedURLs := make([]*url.URL, len(config.Endpoints))
	for i, server := range config.Endpoints {
		parsedURL, err := url.Parse(strings.TrimRight(strings.TrimSpace(server), "/"))
		if err != nil {
			return nil, fmt.Errorf("invalid endpoint %q: %w", server, err)
		}
		parsedURLs[i] = parsedURL
	}

	timeout := time.Duration(config.TimeoutSecond) * time.Second
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	retryCount := config.RetryCount
	if retryCount < 1 {
		retryCount = 1
	}
	return &httpBackend{
		serverURLs: parsedURLs,
		client:     client,
		retryCount: retryCount,
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend.IBackend)
// --------------------------------------------------------------------------

func (b *httpBackend) Read(ctx context.Context, path string) ([]byte, bool, error) {
	status, body, err := b.send(ctx, http.MethodGet, "read", path, nil)
	if err != nil {
		return nil, false, err
	}
	switch status {
	case http.StatusOK:
		return body, true, nil
	case http.StatusNotFound:
		return nil, false, nil
	default:
		return nil, false, statusError("read", path, status, body)
	}
}

func (b *httpBackend) Write(ctx context.Context, path string, value []byte) error {
	return b.expectSuccess(ctx, http.MethodPost, "write", path, value)
}

func (b *httpBackend) Delete(ctx context.Context, path string) error {
	return b.expectSuccess(ctx, http.MethodDelete, "delete", path, nil)
}

func (b *httpBackend) Mkdir(ctx context.Context, path string) error {
	return b.expectSuccess(ctx, http.MethodPost, "mkdir", path, nil)
}

func (b *httpBackend) List(ctx context.Context, path string) ([]string, error) {
	status, body, err := b.send(ctx, http.MethodGet, "list", path, nil)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		var names []string
		if err := json.Unmarshal(body, &names); err != nil {
			return nil, fmt.Errorf("list %s: decode response: %w", path, err)
		}
		if names == nil {
			names = []string{}
		}
		return names, nil
	case http.StatusNotFound:
		return []string{}, nil
	default:
		return nil, statusError("list", path, status, body)
	}
}

func (b *httpBackend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (b *httpBackend) expectSuccess(ctx context.Context, method, op, path string, body []byte) error {
	status, respBody, err := b.send(ctx, method, op, path, body)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return statusError(op, path, status, respBody)
	}
	return nil
}

// send performs the request with retries and returns the final status and body.
func (b *httpBackend) send(ctx context.Context, method, op, path string, body []byte) (int, []byte, error) {
	p, err := backend.CleanPath(path)
	if err != nil {
		return 0, nil, err
	}

	var lastErr error
	for attempt := 0; attempt < b.retryCount; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		status, respBody, err := b.sendOnce(ctx, method, op, p, body)
		if err == nil && status < 500 {
			return status, respBody, nil
		}
		if err == nil {
			err = statusError(op, p, status, respBody)
		}
		lastErr = err
		Logger.Debugf("%s %s attempt %d/%d failed: %v", op, p, attempt+1, b.retryCount, err)
	}
	return 0, nil, lastErr
}

func (b *httpBackend) sendOnce(ctx context.Context, method, op, p string, body []byte) (int, []byte, error) {
	// Select the next server via round-robin
	idx := atomic.AddUint32(&b.counter, 1) % uint32(len(b.serverURLs))
	requestURL := fmt.Sprintf("%s/api/fs/%s?path=%s", b.serverURLs[idx].String(), op, url.QueryEscape(p))

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			Logger.Errorf("Failed to close response body: %v", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func statusError(op, path string, status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return fmt.Errorf("%s %s: http error: %d %s", op, path, status, payload.Error)
	}
	return fmt.Errorf("%s %s: http error: %d %s", op, path, status, http.StatusText(status))
}
