package fsproxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/lib/backend/membackend"
	"github.com/XiaoChennnng/SkyDream-ATC-Apply-System/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, config common.ServerConfig) *httptest.Server {
	srv := httptest.NewServer(NewServer(config, membackend.NewMemBackend()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body string) (*http.Response, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, common.ServerConfig{})

	resp, body := do(t, http.MethodGet, srv.URL+"/api/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"ok"`)
}

func TestReadWriteListDelete(t *testing.T) {
	srv := newTestServer(t, common.ServerConfig{})

	resp, _ := do(t, http.MethodGet, srv.URL+"/api/fs/read?path=root/index", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/fs/write?path=root/owners/A/profile", `{"id":"1"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/fs/read?path=root/owners/A/profile", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"id":"1"}`, body)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/fs/list?path=root/owners", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var names []string
	require.NoError(t, json.Unmarshal([]byte(body), &names))
	assert.Equal(t, []string{"A"}, names)

	resp, _ = do(t, http.MethodDelete, srv.URL+"/api/fs/delete?path=root/owners/A", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/fs/list?path=root/owners", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, body)
}

func TestRejectsTraversal(t *testing.T) {
	srv := newTestServer(t, common.ServerConfig{})

	for _, p := range []string{"", "..%2Fetc%2Fpasswd", "root%2F..%2F..%2Fx"} {
		resp, _ := do(t, http.MethodGet, srv.URL+"/api/fs/read?path="+p, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, p)
	}
}

func TestBodyLimit(t *testing.T) {
	srv := newTestServer(t, common.ServerConfig{MaxBodyBytes: 4})

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/fs/write?path=root/x", "too large")
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestCORSAndMetrics(t *testing.T) {
	srv := newTestServer(t, common.ServerConfig{LogLevel: "debug"})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	_, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Contains(t, body, "fsproxy_requests_total")
}
