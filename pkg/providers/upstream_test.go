package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel-gateway/pkg/common"
)

func TestGetJSONCarriesRequestID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-7", r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(`{"status":"OK"}`))
	}))
	defer server.Close()

	ctx := common.WithRequestID(context.Background(), "req-7")
	var out struct {
		Status string `json:"status"`
	}
	reply, err := NewCaller(nil, time.Second).GetJSON(ctx, "maps", server.URL, &out)
	require.NoError(t, err)
	assert.True(t, reply.OK())
	assert.Equal(t, "OK", out.Status)
}

func TestGetJSONLeavesErrorsToCaller(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	var out map[string]interface{}
	reply, err := NewCaller(nil, time.Second).GetJSON(context.Background(), "weather", server.URL, &out)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, reply.StatusCode)
	assert.Nil(t, out)
}

func TestGetJSONMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":`))
	}))
	defer server.Close()

	var out map[string]interface{}
	_, err := NewCaller(nil, time.Second).GetJSON(context.Background(), "maps", server.URL, &out)
	assert.Error(t, err)
}

func TestDoTransportFailure(t *testing.T) {
	_, err := NewCaller(nil, time.Second).Do(context.Background(), Request{
		Upstream: "llm",
		Method:   http.MethodPost,
		URL:      "http://127.0.0.1:1/chat",
		Body:     []byte(`{}`),
	})
	assert.ErrorContains(t, err, "llm request failed")
}
