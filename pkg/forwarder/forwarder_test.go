package forwarder

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel-gateway/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newForwarder(targets map[string]string, timeout time.Duration) *Forwarder {
	return New(targets, nil, timeout, quietLogger())
}

var signinSpec = Spec{
	Name:    "family_signin",
	Target:  "backend_v2",
	Method:  http.MethodPost,
	Path:    "/api/family/signin",
	Headers: []string{"Content-Type", "Authorization"},
	Body:    BodyPassthrough,
	Cookies: true,
}

func gatewayError(t *testing.T, err error) *types.GatewayError {
	t.Helper()
	var gwErr *types.GatewayError
	require.True(t, errors.As(err, &gwErr), "expected a gateway error, got %v", err)
	return gwErr
}

func TestForwardTargetNotConfigured(t *testing.T) {
	f := newForwarder(map[string]string{"backend_v2": "  "}, time.Second)
	assert.False(t, f.Configured("backend_v2"))

	_, err := f.Forward(context.Background(), signinSpec, &Inbound{})
	gwErr := gatewayError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, gwErr.StatusCode)
	assert.Equal(t, CodeNotConfigured, gwErr.Code)
	assert.Equal(t, types.ConfigurationMissing, gwErr.Kind)
}

func TestForwardRelaysRequest(t *testing.T) {
	var got struct {
		method, path, query, auth, cookie, requestID, contentType, body, ignored string
	}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.auth = r.Header.Get("Authorization")
		got.cookie = r.Header.Get("Cookie")
		got.requestID = r.Header.Get(HeaderRequestID)
		got.contentType = r.Header.Get("Content-Type")
		got.ignored = r.Header.Get("X-Internal")
		got.body = string(body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer backend.Close()

	f := newForwarder(map[string]string{"backend_v2": backend.URL + "/"}, time.Second)
	in := &Inbound{
		Headers: http.Header{
			"Content-Type":  {"application/json"},
			"Authorization": {"Bearer t"},
			"Cookie":        {"sid=abc"},
			"X-Internal":    {"secret"},
		},
		RawQuery:  "lang=en",
		Body:      []byte(`{"email":"a@b.c"}`),
		RequestID: "req-1",
	}

	resp, err := f.Forward(context.Background(), signinSpec, in)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(resp.Body))

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/family/signin", got.path)
	assert.Equal(t, "lang=en", got.query)
	assert.Equal(t, "Bearer t", got.auth)
	assert.Equal(t, "sid=abc", got.cookie)
	assert.Equal(t, "req-1", got.requestID)
	assert.Equal(t, "application/json", got.contentType)
	assert.Equal(t, `{"email":"a@b.c"}`, got.body)
	assert.Empty(t, got.ignored)
}

func TestForwardWithoutCookies(t *testing.T) {
	var cookie atomic.Value
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie.Store(r.Header.Get("Cookie"))
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	f := newForwarder(map[string]string{"backend_v2": backend.URL}, time.Second)
	spec := Spec{Name: "route", Target: "backend_v2", Method: http.MethodGet, Path: "/api/health"}
	_, err := f.Forward(context.Background(), spec, &Inbound{Headers: http.Header{"Cookie": {"sid=abc"}}})
	require.NoError(t, err)
	assert.Equal(t, "", cookie.Load())
}

func TestCookieFidelity(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "sid=abc; Path=/")
		w.Header().Add("Set-Cookie", "theme=dark; Path=/; HttpOnly; SameSite=Lax")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"user":"ana"}`))
	}))
	defer backend.Close()

	f := newForwarder(map[string]string{"backend_v2": backend.URL}, time.Second)
	resp, err := f.Forward(context.Background(), signinSpec, &Inbound{Headers: http.Header{}})
	require.NoError(t, err)
	assert.Equal(t, []string{"sid=abc; Path=/", "theme=dark; Path=/; HttpOnly; SameSite=Lax"}, resp.SetCookie)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	resp.WriteTo(c)

	assert.Equal(t, []string{"sid=abc; Path=/", "theme=dark; Path=/; HttpOnly; SameSite=Lax"}, w.Header().Values("Set-Cookie"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, `{"ok":true,"user":"ana"}`, w.Body.String())
}

func TestForwardPassesThroughHTMLAndErrors(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/dashboard":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body>stats</body></html>"))
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"ok":false,"code":"profile_invalid"}`))
		}
	}))
	defer backend.Close()

	f := newForwarder(map[string]string{"backend_v2": backend.URL}, time.Second)

	resp, err := f.Forward(context.Background(), Spec{Target: "backend_v2", Method: http.MethodGet, Path: "/dashboard"}, &Inbound{})
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", resp.ContentType)
	assert.Equal(t, "<html><body>stats</body></html>", string(resp.Body))

	resp, err = f.Forward(context.Background(), Spec{Target: "backend_v2", Method: http.MethodPut, Path: "/api/profile"}, &Inbound{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, `{"ok":false,"code":"profile_invalid"}`, string(resp.Body))
}

func TestForwardNetworkFailure(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := backend.URL
	backend.Close()

	f := newForwarder(map[string]string{"backend_v2": url}, time.Second)
	_, err := f.Forward(context.Background(), signinSpec, &Inbound{})

	gwErr := gatewayError(t, err)
	assert.Equal(t, http.StatusBadGateway, gwErr.StatusCode)
	assert.Equal(t, CodeBackendError, gwErr.Code)
	assert.Equal(t, types.UpstreamUnavailable, gwErr.Kind)
	assert.NotContains(t, gwErr.Body()["error"], "refused")
}

func TestForwardTimeout(t *testing.T) {
	release := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer backend.Close()
	defer close(release)

	f := newForwarder(map[string]string{"backend_v2": backend.URL}, 50*time.Millisecond)
	_, err := f.Forward(context.Background(), signinSpec, &Inbound{})
	assert.Equal(t, CodeBackendError, gatewayError(t, err).Code)
}

func TestForwardKeepsCookieHeaderVerbatim(t *testing.T) {
	var cookies atomic.Value
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookies.Store(r.Header.Values("Cookie"))
		w.Header().Add("Set-Cookie", "a=1; Path=/")
		w.Header().Add("Set-Cookie", "a=2; Path=/family")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer backend.Close()

	f := newForwarder(map[string]string{"backend_v2": backend.URL}, time.Second)
	resp, err := f.Forward(context.Background(), signinSpec, &Inbound{
		Headers: http.Header{"Cookie": {"a=1;b=2;flag; a=3"}},
		Body:    []byte(`{}`),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a=1;b=2;flag; a=3"}, cookies.Load())
	assert.Equal(t, []string{"a=1; Path=/", "a=2; Path=/family"}, resp.SetCookie)
}

func TestForwardWithoutContentType(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte("plain bytes"))
	}))
	defer backend.Close()

	f := newForwarder(map[string]string{"backend_v2": backend.URL}, time.Second)
	resp, err := f.Forward(context.Background(), Spec{Target: "backend_v2", Method: http.MethodGet, Path: "/api/health"}, &Inbound{})
	require.NoError(t, err)
	assert.Empty(t, resp.ContentType)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	resp.WriteTo(c)
	assert.Empty(t, w.Header().Get("Content-Type"))
	assert.Equal(t, "plain bytes", w.Body.String())
}
