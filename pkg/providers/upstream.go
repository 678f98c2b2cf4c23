package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"travel-gateway/pkg/common"
	"travel-gateway/pkg/forwarder"
	"travel-gateway/pkg/metrics"
)

// JSON is the codec provider clients decode upstream bodies with.
var JSON = sonic.ConfigDefault

// Request is a single call to a third-party API.
type Request struct {
	Upstream string
	Method   string
	URL      string
	Headers  map[string]string
	Body     []byte
}

// Reply is the raw upstream answer.
type Reply struct {
	StatusCode int
	Body       []byte
}

func (r *Reply) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Caller performs upstream requests on a shared fasthttp client.
type Caller struct {
	client  *fasthttp.Client
	timeout time.Duration
}

func NewCaller(client *fasthttp.Client, timeout time.Duration) *Caller {
	if client == nil {
		client = forwarder.NewClient(timeout)
	}
	if timeout <= 0 {
		timeout = forwarder.DefaultTimeout
	}
	return &Caller{client: client, timeout: timeout}
}

// Do sends r and returns the reply whatever its status. Only transport
// failures are errors.
func (c *Caller) Do(ctx context.Context, r Request) (*Reply, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.URL)
	req.Header.SetMethod(r.Method)
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	if id := common.RequestID(ctx); id != "" {
		req.Header.Set(forwarder.HeaderRequestID, id)
	}
	if len(r.Body) > 0 {
		req.Header.SetContentType("application/json")
		req.SetBody(r.Body)
	}

	start := time.Now()
	err := forwarder.Do(ctx, c.client, req, resp, c.timeout)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.GatewayUpstreamLatency.WithLabelValues(r.Upstream, "error").Observe(latency)
		return nil, fmt.Errorf("%s request failed: %w", r.Upstream, err)
	}
	metrics.GatewayUpstreamLatency.WithLabelValues(r.Upstream, metrics.GetStatusClass(resp.StatusCode())).Observe(latency)

	return &Reply{
		StatusCode: resp.StatusCode(),
		Body:       append([]byte(nil), resp.Body()...),
	}, nil
}

// GetJSON issues a GET and decodes a 2xx body into out. Non-2xx replies are
// returned with a nil error so callers can map them to their own codes.
func (c *Caller) GetJSON(ctx context.Context, upstream, url string, out interface{}) (*Reply, error) {
	reply, err := c.Do(ctx, Request{Upstream: upstream, Method: fasthttp.MethodGet, URL: url})
	if err != nil {
		return nil, err
	}
	if !reply.OK() {
		return reply, nil
	}
	if err := JSON.Unmarshal(reply.Body, out); err != nil {
		return reply, fmt.Errorf("%s returned malformed JSON: %w", upstream, err)
	}
	return reply, nil
}
