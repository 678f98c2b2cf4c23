package forwarder

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"
)

const DefaultTimeout = 10 * time.Second

// NewClient returns the fasthttp client shared by the forwarder and the
// provider clients.
func NewClient(timeout time.Duration) *fasthttp.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &fasthttp.Client{
		Name:                "travel-gateway",
		MaxConnsPerHost:     10000,
		ReadTimeout:         timeout,
		WriteTimeout:        timeout,
		MaxIdleConnDuration: time.Minute,
	}
}

// Do executes req honouring both the context deadline and timeout,
// whichever comes first.
func Do(ctx context.Context, client *fasthttp.Client, req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return client.DoDeadline(req, resp, deadline)
}
