package forwarder

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"travel-gateway/pkg/metrics"
	"travel-gateway/pkg/types"
)

const (
	CodeNotConfigured = "backend_not_configured"
	CodeBackendError  = "backend_error"

	HeaderRequestID = "X-Request-ID"
)

// BodyPolicy says whether the inbound body travels downstream.
type BodyPolicy int

const (
	BodyNone BodyPolicy = iota
	BodyPassthrough
)

// Spec declares one forwarded route. Specs are built at startup and never
// modified.
type Spec struct {
	Name    string
	Target  string
	Method  string
	Path    string
	Headers []string
	Body    BodyPolicy
	Cookies bool
}

// Inbound is the part of the caller's request a forward may use.
type Inbound struct {
	Headers   http.Header
	RawQuery  string
	Body      []byte
	RequestID string
}

// InboundFromGin captures the forwardable parts of a gin request.
func InboundFromGin(c *gin.Context, body []byte, requestID string) *Inbound {
	return &Inbound{
		Headers:   c.Request.Header,
		RawQuery:  c.Request.URL.RawQuery,
		Body:      body,
		RequestID: requestID,
	}
}

// Response is a downstream reply relayed byte for byte.
type Response struct {
	StatusCode  int
	ContentType string
	SetCookie   []string
	Body        []byte
}

// WriteTo relays the response to the caller. Set-Cookie values are added
// without reformatting, and Content-Type is only set when the downstream
// sent one.
func (r *Response) WriteTo(c *gin.Context) {
	header := c.Writer.Header()
	for _, cookie := range r.SetCookie {
		header.Add("Set-Cookie", cookie)
	}
	if r.ContentType != "" {
		header.Set("Content-Type", r.ContentType)
	} else {
		// keep net/http from sniffing one
		header["Content-Type"] = nil
	}
	c.Status(r.StatusCode)
	_, _ = c.Writer.Write(r.Body)
}

type Forwarder struct {
	targets map[string]string
	client  *fasthttp.Client
	timeout time.Duration
	logger  *logrus.Logger
}

// New creates a forwarder over the named downstream base URLs. Targets with
// an empty URL are treated as not configured.
func New(targets map[string]string, client *fasthttp.Client, timeout time.Duration, logger *logrus.Logger) *Forwarder {
	if client == nil {
		client = NewClient(timeout)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	clean := make(map[string]string, len(targets))
	for name, base := range targets {
		if base = strings.TrimSpace(base); base != "" {
			clean[name] = strings.TrimRight(base, "/")
		}
	}
	return &Forwarder{
		targets: clean,
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

// Configured reports whether the named target has a base URL.
func (f *Forwarder) Configured(target string) bool {
	_, ok := f.targets[target]
	return ok
}

// Forward relays the inbound request as described by spec. Downstream error
// statuses are returned as a normal Response; only a missing target or a
// transport failure produce an error.
func (f *Forwarder) Forward(ctx context.Context, spec Spec, in *Inbound) (*Response, error) {
	base, ok := f.targets[spec.Target]
	if !ok {
		return nil, types.NewConfigurationMissing(http.StatusServiceUnavailable, CodeNotConfigured,
			fmt.Sprintf("Backend %s is not configured", spec.Target))
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	resp.Header.SetNoDefaultContentType(true)

	targetURL := base + spec.Path
	if in.RawQuery != "" {
		targetURL += "?" + in.RawQuery
	}
	// Header values are written as received. With special headers disabled
	// fasthttp no longer parses Cookie, so Host and Content-Length are ours
	// to set.
	req.Header.DisableSpecialHeader()
	req.SetRequestURI(targetURL)
	req.Header.SetMethod(spec.Method)
	req.Header.Set(fasthttp.HeaderHost, string(req.URI().Host()))

	for _, name := range spec.Headers {
		for _, value := range in.Headers.Values(name) {
			req.Header.Add(name, value)
		}
	}
	if spec.Cookies {
		for _, value := range in.Headers.Values("Cookie") {
			req.Header.Add(fasthttp.HeaderCookie, value)
		}
	}
	if in.RequestID != "" {
		req.Header.Set(HeaderRequestID, in.RequestID)
	}
	if spec.Body == BodyPassthrough && len(in.Body) > 0 {
		req.SetBody(in.Body)
		req.Header.Set(fasthttp.HeaderContentLength, strconv.Itoa(len(in.Body)))
		if len(req.Header.Peek(fasthttp.HeaderContentType)) == 0 {
			req.Header.Set(fasthttp.HeaderContentType, "application/json")
		}
	}

	f.logger.WithFields(logrus.Fields{
		"route":      spec.Name,
		"url":        targetURL,
		"request_id": in.RequestID,
	}).Debug("Forwarding request")

	start := time.Now()
	err := Do(ctx, f.client, req, resp, f.timeout)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.GatewayUpstreamLatency.WithLabelValues(spec.Target, "error").Observe(latency)
		f.logger.WithFields(logrus.Fields{
			"route":      spec.Name,
			"request_id": in.RequestID,
			"error":      err.Error(),
		}).Error("Backend request failed")
		return nil, types.NewUpstreamUnavailable(CodeBackendError, fmt.Errorf("forward %s: %w", spec.Name, err))
	}
	metrics.GatewayUpstreamLatency.WithLabelValues(spec.Target, metrics.GetStatusClass(resp.StatusCode())).Observe(latency)

	out := &Response{
		StatusCode:  resp.StatusCode(),
		ContentType: string(resp.Header.Peek(fasthttp.HeaderContentType)),
		Body:        append([]byte(nil), resp.Body()...),
	}
	resp.Header.VisitAllCookie(func(_, value []byte) {
		out.SetCookie = append(out.SetCookie, string(value))
	})
	return out, nil
}
