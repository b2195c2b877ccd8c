// internal/pkg/httpclient/client.go

package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrTransport 表示请求没有得到可用的业务响应：网络错误、超时或服务端 5xx。
	// 这类失败可以安全地重试（下单请求需携带同一个幂等键）。
	ErrTransport = errors.New("transport failure")
	// ErrBadResponse 表示响应体不是约定的 JSON。
	ErrBadResponse = errors.New("unexpected response body")
)

// Resolver 把服务名解析为 http 基础地址，例如 http://10.0.0.3:8080。
type Resolver interface {
	ServiceURL(serviceName string) (string, error)
}

// StaticResolver 总是返回固定地址。
type StaticResolver string

func (s StaticResolver) ServiceURL(string) (string, error) {
	return strings.TrimRight(string(s), "/"), nil
}

// Client 是一个可追踪的、可注入的 JSON-over-HTTP 客户端
type Client struct {
	Tracer     trace.Tracer
	HTTPClient *http.Client
	Resolver   Resolver
	Service    string
}

// NewClient 创建一个新的客户端实例，timeout 作用于单次请求。
func NewClient(tracer trace.Tracer, resolver Resolver, service string, timeout time.Duration) *Client {
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return &Client{
		Tracer:     tracer,
		HTTPClient: httpClient,
		Resolver:   resolver,
		Service:    service,
	}
}

// PostJSON 以 JSON 发送 in，并把响应体解码到 out。
// 4xx 的业务错误响应也会被解码，由调用方根据响应体判断成败。
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) (int, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return 0, errors.Wrap(err, "encode request")
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), out)
}

// GetJSON 发送 GET 请求并解码响应体。
func (c *Client) GetJSON(ctx context.Context, path string, out any) (int, error) {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) (int, error) {
	ctx, span := c.Tracer.Start(ctx, fmt.Sprintf("call-%s %s", c.Service, path), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	base, err := c.Resolver.ServiceURL(c.Service)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve service")
		return 0, errors.Wrapf(ErrTransport, "resolve %s: %v", c.Service, err)
	}
	target := base + path

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	span.SetAttributes(
		attribute.String("http.url", target),
		attribute.String("http.method", method),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, errors.Wrapf(ErrTransport, "%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusInternalServerError {
		err := errors.Wrapf(ErrTransport, "service %s returned status %s", c.Service, resp.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp.StatusCode, err
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode response")
			return resp.StatusCode, errors.Wrapf(ErrBadResponse, "status %d: %v", resp.StatusCode, err)
		}
	}
	return resp.StatusCode, nil
}
