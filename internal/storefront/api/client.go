// Package api 是店面后端 RPC 的类型化客户端。
package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"huerta/internal/pkg/httpclient"
)

// ErrNotFound 表示请求的资源不存在
var ErrNotFound = errors.New("not found")

// Client 包装 httpclient.Client。目录读取会合并并发的相同请求，
// 兑换和下单从不合并也从不重试。
type Client struct {
	http  *httpclient.Client
	reads singleflight.Group
}

func NewClient(c *httpclient.Client) *Client {
	return &Client{http: c}
}

// Products 返回上架商品
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	return sharedRead[[]Product](ctx, &c.reads, c.http, "/api/products")
}

func (c *Client) Product(ctx context.Context, id string) (*Product, error) {
	var out Product
	status, err := c.http.GetJSON(ctx, "/api/products/"+url.PathEscape(id), &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, errors.Wrapf(ErrNotFound, "product %s", id)
	}
	if status != http.StatusOK {
		return nil, errors.Wrapf(httpclient.ErrBadResponse, "get product %s: status %d", id, status)
	}
	return &out, nil
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	return sharedRead[[]Category](ctx, &c.reads, c.http, "/api/categories")
}

// sharedRead 合并同一路径的并发读取。共享的请求与发起者的取消解绑，只受 http 客户端超时约束，
// 每个调用方各自等待自己的 ctx。
func sharedRead[T any](ctx context.Context, g *singleflight.Group, hc *httpclient.Client, path string) (T, error) {
	ch := g.DoChan(path, func() (any, error) {
		var out T
		if _, err := hc.GetJSON(context.WithoutCancel(ctx), path, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// ValidateDiscountCode 发起一次兑换。每次调用都可能消耗一次使用次数。
func (c *Client) ValidateDiscountCode(ctx context.Context, req *RedeemRequest) (*RedeemResponse, error) {
	var out RedeemResponse
	if _, err := c.http.PostJSON(ctx, "/rpc/validate_discount_code", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder 提交订单。4xx 的业务拒绝也会解码到响应体中。
func (c *Client) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	var out CreateOrderResponse
	if _, err := c.http.PostJSON(ctx, "/rpc/create_order", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
