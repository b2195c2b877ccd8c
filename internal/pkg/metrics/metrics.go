// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DiscountRedemptions 按结果统计兑换次数，result 为 success 或拒绝原因。
	DiscountRedemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huerta_discount_redemptions_total",
		Help: "Discount code redemption attempts by result.",
	}, []string{"result"})

	// OrdersPlaced 按结果统计下单次数。
	OrdersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huerta_orders_total",
		Help: "Order placement attempts by result.",
	}, []string{"result"})

	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "huerta_rpc_duration_seconds",
		Help:    "Latency of storefront RPC handlers.",
		Buckets: prometheus.DefBuckets,
	}, []string{"rpc"})

	LiveFeedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huerta_live_feed_clients",
		Help: "Connected admin live-feed websocket clients.",
	})
)
