package interfaces

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"huerta/internal/pkg/httpx"
	"huerta/internal/pkg/logger"
	"huerta/internal/pkg/metrics"
	"huerta/internal/service/order/application"
	"huerta/internal/service/order/domain"
)

// OrderHandler 封装了 order 服务的 HTTP 处理器
type OrderHandler struct {
	service *application.OrderApplicationService
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例
func NewOrderHandler(service *application.OrderApplicationService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes 注册面向顾客的下单 RPC
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/rpc/create_order", h.handleCreateOrder)
}

// RegisterAdminRoutes 注册后台路由，调用方负责挂载 API Key 中间件
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/admin/orders", h.handleListOrders)
	r.Get("/admin/orders/{id}", h.handleGetOrder)
	r.Post("/admin/orders/{id}/status", h.handleUpdateStatus)
}

// rejection 是下单失败时的响应体
type rejection struct {
	Success        bool   `json:"success"`
	Error          string `json:"error"`
	Reason         string `json:"reason"`
	ProductID      string `json:"productId,omitempty"`
	DiscountReason string `json:"discountReason,omitempty"`
	ExpectedTotal  any    `json:"expectedTotal,omitempty"`
	Total          any    `json:"total,omitempty"`
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RPCDuration.WithLabelValues("create_order"))
	defer timer.ObserveDuration()

	var req application.PlaceOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, rejection{
			Error:  "Invalid request body",
			Reason: string(domain.ReasonValidation),
		})
		return
	}

	resp, err := h.service.PlaceOrder(r.Context(), &req)
	if err != nil {
		writePlacementError(w, r, err)
		return
	}
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("order.id", resp.OrderID))
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// writePlacementError 把业务拒绝映射为 4xx，其余错误为 500
func writePlacementError(w http.ResponseWriter, r *http.Request, err error) {
	reason, message, ok := domain.ReasonOf(err)
	if !ok {
		logger.Ctx(r.Context()).Error().Err(err).Msg("create_order failed")
		httpx.WriteError(w, http.StatusInternalServerError, "No pudimos registrar tu pedido, intentá de nuevo")
		return
	}

	body := rejection{Error: message, Reason: string(reason)}
	status := http.StatusUnprocessableEntity
	var (
		itemErr  *domain.ItemUnavailableError
		priceErr *domain.PriceChangedError
		discErr  *domain.DiscountError
	)
	switch {
	case reason == domain.ReasonValidation:
		status = http.StatusBadRequest
	case errors.As(err, &itemErr):
		status = http.StatusConflict
		body.ProductID = itemErr.ProductID
	case errors.As(err, &priceErr):
		status = http.StatusConflict
		body.ExpectedTotal = priceErr.ExpectedTotal
		body.Total = priceErr.Total
	case errors.As(err, &discErr):
		body.DiscountReason = discErr.Reason
	case reason == domain.ReasonDuplicateInFlight:
		status = http.StatusConflict
	}
	httpx.WriteJSON(w, status, body)
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	orders, err := h.service.ListOrders(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	views := make([]application.OrderView, len(orders))
	for i, o := range orders {
		views[i] = application.ToOrderView(o)
	}
	httpx.WriteJSON(w, http.StatusOK, views)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, application.ToOrderView(o))
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req application.UpdateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	o, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, application.ToOrderView(o))
}

// writeAdminError 根据错误类型返回不同的 HTTP 状态码
func writeAdminError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidStatus):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusConflict
	default:
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("order admin request failed")
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteError(w, status, err.Error())
}
