package interfaces

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"huerta/internal/pkg/httpx"
	"huerta/internal/pkg/logger"
	"huerta/internal/pkg/metrics"
	"huerta/internal/service/promotion/application"
	"huerta/internal/service/promotion/domain"
)

// PromotionHandler 封装了 promotion 服务的 HTTP 处理器
type PromotionHandler struct {
	service *application.PromotionService
}

// NewPromotionHandler 创建一个新的 HTTP 处理器实例
func NewPromotionHandler(service *application.PromotionService) *PromotionHandler {
	return &PromotionHandler{service: service}
}

// RegisterRoutes 注册面向顾客的兑换 RPC
func (h *PromotionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/rpc/validate_discount_code", h.handleValidateDiscountCode)
}

// RegisterAdminRoutes 注册后台路由，调用方负责挂载 API Key 中间件
func (h *PromotionHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/admin/promotions", h.handleListPromotions)
	r.Post("/admin/promotions", h.handleCreatePromotion)
	r.Get("/admin/discount-codes", h.handleListCodes)
	r.Post("/admin/discount-codes", h.handleCreateCode)
}

// rejection 是业务拒绝时的响应体，HTTP 状态码仍为 200，客户端只看 success 字段
type rejection struct {
	Success     bool   `json:"success"`
	Error       string `json:"error"`
	Reason      string `json:"reason"`
	MinPurchase any    `json:"minPurchase,omitempty"`
}

func (h *PromotionHandler) handleValidateDiscountCode(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RPCDuration.WithLabelValues("validate_discount_code"))
	defer timer.ObserveDuration()

	var req application.RedeemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.service.Redeem(r.Context(), &req)
	if err != nil {
		reason, message, ok := domain.ReasonOf(err)
		if !ok {
			logger.Ctx(r.Context()).Error().Err(err).Msg("validate_discount_code failed")
			httpx.WriteError(w, http.StatusInternalServerError, "No pudimos validar el código, intentá de nuevo")
			return
		}
		body := rejection{Error: message, Reason: string(reason)}
		var minErr *domain.MinimumPurchaseError
		if errors.As(err, &minErr) {
			body.MinPurchase = minErr.Minimum
		}
		httpx.WriteJSON(w, http.StatusOK, body)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *PromotionHandler) handleListPromotions(w http.ResponseWriter, r *http.Request) {
	promotions, err := h.service.ListPromotions(r.Context())
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	views := make([]application.PromotionView, len(promotions))
	for i, p := range promotions {
		views[i] = application.ToPromotionView(p)
	}
	httpx.WriteJSON(w, http.StatusOK, views)
}

func (h *PromotionHandler) handleCreatePromotion(w http.ResponseWriter, r *http.Request) {
	var req application.CreatePromotionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.service.CreatePromotion(r.Context(), &req)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, application.ToPromotionView(p))
}

func (h *PromotionHandler) handleListCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.service.ListCodes(r.Context())
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	views := make([]application.CodeView, len(codes))
	for i, c := range codes {
		views[i] = application.ToCodeView(c)
	}
	httpx.WriteJSON(w, http.StatusOK, views)
}

func (h *PromotionHandler) handleCreateCode(w http.ResponseWriter, r *http.Request) {
	var req application.CreateCodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.service.CreateCode(r.Context(), &req)
	if err != nil {
		writeAdminError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, application.ToCodeView(c))
}

// writeAdminError 根据错误类型返回不同的 HTTP 状态码
func writeAdminError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrPromotionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateCode):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidPromotion), errors.Is(err, domain.ErrInvalidCode):
		status = http.StatusBadRequest
	default:
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("promotion admin request failed")
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteError(w, status, err.Error())
}
