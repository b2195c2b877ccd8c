package interfaces

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"huerta/internal/pkg/httpx"
	"huerta/internal/pkg/logger"
	"huerta/internal/service/catalog/application"
	"huerta/internal/service/catalog/domain"
)

// CatalogHandler 封装了商品目录的 HTTP 处理器
type CatalogHandler struct {
	service *application.CatalogService
}

func NewCatalogHandler(service *application.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// RegisterRoutes 注册面向顾客的只读路由
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/products", h.listProducts)
	r.Get("/api/products/{id}", h.getProduct)
	r.Get("/api/categories", h.listCategories)
}

// RegisterAdminRoutes 注册后台路由，调用方负责挂载 API Key 中间件
func (h *CatalogHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/admin/products", h.listAllProducts)
	r.Post("/admin/products", h.upsertProduct)
	r.Post("/admin/categories", h.upsertCategory)
	r.Post("/rpc/reorder", h.reorder)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	h.writeProducts(w, r, false)
}

func (h *CatalogHandler) listAllProducts(w http.ResponseWriter, r *http.Request) {
	h.writeProducts(w, r, true)
}

func (h *CatalogHandler) writeProducts(w http.ResponseWriter, r *http.Request, includeInactive bool) {
	products, err := h.service.ListProducts(r.Context(), includeInactive)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	views := make([]application.ProductView, len(products))
	for i, p := range products {
		views[i] = application.ToProductView(p)
	}
	httpx.WriteJSON(w, http.StatusOK, views)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !p.Active {
		httpx.WriteError(w, http.StatusNotFound, domain.ErrProductNotFound.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, application.ToProductView(p))
}

func (h *CatalogHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	views := make([]application.CategoryView, len(categories))
	for i, c := range categories {
		views[i] = application.CategoryView{ID: c.ID, Name: c.Name, SortOrder: c.SortOrder}
	}
	httpx.WriteJSON(w, http.StatusOK, views)
}

func (h *CatalogHandler) upsertProduct(w http.ResponseWriter, r *http.Request) {
	var req application.UpsertProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.service.UpsertProduct(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, application.ToProductView(p))
}

func (h *CatalogHandler) upsertCategory(w http.ResponseWriter, r *http.Request) {
	var req application.UpsertCategoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.service.UpsertCategory(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, application.CategoryView{ID: c.ID, Name: c.Name, SortOrder: c.SortOrder})
}

// reorder 是批量排序 RPC：整批成功返回 success，否则没有任何一行被修改
func (h *CatalogHandler) reorder(w http.ResponseWriter, r *http.Request) {
	var req application.ReorderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.Reorder(r.Context(), &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "updated": len(req.Items)})
}

// writeDomainError 根据错误类型返回不同的 HTTP 状态码
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrCategoryNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidProduct), errors.Is(err, domain.ErrInvalidReorder):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSortTargetAbsent):
		status = http.StatusUnprocessableEntity
	default:
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("catalog request failed")
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteError(w, status, err.Error())
}
