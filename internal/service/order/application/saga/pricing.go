package saga

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"huerta/internal/pkg/logger"
	"huerta/internal/service/order/domain"
)

// PricingHandler 用商品目录中的当前价格为每一行定价，客户端的价格一概不用。
type PricingHandler struct {
	NextHandler
}

func (h *PricingHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Pricing")
	defer span.End()

	ids := orderCtx.Intent.ProductIDs()
	span.SetAttributes(attribute.Int("order.product_count", len(ids)))

	products, err := orderCtx.Catalog.Products(ctx, ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog lookup failed")
		return errors.Wrap(err, "load products")
	}

	lines := make([]domain.Line, 0, len(orderCtx.Intent.Items))
	for _, item := range orderCtx.Intent.Items {
		p, ok := products[item.ProductID]
		if !ok || !p.Active {
			err := &domain.ItemUnavailableError{ProductID: item.ProductID}
			span.RecordError(err)
			span.SetStatus(codes.Error, "item unavailable")
			return err
		}
		lines = append(lines, domain.NewLine(p.ID, item.VariantID, p.Name, item.Quantity, p.UnitPrice))
	}
	orderCtx.Order.SetLines(lines)

	span.SetAttributes(attribute.String("order.subtotal", orderCtx.Order.Subtotal.String()))
	logger.Ctx(ctx).Debug().Str("order", orderCtx.Order.ID).Str("subtotal", orderCtx.Order.Subtotal.String()).Msg("order priced")

	return h.executeNext(orderCtx)
}
