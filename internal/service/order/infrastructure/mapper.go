package infrastructure

import (
	"database/sql"

	"huerta/internal/service/order/domain"
)

func FromDomainOrder(o *domain.Order) *OrderModel {
	lines := make([]OrderLineModel, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = OrderLineModel{
			OrderID:   o.ID,
			Position:  i,
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		}
	}
	return &OrderModel{
		ID:              o.ID,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		Notes:           o.Notes,
		ShippingAddress: o.ShippingAddress,
		Subtotal:        o.Subtotal,
		DiscountCode:    o.DiscountCode,
		DiscountAmount:  o.DiscountAmount,
		Total:           o.Total,
		RedemptionID:    toNullString(o.RedemptionID),
		IdempotencyKey:  toNullString(o.IdempotencyKey),
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Lines:           lines,
	}
}

func ToDomainOrder(m *OrderModel) *domain.Order {
	lines := make([]domain.Line, len(m.Lines))
	for i, l := range m.Lines {
		lines[i] = domain.Line{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		}
	}
	return &domain.Order{
		ID:              m.ID,
		CustomerName:    m.CustomerName,
		CustomerPhone:   m.CustomerPhone,
		Notes:           m.Notes,
		ShippingAddress: m.ShippingAddress,
		Lines:           lines,
		Subtotal:        m.Subtotal,
		DiscountCode:    m.DiscountCode,
		DiscountAmount:  m.DiscountAmount,
		Total:           m.Total,
		RedemptionID:    m.RedemptionID.String,
		IdempotencyKey:  m.IdempotencyKey.String,
		Status:          domain.Status(m.Status),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
