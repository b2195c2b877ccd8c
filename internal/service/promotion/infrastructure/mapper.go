package infrastructure

import (
	"database/sql"
	"strings"
	"time"

	"huerta/internal/service/promotion/domain"
)

// ToDomainPromotion 将数据库模型转换为领域模型
func ToDomainPromotion(m *PromotionModel) *domain.Promotion {
	if m == nil {
		return nil
	}
	var scope []string
	if m.ScopeValue != "" {
		scope = strings.Split(m.ScopeValue, ",") // 将字符串转换为切片
	}
	return &domain.Promotion{
		ID:          m.ID,
		Name:        m.Name,
		Type:        domain.DiscountType(m.Type),
		Value:       m.Value,
		MinPurchase: m.MinPurchase,
		BuyQuantity: m.BuyQuantity,
		GetQuantity: m.GetQuantity,
		ProductIDs:  scope,
		Condition:   m.Condition,
		Active:      m.Active,
		StartsAt:    fromNullTime(m.StartsAt),
		EndsAt:      fromNullTime(m.EndsAt),
		CreatedAt:   m.CreatedAt,
	}
}

func FromDomainPromotion(p *domain.Promotion) *PromotionModel {
	return &PromotionModel{
		ID:          p.ID,
		Name:        p.Name,
		Type:        string(p.Type),
		Value:       p.Value,
		MinPurchase: p.MinPurchase,
		BuyQuantity: p.BuyQuantity,
		GetQuantity: p.GetQuantity,
		ScopeValue:  strings.Join(p.ProductIDs, ","),
		Condition:   p.Condition,
		Active:      p.Active,
		StartsAt:    toNullTime(p.StartsAt),
		EndsAt:      toNullTime(p.EndsAt),
		CreatedAt:   p.CreatedAt,
	}
}

// ToDomainDiscountCode 将数据库模型转换为领域模型
func ToDomainDiscountCode(m *DiscountCodeModel) *domain.DiscountCode {
	if m == nil {
		return nil
	}
	c := &domain.DiscountCode{
		ID:          m.ID,
		Code:        m.Code,
		PromotionID: m.PromotionID,
		CurrentUses: m.CurrentUses,
		Active:      m.Active,
		StartsAt:    fromNullTime(m.StartsAt),
		EndsAt:      fromNullTime(m.EndsAt),
		CreatedAt:   m.CreatedAt,
	}
	if m.MaxUses.Valid {
		n := int(m.MaxUses.Int64)
		c.MaxUses = &n
	}
	return c
}

func FromDomainDiscountCode(c *domain.DiscountCode) *DiscountCodeModel {
	m := &DiscountCodeModel{
		ID:          c.ID,
		Code:        c.Code,
		PromotionID: c.PromotionID,
		CurrentUses: c.CurrentUses,
		Active:      c.Active,
		StartsAt:    toNullTime(c.StartsAt),
		EndsAt:      toNullTime(c.EndsAt),
		CreatedAt:   c.CreatedAt,
	}
	if c.MaxUses != nil {
		m.MaxUses = sql.NullInt64{Int64: int64(*c.MaxUses), Valid: true}
	}
	return m
}

func ToDomainRedemption(m *RedemptionModel) *domain.Redemption {
	r := &domain.Redemption{
		ID:             m.ID,
		CodeID:         m.CodeID,
		Code:           m.Code,
		PromotionID:    m.PromotionID,
		OrderTotal:     m.OrderTotal,
		DiscountAmount: m.DiscountAmount,
		CreatedAt:      m.CreatedAt,
	}
	if m.OrderID.Valid {
		id := m.OrderID.String
		r.OrderID = &id
	}
	return r
}

func FromDomainRedemption(r *domain.Redemption) *RedemptionModel {
	m := &RedemptionModel{
		ID:             r.ID,
		CodeID:         r.CodeID,
		Code:           r.Code,
		PromotionID:    r.PromotionID,
		OrderTotal:     r.OrderTotal,
		DiscountAmount: r.DiscountAmount,
		CreatedAt:      r.CreatedAt,
	}
	if r.OrderID != nil {
		m.OrderID = sql.NullString{String: *r.OrderID, Valid: true}
	}
	return m
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
