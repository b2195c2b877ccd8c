package application

import (
	"context"

	"github.com/shopspring/decimal"
)

// Seed 写入演示用的促销和折扣码，已有数据时跳过。
func (s *PromotionService) Seed(ctx context.Context) error {
	existing, err := s.repo.ListPromotions(ctx)
	if err != nil || len(existing) > 0 {
		return err
	}

	now := s.now()
	yesterday := now.AddDate(0, 0, -1)
	lastMonth := now.AddDate(0, -1, 0)
	one := 1

	promotions := []CreatePromotionRequest{
		{ID: "diez-por-ciento", Name: "10% de descuento", Type: "percentage", Value: decimal.NewFromInt(10)},
		{ID: "verano-pasado", Name: "Verano pasado", Type: "percentage", Value: decimal.NewFromInt(20), StartsAt: &lastMonth, EndsAt: &yesterday},
		{ID: "envio-gratis", Name: "$500 de descuento", Type: "fixed_amount", Value: decimal.NewFromInt(500), MinPurchase: decimal.NewNullDecimal(decimal.NewFromInt(5000))},
		{ID: "lleva-3-paga-2", Name: "Llevá 3, pagá 2 en tomates", Type: "buy_x_get_y", BuyQuantity: 2, GetQuantity: 1, ProductIDs: []string{"tomate-cherry"}},
	}
	codes := []CreateCodeRequest{
		{Code: "TEST10", PromotionID: "diez-por-ciento"},
		{Code: "UNUSO", PromotionID: "diez-por-ciento", MaxUses: &one},
		{Code: "EXPIRED", PromotionID: "verano-pasado"},
		{Code: "MIN5000", PromotionID: "envio-gratis"},
		{Code: "LLEVA3", PromotionID: "lleva-3-paga-2"},
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for i := range promotions {
			if _, err := s.CreatePromotion(ctx, &promotions[i]); err != nil {
				return err
			}
		}
		for i := range codes {
			if _, err := s.CreateCode(ctx, &codes[i]); err != nil {
				return err
			}
		}
		return nil
	})
}
