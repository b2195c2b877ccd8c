package domain

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEffectivePrice(t *testing.T) {
	p := &Product{Price: decimal.NewFromInt(1000), SalePrice: decimal.NewNullDecimal(decimal.NewFromInt(800))}
	assert.True(t, p.EffectivePrice().Equal(decimal.NewFromInt(1000)), "not on sale uses regular price")

	p.IsOnSale = true
	assert.True(t, p.EffectivePrice().Equal(decimal.NewFromInt(800)))

	p.SalePrice = decimal.NullDecimal{}
	assert.True(t, p.EffectivePrice().Equal(decimal.NewFromInt(1000)), "on sale without sale price falls back")
}

func TestValidateReorder(t *testing.T) {
	tests := []struct {
		name    string
		table   SortTable
		entries []SortEntry
		wantErr bool
	}{
		{name: "valid", table: TableProducts, entries: []SortEntry{{ID: "a", SortOrder: 0}, {ID: "b", SortOrder: 1}}},
		{name: "categories", table: TableCategories, entries: []SortEntry{{ID: "c", SortOrder: 3}}},
		{name: "unknown table", table: "orders", entries: []SortEntry{{ID: "a"}}, wantErr: true},
		{name: "empty", table: TableProducts, wantErr: true},
		{name: "duplicate", table: TableProducts, entries: []SortEntry{{ID: "a"}, {ID: "a", SortOrder: 2}}, wantErr: true},
		{name: "negative", table: TableProducts, entries: []SortEntry{{ID: "a", SortOrder: -1}}, wantErr: true},
		{name: "blank id", table: TableProducts, entries: []SortEntry{{ID: " "}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReorder(tt.table, tt.entries)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidReorder), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProductValidate(t *testing.T) {
	ok := Product{ID: "tomate", Name: "Tomate", Price: decimal.NewFromInt(30)}
	assert.NoError(t, ok.Validate())

	onSaleNoPrice := ok
	onSaleNoPrice.IsOnSale = true
	assert.Error(t, onSaleNoPrice.Validate())

	negative := ok
	negative.Price = decimal.NewFromInt(-1)
	assert.Error(t, negative.Validate())
}
