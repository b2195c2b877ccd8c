// Package cart 维护顾客本地的购物车。价格只是加入时的快照，仅用于展示，
// 结算金额永远以服务端为准。
package cart

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"huerta/internal/pkg/logger"
	"huerta/internal/pkg/money"
)

// StorageKey 是购物车在本地存储中的键
const StorageKey = "huerta.cart.v1"

// MaxQuantity 是单行允许的最大数量
const MaxQuantity = 999

// ErrQuantityLimit 表示某行数量会超过 MaxQuantity，此时购物车保持不变
var ErrQuantityLimit = errors.New("cart: quantity exceeds line limit")

// Store 是购物车的持久化目标，localstore.FileStore 实现了它
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
}

// Item 是购物车中的一行，(ProductID, VariantID) 唯一
type Item struct {
	ProductID string              `json:"productId"`
	VariantID string              `json:"variantId,omitempty"`
	Name      string              `json:"name"`
	Quantity  int                 `json:"quantity"`
	UnitPrice decimal.Decimal     `json:"unitPrice"`
	SalePrice decimal.NullDecimal `json:"salePrice"`
	IsOnSale  bool                `json:"isOnSale"`
}

// EffectivePrice 有特价时取特价，否则取原价
func (i Item) EffectivePrice() decimal.Decimal {
	if i.IsOnSale && i.SalePrice.Valid {
		return i.SalePrice.Decimal
	}
	return i.UnitPrice
}

// LineTotal 是本行的展示金额
func (i Item) LineTotal() decimal.Decimal {
	return money.Times(i.EffectivePrice(), i.Quantity)
}

func (i Item) sameLine(productID, variantID string) bool {
	return i.ProductID == productID && i.VariantID == variantID
}

// Cart 是单个会话持有的购物车，每次修改都会同步写入 Store。
type Cart struct {
	store Store

	mu    sync.Mutex
	items []Item
}

// Load 从 store 恢复购物车。读取失败或数据损坏时返回空购物车。
func Load(store Store) *Cart {
	c := &Cart{store: store}
	raw, ok, err := store.Get(StorageKey)
	if err != nil {
		logger.L().Warn().Err(err).Msg("read cart, starting empty")
		return c
	}
	if !ok {
		return c
	}
	var stored []Item
	if err := json.Unmarshal(raw, &stored); err != nil {
		logger.L().Warn().Err(err).Msg("cart state is corrupt, starting empty")
		return c
	}
	// 手工改过的文件也要满足唯一键和数量范围
	for _, it := range stored {
		it.ProductID, it.VariantID = lineKey(it.ProductID, it.VariantID)
		if it.ProductID == "" || it.Quantity <= 0 {
			continue
		}
		if err := c.merge(it); err != nil {
			logger.L().Warn().Str("product", it.ProductID).Int("quantity", it.Quantity).Msg("stored cart line over limit, dropped")
		}
	}
	return c
}

// Add 按 (productId, variantId) 合并数量，新行数量缺省为 1。
func (c *Cart) Add(item Item) error {
	item.ProductID, item.VariantID = lineKey(item.ProductID, item.VariantID)
	if item.ProductID == "" {
		return errors.New("cart: product id is required")
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.merge(item); err != nil {
		return err
	}
	return c.save()
}

// SetQuantity 设置某行的数量，q <= 0 时删除该行。
func (c *Cart) SetQuantity(productID, variantID string, q int) error {
	if q > MaxQuantity {
		return ErrQuantityLimit
	}
	productID, variantID = lineKey(productID, variantID)
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.index(productID, variantID)
	if idx < 0 {
		return nil
	}
	if q <= 0 {
		c.items = append(c.items[:idx], c.items[idx+1:]...)
	} else {
		c.items[idx].Quantity = q
	}
	return c.save()
}

// Remove 删除一行
func (c *Cart) Remove(productID, variantID string) error {
	return c.SetQuantity(productID, variantID, 0)
}

// Clear 清空购物车，只应在下单确认成功后调用
func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	return c.save()
}

// Subtotal 每次读取时重新计算，不做缓存
func (c *Cart) Subtotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	sum := decimal.Zero
	for _, it := range c.items {
		sum = sum.Add(it.LineTotal())
	}
	return money.Round(sum)
}

// Lines 返回购物车内容的副本
func (c *Cart) Lines() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Item(nil), c.items...)
}

// Count 是商品件数之和
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) == 0
}

// merge 先比较再相加，加法不会溢出
func (c *Cart) merge(item Item) error {
	if item.Quantity > MaxQuantity {
		return ErrQuantityLimit
	}
	idx := c.index(item.ProductID, item.VariantID)
	if idx < 0 {
		c.items = append(c.items, item)
		return nil
	}
	if item.Quantity > MaxQuantity-c.items[idx].Quantity {
		return ErrQuantityLimit
	}
	c.items[idx].Quantity += item.Quantity
	return nil
}

func lineKey(productID, variantID string) (string, string) {
	return strings.TrimSpace(productID), strings.TrimSpace(variantID)
}

func (c *Cart) index(productID, variantID string) int {
	for i, it := range c.items {
		if it.sameLine(productID, variantID) {
			return i
		}
	}
	return -1
}

func (c *Cart) save() error {
	items := c.items
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	return errors.Wrap(c.store.Set(StorageKey, raw), "save cart")
}
