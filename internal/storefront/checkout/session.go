// Package checkout 实现店面的结账流程：兑换折扣码、提交订单，
// 以及把两者串起来的 Session。
package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"huerta/internal/pkg/logger"
	"huerta/internal/pkg/money"
	"huerta/internal/storefront/api"
	"huerta/internal/storefront/cart"
)

// StorageKey 是结账状态在本地存储中的键
const StorageKey = "huerta.checkout.v1"

type sessionState struct {
	Discount *AppliedDiscount `json:"discount,omitempty"`
	// PendingKey 是尚未得到明确结果的下单尝试所用的幂等键，
	// PendingDigest 记录那次尝试的内容，内容变化后换新键。
	PendingKey    string `json:"pendingKey,omitempty"`
	PendingDigest string `json:"pendingDigest,omitempty"`
}

// Session 持有购物车、已应用的折扣和待定的幂等键，并负责它们的持久化。
// 一个 Session 对应一位顾客，不在多个会话之间共享。
type Session struct {
	store      cart.Store
	cart       *cart.Cart
	redemption *RedemptionClient
	submitter  *Submitter
	newKey     func() string

	mu    sync.Mutex
	state sessionState
}

// NewSession 从 store 恢复购物车和结账状态，损坏的状态按空状态处理。
func NewSession(store cart.Store, backend Backend) *Session {
	s := &Session{
		store:      store,
		cart:       cart.Load(store),
		redemption: NewRedemptionClient(backend),
		submitter:  NewSubmitter(backend),
		newKey:     uuid.NewString,
	}
	raw, ok, err := store.Get(StorageKey)
	switch {
	case err != nil:
		logger.L().Warn().Err(err).Msg("read checkout state, starting empty")
	case ok:
		if err := json.Unmarshal(raw, &s.state); err != nil {
			logger.L().Warn().Err(err).Msg("checkout state is corrupt, starting empty")
			s.state = sessionState{}
		}
	}
	return s
}

func (s *Session) Cart() *cart.Cart { return s.cart }

// Discount 返回当前应用的折扣，没有时为 nil
func (s *Session) Discount() *AppliedDiscount {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Discount == nil {
		return nil
	}
	d := *s.state.Discount
	return &d
}

// PendingKey 返回待定的幂等键，没有待定的下单尝试时为空
func (s *Session) PendingKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.PendingKey
}

// ApplyCode 兑换折扣码。失败时之前应用的折扣保持不变。
func (s *Session) ApplyCode(ctx context.Context, code string) (*AppliedDiscount, error) {
	lines := s.cart.Lines()
	items := make([]api.ItemRef, len(lines))
	for i, line := range lines {
		items[i] = api.ItemRef{ID: line.ProductID, VariantID: line.VariantID, Quantity: line.Quantity}
	}
	applied, err := s.redemption.Apply(ctx, code, s.cart.Subtotal(), items)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Discount = applied
	d := *applied
	return &d, s.save()
}

// RemoveCode 只清除本地记录，已消耗的使用次数不会退回
func (s *Session) RemoveCode() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Discount = nil
	return s.save()
}

// DisplayTotal 是展示用的总价：小计减去服务端返回的折扣金额。
func (s *Session) DisplayTotal() decimal.Decimal {
	subtotal := s.cart.Subtotal()
	d := s.Discount()
	if d == nil {
		return subtotal
	}
	return money.Round(money.Clamp(subtotal.Sub(d.Amount), decimal.Zero, subtotal))
}

// Submit 提交订单。只有服务端确认成功后才清空购物车和折扣；
// 网络失败时保留幂等键，重试会被服务端识别为同一次下单。
func (s *Session) Submit(ctx context.Context, details Details) (*Confirmation, error) {
	order := &Order{Lines: s.cart.Lines(), Details: details, Discount: s.Discount()}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	// 折扣是按当前小计兑换的才上报预期总价，否则让服务端按它的价格结算
	if order.Discount == nil || order.Discount.OrderTotal.Equal(s.cart.Subtotal()) {
		order.ExpectedTotal = decimal.NewNullDecimal(s.DisplayTotal())
	}

	key, err := s.attemptKey(order)
	if err != nil {
		return nil, err
	}
	order.IdempotencyKey = key

	conf, err := s.submitter.Submit(ctx, order)
	var rejection *RejectionError
	switch {
	case err == nil:
		if err := s.cart.Clear(); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("order_id", conf.OrderID).Msg("clear cart after confirmed order")
		}
		s.mu.Lock()
		s.state = sessionState{}
		if err := s.save(); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("order_id", conf.OrderID).Msg("reset checkout state")
		}
		s.mu.Unlock()
		return conf, nil
	case errors.As(err, &rejection):
		// 明确的业务拒绝：这次尝试已经结束，下一次提交使用新键
		s.mu.Lock()
		s.state.PendingKey, s.state.PendingDigest = "", ""
		if saveErr := s.save(); saveErr != nil {
			logger.Ctx(ctx).Warn().Err(saveErr).Msg("rotate idempotency key")
		}
		s.mu.Unlock()
	}
	return nil, err
}

// attemptKey 内容不变时复用待定的幂等键，否则生成新键并先落盘。
func (s *Session) attemptKey(order *Order) (string, error) {
	req := order.request()
	req.IdempotencyKey = ""
	raw, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, "encode order digest")
	}
	sum := sha256.Sum256(raw)
	digest := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.PendingKey != "" && s.state.PendingDigest == digest {
		return s.state.PendingKey, nil
	}
	s.state.PendingKey, s.state.PendingDigest = s.newKey(), digest
	return s.state.PendingKey, s.save()
}

// save 调用方必须持有 s.mu
func (s *Session) save() error {
	raw, err := json.Marshal(s.state)
	if err != nil {
		return errors.Wrap(err, "encode checkout state")
	}
	return errors.Wrap(s.store.Set(StorageKey, raw), "save checkout state")
}
