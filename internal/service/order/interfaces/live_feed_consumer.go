package interfaces

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"huerta/internal/pkg/logger"
	"huerta/internal/pkg/mq"
	"huerta/internal/service/order/domain"
)

// MessageReader 是 *kafka.Reader 的子集
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Broadcaster 由 push.Hub 实现
type Broadcaster interface {
	Broadcast(msg []byte) bool
}

// LiveFeedConsumer 是一个驱动适配器，它消费订单通知并推送给后台的实时订单流。
type LiveFeedConsumer struct {
	reader  MessageReader
	hub     Broadcaster
	tracer  trace.Tracer
	wg      sync.WaitGroup
	stopped atomic.Bool
}

func NewLiveFeedConsumer(reader MessageReader, hub Broadcaster, tracer trace.Tracer) *LiveFeedConsumer {
	return &LiveFeedConsumer{reader: reader, hub: hub, tracer: tracer}
}

// Start 在后台协程中消费，ctx 结束或调用 Stop 后退出。
func (c *LiveFeedConsumer) Start(ctx context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		logger.Ctx(ctx).Info().Msg("live feed consumer started")
		for {
			if c.stopped.Load() {
				return
			}
			// 使用FetchMessage而不是ReadMessage，以便更好地控制退出逻辑
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || c.stopped.Load() {
					logger.Ctx(ctx).Info().Msg("live feed consumer shutting down")
					return
				}
				logger.Ctx(ctx).Error().Err(err).Msg("could not read message, retrying")
				select {
				case <-time.After(time.Second): // 避免快速失败循环
				case <-ctx.Done():
					return
				}
				continue
			}

			c.processMessage(mq.ExtractTraceContext(ctx, msg), msg)

			// 推送是尽力而为的，无论是否送达都提交 offset
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("failed to commit messages")
			}
		}
	}()
	return nil
}

// Stop 优雅地停止消费者。
func (c *LiveFeedConsumer) Stop(ctx context.Context) {
	c.stopped.Store(true)
	if err := c.reader.Close(); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("close kafka reader")
	}
	c.wg.Wait()
	logger.Ctx(ctx).Info().Msg("live feed consumer stopped")
}

func (c *LiveFeedConsumer) processMessage(ctx context.Context, msg kafka.Message) {
	ctx, span := c.tracer.Start(ctx, "liveFeed.Process", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination.topic", msg.Topic),
		attribute.Int64("messaging.kafka.offset", msg.Offset),
	)

	var event domain.OrderCreated
	if err := json.Unmarshal(msg.Value, &event); err != nil || event.OrderID == "" {
		logger.Ctx(ctx).Warn().Err(err).Int64("offset", msg.Offset).Msg("skipping malformed order notification")
		span.AddEvent("malformed message skipped")
		return
	}
	payload, err := json.Marshal(&event)
	if err != nil {
		span.RecordError(err)
		return
	}
	if !c.hub.Broadcast(payload) {
		logger.Ctx(ctx).Warn().Str("order", event.OrderID).Msg("live feed buffer full, notification dropped")
		span.AddEvent("notification dropped")
	}
}
