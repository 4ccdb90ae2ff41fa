package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelSubscriptionEvents = "subscription_events"
)

// 事件类型
const (
	EventClaimSubmitted         = "claim_submitted"
	EventClaimVerified          = "claim_verified"
	EventClaimRejected          = "claim_rejected"
	EventSubscriptionActivated  = "subscription_activated"
	EventSubscriptionSuspended  = "subscription_suspended"
	EventSubscriptionReinstated = "subscription_reinstated"
	EventReminderSent           = "reminder_sent"
	EventSweepCompleted         = "sweep_completed"
)

// Event 订阅生命周期事件，UserID 为 0 表示运营侧事件
type Event struct {
	Type           string     `json:"type"`
	UserID         int64      `json:"user_id"`
	ClaimID        int64      `json:"claim_id,omitempty"`
	SubscriptionID int64      `json:"subscription_id,omitempty"`
	Tier           string     `json:"tier,omitempty"`
	DurationType   string     `json:"duration_type,omitempty"`
	EndAt          *time.Time `json:"end_at,omitempty"`
	Message        string     `json:"message,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish 发布事件，未设置时间时补当前时间
func (p *Publisher) Publish(ctx context.Context, evt *Event) error {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.client.Publish(ctx, ChannelSubscriptionEvents, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 阻塞消费事件直到 ctx 结束
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*Event)) error {
	ps := s.client.Subscribe(ctx, ChannelSubscriptionEvents)
	defer ps.Close()

	// 等待订阅确认，避免错过紧随其后的发布
	if _, err := ps.Receive(ctx); err != nil {
		return err
	}

	ch := ps.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				continue // 忽略解析错误
			}

			handler(&evt)
		}
	}
}
