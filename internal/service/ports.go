package service

import (
	"context"
	"log"
	"time"

	"github.com/qs3c/listing_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/listing_sub_server/internal/pkg/queue"
)

// EventPublisher 生命周期事件出口，实现见 pubsub.Publisher
type EventPublisher interface {
	Publish(ctx context.Context, evt *pubsub.Event) error
}

// NoticeQueue 通知队列，实现见 queue.Queue
type NoticeQueue interface {
	Push(ctx context.Context, msg *queue.NoticeMessage) error
}

// ReportArchiver 扫描报告归档，实现见 oss.Client
type ReportArchiver interface {
	UploadSweepReport(runID string, startedAt time.Time, data []byte) (string, error)
}

// publishEvent 事件发布失败只记录日志，不影响主流程
func publishEvent(ctx context.Context, pub EventPublisher, evt *pubsub.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, evt); err != nil {
		log.Printf("Event: publish %s for subject %d failed: %v", evt.Type, evt.UserID, err)
	}
}
