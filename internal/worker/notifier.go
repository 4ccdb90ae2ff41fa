package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/listing_sub_server/config"
	"github.com/qs3c/listing_sub_server/internal/model"
	"github.com/qs3c/listing_sub_server/internal/pkg/notify"
	"github.com/qs3c/listing_sub_server/internal/pkg/queue"
	"github.com/qs3c/listing_sub_server/internal/repository"
)

// maxAttempts 通道失败时最多投递次数
const maxAttempts = 3

// NoticeSource 通知来源，实现见 queue.Queue
type NoticeSource interface {
	Push(ctx context.Context, msg *queue.NoticeMessage) error
	Pop(ctx context.Context, timeout time.Duration) (*queue.NoticeMessage, error)
}

// Notifier 消费审核结果通知并通过消息通道发送
type Notifier struct {
	userRepo  *repository.UserRepository
	transport notify.Transport
	source    NoticeSource
	cfg       *config.ReminderConfig
	loc       *time.Location
}

func NewNotifier(
	userRepo *repository.UserRepository,
	transport notify.Transport,
	source NoticeSource,
	cfg *config.ReminderConfig,
) *Notifier {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("Notifier: unknown timezone %q, using UTC", cfg.Timezone)
		loc = time.UTC
	}
	return &Notifier{
		userRepo:  userRepo,
		transport: transport,
		source:    source,
		cfg:       cfg,
		loc:       loc,
	}
}

// Process 发送一条通知；通道错误时重新入队，超过次数后丢弃
func (n *Notifier) Process(ctx context.Context, msg *queue.NoticeMessage) error {
	user, err := n.userRepo.GetByID(ctx, msg.SubjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Notifier: subject %d not found, dropping %s notice", msg.SubjectID, msg.Kind)
			return nil
		}
		return fmt.Errorf("load subject %d: %w", msg.SubjectID, err)
	}

	to, ok := notify.AddressFor(n.cfg.Channel, user)
	if !ok {
		log.Printf("Notifier: subject %d has no %s address, dropping %s notice", msg.SubjectID, n.cfg.Channel, msg.Kind)
		return nil
	}

	body, err := n.FormatNotice(msg)
	if err != nil {
		return err
	}

	id, err := n.transport.Send(ctx, to, body)
	if err != nil {
		return n.retry(ctx, msg, err)
	}

	log.Printf("Notifier: sent %s notice for claim %d to subject %d (%s)", msg.Kind, msg.ClaimID, msg.SubjectID, id)
	return nil
}

func (n *Notifier) retry(ctx context.Context, msg *queue.NoticeMessage, sendErr error) error {
	msg.Attempts++
	if msg.Attempts >= maxAttempts {
		return fmt.Errorf("%s notice for claim %d gave up after %d attempts: %w", msg.Kind, msg.ClaimID, msg.Attempts, sendErr)
	}
	if err := n.source.Push(ctx, msg); err != nil {
		return fmt.Errorf("requeue %s notice for claim %d: %w", msg.Kind, msg.ClaimID, err)
	}
	log.Printf("Notifier: %s notice for claim %d failed (attempt %d), requeued: %v", msg.Kind, msg.ClaimID, msg.Attempts, sendErr)
	return nil
}

// FormatNotice 通知正文，第一行为标题
func (n *Notifier) FormatNotice(msg *queue.NoticeMessage) (string, error) {
	brand := n.cfg.BrandName
	switch msg.Kind {
	case queue.NoticeActivation:
		tier := model.Tier(msg.Tier).DisplayName()
		if msg.EndAt == nil {
			return fmt.Sprintf("%s: payment confirmed\nYour payment (claim #%d) has been verified.", brand, msg.ClaimID), nil
		}
		return fmt.Sprintf("%s: payment confirmed, your %s plan is active\nYour %s plan runs until %s.",
			brand, tier, tier, msg.EndAt.In(n.loc).Format("Mon 02 Jan 2006, 15:04 MST")), nil
	case queue.NoticeRejection:
		return fmt.Sprintf("%s: payment not verified\nWe could not verify your payment (claim #%d). Check the transaction code and submit it again.",
			brand, msg.ClaimID), nil
	default:
		return "", fmt.Errorf("unknown notice kind %q", msg.Kind)
	}
}

// Run 启动 workers 个消费协程，ctx 取消后返回
func (n *Notifier) Run(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}

	done := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		go func(workerID int) {
			defer func() { done <- struct{}{} }()
			n.consume(ctx, workerID)
		}(i)
	}
	for i := 0; i < workers; i++ {
		<-done
	}
}

func (n *Notifier) consume(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			log.Printf("Notifier %d shutting down", workerID)
			return
		default:
			msg, err := n.source.Pop(ctx, 5*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("Notifier %d: failed to pop notice: %v", workerID, err)
				continue
			}

			if msg == nil {
				continue // 超时，继续等待
			}

			if err := n.Process(ctx, msg); err != nil {
				log.Printf("Notifier %d: %v", workerID, err)
			}
		}
	}
}
