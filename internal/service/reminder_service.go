package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qs3c/listing_sub_server/config"
	"github.com/qs3c/listing_sub_server/internal/model"
	"github.com/qs3c/listing_sub_server/internal/model/dto"
	"github.com/qs3c/listing_sub_server/internal/pkg/clock"
	"github.com/qs3c/listing_sub_server/internal/pkg/lock"
	"github.com/qs3c/listing_sub_server/internal/pkg/metrics"
	"github.com/qs3c/listing_sub_server/internal/pkg/notify"
	"github.com/qs3c/listing_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/listing_sub_server/internal/repository"
)

// ErrSweepInProgress 已有扫描在执行
var ErrSweepInProgress = errors.New("reminder sweep already running")

const (
	sweepLockKey = "reminder:sweep"

	// itemSkipped 只出现在扫描报告里，不落库
	itemSkipped model.ReminderStatus = "skipped"

	// 回写发送结果的超时，不受扫描 ctx 取消影响
	outcomeSaveTimeout = 5 * time.Second

	defaultLogLimit = 50
	maxLogLimit     = 200
)

// Classify 按剩余时间 d = endAt - now 判断应发送的提醒类型
//
//	3_days:     2d <= d <= 3d
//	1_day:      0 < d <= 1d
//	expiry_day: -1d < d <= 0
func Classify(endAt, now time.Time) (model.ReminderType, bool) {
	d := endAt.Sub(now)
	switch {
	case d >= 2*day && d <= 3*day:
		return model.ReminderThreeDays, true
	case d > 0 && d <= day:
		return model.ReminderOneDay, true
	case d > -day && d <= 0:
		return model.ReminderExpiryDay, true
	default:
		return "", false
	}
}

// ReminderDeps 提醒扫描依赖，Locker/Events/Archiver/Metrics 可为空
type ReminderDeps struct {
	SubRepo      *repository.SubscriptionRepository
	ReminderRepo *repository.ReminderRepository
	UserRepo     *repository.UserRepository
	Transport    notify.Transport
	Locker       *lock.Locker
	Events       EventPublisher
	Archiver     ReportArchiver
	Metrics      *metrics.Recorder
	Clock        clock.Clock
}

type ReminderService struct {
	ReminderDeps
	cfg     *config.ReminderConfig
	loc     *time.Location
	lockTTL time.Duration
	// 未配置 Redis 时退化为进程内互斥
	localMu sync.Mutex
}

func NewReminderService(deps ReminderDeps, cfg *config.ReminderConfig) *ReminderService {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("Reminder: unknown timezone %q, using UTC: %v", cfg.Timezone, err)
		loc = time.UTC
	}
	return &ReminderService{
		ReminderDeps: deps,
		cfg:          cfg,
		loc:          loc,
		lockTTL:      time.Duration(cfg.LockTTLSeconds) * time.Second,
	}
}

// acquire 获取扫描锁，返回释放函数
func (s *ReminderService) acquire(ctx context.Context) (func(), error) {
	if s.Locker == nil {
		if !s.localMu.TryLock() {
			return nil, ErrSweepInProgress
		}
		return s.localMu.Unlock, nil
	}

	lk, err := s.Locker.Acquire(ctx, sweepLockKey, s.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, ErrSweepInProgress
		}
		return nil, fmt.Errorf("acquire sweep lock: %w", err)
	}
	return func() {
		// 扫描的 ctx 可能已取消，释放锁用独立的 ctx
		if err := lk.Release(context.Background()); err != nil {
			log.Printf("Reminder: release sweep lock failed: %v", err)
		}
	}, nil
}

// Sweep 扫描即将到期和刚到期的订阅并发送提醒，单条失败不影响其他订阅
func (s *ReminderService) Sweep(ctx context.Context) (*dto.SweepReport, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrSweepInProgress) {
			s.Metrics.SweepFinished("locked", 0)
		}
		return nil, err
	}
	defer release()

	now := s.Clock.Now()
	report := &dto.SweepReport{RunID: uuid.NewString(), StartedAt: now}

	subs, err := s.SubRepo.ListReminderCandidates(ctx, now.Add(-day), now.Add(3*day))
	if err != nil {
		s.Metrics.SweepFinished("error", s.Clock.Now().Sub(now))
		return nil, fmt.Errorf("list reminder candidates: %w", err)
	}
	report.Candidates = len(subs)

	subjectIDs := make([]int64, 0, len(subs))
	for _, sub := range subs {
		subjectIDs = append(subjectIDs, sub.SubjectID)
	}
	users, err := s.UserRepo.GetByIDs(ctx, subjectIDs)
	if err != nil {
		s.Metrics.SweepFinished("error", s.Clock.Now().Sub(now))
		return nil, fmt.Errorf("load subjects: %w", err)
	}

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			log.Printf("Reminder: sweep %s interrupted after %d items: %v", report.RunID, len(report.Items), err)
			break
		}

		item := s.remindOne(ctx, sub, users[sub.SubjectID], now)
		switch item.Status {
		case model.ReminderSent:
			report.Sent++
		case model.ReminderFailed:
			report.Failed++
		default:
			report.Skipped++
		}
		report.Items = append(report.Items, item)
	}

	report.FinishedAt = s.Clock.Now()
	log.Printf("Reminder: sweep %s done, candidates=%d sent=%d failed=%d skipped=%d",
		report.RunID, report.Candidates, report.Sent, report.Failed, report.Skipped)
	s.Metrics.SweepFinished("ok", report.FinishedAt.Sub(report.StartedAt))

	publishEvent(ctx, s.Events, &pubsub.Event{
		Type:       pubsub.EventSweepCompleted,
		Message:    fmt.Sprintf("sent=%d failed=%d skipped=%d", report.Sent, report.Failed, report.Skipped),
		OccurredAt: report.FinishedAt,
	})
	s.archive(report)

	return report, nil
}

// remindOne 先提交占位行，再发送，最后回写结果；占位行一旦提交，同一阈值不会再发
func (s *ReminderService) remindOne(ctx context.Context, sub *model.Subscription, user *model.User, now time.Time) dto.SweepItem {
	item := dto.SweepItem{SubscriptionID: sub.ID, SubjectID: sub.SubjectID}

	typ, ok := Classify(sub.EndAt, now)
	if !ok {
		item.Status = itemSkipped
		return item
	}
	item.ReminderType = typ

	exists, err := s.ReminderRepo.Exists(ctx, sub.ID, typ, sub.EndAt)
	if err != nil {
		item.Status = model.ReminderFailed
		item.Error = err.Error()
		return item
	}
	if exists {
		item.Status = itemSkipped
		return item
	}

	// 占位状态为 failed；进程在发送途中退出时保留该行，不会重发
	entry := &model.ReminderLog{
		SubjectID:      sub.SubjectID,
		SubscriptionID: sub.ID,
		ReminderType:   typ,
		PeriodEndAt:    sub.EndAt,
		SentAt:         now,
		Status:         model.ReminderFailed,
		ErrorMessage:   "dispatch not confirmed",
	}

	reserved, err := s.ReminderRepo.Reserve(ctx, entry)
	if err != nil {
		log.Printf("Reminder: subscription %d %s reserve failed: %v", sub.ID, typ, err)
		item.Status = model.ReminderFailed
		item.Error = err.Error()
		return s.finish(ctx, sub, item, now)
	}
	if !reserved {
		item.Status = itemSkipped
		return item
	}

	msgID, sendErr := s.send(ctx, typ, sub, user)
	entry.SentAt = s.Clock.Now()
	if sendErr != nil {
		entry.Status = model.ReminderFailed
		entry.ErrorMessage = sendErr.Error()
	} else {
		entry.Status = model.ReminderSent
		entry.ExternalMessageID = msgID
		entry.ErrorMessage = ""
	}
	item.Status = entry.Status
	item.MessageID = entry.ExternalMessageID
	item.Error = entry.ErrorMessage

	// 扫描被取消时消息可能已经发出，结果仍要落库
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), outcomeSaveTimeout)
	defer cancel()
	if err := s.ReminderRepo.SaveOutcome(saveCtx, entry); err != nil {
		log.Printf("Reminder: subscription %d %s outcome %s not saved: %v", sub.ID, typ, entry.Status, err)
	}

	return s.finish(ctx, sub, item, entry.SentAt)
}

func (s *ReminderService) finish(ctx context.Context, sub *model.Subscription, item dto.SweepItem, at time.Time) dto.SweepItem {
	typ := item.ReminderType
	if item.Status == model.ReminderSent || item.Status == model.ReminderFailed {
		s.Metrics.ReminderSent(string(typ), string(item.Status))
	}
	if item.Status == model.ReminderSent {
		end := sub.EndAt
		publishEvent(ctx, s.Events, &pubsub.Event{
			Type:           pubsub.EventReminderSent,
			UserID:         sub.SubjectID,
			SubscriptionID: sub.ID,
			Tier:           string(sub.Tier),
			EndAt:          &end,
			Message:        string(typ),
			OccurredAt:     at,
		})
	}
	return item
}

func (s *ReminderService) send(ctx context.Context, typ model.ReminderType, sub *model.Subscription, user *model.User) (string, error) {
	if user == nil {
		return "", fmt.Errorf("subject %d not found", sub.SubjectID)
	}
	to, ok := notify.AddressFor(s.cfg.Channel, user)
	if !ok {
		return "", fmt.Errorf("subject %d has no %s address", sub.SubjectID, s.cfg.Channel)
	}
	return s.Transport.Send(ctx, to, s.FormatMessage(typ, sub, user))
}

// FormatMessage 第一行为标题，语气随提醒类型逐级加重
func (s *ReminderService) FormatMessage(typ model.ReminderType, sub *model.Subscription, user *model.User) string {
	name := "there"
	if user != nil && strings.TrimSpace(user.DisplayName) != "" {
		name = user.DisplayName
	}
	tier := sub.Tier.DisplayName()
	expiry := sub.EndAt.In(s.loc).Format("Mon 02 Jan 2006, 15:04 MST")

	var title, body string
	switch typ {
	case model.ReminderThreeDays:
		title = fmt.Sprintf("%s: your %s plan expires in 3 days", s.cfg.BrandName, tier)
		body = fmt.Sprintf("Hi %s, your %s subscription runs until %s. Renew early to keep your listings visible without a break.",
			name, tier, expiry)
	case model.ReminderOneDay:
		title = fmt.Sprintf("%s: your %s plan expires tomorrow", s.cfg.BrandName, tier)
		body = fmt.Sprintf("Hi %s, your %s subscription ends on %s. Renew today so your listings stay online.",
			name, tier, expiry)
	default:
		title = fmt.Sprintf("%s: final notice, your %s plan has expired", s.cfg.BrandName, tier)
		body = fmt.Sprintf("Hi %s, your %s subscription expired on %s. Your upload limits are now reduced until you renew.",
			name, tier, expiry)
	}

	msg := title + "\n" + body
	if s.cfg.RenewURL != "" {
		msg += "\nRenew: " + s.cfg.RenewURL
	}
	return msg
}

// archive 报告归档失败只记录日志
func (s *ReminderService) archive(report *dto.SweepReport) {
	if s.Archiver == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		log.Printf("Reminder: marshal sweep report %s failed: %v", report.RunID, err)
		return
	}
	url, err := s.Archiver.UploadSweepReport(report.RunID, report.StartedAt, data)
	if err != nil {
		log.Printf("Reminder: archive sweep report %s failed: %v", report.RunID, err)
		return
	}
	report.ArchiveURL = url
}

// ListLogs 某个订阅的提醒记录
func (s *ReminderService) ListLogs(ctx context.Context, subscriptionID int64, limit int) ([]*model.ReminderLog, error) {
	if subscriptionID <= 0 {
		return nil, &ValidationError{Field: "subscription_id", Reason: "must be positive"}
	}
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	return s.ReminderRepo.ListBySubscription(ctx, subscriptionID, limit)
}
