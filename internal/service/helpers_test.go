package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/listing_sub_server/config"
	"github.com/qs3c/listing_sub_server/internal/model"
	"github.com/qs3c/listing_sub_server/internal/pkg/clock"
	"github.com/qs3c/listing_sub_server/internal/pkg/notify"
	"github.com/qs3c/listing_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/listing_sub_server/internal/pkg/queue"
	"github.com/qs3c/listing_sub_server/internal/repository"
	"github.com/qs3c/listing_sub_server/internal/testutil"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fakePublisher struct {
	mu     sync.Mutex
	events []*pubsub.Event
}

func (p *fakePublisher) Publish(ctx context.Context, evt *pubsub.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeNotices struct {
	mu   sync.Mutex
	msgs []*queue.NoticeMessage
}

func (q *fakeNotices) Push(ctx context.Context, msg *queue.NoticeMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, msg)
	return nil
}

type sentMessage struct {
	To   string
	Body string
}

// fakeTransport 记录发送内容，fail 中的收件人返回 TransportError
type fakeTransport struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[string]bool
}

func (f *fakeTransport) Send(ctx context.Context, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[to] {
		return "", &notify.TransportError{Channel: "fake", StatusCode: 502, Err: errors.New("gateway unavailable")}
	}
	f.sent = append(f.sent, sentMessage{To: to, Body: body})
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeArchiver struct {
	runID string
	data  []byte
}

func (a *fakeArchiver) UploadSweepReport(runID string, startedAt time.Time, data []byte) (string, error) {
	a.runID = runID
	a.data = data
	return "https://reports.example.com/" + runID + ".json", nil
}

type testEnv struct {
	db        *gorm.DB
	clock     *clock.Mock
	cfg       *config.Config
	events    *fakePublisher
	notices   *fakeNotices
	transport *fakeTransport

	claimRepo    *repository.ClaimRepository
	subRepo      *repository.SubscriptionRepository
	reminderRepo *repository.ReminderRepository

	claims       *ClaimService
	catalog      *CatalogService
	ledger       *LedgerService
	verification *VerificationService
	entitlement  *EntitlementService
	reminders    *ReminderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := &config.Config{}
	cfg.Reminder.Timezone = "UTC"
	cfg.Reminder.Channel = notify.ChannelSMS
	cfg.Reminder.BrandName = "Listings"
	cfg.Reminder.RenewURL = "https://listings.example.com/renew"
	cfg.ApplyDefaults()

	env := &testEnv{
		db:           db,
		clock:        clock.NewMock(testNow),
		cfg:          cfg,
		events:       &fakePublisher{},
		notices:      &fakeNotices{},
		transport:    &fakeTransport{fail: map[string]bool{}},
		claimRepo:    repository.NewClaimRepository(db),
		subRepo:      repository.NewSubscriptionRepository(db),
		reminderRepo: repository.NewReminderRepository(db),
	}
	userRepo := repository.NewUserRepository(db)

	env.claims = NewClaimService(env.claimRepo, env.events, nil, env.clock, cfg)
	env.catalog = NewCatalogService(repository.NewTierPackageRepository(db), &cfg.Catalog)
	env.ledger = NewLedgerService(env.subRepo, userRepo, env.catalog, env.events, env.clock)
	env.verification = NewVerificationService(db, env.claimRepo, env.ledger, env.events, env.notices, nil, env.clock)
	env.entitlement = NewEntitlementService(env.catalog, env.ledger, &cfg.Entitlement)
	env.reminders = NewReminderService(ReminderDeps{
		SubRepo:      env.subRepo,
		ReminderRepo: env.reminderRepo,
		UserRepo:     userRepo,
		Transport:    env.transport,
		Events:       env.events,
		Clock:        env.clock,
	}, &cfg.Reminder)

	return env
}

// subscriptionEndingIn 创建在 now+d 到期的订阅
func (e *testEnv) subscriptionEndingIn(t *testing.T, subjectID int64, d time.Duration, opts ...func(*model.Subscription)) *model.Subscription {
	t.Helper()
	end := e.clock.Now().Add(d)
	start := end.Add(-30 * day)
	opts = append([]func(*model.Subscription){testutil.WithWindow(start, end)}, opts...)
	return testutil.TestSubscription(t, e.db, subjectID, opts...)
}
