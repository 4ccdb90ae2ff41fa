package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/listing_sub_server/config"
	"github.com/qs3c/listing_sub_server/internal/pkg/email"
	"github.com/qs3c/listing_sub_server/internal/pkg/notify"
	"github.com/qs3c/listing_sub_server/internal/testutil"
)

func TestNewTransport(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		want    interface{}
		wantErr bool
	}{
		{"log", func(c *config.Config) { c.Reminder.Channel = "log" }, notify.LogTransport{}, false},
		{"default", func(c *config.Config) {}, notify.LogTransport{}, false},
		{"sms", func(c *config.Config) {
			c.Reminder.Channel = "sms"
			c.Messaging.GatewayURL = "https://gateway.example.com/send"
		}, &notify.GatewayClient{}, false},
		{"whatsapp without gateway", func(c *config.Config) { c.Reminder.Channel = "whatsapp" }, nil, true},
		{"email", func(c *config.Config) {
			c.Reminder.Channel = "email"
			c.Email.SMTPHost = "smtp.example.com"
		}, &email.Service{}, false},
		{"email without host", func(c *config.Config) { c.Reminder.Channel = "email" }, nil, true},
		{"unknown", func(c *config.Config) { c.Reminder.Channel = "pigeon" }, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			tt.mutate(cfg)

			transport, err := NewTransport(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, transport)
		})
	}
}

func TestBuild_WithoutRedis(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	cfg := &config.Config{}
	cfg.ApplyDefaults()

	app, err := Build(cfg, db, nil, prometheus.NewRegistry())
	require.NoError(t, err)

	assert.Nil(t, app.Publisher)
	assert.Nil(t, app.Notices)

	// 未连接 Redis 时仍可完成一次扫描
	report, err := app.Reminders.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Candidates)
}

func TestBuild_WithRedis(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := &config.Config{}
	cfg.Queue.NotificationQueue = "test:notices"
	cfg.ApplyDefaults()

	app, err := Build(cfg, db, rdb, prometheus.NewRegistry())
	require.NoError(t, err)
	require.NotNil(t, app.Notices)

	user := testutil.TestUser(t, db)
	claim := testutil.TestClaim(t, db, user.ID)

	_, err = app.Verification.Verify(context.Background(), claim.ID, 1)
	require.NoError(t, err)

	length, err := app.Notices.Length(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	info, err := app.Entitlement.ForSubject(context.Background(), user.ID, 0)
	require.NoError(t, err)
	assert.True(t, info.Entitled)
}

func TestBuild_MetricsRegisteredOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	cfg := &config.Config{}
	cfg.ApplyDefaults()
	reg := prometheus.NewRegistry()

	_, err := Build(cfg, db, nil, reg)
	require.NoError(t, err)

	_, err = Build(cfg, db, nil, reg)
	assert.Error(t, err)
}
