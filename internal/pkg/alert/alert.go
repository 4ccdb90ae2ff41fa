package alert

import (
	"log"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/qs3c/listing_sub_server/config"
)

var enabled bool

// Init 配置了 DSN 时启用 Sentry 上报
func Init(cfg *config.SentryConfig) error {
	if cfg == nil || cfg.DSN == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
	}); err != nil {
		return err
	}
	enabled = true
	return nil
}

// Enabled Sentry 是否已启用
func Enabled() bool {
	return enabled
}

// Report 记录需要人工介入的系统级错误
func Report(component string, err error, tags map[string]string) {
	log.Printf("[ALERT] %s: %v %v", component, err, tags)
	if !enabled {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Flush 退出前等待事件发送
func Flush() {
	if enabled {
		sentry.Flush(2 * time.Second)
	}
}
