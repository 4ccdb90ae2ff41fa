package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/qs3c/listing_sub_server/internal/model"
)

const (
	ChannelWhatsApp = "whatsapp"
	ChannelSMS      = "sms"
	ChannelEmail    = "email"
	ChannelLog      = "log"
)

// Transport 消息发送通道，返回网关侧的消息 ID
type Transport interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// TransportError 发送失败
type TransportError struct {
	Channel    string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s transport: status %d: %v", e.Channel, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s transport: %v", e.Channel, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AddressFor 按通道取收件地址
func AddressFor(channel string, user *model.User) (string, bool) {
	if user == nil {
		return "", false
	}
	switch strings.ToLower(channel) {
	case ChannelEmail:
		if user.Email == nil || *user.Email == "" {
			return "", false
		}
		return *user.Email, true
	default:
		if user.Phone == "" {
			return "", false
		}
		return user.Phone, true
	}
}

// LogTransport 开发环境使用，只打印日志
type LogTransport struct{}

func (LogTransport) Send(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &TransportError{Channel: ChannelLog, Err: err}
	}
	id := "log-" + uuid.NewString()
	log.Printf("Notify: to=%s id=%s body=%q", to, id, body)
	return id, nil
}
