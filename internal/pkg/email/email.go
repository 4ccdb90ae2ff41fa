package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/qs3c/listing_sub_server/config"
	"github.com/qs3c/listing_sub_server/internal/pkg/notify"
)

// Service SMTP 发送通道，实现 notify.Transport
type Service struct {
	cfg      *config.EmailConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewService(cfg *config.EmailConfig) *Service {
	return &Service{cfg: cfg, sendMail: smtp.SendMail}
}

// Send 正文第一行作为邮件标题
func (s *Service) Send(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &notify.TransportError{Channel: notify.ChannelEmail, Err: err}
	}

	subject := body
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		subject = body[:i]
	}
	if err := s.sendPlain(to, strings.TrimSpace(subject), body); err != nil {
		return "", &notify.TransportError{Channel: notify.ChannelEmail, Err: err}
	}
	// SMTP 没有回执 ID，用收件人标识
	return "smtp:" + to, nil
}

// sendPlain 发送纯文本邮件
func (s *Service) sendPlain(to, subject, body string) error {
	headers := [][2]string{
		{"From", s.cfg.From},
		{"To", to},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=UTF-8"},
	}

	var msg strings.Builder
	for _, h := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	return s.sendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg.String()))
}
