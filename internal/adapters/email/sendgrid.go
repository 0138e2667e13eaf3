package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"stayhub/internal/adapters/observability"
	"stayhub/internal/domain"
)

const (
	DefaultHost  = "https://api.sendgrid.com"
	sendEndpoint = "/v3/mail/send"
)

type Config struct {
	APIKey   string
	Host     string
	From     string
	FromName string
	// Sandbox makes SendGrid validate messages without delivering them.
	Sandbox bool
}

// SendGrid delivers transactional email through the v3 mail send API.
type SendGrid struct {
	cfg Config
}

func NewSendGrid(cfg Config) (*SendGrid, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("sendgrid API key is required")
	}
	if cfg.From == "" {
		return nil, errors.New("sender address is required")
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	return &SendGrid{cfg: cfg}, nil
}

func (s *SendGrid) Send(ctx context.Context, m domain.EmailMessage) error {
	from := mail.NewEmail(s.cfg.FromName, s.cfg.From)
	to := mail.NewEmail(m.ToName, m.To)
	msg := mail.NewSingleEmail(from, m.Subject, to, m.Text, m.HTML)
	if s.cfg.Sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		msg.MailSettings = ms
	}

	req := sendgrid.GetRequest(s.cfg.APIKey, sendEndpoint, s.cfg.Host)
	req.Method = "POST"
	req.Body = mail.GetRequestBody(msg)

	start := time.Now()
	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		observability.ObserveExternal("sendgrid", sendEndpoint, 0, time.Since(start))
		return fmt.Errorf("sendgrid send: %w", err)
	}
	observability.ObserveExternal("sendgrid", sendEndpoint, resp.StatusCode, time.Since(start))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
