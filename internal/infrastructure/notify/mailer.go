// Package notify sends the end-of-run error report by mail.
package notify

import (
	"context"
	"errors"
	"fmt"

	mail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/dropship/invoicer/internal/application/pipeline"
	"github.com/dropship/invoicer/internal/domain/report"
	"github.com/dropship/invoicer/internal/infrastructure/config"
)

const reportSubject = "Dropshipper Invoice Error Report"

// Mailer implements pipeline.Notifier over SMTP.
type Mailer struct {
	config *config.MailConfig
	logger *zap.Logger
}

// NewMailer creates a mailer from configuration.
func NewMailer(cfg *config.MailConfig, logger *zap.Logger) (*Mailer, error) {
	if cfg == nil {
		return nil, errors.New("mail configuration is required")
	}
	if cfg.Host == "" {
		return nil, errors.New("mail host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("mail sender address is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{config: cfg, logger: logger}, nil
}

// SendErrorReport mails the report to the configured recipients. With
// no recipients resolved there is nowhere to send, so the report is
// logged and dropped.
func (m *Mailer) SendErrorReport(ctx context.Context, rep report.Report) error {
	recipients := m.resolveRecipients()
	if len(recipients) == 0 {
		m.logger.Warn("No report recipients configured, dropping report",
			zap.String("body", rep.PlainBody()))
		return nil
	}

	msg, err := m.buildMessage(rep, recipients)
	if err != nil {
		return err
	}

	client, err := m.newClient()
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("notify: failed to send report: %w", err)
	}

	m.logger.Info("Error report sent", zap.Strings("recipients", recipients))
	return nil
}

// resolveRecipients returns the override address alone when one is
// set, otherwise the configured list.
func (m *Mailer) resolveRecipients() []string {
	if m.config.OverrideRecipient != "" {
		return []string{m.config.OverrideRecipient}
	}
	return m.config.Recipients
}

func (m *Mailer) buildMessage(rep report.Report, recipients []string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.config.From); err != nil {
		return nil, fmt.Errorf("notify: invalid sender %s: %w", m.config.From, err)
	}
	if err := msg.To(recipients...); err != nil {
		return nil, fmt.Errorf("notify: invalid recipients: %w", err)
	}
	msg.Subject(reportSubject)

	body := rep.PlainBody()
	msg.SetBodyString(mail.TypeTextPlain, body)
	msg.AddAlternativeString(mail.TypeTextHTML, "<pre>\n"+body+"\n</pre>")
	return msg, nil
}

func (m *Mailer) newClient() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(m.config.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.config.Username),
			mail.WithPassword(m.config.Password),
		)
	}
	client, err := mail.NewClient(m.config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("notify: failed to create mail client: %w", err)
	}
	return client, nil
}

// Ensure Mailer implements the notifier interface
var _ pipeline.Notifier = (*Mailer)(nil)
