package notification

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// PayoutPaid describes a completed partner disbursement.
type PayoutPaid struct {
	PartnerName  string
	PartnerEmail string
	Amount       int64
	Currency     string
	ReceiptURL   string
}

// Sender delivers best-effort partner notifications. Failures never roll back
// a settled payout.
type Sender interface {
	SendPayoutPaid(ctx context.Context, event PayoutPaid) error
}

type sendgridSender struct {
	apiKey   string
	from     string
	fromName string
	log      *zap.Logger
}

// NewSender returns a SendGrid-backed Sender, or a console sender when no API
// key is configured.
func NewSender(apiKey, from, fromName string, log *zap.Logger) Sender {
	log = log.Named("notification")
	if apiKey == "" {
		log.Warn("sendgrid not configured, payout notifications log to console")
		return &consoleSender{log: log}
	}
	return &sendgridSender{
		apiKey:   apiKey,
		from:     from,
		fromName: fromName,
		log:      log,
	}
}

func (s *sendgridSender) SendPayoutPaid(ctx context.Context, event PayoutPaid) error {
	subject := "Your partner payout is on the way"
	amount := formatAmount(event.Amount, event.Currency)
	htmlBody := fmt.Sprintf(`<p>Hi %s,</p><p>Your payout of <strong>%s</strong> has been sent.</p>`,
		event.PartnerName, amount)
	plainText := fmt.Sprintf("Hi %s,\n\nYour payout of %s has been sent.\n", event.PartnerName, amount)
	if event.ReceiptURL != "" {
		htmlBody += fmt.Sprintf(`<p><a href="%s">View receipt</a></p>`, event.ReceiptURL)
		plainText += fmt.Sprintf("\nReceipt: %s\n", event.ReceiptURL)
	}

	from := mail.NewEmail(s.fromName, s.from)
	to := mail.NewEmail(event.PartnerName, event.PartnerEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlBody)

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("send payout email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}

	s.log.Info("payout notification sent",
		zap.String("to", event.PartnerEmail),
		zap.Int("status", response.StatusCode),
	)
	return nil
}

type consoleSender struct {
	log *zap.Logger
}

func (s *consoleSender) SendPayoutPaid(ctx context.Context, event PayoutPaid) error {
	s.log.Info("payout notification (console mode)",
		zap.String("to", event.PartnerEmail),
		zap.String("amount", formatAmount(event.Amount, event.Currency)),
		zap.String("receipt_url", event.ReceiptURL),
	)
	return nil
}

func formatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, currency)
}
