// Package email renders and delivers transactional email over SMTP.
package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"dealflow_backend/platform/config"
)

// SMTPSender delivers HTML email via a direct SMTP connection using go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates an SMTPSender from configuration. Returns nil when
// email delivery is disabled; callers treat a nil sender as a no-op channel.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	if !cfg.GetEmailEnabled() {
		return nil
	}
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// SendHotLeadAlert notifies an agent that a lead crossed the hot threshold.
func (s *SMTPSender) SendHotLeadAlert(ctx context.Context, toEmail, address string, score int) error {
	subject := fmt.Sprintf(subjectHotLeadFmt, address)
	content, err := renderEmailTemplate("hot_lead.html", hotLeadEmailData{
		baseEmailData: baseEmailData{
			Title:   "Hot lead detected",
			Heading: "Hot lead detected",
		},
		Address: address,
		Score:   score,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

// SendCampaignSummary reports the outcome of a finished SMS campaign.
func (s *SMTPSender) SendCampaignSummary(ctx context.Context, toEmail, campaignName string, sent, failed int) error {
	subject := fmt.Sprintf(subjectCampaignSummaryFmt, campaignName)
	content, err := renderEmailTemplate("campaign_summary.html", campaignSummaryEmailData{
		baseEmailData: baseEmailData{
			Title:   "Campaign finished",
			Heading: "Campaign finished",
		},
		CampaignName: campaignName,
		Sent:         sent,
		Failed:       failed,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

// SendDailyDigest delivers the morning pipeline digest to an agent.
func (s *SMTPSender) SendDailyDigest(ctx context.Context, toEmail string, digest Digest) error {
	subject := fmt.Sprintf(subjectDailyDigestFmt, digest.Date)
	content, err := renderEmailTemplate("daily_digest.html", dailyDigestEmailData{
		baseEmailData: baseEmailData{
			Title:   "Daily lead digest",
			Heading: "Your pipeline this morning",
		},
		Digest: digest,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}
