package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title    string
	Heading  string
	CTALabel string
	CTAURL   string
}

type hotLeadEmailData struct {
	baseEmailData
	Address string
	Score   int
}

type campaignSummaryEmailData struct {
	baseEmailData
	CampaignName string
	Sent         int
	Failed       int
}

// DigestLead is one lead row in the digest email.
type DigestLead struct {
	Address   string
	OwnerName string
	Score     int
	Status    string
}

// Digest carries the content of the daily digest email.
type Digest struct {
	Date         string
	NewLeads     int
	HotLeads     []DigestLead
	FollowUpsDue []DigestLead
}

type dailyDigestEmailData struct {
	baseEmailData
	Digest
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
