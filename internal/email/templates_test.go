package email

import (
	"strings"
	"testing"
)

func TestRenderHotLeadTemplate(t *testing.T) {
	content, err := renderEmailTemplate("hot_lead.html", hotLeadEmailData{
		baseEmailData: baseEmailData{Title: "Hot lead detected", Heading: "Hot lead detected"},
		Address:       "123 Main St, Phoenix, AZ",
		Score:         88,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(content, "123 Main St, Phoenix, AZ") {
		t.Fatalf("content missing address:\n%s", content)
	}
	if !strings.Contains(content, "88 / 100") {
		t.Fatalf("content missing score:\n%s", content)
	}
}

func TestRenderCampaignSummaryTemplate(t *testing.T) {
	content, err := renderEmailTemplate("campaign_summary.html", campaignSummaryEmailData{
		baseEmailData: baseEmailData{Title: "Campaign finished", Heading: "Campaign finished"},
		CampaignName:  "March absentee blast",
		Sent:          240,
		Failed:        3,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(content, "March absentee blast") {
		t.Fatalf("content missing campaign name:\n%s", content)
	}
	if !strings.Contains(content, "240") {
		t.Fatalf("content missing sent count:\n%s", content)
	}
}

func TestRenderDailyDigestTemplate(t *testing.T) {
	content, err := renderEmailTemplate("daily_digest.html", dailyDigestEmailData{
		baseEmailData: baseEmailData{Title: "Daily lead digest", Heading: "Your pipeline this morning"},
		Digest: Digest{
			Date:     "2026-03-02",
			NewLeads: 7,
			HotLeads: []DigestLead{
				{Address: "4419 E Osborn Rd", OwnerName: "Maria Delgado", Score: 91, Status: "new"},
			},
			FollowUpsDue: []DigestLead{
				{Address: "118 W Palm Ln", OwnerName: "R. Whitfield", Score: 64, Status: "contacted"},
			},
		},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"7 new leads", "4419 E Osborn Rd", "118 W Palm Ln", "Hot leads", "Follow-ups due"} {
		if !strings.Contains(content, want) {
			t.Fatalf("content missing %q:\n%s", want, content)
		}
	}
}

func TestRenderDailyDigestTemplateEmpty(t *testing.T) {
	content, err := renderEmailTemplate("daily_digest.html", dailyDigestEmailData{
		baseEmailData: baseEmailData{Title: "Daily lead digest", Heading: "Your pipeline this morning"},
		Digest:        Digest{Date: "2026-03-02", NewLeads: 1},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(content, "1 new lead came in") {
		t.Fatalf("singular form missing:\n%s", content)
	}
	if !strings.Contains(content, "No hot leads or overdue follow-ups") {
		t.Fatalf("empty state missing:\n%s", content)
	}
}
