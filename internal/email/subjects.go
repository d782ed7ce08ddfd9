package email

// Email subject lines.
const (
	subjectHotLeadFmt         = "Hot lead: %s"
	subjectCampaignSummaryFmt = "Campaign %q finished"
	subjectDailyDigestFmt     = "Lead digest for %s"
)
