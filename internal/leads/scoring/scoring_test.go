package scoring

import (
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func baseInput() Input {
	return Input{
		LeadCreatedAt: testNow.AddDate(0, 0, -3),
		Status:        "new",
		Now:           testNow,
	}
}

func TestComputeScoreStaysInRange(t *testing.T) {
	// Stack every positive signal.
	auction := testNow.AddDate(0, 0, 10)
	high := baseInput()
	high.Indicators = []Indicator{
		{Type: "pre_foreclosure", Severity: 10, AuctionDate: &auction},
		{Type: "tax_lien", Severity: 10},
		{Type: "probate", Severity: 10},
		{Type: "vacancy", Severity: 10},
	}
	high.EquityPercent = 85
	high.HasEquityData = true
	high.Absentee = true
	high.YearBuilt = 1940
	high.EstimatedValueCents = 20_000_000
	high.InboundMessages = 5
	lastReply := testNow.AddDate(0, 0, -1)
	high.LastInboundAt = &lastReply
	high.ActivityCount = 12
	high.Status = "negotiating"

	result := Compute(high)
	if result.Score < 0 || result.Score > 100 {
		t.Fatalf("score out of range: %d", result.Score)
	}
	if result.Score < 90 {
		t.Fatalf("expected a near-maximal score, got %d", result.Score)
	}

	// Stack every negative signal.
	low := baseInput()
	low.LeadCreatedAt = testNow.AddDate(-1, 0, 0)
	low.EquityPercent = -20
	low.HasEquityData = true
	low.OwnerOccupied = true
	low.EstimatedValueCents = 2_000_000
	low.OutboundMessages = 8
	low.Status = "dead"

	result = Compute(low)
	if result.Score < 0 || result.Score > 100 {
		t.Fatalf("score out of range: %d", result.Score)
	}
	if result.Score >= 50 {
		t.Fatalf("expected a low score, got %d", result.Score)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	in := baseInput()
	in.Indicators = []Indicator{{Type: "tax_lien", Severity: 7}}
	in.EquityPercent = 55
	in.HasEquityData = true

	first := Compute(in)
	second := Compute(in)
	if first.Score != second.Score {
		t.Fatalf("scores differ for identical input: %d vs %d", first.Score, second.Score)
	}
	if first.Version != Version {
		t.Fatalf("expected version %q, got %q", Version, first.Version)
	}
}

func TestHigherSeverityScoresHigher(t *testing.T) {
	mild := baseInput()
	mild.Indicators = []Indicator{{Type: "pre_foreclosure", Severity: 2}}

	severe := baseInput()
	severe.Indicators = []Indicator{{Type: "pre_foreclosure", Severity: 10}}

	if Compute(severe).Score <= Compute(mild).Score {
		t.Fatalf("severity 10 should outscore severity 2")
	}
}

func TestStackedIndicatorsScoreHigher(t *testing.T) {
	single := baseInput()
	single.Indicators = []Indicator{{Type: "tax_lien", Severity: 8}}

	stacked := baseInput()
	stacked.Indicators = []Indicator{
		{Type: "tax_lien", Severity: 8},
		{Type: "vacancy", Severity: 8},
	}

	if Compute(stacked).Score <= Compute(single).Score {
		t.Fatalf("stacked indicators should outscore a single one")
	}
}

func TestAuctionUrgencyTiers(t *testing.T) {
	scoreWithAuction := func(daysOut int) int {
		in := baseInput()
		auction := testNow.AddDate(0, 0, daysOut)
		in.Indicators = []Indicator{{Type: "pre_foreclosure", Severity: 5, AuctionDate: &auction}}
		return Compute(in).Score
	}

	week := scoreWithAuction(7)
	month := scoreWithAuction(25)
	quarter := scoreWithAuction(80)
	distant := scoreWithAuction(200)

	if week <= month || month <= quarter || quarter <= distant {
		t.Fatalf("urgency should decay with distance: %d, %d, %d, %d", week, month, quarter, distant)
	}
}

func TestPastAuctionDateIgnored(t *testing.T) {
	in := baseInput()
	past := testNow.AddDate(0, 0, -5)
	in.Indicators = []Indicator{{Type: "pre_foreclosure", Severity: 5, AuctionDate: &past}}

	result := Compute(in)
	if _, ok := result.Factors["urgency"]; ok {
		t.Fatalf("past auction date should contribute no urgency, got %v", result.Factors["urgency"])
	}
}

func TestEquityOrdering(t *testing.T) {
	scoreWithEquity := func(pct float64) int {
		in := baseInput()
		in.EquityPercent = pct
		in.HasEquityData = true
		return Compute(in).Score
	}

	if scoreWithEquity(80) <= scoreWithEquity(40) {
		t.Fatalf("high equity should outscore moderate equity")
	}
	if scoreWithEquity(40) <= scoreWithEquity(-30) {
		t.Fatalf("moderate equity should outscore underwater")
	}
}

func TestMissingEquityDataIsNeutral(t *testing.T) {
	in := baseInput()
	in.EquityPercent = -50
	in.HasEquityData = false

	result := Compute(in)
	if _, ok := result.Factors["equity"]; ok {
		t.Fatalf("equity should not contribute without data, got %v", result.Factors["equity"])
	}
}

func TestInboundRepliesBeatSilence(t *testing.T) {
	silent := baseInput()
	silent.OutboundMessages = 6

	replied := baseInput()
	replied.OutboundMessages = 6
	replied.InboundMessages = 2
	lastReply := testNow.AddDate(0, 0, -2)
	replied.LastInboundAt = &lastReply

	if Compute(replied).Score <= Compute(silent).Score {
		t.Fatalf("an owner who replies should outscore one who never does")
	}
}

func TestStaleReplyScoresBelowFreshReply(t *testing.T) {
	fresh := baseInput()
	fresh.InboundMessages = 1
	freshReply := testNow.AddDate(0, 0, -2)
	fresh.LastInboundAt = &freshReply

	stale := baseInput()
	stale.InboundMessages = 1
	staleReply := testNow.AddDate(0, 0, -30)
	stale.LastInboundAt = &staleReply

	if Compute(stale).Score >= Compute(fresh).Score {
		t.Fatalf("a month-old reply should score below a fresh one")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{100, ClassHot},
		{80, ClassHot},
		{79, ClassWarm},
		{60, ClassWarm},
		{59, ClassLukewarm},
		{40, ClassLukewarm},
		{39, ClassCold},
		{0, ClassCold},
	}
	for _, tc := range cases {
		if got := Classify(tc.score); got != tc.want {
			t.Errorf("Classify(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestDominantType(t *testing.T) {
	indicators := []Indicator{
		{Type: "vacancy", Severity: 5},
		{Type: "pre_foreclosure", Severity: 5},
		{Type: "code_violation", Severity: 10},
	}
	if got := DominantType(indicators); got != "pre_foreclosure" {
		t.Fatalf("expected pre_foreclosure to dominate, got %q", got)
	}

	if got := DominantType(nil); got != "" {
		t.Fatalf("expected empty dominant type for no indicators, got %q", got)
	}
}

func TestUnknownIndicatorTypeIgnored(t *testing.T) {
	known := baseInput()
	known.Indicators = []Indicator{{Type: "tax_lien", Severity: 5}}

	mixed := baseInput()
	mixed.Indicators = []Indicator{
		{Type: "tax_lien", Severity: 5},
		{Type: "alien_abduction", Severity: 10},
	}

	if Compute(mixed).Score != Compute(known).Score {
		t.Fatalf("unknown indicator types should not affect the score")
	}
}

func TestFreshLeadOutscoresStaleLead(t *testing.T) {
	fresh := baseInput()
	fresh.LeadCreatedAt = testNow.AddDate(0, 0, -2)

	stale := baseInput()
	stale.LeadCreatedAt = testNow.AddDate(0, -8, 0)

	if Compute(stale).Score >= Compute(fresh).Score {
		t.Fatalf("a fresh lead should outscore a stale one")
	}
}
