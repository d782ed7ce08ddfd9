package service

import (
	"math"
	"testing"

	"dealflow_backend/internal/analyzers/transport"
)

func TestCalculateARVFromComps(t *testing.T) {
	// Three identical comps at $150/sqft should put a 1000 sqft subject
	// right at $150k.
	comp := transport.Comp{SalePriceCents: 15_000_000, Sqft: 1000, Condition: "good"}
	result := CalculateARV(transport.ARVRequest{
		Sqft:      1000,
		Condition: "good",
		Comps:     []transport.Comp{comp, comp, comp},
	})

	if result.Method != "comps" {
		t.Fatalf("expected comps method, got %q", result.Method)
	}
	if result.ARVCents != 15_000_000 {
		t.Fatalf("expected ARV of $150k, got %d", result.ARVCents)
	}
	if result.Confidence != "medium" {
		t.Fatalf("expected medium confidence with 3 comps, got %q", result.Confidence)
	}
}

func TestCalculateARVConditionAdjustment(t *testing.T) {
	comp := transport.Comp{SalePriceCents: 15_000_000, Sqft: 1000, Condition: "good"}

	excellent := CalculateARV(transport.ARVRequest{
		Sqft: 1000, Condition: "excellent", Comps: []transport.Comp{comp},
	})
	poor := CalculateARV(transport.ARVRequest{
		Sqft: 1000, Condition: "poor", Comps: []transport.Comp{comp},
	})

	if excellent.ARVCents <= poor.ARVCents {
		t.Fatalf("excellent condition should value above poor: %d vs %d",
			excellent.ARVCents, poor.ARVCents)
	}
}

func TestCalculateARVTrimsExtremes(t *testing.T) {
	comps := []transport.Comp{
		{SalePriceCents: 2_000_000, Sqft: 1000, Condition: "good"}, // outlier low
		{SalePriceCents: 15_000_000, Sqft: 1000, Condition: "good"},
		{SalePriceCents: 15_000_000, Sqft: 1000, Condition: "good"},
		{SalePriceCents: 15_000_000, Sqft: 1000, Condition: "good"},
		{SalePriceCents: 60_000_000, Sqft: 1000, Condition: "good"}, // outlier high
	}
	result := CalculateARV(transport.ARVRequest{Sqft: 1000, Condition: "good", Comps: comps})

	if result.ARVCents != 15_000_000 {
		t.Fatalf("trimmed mean should ignore both outliers, got %d", result.ARVCents)
	}
	if result.CompsUsed != 3 {
		t.Fatalf("expected 3 comps after trimming, got %d", result.CompsUsed)
	}
	if result.Confidence != "medium" {
		t.Fatalf("expected medium confidence, got %q", result.Confidence)
	}
}

func TestCalculateARVAssessedFallback(t *testing.T) {
	result := CalculateARV(transport.ARVRequest{
		Sqft:               1200,
		AssessedValueCents: 10_000_000,
	})

	if result.Method != "assessed_value" {
		t.Fatalf("expected assessed fallback, got %q", result.Method)
	}
	if result.ARVCents != 11_500_000 {
		t.Fatalf("expected assessed x 1.15, got %d", result.ARVCents)
	}
	if result.Confidence != "low" {
		t.Fatalf("assessed fallback should be low confidence, got %q", result.Confidence)
	}
}

func TestCalculateRepairMonotonicInSqft(t *testing.T) {
	table := DefaultCostTable()
	prev := int64(-1)
	for _, sqft := range []int{600, 900, 1200, 1800, 2600, 4000} {
		result := CalculateRepair(transport.RepairRequest{Sqft: sqft, Level: "moderate"}, table)
		if result.TotalCents <= prev {
			t.Fatalf("repair estimate should grow with sqft: %d sqft -> %d, prev %d",
				sqft, result.TotalCents, prev)
		}
		prev = result.TotalCents
	}
}

func TestCalculateRepairLevelsOrdered(t *testing.T) {
	table := DefaultCostTable()
	cosmetic := CalculateRepair(transport.RepairRequest{Sqft: 1500, Level: "cosmetic"}, table)
	moderate := CalculateRepair(transport.RepairRequest{Sqft: 1500, Level: "moderate"}, table)
	fullGut := CalculateRepair(transport.RepairRequest{Sqft: 1500, Level: "full_gut"}, table)

	if !(cosmetic.TotalCents < moderate.TotalCents && moderate.TotalCents < fullGut.TotalCents) {
		t.Fatalf("rehab levels out of order: %d, %d, %d",
			cosmetic.TotalCents, moderate.TotalCents, fullGut.TotalCents)
	}
}

func TestCalculateRepairBigTicketAndRegion(t *testing.T) {
	table := DefaultCostTable()

	plain := CalculateRepair(transport.RepairRequest{Sqft: 1000, Level: "cosmetic"}, table)
	withRoof := CalculateRepair(transport.RepairRequest{
		Sqft: 1000, Level: "cosmetic", BigTicketItems: []string{"roof", "unknown_item"},
	}, table)

	if withRoof.BigTicketCents != 900_000 {
		t.Fatalf("expected $9k roof at default multiplier, got %d", withRoof.BigTicketCents)
	}
	if withRoof.TotalCents <= plain.TotalCents {
		t.Fatalf("big-ticket items should increase the total")
	}

	california := CalculateRepair(transport.RepairRequest{Sqft: 1000, Level: "cosmetic", State: "ca"}, table)
	if california.RegionalMultiplier != 1.35 {
		t.Fatalf("expected CA multiplier 1.35, got %v", california.RegionalMultiplier)
	}
	if california.TotalCents <= plain.TotalCents {
		t.Fatalf("CA estimate should exceed the default region")
	}
}

func TestCalculateMAORules(t *testing.T) {
	base := transport.MAORequest{ARVCents: 20_000_000, RepairCents: 3_000_000}

	standard := CalculateMAO(base)
	if standard.Rule != "70_percent" || standard.PercentUsed != 0.70 {
		t.Fatalf("expected default 70%% rule, got %q at %v", standard.Rule, standard.PercentUsed)
	}
	// 200k * 0.70 - 30k - 10k default fee = 100k
	if standard.MAOCents != 10_000_000 {
		t.Fatalf("expected MAO of $100k, got %d", standard.MAOCents)
	}

	hot := base
	hot.Market = "hot"
	if got := CalculateMAO(hot); got.PercentUsed != 0.75 {
		t.Fatalf("hot market should use 75%%, got %v", got.PercentUsed)
	}

	low := transport.MAORequest{ARVCents: 8_000_000, RepairCents: 1_000_000}
	if got := CalculateMAO(low); got.PercentUsed != 0.65 {
		t.Fatalf("low ARV should use 65%%, got %v", got.PercentUsed)
	}

	override := 0.6
	custom := base
	custom.PercentOverride = &override
	if got := CalculateMAO(custom); got.Rule != "override" || got.PercentUsed != 0.6 {
		t.Fatalf("override should win, got %q at %v", got.Rule, got.PercentUsed)
	}
}

func TestCalculateMAOMonotonicInPercent(t *testing.T) {
	prev := int64(math.MinInt64)
	for _, pct := range []float64{0.5, 0.6, 0.65, 0.7, 0.75, 0.8} {
		p := pct
		result := CalculateMAO(transport.MAORequest{
			ARVCents:        25_000_000,
			RepairCents:     4_000_000,
			PercentOverride: &p,
		})
		if result.MAOCents < prev {
			t.Fatalf("MAO should not decrease as the percentage rises: %v -> %d, prev %d",
				pct, result.MAOCents, prev)
		}
		prev = result.MAOCents
	}
}

func TestCalculateMAONotViableWhenUnderwater(t *testing.T) {
	result := CalculateMAO(transport.MAORequest{
		ARVCents:    10_000_000,
		RepairCents: 9_000_000,
	})
	if result.Viable {
		t.Fatalf("expected a non-viable deal, got MAO %d", result.MAOCents)
	}
}

func TestCalculateCashFlowAmortization(t *testing.T) {
	// $200k price, 25% down -> $150k loan at 6% over 30 years.
	// Closed form: 150000 * 0.005 / (1 - 1.005^-360) = 899.33/mo.
	result := CalculateCashFlow(transport.CashFlowRequest{
		PurchasePriceCents:  20_000_000,
		DownPaymentPercent:  25,
		InterestRatePercent: 6,
		LoanTermYears:       30,
		MonthlyRentCents:    200_000,
	})

	if result.LoanAmountCents != 15_000_000 {
		t.Fatalf("expected $150k loan, got %d", result.LoanAmountCents)
	}
	if result.MonthlyPaymentCents < 89_900 || result.MonthlyPaymentCents > 89_970 {
		t.Fatalf("expected ~$899.33 payment, got %d", result.MonthlyPaymentCents)
	}
}

func TestCalculateCashFlowZeroInterest(t *testing.T) {
	result := CalculateCashFlow(transport.CashFlowRequest{
		PurchasePriceCents: 12_000_000,
		DownPaymentPercent: 0,
		LoanTermYears:      10,
		MonthlyRentCents:   150_000,
	})
	// 120k over 120 payments with no interest.
	if result.MonthlyPaymentCents != 100_000 {
		t.Fatalf("expected $1000 straight-line payment, got %d", result.MonthlyPaymentCents)
	}
}

func TestCalculateCashFlowReservesReduceCashFlow(t *testing.T) {
	base := transport.CashFlowRequest{
		PurchasePriceCents:  15_000_000,
		DownPaymentPercent:  100,
		MonthlyRentCents:    150_000,
		AnnualTaxesCents:    240_000,
		AnnualInsuranceCents: 120_000,
	}

	noReserves := CalculateCashFlow(base)

	withReserves := base
	withReserves.VacancyPercent = 5
	withReserves.MaintenancePercent = 5
	withReserves.ManagementPercent = 8
	withReserves.CapexPercent = 5

	reserved := CalculateCashFlow(withReserves)
	if reserved.MonthlyCashFlowCents >= noReserves.MonthlyCashFlowCents {
		t.Fatalf("reserves should reduce cash flow: %d vs %d",
			reserved.MonthlyCashFlowCents, noReserves.MonthlyCashFlowCents)
	}
	if reserved.CapRatePercent >= noReserves.CapRatePercent {
		t.Fatalf("reserves should reduce cap rate")
	}
}

func TestCalculateCashFlowAllCashHasNoPayment(t *testing.T) {
	result := CalculateCashFlow(transport.CashFlowRequest{
		PurchasePriceCents: 10_000_000,
		DownPaymentPercent: 100,
		MonthlyRentCents:   120_000,
	})
	if result.MonthlyPaymentCents != 0 {
		t.Fatalf("all-cash purchase should carry no mortgage payment, got %d", result.MonthlyPaymentCents)
	}
	if result.MonthlyCashFlowCents != 120_000 {
		t.Fatalf("expected rent to flow through, got %d", result.MonthlyCashFlowCents)
	}
}

func TestCalculateDealScoreOrdering(t *testing.T) {
	great := CalculateDealScore(transport.DealScoreRequest{
		ARVCents:           25_000_000,
		PurchasePriceCents: 13_000_000,
		RepairCents:        2_000_000,
		MonthlyRentCents:   180_000,
		Market:             "hot",
	})
	poor := CalculateDealScore(transport.DealScoreRequest{
		ARVCents:           25_000_000,
		PurchasePriceCents: 24_000_000,
		RepairCents:        5_000_000,
		Market:             "slow",
	})

	if great.Score <= poor.Score {
		t.Fatalf("a wide-spread deal should outscore an underwater one: %d vs %d",
			great.Score, poor.Score)
	}
	if great.Score < 0 || great.Score > 100 || poor.Score < 0 || poor.Score > 100 {
		t.Fatalf("scores out of range: %d, %d", great.Score, poor.Score)
	}
	if poor.SpreadCents >= 0 {
		t.Fatalf("expected a negative spread for the poor deal, got %d", poor.SpreadCents)
	}
}

func TestLoadCostTableRejectsIncomplete(t *testing.T) {
	if _, err := LoadCostTable("testdata/does_not_exist.yaml"); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
