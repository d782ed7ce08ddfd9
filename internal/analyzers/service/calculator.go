// Package service implements the deal analyzers: ARV, repair estimate,
// maximum allowable offer, rental cash flow, and the composite deal score.
// The calculators are pure functions; Service wraps them with the cost
// table and the lead activity log.
package service

import (
	"math"
	"sort"
	"strings"

	"dealflow_backend/internal/analyzers/transport"
)

// Condition ranks for comp adjustment. Each step is worth 5% of price.
var conditionRank = map[string]int{
	"poor":      0,
	"fair":      1,
	"good":      2,
	"excellent": 3,
}

const (
	conditionStepAdjustment = 0.05
	agePerDecadeAdjustment  = 0.01
	maxAgeAdjustment        = 0.05

	// Fallback when no usable comps exist: assessed values typically run
	// below market, so scale up.
	assessedValueMultiplier = 1.15

	defaultWholesaleFeeCents  = 1_000_000 // $10k
	lowARVThresholdCents      = 10_000_000
	defaultContingencyPercent = 10.0
	defaultLoanTermYears      = 30
)

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}

// CalculateARV estimates after-repair value from comparable sales. Each
// comp's price per square foot is adjusted toward the subject's condition
// and age, then averaged with the extremes trimmed when enough comps exist.
func CalculateARV(req transport.ARVRequest) transport.ARVResponse {
	subjectRank, ok := conditionRank[req.Condition]
	if !ok {
		subjectRank = conditionRank["good"]
	}

	var adjusted []float64
	for _, comp := range req.Comps {
		if comp.Sqft <= 0 || comp.SalePriceCents <= 0 {
			continue
		}
		ppsf := float64(comp.SalePriceCents) / float64(comp.Sqft)

		if rank, ok := conditionRank[comp.Condition]; ok {
			ppsf *= 1 + conditionStepAdjustment*float64(subjectRank-rank)
		}
		if comp.YearBuilt > 0 && req.YearBuilt > 0 {
			ageAdj := agePerDecadeAdjustment * float64(req.YearBuilt-comp.YearBuilt) / 10
			if ageAdj > maxAgeAdjustment {
				ageAdj = maxAgeAdjustment
			}
			if ageAdj < -maxAgeAdjustment {
				ageAdj = -maxAgeAdjustment
			}
			ppsf *= 1 + ageAdj
		}
		adjusted = append(adjusted, ppsf)
	}

	if len(adjusted) == 0 {
		if req.AssessedValueCents > 0 {
			arv := roundCents(float64(req.AssessedValueCents) * assessedValueMultiplier)
			return transport.ARVResponse{
				ARVCents:          arv,
				PricePerSqftCents: roundCents(float64(arv) / float64(req.Sqft)),
				Method:            "assessed_value",
				Confidence:        "low",
			}
		}
		return transport.ARVResponse{Method: "none", Confidence: "none"}
	}

	sort.Float64s(adjusted)
	usable := adjusted
	// Trim one from each end once there are enough comps to spare them.
	if len(adjusted) >= 5 {
		usable = adjusted[1 : len(adjusted)-1]
	}

	var sum float64
	for _, v := range usable {
		sum += v
	}
	meanPpsf := sum / float64(len(usable))
	arv := roundCents(meanPpsf * float64(req.Sqft))

	confidence := "low"
	switch {
	case len(usable) >= 5:
		confidence = "high"
	case len(usable) >= 3:
		confidence = "medium"
	}

	prices := make([]int64, 0, len(adjusted))
	for _, v := range adjusted {
		prices = append(prices, roundCents(v))
	}

	return transport.ARVResponse{
		ARVCents:          arv,
		PricePerSqftCents: roundCents(meanPpsf),
		CompsUsed:         len(usable),
		Method:            "comps",
		Confidence:        confidence,
		CompPricesPerSqft: prices,
	}
}

// CalculateRepair estimates rehab cost: a per-sqft base by rehab level,
// plus named big-ticket systems, times the regional multiplier, plus a
// contingency. For a fixed level the estimate grows with square footage.
func CalculateRepair(req transport.RepairRequest, table CostTable) transport.RepairResponse {
	basePerSqft := table.BasePerSqft[req.Level]
	multiplier := table.multiplierFor(strings.ToUpper(req.State))

	baseCents := roundCents(basePerSqft * 100 * float64(req.Sqft) * multiplier)

	lineItems := []transport.RepairLineItem{
		{Name: req.Level + " rehab base", CostCents: baseCents},
	}

	var bigTicketCents int64
	for _, item := range req.BigTicketItems {
		cost, ok := table.BigTicket[strings.ToLower(strings.TrimSpace(item))]
		if !ok {
			continue
		}
		itemCents := roundCents(cost * 100 * multiplier)
		bigTicketCents += itemCents
		lineItems = append(lineItems, transport.RepairLineItem{Name: item, CostCents: itemCents})
	}

	contingencyPercent := req.ContingencyPercent
	if contingencyPercent == 0 {
		contingencyPercent = defaultContingencyPercent
	}
	subtotal := baseCents + bigTicketCents
	contingencyCents := roundCents(float64(subtotal) * contingencyPercent / 100)
	lineItems = append(lineItems, transport.RepairLineItem{Name: "contingency", CostCents: contingencyCents})

	total := subtotal + contingencyCents

	return transport.RepairResponse{
		TotalCents:         total,
		BaseCents:          baseCents,
		BigTicketCents:     bigTicketCents,
		ContingencyCents:   contingencyCents,
		RegionalMultiplier: multiplier,
		PerSqftCents:       roundCents(float64(total) / float64(req.Sqft)),
		LineItems:          lineItems,
	}
}

// CalculateMAO computes the maximum allowable offer: a percentage of ARV
// minus repairs and the wholesale fee. The percentage follows the 70% rule,
// shifted up in hot markets and down for low-ARV properties where fixed
// costs eat a bigger share.
func CalculateMAO(req transport.MAORequest) transport.MAOResponse {
	fee := req.WholesaleFeeCents
	if fee == 0 {
		fee = defaultWholesaleFeeCents
	}

	pct := 0.70
	rule := "70_percent"
	switch {
	case req.PercentOverride != nil:
		pct = *req.PercentOverride
		rule = "override"
	case req.ARVCents < lowARVThresholdCents:
		pct = 0.65
		rule = "low_arv_65_percent"
	case req.Market == "hot":
		pct = 0.75
		rule = "hot_market_75_percent"
	}

	mao := roundCents(float64(req.ARVCents)*pct) - req.RepairCents - fee

	return transport.MAOResponse{
		MAOCents:          mao,
		PercentUsed:       pct,
		Rule:              rule,
		ARVCents:          req.ARVCents,
		RepairCents:       req.RepairCents,
		WholesaleFeeCents: fee,
		Viable:            mao > 0,
	}
}

// CalculateCashFlow runs a rental analysis: amortized mortgage payment,
// taxes and insurance, percentage-based operating reserves, cap rate,
// and cash-on-cash return.
func CalculateCashFlow(req transport.CashFlowRequest) transport.CashFlowResponse {
	price := float64(req.PurchasePriceCents)
	downPayment := price * req.DownPaymentPercent / 100
	loanAmount := price - downPayment

	termYears := req.LoanTermYears
	if termYears == 0 {
		termYears = defaultLoanTermYears
	}
	payments := float64(termYears * 12)

	var monthlyPayment float64
	if loanAmount > 0 {
		monthlyRate := req.InterestRatePercent / 100 / 12
		if monthlyRate == 0 {
			monthlyPayment = loanAmount / payments
		} else {
			monthlyPayment = loanAmount * monthlyRate / (1 - math.Pow(1+monthlyRate, -payments))
		}
	}

	rent := float64(req.MonthlyRentCents)
	monthlyTaxes := float64(req.AnnualTaxesCents) / 12
	monthlyInsurance := float64(req.AnnualInsuranceCents) / 12
	piti := monthlyPayment + monthlyTaxes + monthlyInsurance

	reservePercent := req.VacancyPercent + req.MaintenancePercent + req.ManagementPercent + req.CapexPercent
	monthlyExpenses := rent * reservePercent / 100

	monthlyCashFlow := rent - piti - monthlyExpenses

	// NOI excludes debt service.
	noi := (rent-monthlyExpenses)*12 - float64(req.AnnualTaxesCents) - float64(req.AnnualInsuranceCents)

	var capRate float64
	if price > 0 {
		capRate = noi / price * 100
	}

	cashInvested := downPayment + float64(req.ClosingCostsCents)
	var cashOnCash float64
	if cashInvested > 0 {
		cashOnCash = monthlyCashFlow * 12 / cashInvested * 100
	}

	return transport.CashFlowResponse{
		MonthlyCashFlowCents: roundCents(monthlyCashFlow),
		AnnualCashFlowCents:  roundCents(monthlyCashFlow * 12),
		MonthlyPaymentCents:  roundCents(monthlyPayment),
		MonthlyPITICents:     roundCents(piti),
		MonthlyExpensesCents: roundCents(monthlyExpenses),
		NOICents:             roundCents(noi),
		CapRatePercent:       round2(capRate),
		CashOnCashPercent:    round2(cashOnCash),
		CashInvestedCents:    roundCents(cashInvested),
		LoanAmountCents:      roundCents(loanAmount),
	}
}

// CalculateDealScore blends spread margin, repair ratio, rent multiple, and
// market temperature into a 0-100 deal quality score.
func CalculateDealScore(req transport.DealScoreRequest) transport.DealScoreResponse {
	arv := float64(req.ARVCents)
	spread := req.ARVCents - req.PurchasePriceCents - req.RepairCents
	spreadMargin := float64(spread) / arv * 100
	repairRatio := float64(req.RepairCents) / arv * 100

	var rentMultiple float64
	if req.MonthlyRentCents > 0 && req.PurchasePriceCents > 0 {
		rentMultiple = float64(req.MonthlyRentCents) / float64(req.PurchasePriceCents) * 100
	}

	score := 50.0
	factors := map[string]float64{}

	var spreadPoints float64
	switch {
	case spreadMargin >= 30:
		spreadPoints = 30
	case spreadMargin >= 20:
		spreadPoints = 22
	case spreadMargin >= 10:
		spreadPoints = 10
	case spreadMargin >= 0:
		spreadPoints = 0
	default:
		spreadPoints = -25
	}
	factors["spread_margin"] = spreadPoints
	score += spreadPoints

	var repairPoints float64
	switch {
	case repairRatio <= 10:
		repairPoints = 10
	case repairRatio <= 25:
		repairPoints = 5
	case repairRatio <= 40:
		repairPoints = 0
	default:
		repairPoints = -10
	}
	factors["repair_ratio"] = repairPoints
	score += repairPoints

	var rentPoints float64
	switch {
	case rentMultiple >= 1.0: // the 1% rule
		rentPoints = 10
	case rentMultiple >= 0.7:
		rentPoints = 5
	default:
		rentPoints = 0
	}
	factors["rent_multiple"] = rentPoints
	score += rentPoints

	var marketPoints float64
	switch req.Market {
	case "hot":
		marketPoints = 5
	case "slow":
		marketPoints = -5
	}
	factors["market"] = marketPoints
	score += marketPoints

	final := int(math.Round(math.Max(0, math.Min(100, score))))

	return transport.DealScoreResponse{
		Score:               final,
		Grade:               dealGrade(final),
		SpreadCents:         spread,
		SpreadMarginPercent: round2(spreadMargin),
		RepairRatioPercent:  round2(repairRatio),
		RentMultiplePercent: round2(rentMultiple),
		Factors:             factors,
	}
}

func dealGrade(score int) string {
	switch {
	case score >= 85:
		return "A"
	case score >= 70:
		return "B"
	case score >= 55:
		return "C"
	case score >= 40:
		return "D"
	default:
		return "F"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
