// Package transport defines request/response DTOs for the deal analyzers.
package transport

import "github.com/google/uuid"

// Comp is one comparable sale used by the ARV analyzer.
type Comp struct {
	SalePriceCents int64  `json:"salePriceCents" validate:"required,gt=0"`
	Sqft           int    `json:"sqft" validate:"required,gt=0"`
	Condition      string `json:"condition" validate:"omitempty,oneof=poor fair good excellent"`
	YearBuilt      int    `json:"yearBuilt" validate:"omitempty,gte=1800"`
}

// ARVRequest asks for an after-repair value estimate.
type ARVRequest struct {
	LeadID             *uuid.UUID `json:"leadId"`
	Sqft               int        `json:"sqft" validate:"required,gt=0"`
	Condition          string     `json:"condition" validate:"omitempty,oneof=poor fair good excellent"`
	YearBuilt          int        `json:"yearBuilt" validate:"omitempty,gte=1800"`
	AssessedValueCents int64      `json:"assessedValueCents" validate:"omitempty,gte=0"`
	Comps              []Comp     `json:"comps" validate:"max=20,dive"`
}

// ARVResponse is the after-repair value estimate.
type ARVResponse struct {
	ARVCents          int64   `json:"arvCents"`
	PricePerSqftCents int64   `json:"pricePerSqftCents"`
	CompsUsed         int     `json:"compsUsed"`
	Method            string  `json:"method"`
	Confidence        string  `json:"confidence"`
	CompPricesPerSqft []int64 `json:"compPricesPerSqft,omitempty"`
}

// RepairRequest asks for a rehab cost estimate.
type RepairRequest struct {
	LeadID             *uuid.UUID `json:"leadId"`
	Sqft               int        `json:"sqft" validate:"required,gt=0"`
	Level              string     `json:"level" validate:"required,oneof=cosmetic moderate full_gut"`
	State              string     `json:"state" validate:"omitempty,len=2"`
	BigTicketItems     []string   `json:"bigTicketItems" validate:"max=15"`
	ContingencyPercent float64    `json:"contingencyPercent" validate:"omitempty,gte=0,lte=50"`
}

// RepairLineItem is one component of the repair estimate.
type RepairLineItem struct {
	Name      string `json:"name"`
	CostCents int64  `json:"costCents"`
}

// RepairResponse is the rehab cost estimate.
type RepairResponse struct {
	TotalCents         int64            `json:"totalCents"`
	BaseCents          int64            `json:"baseCents"`
	BigTicketCents     int64            `json:"bigTicketCents"`
	ContingencyCents   int64            `json:"contingencyCents"`
	RegionalMultiplier float64          `json:"regionalMultiplier"`
	PerSqftCents       int64            `json:"perSqftCents"`
	LineItems          []RepairLineItem `json:"lineItems"`
}

// MAORequest asks for the maximum allowable offer.
type MAORequest struct {
	LeadID            *uuid.UUID `json:"leadId"`
	ARVCents          int64      `json:"arvCents" validate:"required,gt=0"`
	RepairCents       int64      `json:"repairCents" validate:"gte=0"`
	WholesaleFeeCents int64      `json:"wholesaleFeeCents" validate:"omitempty,gte=0"`
	Market            string     `json:"market" validate:"omitempty,oneof=hot normal slow"`
	PercentOverride   *float64   `json:"percentOverride" validate:"omitempty,gt=0,lte=1"`
}

// MAOResponse is the maximum allowable offer breakdown.
type MAOResponse struct {
	MAOCents          int64   `json:"maoCents"`
	PercentUsed       float64 `json:"percentUsed"`
	Rule              string  `json:"rule"`
	ARVCents          int64   `json:"arvCents"`
	RepairCents       int64   `json:"repairCents"`
	WholesaleFeeCents int64   `json:"wholesaleFeeCents"`
	Viable            bool    `json:"viable"`
}

// CashFlowRequest asks for a rental cash flow analysis.
type CashFlowRequest struct {
	LeadID              *uuid.UUID `json:"leadId"`
	PurchasePriceCents  int64      `json:"purchasePriceCents" validate:"required,gt=0"`
	DownPaymentPercent  float64    `json:"downPaymentPercent" validate:"gte=0,lte=100"`
	InterestRatePercent float64    `json:"interestRatePercent" validate:"gte=0,lte=30"`
	LoanTermYears       int        `json:"loanTermYears" validate:"omitempty,gt=0,lte=40"`
	ClosingCostsCents   int64      `json:"closingCostsCents" validate:"gte=0"`
	MonthlyRentCents    int64      `json:"monthlyRentCents" validate:"required,gt=0"`
	AnnualTaxesCents    int64      `json:"annualTaxesCents" validate:"gte=0"`
	AnnualInsuranceCents int64     `json:"annualInsuranceCents" validate:"gte=0"`
	VacancyPercent      float64    `json:"vacancyPercent" validate:"gte=0,lte=50"`
	MaintenancePercent  float64    `json:"maintenancePercent" validate:"gte=0,lte=50"`
	ManagementPercent   float64    `json:"managementPercent" validate:"gte=0,lte=50"`
	CapexPercent        float64    `json:"capexPercent" validate:"gte=0,lte=50"`
}

// CashFlowResponse is the rental analysis result.
type CashFlowResponse struct {
	MonthlyCashFlowCents  int64   `json:"monthlyCashFlowCents"`
	AnnualCashFlowCents   int64   `json:"annualCashFlowCents"`
	MonthlyPaymentCents   int64   `json:"monthlyPaymentCents"`
	MonthlyPITICents      int64   `json:"monthlyPitiCents"`
	MonthlyExpensesCents  int64   `json:"monthlyExpensesCents"`
	NOICents              int64   `json:"noiCents"`
	CapRatePercent        float64 `json:"capRatePercent"`
	CashOnCashPercent     float64 `json:"cashOnCashPercent"`
	CashInvestedCents     int64   `json:"cashInvestedCents"`
	LoanAmountCents       int64   `json:"loanAmountCents"`
}

// DealScoreRequest asks for a composite deal quality score.
type DealScoreRequest struct {
	LeadID             *uuid.UUID `json:"leadId"`
	ARVCents           int64      `json:"arvCents" validate:"required,gt=0"`
	PurchasePriceCents int64      `json:"purchasePriceCents" validate:"required,gt=0"`
	RepairCents        int64      `json:"repairCents" validate:"gte=0"`
	MonthlyRentCents   int64      `json:"monthlyRentCents" validate:"gte=0"`
	Market             string     `json:"market" validate:"omitempty,oneof=hot normal slow"`
}

// DealScoreResponse is the composite deal quality score.
type DealScoreResponse struct {
	Score               int                `json:"score"`
	Grade               string             `json:"grade"`
	SpreadCents         int64              `json:"spreadCents"`
	SpreadMarginPercent float64            `json:"spreadMarginPercent"`
	RepairRatioPercent  float64            `json:"repairRatioPercent"`
	RentMultiplePercent float64            `json:"rentMultiplePercent"`
	Factors             map[string]float64 `json:"factors"`
}
