package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"dealflow_backend/internal/analyzers/transport"
	"dealflow_backend/platform/logger"
)

// ActivityRecorder logs an analysis run on a lead's timeline. Implemented by
// an adapter over the leads module, wired in the composition root.
type ActivityRecorder interface {
	RecordAnalysis(ctx context.Context, leadID uuid.UUID, kind, summary string) error
}

// Service wraps the pure calculators with the cost table and the lead
// activity log.
type Service struct {
	table      CostTable
	activities ActivityRecorder
	log        *logger.Logger
}

// New creates a new analyzers service. The cost table is loaded from the
// given path; when loading fails the built-in defaults are used.
func New(costTablePath string, activities ActivityRecorder, log *logger.Logger) *Service {
	table, err := LoadCostTable(costTablePath)
	if err != nil {
		log.Warn("repair cost table unavailable, using defaults", "path", costTablePath, "error", err)
		table = DefaultCostTable()
	}
	return &Service{table: table, activities: activities, log: log}
}

// NewWithTable creates an analyzers service with an explicit cost table.
func NewWithTable(table CostTable, activities ActivityRecorder, log *logger.Logger) *Service {
	return &Service{table: table, activities: activities, log: log}
}

// ARV estimates after-repair value from comps.
func (s *Service) ARV(ctx context.Context, req transport.ARVRequest) transport.ARVResponse {
	result := CalculateARV(req)
	s.recordAnalysis(ctx, req.LeadID, "arv",
		fmt.Sprintf("ARV $%s via %s (%d comps, %s confidence)",
			dollars(result.ARVCents), result.Method, result.CompsUsed, result.Confidence))
	return result
}

// Repair estimates rehab cost from the cost table.
func (s *Service) Repair(ctx context.Context, req transport.RepairRequest) transport.RepairResponse {
	result := CalculateRepair(req, s.table)
	s.recordAnalysis(ctx, req.LeadID, "repair",
		fmt.Sprintf("Repair estimate $%s (%s, %d sqft)", dollars(result.TotalCents), req.Level, req.Sqft))
	return result
}

// MAO computes the maximum allowable offer.
func (s *Service) MAO(ctx context.Context, req transport.MAORequest) transport.MAOResponse {
	result := CalculateMAO(req)
	s.recordAnalysis(ctx, req.LeadID, "mao",
		fmt.Sprintf("MAO $%s at %.0f%% of ARV $%s", dollars(result.MAOCents), result.PercentUsed*100, dollars(result.ARVCents)))
	return result
}

// CashFlow runs a rental analysis.
func (s *Service) CashFlow(ctx context.Context, req transport.CashFlowRequest) transport.CashFlowResponse {
	result := CalculateCashFlow(req)
	s.recordAnalysis(ctx, req.LeadID, "cash_flow",
		fmt.Sprintf("Cash flow $%s/mo, cap rate %.2f%%, CoC %.2f%%",
			dollars(result.MonthlyCashFlowCents), result.CapRatePercent, result.CashOnCashPercent))
	return result
}

// DealScore computes the composite deal quality score.
func (s *Service) DealScore(ctx context.Context, req transport.DealScoreRequest) transport.DealScoreResponse {
	result := CalculateDealScore(req)
	s.recordAnalysis(ctx, req.LeadID, "deal_score",
		fmt.Sprintf("Deal score %d (%s), spread $%s", result.Score, result.Grade, dollars(result.SpreadCents)))
	return result
}

func (s *Service) recordAnalysis(ctx context.Context, leadID *uuid.UUID, kind, summary string) {
	if leadID == nil || s.activities == nil {
		return
	}
	if err := s.activities.RecordAnalysis(ctx, *leadID, kind, summary); err != nil {
		s.log.Warn("record analysis activity failed", "lead_id", *leadID, "kind", kind, "error", err)
	}
}

func dollars(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
