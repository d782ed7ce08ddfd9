// Package scoring computes motivation scores for wholesale leads.
// The score estimates how motivated a property owner is to sell below
// market, based on distress signals, financial position, and engagement.
package scoring

import (
	"encoding/json"
	"math"
	"time"
)

const (
	// Version tracks the scoring model for debugging and analysis.
	// Bump this when changing scoring logic significantly.
	Version = "2026-v1"

	// Base score - leads start at 50 and factors add/subtract from this.
	baseScore = 50.0

	// Maximum theoretical contribution from each factor category.
	// This ensures scores remain within the 0-100 range.
	maxDistressContribution   = 35.0 // Indicator types, severity, auction urgency
	maxFinancialContribution  = 30.0 // Equity, absentee, property age, value band
	maxBehavioralContribution = 25.0 // Freshness, response history, pipeline status
)

// Classification buckets derived from the final score.
const (
	ClassHot      = "hot"
	ClassWarm     = "warm"
	ClassLukewarm = "lukewarm"
	ClassCold     = "cold"
)

// Indicator is a distress signal considered by the scorer.
type Indicator struct {
	Type        string
	Severity    int // 1-10
	AuctionDate *time.Time
}

// Input carries everything the scorer looks at for one lead.
type Input struct {
	Indicators []Indicator

	EquityPercent float64
	HasEquityData bool
	Absentee      bool
	OwnerOccupied bool

	YearBuilt           int
	EstimatedValueCents int64

	LeadCreatedAt time.Time
	Status        string

	InboundMessages  int
	OutboundMessages int
	LastInboundAt    *time.Time
	ActivityCount    int

	Now time.Time
}

// Result holds scoring output and factor details.
type Result struct {
	Score          int
	Classification string
	Factors        map[string]float64
	FactorsJSON    []byte
	Version        string
	ComputedAt     time.Time
}

// profileWeights defines how important each factor is given the lead's
// dominant distress type. Values are multipliers (0.0-1.5) applied to base
// factor scores.
type profileWeights struct {
	distress   float64 // Raw indicator points
	urgency    float64 // Auction date proximity
	equity     float64 // Owner equity position
	absentee   float64 // Out-of-area owner
	age        float64 // Property age
	valueBand  float64 // Wholesale-friendly price band
	freshness  float64 // Lead recency
	response   float64 // Owner response history
	engagement float64 // Activity volume
	status     float64 // Pipeline position
}

// defaultProfileWeights is used when no dominant distress type is known.
var defaultProfileWeights = profileWeights{
	distress:   1.0,
	urgency:    1.0,
	equity:     1.0,
	absentee:   1.0,
	age:        1.0,
	valueBand:  1.0,
	freshness:  1.0,
	response:   1.0,
	engagement: 1.0,
	status:     1.0,
}

// Weight profiles by dominant distress type:
// - Pre-foreclosures are deadline-driven, so urgency and equity dominate
// - Probate and tax liens are equity plays with absentee heirs/owners
// - Vacancy signals condition problems and disengaged owners
var profileWeightsMap = map[string]profileWeights{
	// Pre-foreclosure: the auction clock is the motivator. Equity decides
	// whether a wholesale deal is even possible before the sale date.
	"pre_foreclosure": {
		distress:   1.2,
		urgency:    1.5,
		equity:     1.4,
		absentee:   0.8,
		age:        0.6,
		valueBand:  1.0,
		freshness:  1.2,
		response:   1.1,
		engagement: 1.0,
		status:     1.0,
	},

	// Tax lien: owners who stop paying taxes often have equity but no
	// attachment to the property.
	"tax_lien": {
		distress:   1.1,
		urgency:    0.8,
		equity:     1.4,
		absentee:   1.2,
		age:        0.9,
		valueBand:  1.0,
		freshness:  0.9,
		response:   1.0,
		engagement: 1.0,
		status:     1.0,
	},

	// Probate: heirs usually live elsewhere and want a clean, fast sale.
	"probate": {
		distress:   1.1,
		urgency:    0.6,
		equity:     1.2,
		absentee:   1.4,
		age:        1.0,
		valueBand:  1.0,
		freshness:  0.8,
		response:   1.2,
		engagement: 1.0,
		status:     1.0,
	},

	// Vacancy: carrying costs on an empty house wear owners down over time.
	"vacancy": {
		distress:   1.0,
		urgency:    0.5,
		equity:     1.1,
		absentee:   1.3,
		age:        1.3,
		valueBand:  1.1,
		freshness:  0.8,
		response:   1.0,
		engagement: 1.0,
		status:     1.0,
	},

	// Divorce: both parties usually want liquidity quickly.
	"divorce": {
		distress:   1.0,
		urgency:    1.0,
		equity:     1.2,
		absentee:   0.7,
		age:        0.7,
		valueBand:  1.0,
		freshness:  1.2,
		response:   1.2,
		engagement: 1.1,
		status:     1.0,
	},

	// Code violations: fines accumulate and the owner often cannot afford
	// the repairs the city demands.
	"code_violation": {
		distress:   1.0,
		urgency:    0.8,
		equity:     1.0,
		absentee:   1.1,
		age:        1.3,
		valueBand:  1.1,
		freshness:  0.9,
		response:   1.0,
		engagement: 1.0,
		status:     1.0,
	},

	// Bankruptcy: motivated but constrained; trustee timelines matter.
	"bankruptcy": {
		distress:   1.1,
		urgency:    1.1,
		equity:     1.2,
		absentee:   0.8,
		age:        0.7,
		valueBand:  1.0,
		freshness:  1.0,
		response:   1.0,
		engagement: 1.0,
		status:     1.0,
	},

	// Eviction: tired landlords exiting the rental business.
	"eviction": {
		distress:   1.0,
		urgency:    0.9,
		equity:     1.1,
		absentee:   1.3,
		age:        0.9,
		valueBand:  1.1,
		freshness:  1.1,
		response:   1.1,
		engagement: 1.0,
		status:     1.0,
	},
}

// Base points per indicator type before severity scaling.
var indicatorBasePoints = map[string]float64{
	"pre_foreclosure": 15,
	"tax_lien":        12,
	"probate":         12,
	"bankruptcy":      10,
	"eviction":        8,
	"divorce":         8,
	"vacancy":         8,
	"code_violation":  6,
}

// Compute scores a lead. Deterministic for a fixed Input (including Now).
func Compute(in Input) Result {
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}

	score := baseScore
	factors := map[string]float64{}
	weights := getProfileWeights(DominantType(in.Indicators))

	// ========== DISTRESS FACTORS (max ~35 points) ==========
	// These factors describe WHY the owner might sell

	// Indicator points: stacked signals with diminishing returns
	// Score: 0 to +25
	distressScore := scoreDistress(in.Indicators) * weights.distress
	score += addFactor(factors, "distress", distressScore)

	// Auction urgency: a sale date close on the calendar forces a decision
	// Score: 0 to +10
	urgencyScore := scoreUrgency(in.Indicators, in.Now) * weights.urgency
	score += addFactor(factors, "urgency", urgencyScore)

	// ========== FINANCIAL FACTORS (max ~30 points) ==========
	// These factors describe WHETHER a below-market deal can work

	// Equity: room between value and debt is where the wholesale spread lives
	// Score: -8 to +12
	equityScore := scoreEquity(in.EquityPercent, in.HasEquityData) * weights.equity
	score += addFactor(factors, "equity", equityScore)

	// Absentee owner: out-of-area owners sell sight-unseen more readily
	// Score: -3 to +8
	absenteeScore := scoreAbsentee(in.Absentee, in.OwnerOccupied) * weights.absentee
	score += addFactor(factors, "absentee", absenteeScore)

	// Property age: older houses carry deferred maintenance
	// Score: 0 to +4
	ageScore := scorePropertyAge(in.YearBuilt, in.Now) * weights.age
	score += addFactor(factors, "property_age", ageScore)

	// Value band: the cash-buyer market is deepest in the middle of the market
	// Score: -2 to +3
	valueScore := scoreValueBand(in.EstimatedValueCents) * weights.valueBand
	score += addFactor(factors, "value_band", valueScore)

	// ========== BEHAVIORAL FACTORS (max ~25 points) ==========
	// These factors describe lead ENGAGEMENT and TIMING

	// Freshness: distress data goes stale fast
	// Score: -6 to +6
	freshnessScore := scoreFreshness(in.LeadCreatedAt, in.Now) * weights.freshness
	score += addFactor(factors, "freshness", freshnessScore)

	// Response history: an owner who texts back is worth ten who don't
	// Score: -6 to +14
	responseScore := scoreResponse(in.InboundMessages, in.OutboundMessages, in.LastInboundAt, in.Now) * weights.response
	score += addFactor(factors, "response", responseScore)

	// Activity: touches on the record show the lead is being worked
	// Score: 0 to +4
	engagementScore := scoreEngagement(in.ActivityCount) * weights.engagement
	score += addFactor(factors, "engagement", engagementScore)

	// Pipeline status: progress through the funnel
	// Score: -10 to +6
	statusScore := scoreStatus(in.Status) * weights.status
	score += addFactor(factors, "status", statusScore)

	final := clampScore(score)

	factorsJSON, err := json.Marshal(factors)
	if err != nil {
		factorsJSON = nil
	}

	return Result{
		Score:          final,
		Classification: Classify(final),
		Factors:        factors,
		FactorsJSON:    factorsJSON,
		Version:        Version,
		ComputedAt:     in.Now,
	}
}

// Classify maps a score to its temperature bucket.
func Classify(score int) string {
	switch {
	case score >= 80:
		return ClassHot
	case score >= 60:
		return ClassWarm
	case score >= 40:
		return ClassLukewarm
	default:
		return ClassCold
	}
}

// DominantType returns the indicator type with the highest weighted points,
// used both for weight selection and lead classification in the UI.
func DominantType(indicators []Indicator) string {
	best := ""
	bestPoints := 0.0
	for _, ind := range indicators {
		points := indicatorPoints(ind)
		if points > bestPoints {
			best = ind.Type
			bestPoints = points
		}
	}
	return best
}

func getProfileWeights(dominantType string) profileWeights {
	if w, ok := profileWeightsMap[dominantType]; ok {
		return w
	}
	return defaultProfileWeights
}

func indicatorPoints(ind Indicator) float64 {
	base, ok := indicatorBasePoints[ind.Type]
	if !ok {
		return 0
	}
	severity := ind.Severity
	if severity < 1 {
		severity = 5
	}
	if severity > 10 {
		severity = 10
	}
	return base * (0.5 + float64(severity)/20.0) // severity 10 = full points
}

// scoreDistress sums indicator points with diminishing returns so stacked
// signals help without dominating the whole score.
func scoreDistress(indicators []Indicator) float64 {
	if len(indicators) == 0 {
		return 0
	}

	points := make([]float64, 0, len(indicators))
	for _, ind := range indicators {
		if p := indicatorPoints(ind); p > 0 {
			points = append(points, p)
		}
	}
	if len(points) == 0 {
		return 0
	}

	// Strongest signal counts in full, each additional at half weight.
	sortDesc(points)
	total := points[0]
	for _, p := range points[1:] {
		total += p * 0.5
	}

	return clampFloat(total, 0, 25)
}

// scoreUrgency evaluates the nearest upcoming auction date.
func scoreUrgency(indicators []Indicator, now time.Time) float64 {
	var nearest *time.Time
	for _, ind := range indicators {
		if ind.AuctionDate == nil || ind.AuctionDate.Before(now) {
			continue
		}
		if nearest == nil || ind.AuctionDate.Before(*nearest) {
			nearest = ind.AuctionDate
		}
	}
	if nearest == nil {
		return 0
	}

	days := nearest.Sub(now).Hours() / 24
	switch {
	case days <= 14:
		return 10
	case days <= 30:
		return 8
	case days <= 60:
		return 5
	case days <= 90:
		return 2
	default:
		return 0
	}
}

// scoreEquity evaluates the owner's equity position. A spread needs equity;
// underwater owners cannot sell below market without a short sale.
func scoreEquity(equityPercent float64, hasData bool) float64 {
	if !hasData {
		return 0
	}
	switch {
	case equityPercent >= 70:
		return 12
	case equityPercent >= 50:
		return 8
	case equityPercent >= 30:
		return 4
	case equityPercent >= 10:
		return 0
	case equityPercent >= 0:
		return -4
	default:
		return -8
	}
}

func scoreAbsentee(absentee, ownerOccupied bool) float64 {
	if absentee {
		return 8
	}
	if ownerOccupied {
		return -3
	}
	return 0
}

func scorePropertyAge(yearBuilt int, now time.Time) float64 {
	if yearBuilt <= 0 {
		return 0
	}
	age := now.Year() - yearBuilt
	switch {
	case age >= 70:
		return 4
	case age >= 40:
		return 3
	case age >= 20:
		return 1
	default:
		return 0
	}
}

// scoreValueBand favors the price range with the deepest cash-buyer pool.
func scoreValueBand(estimatedValueCents int64) float64 {
	if estimatedValueCents <= 0 {
		return 0
	}
	switch {
	case estimatedValueCents < 5_000_000: // under $50k
		return -2
	case estimatedValueCents <= 40_000_000: // $50k-$400k sweet spot
		return 3
	case estimatedValueCents <= 100_000_000: // up to $1M
		return 1
	default:
		return -2
	}
}

func scoreFreshness(createdAt, now time.Time) float64 {
	if createdAt.IsZero() {
		return 0
	}
	days := now.Sub(createdAt).Hours() / 24
	switch {
	case days <= 7:
		return 6
	case days <= 30:
		return 3
	case days <= 90:
		return 0
	case days <= 180:
		return -3
	default:
		return -6
	}
}

// scoreResponse rewards inbound replies and penalizes repeated unanswered
// outreach.
func scoreResponse(inbound, outbound int, lastInboundAt *time.Time, now time.Time) float64 {
	if inbound > 0 {
		score := 10.0
		extra := float64(inbound-1) * 2
		if extra > 4 {
			extra = 4
		}
		score += extra
		// A reply in the last week means an active conversation.
		if lastInboundAt != nil && now.Sub(*lastInboundAt) <= 7*24*time.Hour {
			return clampFloat(score, 0, 14)
		}
		return clampFloat(score*0.8, 0, 14)
	}
	if outbound >= 5 {
		return -6
	}
	if outbound >= 3 {
		return -3
	}
	return 0
}

func scoreEngagement(activityCount int) float64 {
	switch {
	case activityCount >= 10:
		return 4
	case activityCount >= 5:
		return 3
	case activityCount >= 2:
		return 1
	default:
		return 0
	}
}

func scoreStatus(status string) float64 {
	switch status {
	case "negotiating":
		return 6
	case "responded":
		return 5
	case "under_contract":
		return 3
	case "contacted":
		return 1
	case "dead":
		return -10
	default:
		return 0
	}
}

func addFactor(factors map[string]float64, key string, value float64) float64 {
	if math.Abs(value) < 0.01 {
		return 0
	}
	// Round to 1 decimal place for cleaner factor display
	factors[key] = math.Round(value*10) / 10
	return value
}

func clampScore(score float64) int {
	return int(clampFloat(math.Round(score), 0, 100))
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func sortDesc(values []float64) {
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && values[j] > values[j-1]; j-- {
			values[j], values[j-1] = values[j-1], values[j]
		}
	}
}
