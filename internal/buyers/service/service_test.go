package service

import (
	"testing"

	"dealflow_backend/internal/buyers/repository"
	"dealflow_backend/internal/buyers/transport"
)

func testDeal() transport.MatchRequest {
	return transport.MatchRequest{
		County:       "Maricopa",
		Zip:          "85032",
		PropertyType: "single_family",
		PriceCents:   18_000_000,
		Beds:         3,
	}
}

func TestRankBuyersLocationGatekeeper(t *testing.T) {
	buyers := []repository.Buyer{
		{Name: "In county", Counties: []string{"Maricopa"}},
		{Name: "Wrong county", Counties: []string{"Pima"}},
		{Name: "Right zip", Counties: []string{"Pima"}, Zips: []string{"85032"}},
	}

	matches := RankBuyers(buyers, testDeal())

	names := map[string]bool{}
	for _, m := range matches {
		names[m.Buyer.Name] = true
	}
	if !names["In county"] {
		t.Fatalf("county coverage should match")
	}
	if names["Wrong county"] {
		t.Fatalf("a buyer with no location overlap should be excluded")
	}
	if !names["Right zip"] {
		t.Fatalf("zip coverage should match even when the county list misses")
	}
}

func TestRankBuyersOrdering(t *testing.T) {
	buyers := []repository.Buyer{
		{
			Name:     "Casual",
			Counties: []string{"Maricopa"},
		},
		{
			Name:          "Perfect fit",
			Counties:      []string{"Maricopa"},
			Zips:          []string{"85032"},
			PropertyTypes: []string{"single_family"},
			MinPriceCents: 10_000_000,
			MaxPriceCents: 25_000_000,
			Verified:      true,
			DealsClosed:   12,
		},
		{
			Name:          "Out of budget",
			Counties:      []string{"Maricopa"},
			MaxPriceCents: 10_000_000,
		},
	}

	matches := RankBuyers(buyers, testDeal())
	if len(matches) == 0 {
		t.Fatalf("expected matches")
	}
	if matches[0].Buyer.Name != "Perfect fit" {
		t.Fatalf("expected the perfect fit first, got %q", matches[0].Buyer.Name)
	}

	var casual, outOfBudget float64
	for _, m := range matches {
		switch m.Buyer.Name {
		case "Casual":
			casual = m.Score
		case "Out of budget":
			outOfBudget = m.Score
		}
	}
	if outOfBudget >= casual {
		t.Fatalf("an over-budget deal should rank below a neutral one: %v vs %v", outOfBudget, casual)
	}
}

func TestRankBuyersVerifiedAndTrackRecordBoost(t *testing.T) {
	plain := repository.Buyer{Name: "Plain", Counties: []string{"Maricopa"}}
	verified := repository.Buyer{Name: "Verified", Counties: []string{"Maricopa"}, Verified: true}
	closer := repository.Buyer{Name: "Closer", Counties: []string{"Maricopa"}, Verified: true, DealsClosed: 15}

	matches := RankBuyers([]repository.Buyer{plain, verified, closer}, transport.MatchRequest{County: "Maricopa"})
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	if matches[0].Buyer.Name != "Closer" || matches[1].Buyer.Name != "Verified" {
		t.Fatalf("unexpected ordering: %q, %q, %q",
			matches[0].Buyer.Name, matches[1].Buyer.Name, matches[2].Buyer.Name)
	}
}

func TestRankBuyersPropertyTypeMismatchPenalized(t *testing.T) {
	landOnly := repository.Buyer{
		Name:          "Land only",
		Counties:      []string{"Maricopa"},
		PropertyTypes: []string{"land"},
	}
	anyType := repository.Buyer{Name: "Any type", Counties: []string{"Maricopa"}}

	matches := RankBuyers([]repository.Buyer{landOnly, anyType}, testDeal())

	var landScore, anyScore float64
	for _, m := range matches {
		switch m.Buyer.Name {
		case "Land only":
			landScore = m.Score
		case "Any type":
			anyScore = m.Score
		}
	}
	if landScore >= anyScore {
		t.Fatalf("type mismatch should be penalized: %v vs %v", landScore, anyScore)
	}
}

func TestRankBuyersCountyCaseInsensitive(t *testing.T) {
	buyers := []repository.Buyer{
		{Name: "Shouty", Counties: []string{"MARICOPA "}},
	}
	matches := RankBuyers(buyers, transport.MatchRequest{County: "maricopa"})
	if len(matches) != 1 {
		t.Fatalf("county matching should ignore case and whitespace")
	}
}
