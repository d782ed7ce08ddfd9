package service

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CostTable holds the repair cost inputs, loaded from a YAML file so the
// numbers can be tuned without a deploy. All amounts are whole dollars.
type CostTable struct {
	BasePerSqft         map[string]float64 `yaml:"base_per_sqft"`
	BigTicket           map[string]float64 `yaml:"big_ticket"`
	RegionalMultipliers map[string]float64 `yaml:"regional_multipliers"`
}

// LoadCostTable reads and validates a cost table from a YAML file.
func LoadCostTable(path string) (CostTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return CostTable{}, fmt.Errorf("read cost table: %w", err)
	}

	var table CostTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return CostTable{}, fmt.Errorf("parse cost table: %w", err)
	}

	for _, level := range []string{"cosmetic", "moderate", "full_gut"} {
		if table.BasePerSqft[level] <= 0 {
			return CostTable{}, fmt.Errorf("cost table missing base_per_sqft.%s", level)
		}
	}
	return table, nil
}

// DefaultCostTable returns built-in national-average numbers, used when no
// cost table file is available.
func DefaultCostTable() CostTable {
	return CostTable{
		BasePerSqft: map[string]float64{
			"cosmetic": 20,
			"moderate": 45,
			"full_gut": 90,
		},
		BigTicket: map[string]float64{
			"roof":       9000,
			"hvac":       7500,
			"foundation": 15000,
			"plumbing":   6000,
			"electrical": 8000,
			"windows":    5500,
			"septic":     7000,
			"pool":       10000,
		},
		RegionalMultipliers: map[string]float64{
			"default": 1.0,
			"CA":      1.35,
			"NY":      1.30,
			"WA":      1.20,
			"MA":      1.25,
			"TX":      0.95,
			"OH":      0.85,
			"IN":      0.85,
			"AL":      0.80,
			"MS":      0.80,
		},
	}
}

// multiplierFor returns the regional cost multiplier for a two-letter state
// code, falling back to the default entry.
func (t CostTable) multiplierFor(state string) float64 {
	if m, ok := t.RegionalMultipliers[state]; ok && m > 0 {
		return m
	}
	if m, ok := t.RegionalMultipliers["default"]; ok && m > 0 {
		return m
	}
	return 1.0
}
