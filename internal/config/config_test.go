package config

import (
	"math"
	"strings"
	"testing"

	"github.com/eyadsibai/worth-it-sub001/internal/captable"
)

const scenarioYAML = `
name: Seed to Series A
capTable:
  totalShares: 10000000
  optionPoolPct: 10
  stakeholders:
    - id: f1
      name: Alice
      type: founder
      shares: 6000000
      shareClass: common
      vesting:
        totalShares: 6000000
        vestingMonths: 48
        cliffMonths: 12
    - id: f2
      name: Bob
      type: founder
      shares: 4000000
      shareClass: common
instruments:
  - kind: safe
    investorName: Angel One
    investmentAmount: 500000
    valuationCap: 10000000
  - kind: convertible_note
    investorName: Debt Fund
    investmentAmount: 250000
    valuationCap: 8000000
    interestRate: 8
    interestType: simple
    maturityMonths: 24
    issuedMonthsAgo: 12
  - kind: priced_round
    roundName: Series A
    leadInvestor: Acme Ventures
    preMoneyValuation: 40000000
    amountRaised: 10000000
tiers:
  - name: Series A
    seniority: 1
    investmentAmount: 10000000
    liquidationMultiplier: 1
    stakeholders: [f1]
exit:
  min: 1000000
  max: 100000000
  samples: 10
  selected: 42000000
logging:
  level: debug
  format: console
output:
  format: csv
`

func loadTestScenario(t *testing.T) *Scenario {
	t.Helper()
	scenario, err := LoadScenarioFromReader(strings.NewReader(scenarioYAML))
	if err != nil {
		t.Fatalf("LoadScenarioFromReader returned error: %v", err)
	}
	return scenario
}

func TestLoadScenarioFromReader(t *testing.T) {
	scenario := loadTestScenario(t)

	if scenario.Name != "Seed to Series A" {
		t.Errorf("name = %q", scenario.Name)
	}
	if scenario.CapTable.TotalShares != 10_000_000 {
		t.Errorf("total shares = %d", scenario.CapTable.TotalShares)
	}
	if len(scenario.CapTable.Stakeholders) != 2 {
		t.Fatalf("stakeholder count = %d, want 2", len(scenario.CapTable.Stakeholders))
	}
	if v := scenario.CapTable.Stakeholders[0].Vesting; v == nil || v.CliffMonths != 12 {
		t.Errorf("vesting = %+v, want 12-month cliff", v)
	}
	if len(scenario.Instruments) != 3 {
		t.Fatalf("instrument count = %d, want 3", len(scenario.Instruments))
	}
	if scenario.Instruments[1].InterestRate != 8 {
		t.Errorf("note interest rate = %.2f, want 8", scenario.Instruments[1].InterestRate)
	}
	if scenario.Logging.Level != "debug" || scenario.Output.Format != "csv" {
		t.Errorf("logging/output config lost: %+v %+v", scenario.Logging, scenario.Output)
	}
}

func TestToDomain(t *testing.T) {
	model, err := loadTestScenario(t).ToDomain()
	if err != nil {
		t.Fatalf("ToDomain returned error: %v", err)
	}

	if got := model.CapTable.Stakeholders[0].OwnershipPct; math.Abs(got-60) > 1e-9 {
		t.Errorf("ownership recomputed = %.4f, want 60", got)
	}
	if len(model.Convertibles) != 2 {
		t.Fatalf("convertible count = %d, want 2", len(model.Convertibles))
	}
	for _, in := range model.Convertibles {
		if in.ID() == "" {
			t.Error("convertible missing generated id")
		}
	}

	if model.Round == nil {
		t.Fatal("priced round missing")
	}
	if math.Abs(model.Round.PricePerShare-4.0) > 1e-9 {
		t.Errorf("price per share = %.4f, want 4.00", model.Round.PricePerShare)
	}
	if model.Round.LiquidationMultiplier != 1 {
		t.Errorf("round multiplier defaulted to %.2f, want 1", model.Round.LiquidationMultiplier)
	}

	if len(model.Tiers) != 1 || model.Tiers[0].Seniority != 1 {
		t.Fatalf("tiers = %+v", model.Tiers)
	}
}

func TestToDomainErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Scenario)
		wantMsg string
	}{
		{
			"unknown instrument kind",
			func(s *Scenario) { s.Instruments[0].Kind = "warrant" },
			"unknown kind",
		},
		{
			"duplicate priced round",
			func(s *Scenario) { s.Instruments[0].Kind = "priced_round"; s.Instruments[0].PreMoneyValuation = 1_000_000 },
			"already has a priced round",
		},
		{
			"unknown stakeholder type",
			func(s *Scenario) { s.CapTable.Stakeholders[0].Type = "robot" },
			"unknown stakeholder type",
		},
		{
			"negative shares",
			func(s *Scenario) { s.CapTable.Stakeholders[0].Shares = -1 },
			"negative",
		},
		{
			"non-positive investment",
			func(s *Scenario) { s.Instruments[0].InvestmentAmount = 0 },
			"must be positive",
		},
		{
			"tier without seniority",
			func(s *Scenario) { s.Tiers[0].Seniority = 0 },
			"seniority",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario := loadTestScenario(t)
			tt.mutate(scenario)
			_, err := scenario.ToDomain()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLegacyEquityPct(t *testing.T) {
	rec := StakeholderConfig{Name: "Old Timer", Type: "founder", EquityPct: 0.25}

	s, err := rec.toDomain()
	if err != nil {
		t.Fatalf("toDomain returned error: %v", err)
	}
	if math.Abs(s.OwnershipPct-25) > 1e-9 {
		t.Errorf("legacy equityPct scaled to %.4f, want 25", s.OwnershipPct)
	}

	// Explicit ownershipPct wins over the legacy field.
	rec.OwnershipPct = 30
	s, _ = rec.toDomain()
	if s.OwnershipPct != 30 {
		t.Errorf("ownership = %.2f, want explicit 30", s.OwnershipPct)
	}
}

func TestValuations(t *testing.T) {
	scenario := loadTestScenario(t)

	points := scenario.Valuations()
	if len(points) != 11 {
		t.Fatalf("got %d points, want 10 samples plus selected", len(points))
	}
	if points[0] != 1_000_000 || points[9] != 100_000_000 {
		t.Errorf("range endpoints = %.0f, %.0f", points[0], points[9])
	}
	if points[10] != 42_000_000 {
		t.Errorf("selected point = %.0f, want 42000000", points[10])
	}

	// Unset exit config falls back to the default sweep.
	var bare Scenario
	points = bare.Valuations()
	if len(points) != 20 {
		t.Errorf("default sample count = %d, want 20", len(points))
	}
	if points[0] != 1_000_000 || points[len(points)-1] != 500_000_000 {
		t.Errorf("default range = %.0f .. %.0f", points[0], points[len(points)-1])
	}
}

func TestValidateWarnings(t *testing.T) {
	scenario := loadTestScenario(t)
	if warnings := scenario.Validate(); len(warnings) != 0 {
		t.Errorf("clean scenario warned: %v", warnings)
	}

	t.Run("duplicate seniority", func(t *testing.T) {
		s := loadTestScenario(t)
		s.Tiers = append(s.Tiers, TierConfig{Name: "Seed", Seniority: 1, InvestmentAmount: 1, LiquidationMultiplier: 1})
		warnings := s.Validate()
		if len(warnings) != 1 || !strings.Contains(warnings[0], "share seniority") {
			t.Errorf("warnings = %v", warnings)
		}
	})

	t.Run("unknown tier stakeholder", func(t *testing.T) {
		s := loadTestScenario(t)
		s.Tiers[0].Stakeholders = []string{"ghost"}
		warnings := s.Validate()
		if len(warnings) != 1 || !strings.Contains(warnings[0], "unknown stakeholder id") {
			t.Errorf("warnings = %v", warnings)
		}
	})

	t.Run("past maturity note", func(t *testing.T) {
		s := loadTestScenario(t)
		s.Instruments[1].IssuedMonthsAgo = 36
		warnings := s.Validate()
		if len(warnings) != 1 || !strings.Contains(warnings[0], "past maturity") {
			t.Errorf("warnings = %v", warnings)
		}
	})

	t.Run("over allocated ownership", func(t *testing.T) {
		s := loadTestScenario(t)
		s.CapTable.Stakeholders[0].OwnershipPct = 70
		s.CapTable.Stakeholders[1].OwnershipPct = 40
		warnings := s.Validate()
		if len(warnings) != 1 || !strings.Contains(warnings[0], "exceeds 100%") {
			t.Errorf("warnings = %v", warnings)
		}
	})
}

func TestVestingRecordCarriedToDomain(t *testing.T) {
	model, err := loadTestScenario(t).ToDomain()
	if err != nil {
		t.Fatalf("ToDomain returned error: %v", err)
	}
	var alice captable.Stakeholder
	for _, s := range model.CapTable.Stakeholders {
		if s.Name == "Alice" {
			alice = s
		}
	}
	if alice.Vesting == nil {
		t.Fatal("vesting schedule dropped in conversion")
	}
	if got := alice.Vesting.VestedAt(24); got != 3_000_000 {
		t.Errorf("vested at 24 months = %d, want 3000000", got)
	}
}
