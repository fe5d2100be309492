// Package config defines the scenario configuration: the cap table,
// funding instruments, preference tiers, and exit assumptions as edited by
// the user, plus logging and output settings. It loads YAML scenario files
// and converts the records into domain values.
package config

import (
	"fmt"
	"io"

	"github.com/spf13/viper"

	"github.com/eyadsibai/worth-it-sub001/pkg/constants"
)

// Scenario holds one complete modeling scenario.
type Scenario struct {
	ID          string             `yaml:"id,omitempty" json:"id,omitempty"`
	Name        string             `yaml:"name" json:"name"`
	CapTable    CapTableConfig     `yaml:"capTable" json:"capTable"`
	Instruments []InstrumentConfig `yaml:"instruments,omitempty" json:"instruments,omitempty"`
	Tiers       []TierConfig       `yaml:"tiers,omitempty" json:"tiers,omitempty"`
	Exit        ExitConfig         `yaml:"exit,omitempty" json:"exit,omitempty"`
	Logging     LoggingConfig      `yaml:"logging,omitempty" json:"logging,omitempty"`
	Output      OutputConfig       `yaml:"output,omitempty" json:"output,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" json:"level,omitempty"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" json:"format,omitempty"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" json:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" json:"format,omitempty"` // pretty, csv
}

// CapTableConfig is the scenario's cap table record.
type CapTableConfig struct {
	TotalShares   int64               `yaml:"totalShares" json:"totalShares"`
	OptionPoolPct float64             `yaml:"optionPoolPct,omitempty" json:"optionPoolPct,omitempty"`
	Stakeholders  []StakeholderConfig `yaml:"stakeholders" json:"stakeholders"`
}

// StakeholderConfig is one stakeholder record.
//
// OwnershipPct is a 0-100 percentage. EquityPct is a legacy alias expressed
// as a 0-1 fraction; older scenario files use it, and it is honored when
// OwnershipPct is absent. The mismatch in scale is inherited from upstream
// data and deliberately preserved here rather than silently normalized.
type StakeholderConfig struct {
	ID           string         `yaml:"id,omitempty" json:"id,omitempty"`
	Name         string         `yaml:"name" json:"name"`
	Type         string         `yaml:"type" json:"type"`
	Shares       int64          `yaml:"shares" json:"shares"`
	OwnershipPct float64        `yaml:"ownershipPct,omitempty" json:"ownershipPct,omitempty"`
	EquityPct    float64        `yaml:"equityPct,omitempty" json:"equityPct,omitempty"`
	ShareClass   string         `yaml:"shareClass" json:"shareClass"`
	Investment   float64        `yaml:"investment,omitempty" json:"investment,omitempty"`
	Vesting      *VestingConfig `yaml:"vesting,omitempty" json:"vesting,omitempty"`
}

// VestingConfig is an optional vesting schedule record.
type VestingConfig struct {
	TotalShares   int64 `yaml:"totalShares" json:"totalShares"`
	VestingMonths int   `yaml:"vestingMonths" json:"vestingMonths"`
	CliffMonths   int   `yaml:"cliffMonths" json:"cliffMonths"`
	VestedShares  int64 `yaml:"vestedShares,omitempty" json:"vestedShares,omitempty"`
}

// InstrumentConfig is one funding instrument record, discriminated by Kind
// (safe, convertible_note, priced_round).
type InstrumentConfig struct {
	Kind             string   `yaml:"kind" json:"kind"`
	ID               string   `yaml:"id,omitempty" json:"id,omitempty"`
	InvestorName     string   `yaml:"investorName,omitempty" json:"investorName,omitempty"`
	InvestmentAmount float64  `yaml:"investmentAmount,omitempty" json:"investmentAmount,omitempty"`
	ValuationCap     *float64 `yaml:"valuationCap,omitempty" json:"valuationCap,omitempty"`
	DiscountPct      *float64 `yaml:"discountPct,omitempty" json:"discountPct,omitempty"`
	ProRataRights    bool     `yaml:"proRataRights,omitempty" json:"proRataRights,omitempty"`
	MFNClause        bool     `yaml:"mfnClause,omitempty" json:"mfnClause,omitempty"`
	Status           string   `yaml:"status,omitempty" json:"status,omitempty"`

	// Convertible note terms.
	InterestRate    float64 `yaml:"interestRate,omitempty" json:"interestRate,omitempty"`
	InterestType    string  `yaml:"interestType,omitempty" json:"interestType,omitempty"`
	MaturityMonths  int     `yaml:"maturityMonths,omitempty" json:"maturityMonths,omitempty"`
	IssuedMonthsAgo int     `yaml:"issuedMonthsAgo,omitempty" json:"issuedMonthsAgo,omitempty"`

	// Priced round terms.
	RoundName             string  `yaml:"roundName,omitempty" json:"roundName,omitempty"`
	LeadInvestor          string  `yaml:"leadInvestor,omitempty" json:"leadInvestor,omitempty"`
	PreMoneyValuation     float64 `yaml:"preMoneyValuation,omitempty" json:"preMoneyValuation,omitempty"`
	AmountRaised          float64 `yaml:"amountRaised,omitempty" json:"amountRaised,omitempty"`
	LiquidationMultiplier float64 `yaml:"liquidationMultiplier,omitempty" json:"liquidationMultiplier,omitempty"`
	Participating         bool    `yaml:"participating,omitempty" json:"participating,omitempty"`
}

// TierConfig is one preference tier record.
type TierConfig struct {
	ID                    string   `yaml:"id,omitempty" json:"id,omitempty"`
	Name                  string   `yaml:"name" json:"name"`
	Seniority             int      `yaml:"seniority" json:"seniority"`
	InvestmentAmount      float64  `yaml:"investmentAmount" json:"investmentAmount"`
	LiquidationMultiplier float64  `yaml:"liquidationMultiplier" json:"liquidationMultiplier"`
	Participating         bool     `yaml:"participating,omitempty" json:"participating,omitempty"`
	ParticipationCap      *float64 `yaml:"participationCap,omitempty" json:"participationCap,omitempty"`
	Stakeholders          []string `yaml:"stakeholders,omitempty" json:"stakeholders,omitempty"`
}

// ExitConfig describes the valuation range swept for the waterfall curve
// plus the user's currently selected point.
type ExitConfig struct {
	Min      float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max      float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Samples  int     `yaml:"samples,omitempty" json:"samples,omitempty"`
	Selected float64 `yaml:"selected,omitempty" json:"selected,omitempty"`
}

// LoadScenario takes a file path as input and loads the YAML-formatted
// scenario there.
func LoadScenario(path string) (*Scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading scenario file, %s", err)
	}

	var scenario Scenario
	if err := v.Unmarshal(&scenario); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	return &scenario, nil
}

// LoadScenarioFromReader loads a YAML scenario from an in-memory reader,
// used by the API server.
func LoadScenarioFromReader(r io.Reader) (*Scenario, error) {
	v := viper.New()
	v.SetConfigType("yml")

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading scenario data, %s", err)
	}

	var scenario Scenario
	if err := v.Unmarshal(&scenario); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	return &scenario, nil
}

// Valuations returns the exit valuations to sweep: the configured sampled
// range (defaults when unset) plus the selected point when it falls outside
// the samples.
func (s *Scenario) Valuations() []float64 {
	min := s.Exit.Min
	max := s.Exit.Max
	samples := s.Exit.Samples
	if min <= 0 {
		min = constants.DefaultSweepMinValuation
	}
	if max <= min {
		max = constants.DefaultSweepMaxValuation
	}
	if samples <= 1 {
		samples = constants.DefaultSweepSamples
	}

	step := (max - min) / float64(samples-1)
	points := make([]float64, 0, samples+1)
	for i := 0; i < samples; i++ {
		points = append(points, min+step*float64(i))
	}

	if s.Exit.Selected > 0 {
		found := false
		for _, p := range points {
			if p == s.Exit.Selected {
				found = true
				break
			}
		}
		if !found {
			points = append(points, s.Exit.Selected)
		}
	}
	return points
}
