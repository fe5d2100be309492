package config

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/eyadsibai/worth-it-sub001/internal/captable"
	"github.com/eyadsibai/worth-it-sub001/internal/instrument"
	"github.com/eyadsibai/worth-it-sub001/pkg/constants"
)

// Model is the domain view of a scenario: the cap table, the convertible
// instruments, the triggering priced round if one is configured, and the
// preference tiers.
type Model struct {
	CapTable     captable.CapTable
	Convertibles []instrument.Instrument
	Round        *instrument.PricedRound
	Tiers        []instrument.PreferenceTier
}

// ToDomain converts the scenario records into domain values, assigning ids
// where records omit them. Malformed records are hard errors, unlike the
// soft warnings from Validate.
func (s *Scenario) ToDomain() (*Model, error) {
	ct, err := s.CapTable.toDomain()
	if err != nil {
		return nil, err
	}

	model := &Model{CapTable: ct}

	for i, rec := range s.Instruments {
		switch instrument.Kind(rec.Kind) {
		case instrument.KindSAFE:
			safe, err := rec.toSAFE()
			if err != nil {
				return nil, fmt.Errorf("instrument %d: %w", i, err)
			}
			model.Convertibles = append(model.Convertibles, instrument.FromSAFE(safe))
		case instrument.KindNote:
			note, err := rec.toNote()
			if err != nil {
				return nil, fmt.Errorf("instrument %d: %w", i, err)
			}
			model.Convertibles = append(model.Convertibles, instrument.FromNote(note))
		case instrument.KindPricedRound:
			if model.Round != nil {
				return nil, fmt.Errorf("instrument %d: scenario already has a priced round", i)
			}
			if ct.TotalShares <= 0 {
				return nil, fmt.Errorf("instrument %d: priced round requires positive cap table total shares", i)
			}
			round, err := instrument.NewPricedRound(rec.RoundName, rec.LeadInvestor,
				rec.PreMoneyValuation, rec.AmountRaised, ct.TotalShares,
				roundMultiplier(rec.LiquidationMultiplier), rec.Participating)
			if err != nil {
				return nil, fmt.Errorf("instrument %d: %w", i, err)
			}
			if rec.ID != "" {
				round.ID = rec.ID
			}
			model.Round = &round
		default:
			return nil, fmt.Errorf("instrument %d: unknown kind %q", i, rec.Kind)
		}
	}

	for i, rec := range s.Tiers {
		tier := rec.toDomain()
		if err := tier.Validate(); err != nil {
			return nil, fmt.Errorf("tier %d: %w", i, err)
		}
		model.Tiers = append(model.Tiers, tier)
	}

	return model, nil
}

func (c CapTableConfig) toDomain() (captable.CapTable, error) {
	ct := captable.CapTable{
		TotalShares:   c.TotalShares,
		OptionPoolPct: c.OptionPoolPct,
	}
	if c.TotalShares < 0 {
		return captable.CapTable{}, fmt.Errorf("cap table total shares must not be negative")
	}
	if c.OptionPoolPct < 0 || c.OptionPoolPct > constants.PercentageMultiplier {
		return captable.CapTable{}, fmt.Errorf("option pool %.2f%% out of range", c.OptionPoolPct)
	}

	for i, rec := range c.Stakeholders {
		s, err := rec.toDomain()
		if err != nil {
			return captable.CapTable{}, fmt.Errorf("stakeholder %d: %w", i, err)
		}
		ct.Stakeholders = append(ct.Stakeholders, s)
	}
	return ct.RecalcOwnership(), nil
}

func (c StakeholderConfig) toDomain() (captable.Stakeholder, error) {
	if c.Shares < 0 {
		return captable.Stakeholder{}, fmt.Errorf("shares must not be negative")
	}
	switch captable.StakeholderType(c.Type) {
	case captable.TypeFounder, captable.TypeEmployee, captable.TypeInvestor, captable.TypeAdvisor:
	default:
		return captable.Stakeholder{}, fmt.Errorf("unknown stakeholder type %q", c.Type)
	}
	class := captable.ShareClass(c.ShareClass)
	if class == "" {
		class = captable.ClassCommon
	}
	switch class {
	case captable.ClassCommon, captable.ClassPreferred:
	default:
		return captable.Stakeholder{}, fmt.Errorf("unknown share class %q", c.ShareClass)
	}

	// Legacy scenario files carry equityPct as a 0-1 fraction instead of
	// the 0-100 ownershipPct; scale it up when ownershipPct is absent.
	ownership := c.OwnershipPct
	if ownership == 0 && c.EquityPct > 0 {
		ownership = c.EquityPct * constants.PercentageMultiplier
	}

	s := captable.Stakeholder{
		ID:           c.ID,
		Name:         c.Name,
		Type:         captable.StakeholderType(c.Type),
		Shares:       c.Shares,
		OwnershipPct: ownership,
		ShareClass:   class,
		Investment:   c.Investment,
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if c.Vesting != nil {
		s.Vesting = &captable.Vesting{
			TotalShares:   c.Vesting.TotalShares,
			VestingMonths: c.Vesting.VestingMonths,
			CliffMonths:   c.Vesting.CliffMonths,
			VestedShares:  c.Vesting.VestedShares,
		}
	}
	return s, nil
}

func (c InstrumentConfig) toSAFE() (instrument.SAFE, error) {
	if c.InvestmentAmount <= 0 {
		return instrument.SAFE{}, fmt.Errorf("investment amount must be positive")
	}
	if c.DiscountPct != nil && (*c.DiscountPct < 0 || *c.DiscountPct > constants.PercentageMultiplier) {
		return instrument.SAFE{}, fmt.Errorf("discount %.2f%% out of range", *c.DiscountPct)
	}
	if c.ValuationCap != nil && *c.ValuationCap <= 0 {
		return instrument.SAFE{}, fmt.Errorf("valuation cap must be positive")
	}

	status := instrument.Status(c.Status)
	if status == "" {
		status = instrument.StatusOutstanding
	}
	switch status {
	case instrument.StatusOutstanding, instrument.StatusConverted:
	default:
		return instrument.SAFE{}, fmt.Errorf("unknown status %q", c.Status)
	}

	safe := instrument.SAFE{
		ID:               c.ID,
		InvestorName:     c.InvestorName,
		InvestmentAmount: c.InvestmentAmount,
		ValuationCap:     c.ValuationCap,
		DiscountPct:      c.DiscountPct,
		ProRataRights:    c.ProRataRights,
		MFNClause:        c.MFNClause,
		Status:           status,
	}
	if safe.ID == "" {
		safe.ID = uuid.NewString()
	}
	return safe, nil
}

func (c InstrumentConfig) toNote() (instrument.ConvertibleNote, error) {
	safe, err := c.toSAFE()
	if err != nil {
		return instrument.ConvertibleNote{}, err
	}
	if c.InterestRate < 0 || c.InterestRate > constants.PercentageMultiplier {
		return instrument.ConvertibleNote{}, fmt.Errorf("interest rate %.2f%% out of range", c.InterestRate)
	}
	if c.MaturityMonths <= 0 {
		return instrument.ConvertibleNote{}, fmt.Errorf("maturity months must be positive")
	}

	interest := instrument.InterestType(c.InterestType)
	if interest == "" {
		interest = instrument.InterestSimple
	}
	switch interest {
	case instrument.InterestSimple, instrument.InterestCompound:
	default:
		return instrument.ConvertibleNote{}, fmt.Errorf("unknown interest type %q", c.InterestType)
	}

	return instrument.ConvertibleNote{
		SAFE:            safe,
		InterestRate:    c.InterestRate,
		InterestType:    interest,
		MaturityMonths:  c.MaturityMonths,
		IssuedMonthsAgo: c.IssuedMonthsAgo,
	}, nil
}

func (c TierConfig) toDomain() instrument.PreferenceTier {
	tier := instrument.PreferenceTier{
		ID:                    c.ID,
		Name:                  c.Name,
		Seniority:             c.Seniority,
		InvestmentAmount:      c.InvestmentAmount,
		LiquidationMultiplier: roundMultiplier(c.LiquidationMultiplier),
		Participating:         c.Participating,
		ParticipationCap:      c.ParticipationCap,
		StakeholderIDs:        append([]string(nil), c.Stakeholders...),
	}
	if tier.ID == "" {
		tier.ID = uuid.NewString()
	}
	return tier
}

// roundMultiplier defaults an unset liquidation multiplier to 1x.
func roundMultiplier(m float64) float64 {
	if m == 0 {
		return constants.MinLiquidationMultiplier
	}
	return m
}

// Validate performs general validation of the scenario and returns
// warnings. Hard structural errors surface from ToDomain instead.
func (s *Scenario) Validate() []string {
	var warnings []string

	var ownership float64
	ids := make(map[string]struct{})
	for _, sh := range s.CapTable.Stakeholders {
		pct := sh.OwnershipPct
		if pct == 0 && sh.EquityPct > 0 {
			pct = sh.EquityPct * constants.PercentageMultiplier
		}
		ownership += pct
		if sh.ID != "" {
			ids[sh.ID] = struct{}{}
		}
	}
	// Converted instruments join the cap table under their instrument id, so
	// tiers may reference those ids too.
	for _, rec := range s.Instruments {
		if rec.ID != "" {
			ids[rec.ID] = struct{}{}
		}
	}
	if ownership+s.CapTable.OptionPoolPct > constants.PercentageMultiplier+constants.CurrencyTolerance {
		warnings = append(warnings, fmt.Sprintf(
			"Ownership (%.2f%%) plus option pool (%.2f%%) exceeds 100%%",
			ownership, s.CapTable.OptionPoolPct))
	}

	seniorities := make(map[int]string)
	for _, tier := range s.Tiers {
		if prev, dup := seniorities[tier.Seniority]; dup {
			warnings = append(warnings, fmt.Sprintf(
				"Tiers '%s' and '%s' share seniority %d; payout order between them is unspecified",
				prev, tier.Name, tier.Seniority))
		}
		seniorities[tier.Seniority] = tier.Name
		for _, id := range tier.Stakeholders {
			if _, ok := ids[id]; !ok {
				warnings = append(warnings, fmt.Sprintf(
					"Tier '%s' references unknown stakeholder id '%s'", tier.Name, id))
			}
		}
	}

	for _, rec := range s.Instruments {
		if instrument.Kind(rec.Kind) == instrument.KindNote && rec.IssuedMonthsAgo > rec.MaturityMonths && rec.MaturityMonths > 0 {
			warnings = append(warnings, fmt.Sprintf(
				"Note '%s' is past maturity; interest accrual stops at %d months",
				rec.InvestorName, rec.MaturityMonths))
		}
	}

	return warnings
}
