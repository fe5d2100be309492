package instrument

import (
	"fmt"
	"sort"

	"github.com/eyadsibai/worth-it-sub001/pkg/constants"
	"github.com/google/uuid"
)

// PreferenceTier holds the liquidation preference terms for one seniority
// rank in the waterfall. Seniority 1 is paid first. Seniority values are a
// UI convention; they need not be consecutive, only positive.
type PreferenceTier struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name"`
	Seniority             int      `json:"seniority"`
	InvestmentAmount      float64  `json:"investment_amount"`
	LiquidationMultiplier float64  `json:"liquidation_multiplier"`
	Participating         bool     `json:"participating"`
	ParticipationCap      *float64 `json:"participation_cap,omitempty"`
	StakeholderIDs        []string `json:"stakeholder_ids"`
}

// Preference returns the fixed preference amount for the tier.
func (t PreferenceTier) Preference() float64 {
	return t.InvestmentAmount * t.LiquidationMultiplier
}

// CapAmount returns the total-return cap for a participating tier, or zero
// when no cap is set.
func (t PreferenceTier) CapAmount() float64 {
	if t.ParticipationCap == nil {
		return 0
	}
	return *t.ParticipationCap * t.InvestmentAmount
}

// Validate reports structural problems with the tier terms.
func (t PreferenceTier) Validate() error {
	if t.Seniority <= 0 {
		return fmt.Errorf("instrument: tier %q has non-positive seniority %d", t.Name, t.Seniority)
	}
	if t.InvestmentAmount < 0 {
		return fmt.Errorf("instrument: tier %q has negative investment", t.Name)
	}
	if t.LiquidationMultiplier < constants.MinLiquidationMultiplier {
		return fmt.Errorf("instrument: tier %q liquidation multiplier %.2f below 1x", t.Name, t.LiquidationMultiplier)
	}
	if t.ParticipationCap != nil && *t.ParticipationCap < constants.MinLiquidationMultiplier {
		return fmt.Errorf("instrument: tier %q participation cap %.2f below 1x", t.Name, *t.ParticipationCap)
	}
	return nil
}

// PruneStakeholders returns a copy of the tier with stakeholder ids not in
// validIDs removed. Used to clean up tier references after a stakeholder is
// removed from the cap table.
func (t PreferenceTier) PruneStakeholders(validIDs map[string]struct{}) PreferenceTier {
	out := t
	out.StakeholderIDs = make([]string, 0, len(t.StakeholderIDs))
	for _, id := range t.StakeholderIDs {
		if _, ok := validIDs[id]; ok {
			out.StakeholderIDs = append(out.StakeholderIDs, id)
		}
	}
	return out
}

// TierFromRound builds a preference tier from a priced round's terms,
// entitled to the given stakeholders. Seniority is supplied by the caller
// since it reflects the tier's position in the full stack.
func TierFromRound(round PricedRound, seniority int, stakeholderIDs []string) PreferenceTier {
	return PreferenceTier{
		ID:                    uuid.NewString(),
		Name:                  round.RoundName,
		Seniority:             seniority,
		InvestmentAmount:      round.AmountRaised,
		LiquidationMultiplier: round.LiquidationMultiplier,
		Participating:         round.Participating,
		StakeholderIDs:        append([]string(nil), stakeholderIDs...),
	}
}

// SortTiers returns the tiers ordered by ascending seniority (1 = paid
// first), without mutating the input.
func SortTiers(tiers []PreferenceTier) []PreferenceTier {
	out := make([]PreferenceTier, len(tiers))
	copy(out, tiers)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Seniority < out[j].Seniority
	})
	return out
}
