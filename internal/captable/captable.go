// Package captable defines the cap table data model: stakeholders, share
// classes, vesting, and the option pool. All update operations follow an
// immutable pattern; each mutation returns a new CapTable value so callers
// can keep snapshots for undo/redo.
package captable

import (
	"fmt"

	"github.com/eyadsibai/worth-it-sub001/pkg/constants"
	"github.com/eyadsibai/worth-it-sub001/pkg/mathutil"
)

// StakeholderType identifies the role of a stakeholder on the cap table.
type StakeholderType string

const (
	TypeFounder  StakeholderType = "founder"
	TypeEmployee StakeholderType = "employee"
	TypeInvestor StakeholderType = "investor"
	TypeAdvisor  StakeholderType = "advisor"
)

// ShareClass identifies the class of shares a stakeholder holds.
type ShareClass string

const (
	ClassCommon    ShareClass = "common"
	ClassPreferred ShareClass = "preferred"
)

// Vesting describes a time-based vesting schedule with a cliff.
type Vesting struct {
	TotalShares   int64 `json:"total_shares"`
	VestingMonths int   `json:"vesting_months"`
	CliffMonths   int   `json:"cliff_months"`
	VestedShares  int64 `json:"vested_shares"`
}

// VestedAt returns the number of shares vested after monthsElapsed: zero
// before the cliff, then linear monthly accrual capped at TotalShares.
func (v Vesting) VestedAt(monthsElapsed int) int64 {
	if v.TotalShares <= 0 || v.VestingMonths <= 0 {
		return 0
	}
	if monthsElapsed < v.CliffMonths {
		return 0
	}
	if monthsElapsed >= v.VestingMonths {
		return v.TotalShares
	}
	vested := float64(v.TotalShares) * float64(monthsElapsed) / float64(v.VestingMonths)
	return mathutil.RoundShares(vested)
}

// Stakeholder is one entry on the cap table. OwnershipPct is a derived
// percentage (0-100) maintained by RecalcOwnership. Investment is the
// amount of capital the stakeholder put in, where known; it feeds ROI
// reporting and within-tier pro-rata splits in the waterfall.
type Stakeholder struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         StakeholderType `json:"type"`
	Shares       int64           `json:"shares"`
	OwnershipPct float64         `json:"ownership_pct"`
	ShareClass   ShareClass      `json:"share_class"`
	Investment   float64         `json:"investment_amount,omitempty"`
	Vesting      *Vesting        `json:"vesting,omitempty"`
}

// CapTable is an unordered set of stakeholders plus the total share count
// and the option pool percentage (0-100).
type CapTable struct {
	Stakeholders  []Stakeholder `json:"stakeholders"`
	TotalShares   int64         `json:"total_shares"`
	OptionPoolPct float64       `json:"option_pool_pct"`
}

// Stakeholder looks up a stakeholder by id.
func (ct CapTable) Stakeholder(id string) (Stakeholder, bool) {
	for _, s := range ct.Stakeholders {
		if s.ID == id {
			return s, true
		}
	}
	return Stakeholder{}, false
}

// clone copies the stakeholder slice so updates never alias the receiver.
func (ct CapTable) clone() CapTable {
	out := ct
	out.Stakeholders = make([]Stakeholder, len(ct.Stakeholders))
	copy(out.Stakeholders, ct.Stakeholders)
	for i, s := range out.Stakeholders {
		if s.Vesting != nil {
			v := *s.Vesting
			out.Stakeholders[i].Vesting = &v
		}
	}
	return out
}

// AddStakeholder returns a new CapTable with s appended and ownership
// percentages recomputed. The stakeholder's shares are added to the total.
func (ct CapTable) AddStakeholder(s Stakeholder) (CapTable, error) {
	if s.ID == "" {
		return CapTable{}, fmt.Errorf("captable: stakeholder id must not be empty")
	}
	if s.Shares < 0 {
		return CapTable{}, fmt.Errorf("captable: stakeholder %s has negative shares", s.ID)
	}
	if _, exists := ct.Stakeholder(s.ID); exists {
		return CapTable{}, fmt.Errorf("captable: stakeholder %s already exists", s.ID)
	}
	out := ct.clone()
	out.Stakeholders = append(out.Stakeholders, s)
	out.TotalShares += s.Shares
	return out.RecalcOwnership(), nil
}

// RemoveStakeholder returns a new CapTable without the identified
// stakeholder. Totals and ownership percentages recompute deterministically;
// no residual reference to the removed id remains.
func (ct CapTable) RemoveStakeholder(id string) (CapTable, error) {
	removed, ok := ct.Stakeholder(id)
	if !ok {
		return CapTable{}, fmt.Errorf("captable: stakeholder %s not found", id)
	}
	out := ct
	out.Stakeholders = make([]Stakeholder, 0, len(ct.Stakeholders)-1)
	for _, s := range ct.Stakeholders {
		if s.ID == id {
			continue
		}
		out.Stakeholders = append(out.Stakeholders, s)
	}
	out.TotalShares -= removed.Shares
	return out.RecalcOwnership(), nil
}

// WithOptionPool returns a new CapTable with the option pool percentage set.
func (ct CapTable) WithOptionPool(pct float64) (CapTable, error) {
	if pct < 0 || pct > constants.PercentageMultiplier {
		return CapTable{}, fmt.Errorf("captable: option pool %.2f%% out of range", pct)
	}
	out := ct.clone()
	out.OptionPoolPct = pct
	return out, nil
}

// RecalcOwnership returns a new CapTable with every stakeholder's
// OwnershipPct recomputed from shares and total shares.
func (ct CapTable) RecalcOwnership() CapTable {
	out := ct.clone()
	for i := range out.Stakeholders {
		out.Stakeholders[i].OwnershipPct = mathutil.CalculatePercentage(
			float64(out.Stakeholders[i].Shares), float64(out.TotalShares))
	}
	return out
}

// CommonShares returns the total shares held by common stockholders.
func (ct CapTable) CommonShares() int64 {
	var total int64
	for _, s := range ct.Stakeholders {
		if s.ShareClass == ClassCommon {
			total += s.Shares
		}
	}
	return total
}

// PreferredShares returns the total shares held by preferred stockholders.
func (ct CapTable) PreferredShares() int64 {
	var total int64
	for _, s := range ct.Stakeholders {
		if s.ShareClass == ClassPreferred {
			total += s.Shares
		}
	}
	return total
}

// FullyDilutedShares returns the share count used as the denominator for
// conversion prices and as-converted comparisons. The option pool is
// modeled as part of TotalShares when the scenario reserves it in shares.
func (ct CapTable) FullyDilutedShares() int64 {
	return ct.TotalShares
}

// Validate returns warnings for suspicious but permitted states. Ownership
// plus option pool exceeding 100% warns rather than blocking, matching the
// editing flow where totals drift as entries are adjusted.
func (ct CapTable) Validate() []string {
	var warnings []string

	var ownership float64
	for _, s := range ct.Stakeholders {
		ownership += s.OwnershipPct
		if s.Shares == 0 && s.OwnershipPct == 0 {
			warnings = append(warnings, fmt.Sprintf("Stakeholder '%s' holds no shares", s.Name))
		}
	}
	if ownership+ct.OptionPoolPct > constants.PercentageMultiplier+constants.CurrencyTolerance {
		warnings = append(warnings, fmt.Sprintf(
			"Ownership (%.2f%%) plus option pool (%.2f%%) exceeds 100%%",
			ownership, ct.OptionPoolPct))
	}

	var shares int64
	for _, s := range ct.Stakeholders {
		shares += s.Shares
	}
	if shares > ct.TotalShares {
		warnings = append(warnings, fmt.Sprintf(
			"Stakeholder shares (%d) exceed total shares (%d)", shares, ct.TotalShares))
	}

	return warnings
}
