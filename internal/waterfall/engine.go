// Package waterfall implements the exit-proceeds distribution engine: for a
// given exit valuation it walks the liquidation preference stack in
// seniority order, applies participation and as-converted elections, and
// reports every stakeholder's payout plus a step-by-step narrative of the
// distribution order. All functions are pure; inputs are never mutated.
package waterfall

import (
	"fmt"
	"math"

	"github.com/eyadsibai/worth-it-sub001/internal/captable"
	"github.com/eyadsibai/worth-it-sub001/internal/errs"
	"github.com/eyadsibai/worth-it-sub001/internal/instrument"
	"github.com/eyadsibai/worth-it-sub001/pkg/constants"
	"github.com/eyadsibai/worth-it-sub001/pkg/mathutil"
	"go.uber.org/zap"
)

// Sentinel errors for waterfall failures.
var (
	// ErrEmptyCapTable rejects distributions over a cap table with no
	// stakeholders.
	ErrEmptyCapTable = errs.Computation("cap table has no stakeholders")

	// ErrInvalidTierOrder rejects tiers with non-positive seniority.
	ErrInvalidTierOrder = errs.Validation("preference tier seniority must be positive")

	// ErrNegativeValuation rejects negative exit valuations.
	ErrNegativeValuation = errs.Validation("exit valuation must be non-negative")
)

// StakeholderPayout is one stakeholder's share of the exit proceeds.
type StakeholderPayout struct {
	StakeholderID    string   `json:"stakeholder_id"`
	Name             string   `json:"name"`
	PayoutAmount     float64  `json:"payout_amount"`
	PayoutPct        float64  `json:"payout_pct"`
	InvestmentAmount float64  `json:"investment_amount,omitempty"`
	ROI              *float64 `json:"roi,omitempty"`
}

// Step narrates one stage of the distribution.
type Step struct {
	StepNumber        int      `json:"step_number"`
	Description       string   `json:"description"`
	Recipients        []string `json:"recipients"`
	Amount            float64  `json:"amount"`
	RemainingProceeds float64  `json:"remaining_proceeds"`
}

// Distribution is the full result for one exit valuation.
type Distribution struct {
	ExitValuation float64             `json:"exit_valuation"`
	Payouts       []StakeholderPayout `json:"stakeholder_payouts"`
	Steps         []Step              `json:"waterfall_steps"`
	CommonPct     float64             `json:"common_pct"`
	PreferredPct  float64             `json:"preferred_pct"`
}

// Engine computes waterfall distributions.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a waterfall engine with the given logger.
// If logger is nil, it will use a no-op logger to prevent panics.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// tierState carries the resolved per-tier facts for one distribution run.
type tierState struct {
	tier           instrument.PreferenceTier
	holders        []captable.Stakeholder
	shares         int64
	fractions      []float64 // within-tier pro-rata split per holder
	electsConvert  bool
	preferencePaid float64
}

// Distribute computes the distribution of exitValuation across the
// preference stack and common stock.
//
// Non-participating preferred tiers elect between their fixed preference and
// converting to common. The election is settled by comparing the payout the
// tier's holders would actually receive under each option, holding the other
// tiers' elections fixed and iterating to a fixed point, so every
// stakeholder's payout is continuous and non-decreasing in the valuation and
// proceeds are conserved exactly.
func (e *Engine) Distribute(ct captable.CapTable, tiers []instrument.PreferenceTier, exitValuation float64) (*Distribution, error) {
	if len(ct.Stakeholders) == 0 {
		return nil, fmt.Errorf("waterfall: %w", ErrEmptyCapTable)
	}
	if exitValuation < 0 {
		return nil, fmt.Errorf("waterfall: valuation %.2f: %w", exitValuation, ErrNegativeValuation)
	}
	for _, t := range tiers {
		if t.Seniority <= 0 {
			return nil, fmt.Errorf("waterfall: tier %q seniority %d: %w", t.Name, t.Seniority, ErrInvalidTierOrder)
		}
	}

	states := e.resolveTiers(ct, tiers)
	e.settleElections(ct, states, exitValuation)
	payouts, steps := e.allocate(ct, states, exitValuation)

	dist := e.buildDistribution(ct, payouts, exitValuation)
	dist.Steps = steps

	e.logger.Debug("distribution computed",
		zap.String("op", "waterfall.Distribute"),
		zap.Float64("valuation", exitValuation),
		zap.Int("steps", len(steps)),
		zap.Float64("commonPct", dist.CommonPct),
	)

	return dist, nil
}

// resolveTiers binds each tier to its cap-table holders in seniority order
// and computes the within-tier pro-rata fractions. Tier stakeholder ids with
// no cap-table entry are ignored, matching the orphan-pruning policy applied
// on stakeholder removal.
func (e *Engine) resolveTiers(ct captable.CapTable, tiers []instrument.PreferenceTier) []tierState {
	sorted := instrument.SortTiers(tiers)
	states := make([]tierState, 0, len(sorted))

	for _, t := range sorted {
		st := tierState{tier: t}
		for _, id := range t.StakeholderIDs {
			if s, ok := ct.Stakeholder(id); ok {
				st.holders = append(st.holders, s)
				st.shares += s.Shares
			}
		}
		if len(st.holders) == 0 {
			continue
		}
		st.fractions = tierFractions(st.holders)
		states = append(states, st)
	}
	return states
}

// settleElections resolves the as-converted election for every
// non-participating tier. A tier converts when the payout its holders would
// actually receive as common, under the full distribution with the other
// tiers' current elections held fixed, exceeds what the preference pays
// them. Elections interact through the residual pool, so the loop repeats
// until no tier changes its mind, bounded at one pass per tier. At the flip
// point both options pay the tier exactly the same, keeping every
// stakeholder's payout continuous in the valuation.
func (e *Engine) settleElections(ct captable.CapTable, states []tierState, exitValuation float64) {
	for i := range states {
		states[i].electsConvert = false
	}
	for pass := 0; pass <= len(states); pass++ {
		changed := false
		for i := range states {
			st := &states[i]
			if st.tier.Participating {
				continue
			}
			was := st.electsConvert
			st.electsConvert = false
			asPreference := e.tierPayout(ct, states, exitValuation, i)
			st.electsConvert = true
			asConverted := e.tierPayout(ct, states, exitValuation, i)
			st.electsConvert = asConverted > asPreference
			if st.electsConvert != was {
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// tierPayout runs a trial distribution and returns the total paid to the
// holders of states[idx] under the current election set.
func (e *Engine) tierPayout(ct captable.CapTable, states []tierState, exitValuation float64, idx int) float64 {
	payouts, _ := e.allocate(ct, states, exitValuation)
	var total float64
	for _, h := range states[idx].holders {
		total += payouts[h.ID]
	}
	return total
}

// allocate walks the preference stack and distributes the residual for the
// given election set, returning the payout map and the step narrative.
func (e *Engine) allocate(ct captable.CapTable, states []tierState, exitValuation float64) (map[string]float64, []Step) {
	payouts := make(map[string]float64, len(ct.Stakeholders))
	remaining := exitValuation
	var steps []Step

	// Walk tiers in seniority order: fixed preferences first.
	for i := range states {
		st := &states[i]
		st.preferencePaid = 0
		if st.shares == 0 && st.tier.InvestmentAmount == 0 {
			continue
		}
		if st.electsConvert {
			steps = append(steps, Step{
				StepNumber:        len(steps) + 1,
				Description:       fmt.Sprintf("Tier %q converts to common (as-converted value exceeds preference)", st.tier.Name),
				Recipients:        holderNames(st.holders),
				Amount:            0,
				RemainingProceeds: mathutil.Round(remaining),
			})
			continue
		}
		pay := mathutil.Min(remaining, st.tier.Preference())
		if pay <= 0 {
			continue
		}
		for j, h := range st.holders {
			payouts[h.ID] += pay * st.fractions[j]
		}
		st.preferencePaid = pay
		remaining -= pay
		steps = append(steps, Step{
			StepNumber:        len(steps) + 1,
			Description:       fmt.Sprintf("Tier %q liquidation preference (%.1fx)", st.tier.Name, st.tier.LiquidationMultiplier),
			Recipients:        holderNames(st.holders),
			Amount:            mathutil.Round(pay),
			RemainingProceeds: mathutil.Round(remaining),
		})
	}

	// Remaining proceeds are shared pro-rata by shares among common stock,
	// converting tiers, and participating tiers (the latter subject to
	// their participation caps).
	if remaining > 0 {
		distributed, recipients := e.distributeResidual(ct, states, payouts, remaining)
		remaining -= distributed
		steps = append(steps, Step{
			StepNumber:        len(steps) + 1,
			Description:       "Pro-rata distribution to common and participating holders",
			Recipients:        recipients,
			Amount:            mathutil.Round(distributed),
			RemainingProceeds: mathutil.Round(remaining),
		})
	}

	// Degenerate stacks (every participant capped, no common stock) can
	// leave proceeds unallocated; they fall through to all stakeholders
	// pro-rata so the distribution always sums to the valuation.
	if remaining > constants.CurrencyTolerance {
		var weights float64
		for _, s := range ct.Stakeholders {
			weights += float64(s.Shares)
		}
		if weights > 0 {
			for _, s := range ct.Stakeholders {
				payouts[s.ID] += remaining * float64(s.Shares) / weights
			}
			steps = append(steps, Step{
				StepNumber:        len(steps) + 1,
				Description:       "Residual distribution to all stakeholders",
				Recipients:        allNames(ct),
				Amount:            mathutil.Round(remaining),
				RemainingProceeds: 0,
			})
		}
	}

	return payouts, steps
}

// residualParticipant is one claimant on the post-preference pool.
type residualParticipant struct {
	stakeholderID string
	name          string
	weight        float64
	capacity      float64 // math.Inf(1) when uncapped
}

// distributeResidual shares the residual pool pro-rata by shares among all
// stakeholders except non-participating preference takers. Participating
// holders with a cap are limited to capShare minus preference already
// received; when a holder hits its cap it leaves the pool and the excess is
// redistributed among the remaining participants.
func (e *Engine) distributeResidual(ct captable.CapTable, states []tierState, payouts map[string]float64, pool float64) (float64, []string) {
	excluded := make(map[string]struct{})
	capacity := make(map[string]float64)

	for _, st := range states {
		for j, h := range st.holders {
			if st.tier.Participating {
				if capAmount := st.tier.CapAmount(); capAmount > 0 {
					room := capAmount*st.fractions[j] - st.preferencePaid*st.fractions[j]
					capacity[h.ID] = mathutil.Max(room, 0)
				}
			} else if !st.electsConvert {
				// Preference takers do not double-dip in the residual.
				excluded[h.ID] = struct{}{}
			}
		}
	}

	var active []residualParticipant
	for _, s := range ct.Stakeholders {
		if _, skip := excluded[s.ID]; skip {
			continue
		}
		if s.Shares <= 0 {
			continue
		}
		room := math.Inf(1)
		if c, capped := capacity[s.ID]; capped {
			room = c
		}
		active = append(active, residualParticipant{
			stakeholderID: s.ID,
			name:          s.Name,
			weight:        float64(s.Shares),
			capacity:      room,
		})
	}

	candidates := append([]residualParticipant(nil), active...)
	paid := make(map[string]float64, len(active))

	var distributed float64
	remaining := pool
	for len(active) > 0 && remaining > 0 {
		var totalWeight float64
		for _, p := range active {
			totalWeight += p.weight
		}
		if totalWeight <= 0 {
			break
		}

		// Pay any participant whose pro-rata allocation would exceed its
		// remaining cap room exactly its room, drop it from the pool, and
		// rerun with the excess. Each pass removes at least one
		// participant, so this terminates.
		capped := false
		next := active[:0]
		for _, p := range active {
			alloc := remaining * p.weight / totalWeight
			if alloc > p.capacity {
				payouts[p.stakeholderID] += p.capacity
				paid[p.stakeholderID] += p.capacity
				distributed += p.capacity
				capped = true
				continue
			}
			next = append(next, p)
		}
		active = next
		remaining = pool - distributed
		if capped {
			continue
		}

		for i := range active {
			alloc := remaining * active[i].weight / totalWeight
			payouts[active[i].stakeholderID] += alloc
			paid[active[i].stakeholderID] += alloc
			distributed += alloc
		}
		remaining = 0
	}

	// Recipients reflect the money flow: holders whose cap room was already
	// exhausted take nothing here and are not listed.
	var recipients []string
	for _, p := range candidates {
		if paid[p.stakeholderID] > 0 {
			recipients = append(recipients, p.name)
		}
	}
	return distributed, recipients
}

// buildDistribution assembles the payout list in cap-table order and the
// per-class aggregates.
func (e *Engine) buildDistribution(ct captable.CapTable, payouts map[string]float64, exitValuation float64) *Distribution {
	dist := &Distribution{ExitValuation: exitValuation}

	var commonTotal, preferredTotal float64
	for _, s := range ct.Stakeholders {
		amount := payouts[s.ID]
		payout := StakeholderPayout{
			StakeholderID:    s.ID,
			Name:             s.Name,
			PayoutAmount:     mathutil.Round(amount),
			PayoutPct:        mathutil.CalculatePercentage(amount, exitValuation),
			InvestmentAmount: s.Investment,
		}
		if s.Investment > 0 {
			roi := amount / s.Investment
			payout.ROI = &roi
		}
		dist.Payouts = append(dist.Payouts, payout)

		switch s.ShareClass {
		case captable.ClassCommon:
			commonTotal += amount
		case captable.ClassPreferred:
			preferredTotal += amount
		}
	}

	dist.CommonPct = mathutil.CalculatePercentage(commonTotal, exitValuation)
	dist.PreferredPct = mathutil.CalculatePercentage(preferredTotal, exitValuation)
	return dist
}

func tierFractions(holders []captable.Stakeholder) []float64 {
	fractions := make([]float64, len(holders))

	var totalInvestment float64
	for _, h := range holders {
		totalInvestment += h.Investment
	}
	if totalInvestment > 0 {
		for i, h := range holders {
			fractions[i] = h.Investment / totalInvestment
		}
		return fractions
	}

	var totalShares float64
	for _, h := range holders {
		totalShares += float64(h.Shares)
	}
	if totalShares > 0 {
		for i, h := range holders {
			fractions[i] = float64(h.Shares) / totalShares
		}
		return fractions
	}

	for i := range holders {
		fractions[i] = 1 / float64(len(holders))
	}
	return fractions
}

func holderNames(holders []captable.Stakeholder) []string {
	names := make([]string, 0, len(holders))
	for _, h := range holders {
		names = append(names, h.Name)
	}
	return names
}

func allNames(ct captable.CapTable) []string {
	names := make([]string, 0, len(ct.Stakeholders))
	for _, s := range ct.Stakeholders {
		names = append(names, s.Name)
	}
	return names
}
