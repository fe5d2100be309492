package waterfall

import (
	"errors"
	"math"
	"testing"

	"github.com/eyadsibai/worth-it-sub001/internal/captable"
	"github.com/eyadsibai/worth-it-sub001/internal/errs"
	"github.com/eyadsibai/worth-it-sub001/internal/instrument"
	"github.com/eyadsibai/worth-it-sub001/pkg/mathutil"
)

func floatPtr(v float64) *float64 { return &v }

// commonTable is a pure common-stock cap table: 60/40 split.
func commonTable() captable.CapTable {
	return captable.CapTable{
		TotalShares: 10_000_000,
		Stakeholders: []captable.Stakeholder{
			{ID: "founder-1", Name: "Alice", Type: captable.TypeFounder, Shares: 6_000_000, ShareClass: captable.ClassCommon},
			{ID: "founder-2", Name: "Bob", Type: captable.TypeFounder, Shares: 4_000_000, ShareClass: captable.ClassCommon},
		},
	}.RecalcOwnership()
}

// preferredTable adds a $5M preferred investor holding 4M of 10M shares.
func preferredTable() captable.CapTable {
	return captable.CapTable{
		TotalShares: 10_000_000,
		Stakeholders: []captable.Stakeholder{
			{ID: "founder-1", Name: "Alice", Type: captable.TypeFounder, Shares: 6_000_000, ShareClass: captable.ClassCommon},
			{ID: "inv-1", Name: "Acme Ventures", Type: captable.TypeInvestor, Shares: 4_000_000, ShareClass: captable.ClassPreferred, Investment: 5_000_000},
		},
	}.RecalcOwnership()
}

func onexTier() instrument.PreferenceTier {
	return instrument.PreferenceTier{
		ID: "tier-1", Name: "Series A", Seniority: 1,
		InvestmentAmount: 5_000_000, LiquidationMultiplier: 1,
		StakeholderIDs: []string{"inv-1"},
	}
}

func payoutFor(t *testing.T, dist *Distribution, id string) float64 {
	t.Helper()
	for _, p := range dist.Payouts {
		if p.StakeholderID == id {
			return p.PayoutAmount
		}
	}
	t.Fatalf("stakeholder %s missing from payouts", id)
	return 0
}

func TestDistributeProRataBaseline(t *testing.T) {
	engine := NewEngine(nil)
	ct := commonTable()

	for _, valuation := range []float64{1_000_000, 50_000_000, 500_000_000} {
		dist, err := engine.Distribute(ct, nil, valuation)
		if err != nil {
			t.Fatalf("Distribute(%f) returned error: %v", valuation, err)
		}
		for _, payout := range dist.Payouts {
			s, _ := ct.Stakeholder(payout.StakeholderID)
			want := mathutil.ApplyPercentage(valuation, s.OwnershipPct)
			if !mathutil.WithinTolerance(payout.PayoutAmount, want, 1.0) {
				t.Errorf("payout for %s at %.0f = %.2f, want %.2f", payout.Name, valuation, payout.PayoutAmount, want)
			}
		}
		if !mathutil.WithinTolerance(dist.CommonPct, 100, 1e-6) {
			t.Errorf("common pct = %.4f, want 100", dist.CommonPct)
		}
	}
}

func TestDistributeFullAllocation(t *testing.T) {
	engine := NewEngine(nil)
	ct := preferredTable()
	tiers := []instrument.PreferenceTier{onexTier()}

	for _, valuation := range []float64{0, 2_000_000, 5_000_000, 12_500_000, 20_000_000, 100_000_000} {
		dist, err := engine.Distribute(ct, tiers, valuation)
		if err != nil {
			t.Fatalf("Distribute(%f) returned error: %v", valuation, err)
		}
		var total float64
		for _, payout := range dist.Payouts {
			total += payout.PayoutAmount
		}
		if !mathutil.WithinTolerance(total, valuation, 1.0) {
			t.Errorf("total payouts at %.0f = %.2f, want %.2f", valuation, total, valuation)
		}
	}
}

func TestDistributeMonotonicity(t *testing.T) {
	engine := NewEngine(nil)
	ct := preferredTable()
	tiers := []instrument.PreferenceTier{onexTier()}

	previous := map[string]float64{}
	for v := 1_000_000.0; v <= 50_000_000; v += 1_000_000 {
		dist, err := engine.Distribute(ct, tiers, v)
		if err != nil {
			t.Fatalf("Distribute(%f) returned error: %v", v, err)
		}
		for _, payout := range dist.Payouts {
			if payout.PayoutAmount < previous[payout.StakeholderID]-1.0 {
				t.Errorf("payout for %s decreased at %.0f: %.2f -> %.2f",
					payout.Name, v, previous[payout.StakeholderID], payout.PayoutAmount)
			}
			previous[payout.StakeholderID] = payout.PayoutAmount
		}
	}
}

func TestDistributeMonotonicityMultiTier(t *testing.T) {
	engine := NewEngine(nil)
	ct := captable.CapTable{
		TotalShares: 10_000,
		Stakeholders: []captable.Stakeholder{
			{ID: "founder-1", Name: "Alice", Type: captable.TypeFounder, Shares: 5_000, ShareClass: captable.ClassCommon},
			{ID: "inv-a", Name: "Growth Fund", Type: captable.TypeInvestor, Shares: 2_500, ShareClass: captable.ClassPreferred, Investment: 4_000_000},
			{ID: "inv-b", Name: "Seed Fund", Type: captable.TypeInvestor, Shares: 2_500, ShareClass: captable.ClassPreferred, Investment: 1_000_000},
		},
	}.RecalcOwnership()
	// The junior tier crosses its conversion threshold inside the swept
	// range while the senior tier still holds its preference.
	tiers := []instrument.PreferenceTier{
		{ID: "t-a", Name: "Series A", Seniority: 2, InvestmentAmount: 4_000_000, LiquidationMultiplier: 1, StakeholderIDs: []string{"inv-a"}},
		{ID: "t-seed", Name: "Seed", Seniority: 1, InvestmentAmount: 1_000_000, LiquidationMultiplier: 1, StakeholderIDs: []string{"inv-b"}},
	}

	previous := map[string]float64{}
	for v := 500_000.0; v <= 30_000_000; v += 100_000 {
		dist, err := engine.Distribute(ct, tiers, v)
		if err != nil {
			t.Fatalf("Distribute(%f) returned error: %v", v, err)
		}
		var total float64
		for _, payout := range dist.Payouts {
			total += payout.PayoutAmount
			if payout.PayoutAmount < previous[payout.StakeholderID]-1.0 {
				t.Fatalf("payout for %s decreased at %.0f: %.2f -> %.2f",
					payout.Name, v, previous[payout.StakeholderID], payout.PayoutAmount)
			}
			previous[payout.StakeholderID] = payout.PayoutAmount
		}
		if !mathutil.WithinTolerance(total, v, 1.0) {
			t.Fatalf("total payouts at %.0f = %.2f", v, total)
		}
	}
}

func TestDistributeJuniorElectionContinuity(t *testing.T) {
	engine := NewEngine(nil)
	ct := captable.CapTable{
		TotalShares: 10_000,
		Stakeholders: []captable.Stakeholder{
			{ID: "founder-1", Name: "Alice", Type: captable.TypeFounder, Shares: 5_000, ShareClass: captable.ClassCommon},
			{ID: "inv-a", Name: "Growth Fund", Type: captable.TypeInvestor, Shares: 2_500, ShareClass: captable.ClassPreferred, Investment: 4_000_000},
			{ID: "inv-b", Name: "Seed Fund", Type: captable.TypeInvestor, Shares: 2_500, ShareClass: captable.ClassPreferred, Investment: 1_000_000},
		},
	}.RecalcOwnership()
	tiers := []instrument.PreferenceTier{
		{ID: "t-a", Name: "Series A", Seniority: 2, InvestmentAmount: 4_000_000, LiquidationMultiplier: 1, StakeholderIDs: []string{"inv-a"}},
		{ID: "t-seed", Name: "Seed", Seniority: 1, InvestmentAmount: 1_000_000, LiquidationMultiplier: 1, StakeholderIDs: []string{"inv-b"}},
	}

	// Just past the point where both preferences are covered, the junior
	// tier keeps its full preference: converting would pay it only a sliver
	// of the residual.
	dist, err := engine.Distribute(ct, tiers, 4_000_100)
	if err != nil {
		t.Fatalf("Distribute returned error: %v", err)
	}
	if got := payoutFor(t, dist, "inv-b"); !mathutil.WithinTolerance(got, 1_000_000, 1.0) {
		t.Errorf("junior payout just past preference coverage = %.2f, want 1000000", got)
	}

	// The junior's election flips where its residual share first matches
	// its preference: (V - 4M) x 2500/7500 = 1M, i.e. V = $7M. Payouts on
	// both sides of the flip stay within a step of the sampling distance.
	below, err := engine.Distribute(ct, tiers, 6_999_000)
	if err != nil {
		t.Fatalf("Distribute returned error: %v", err)
	}
	above, err := engine.Distribute(ct, tiers, 7_001_000)
	if err != nil {
		t.Fatalf("Distribute returned error: %v", err)
	}
	payoutBelow := payoutFor(t, below, "inv-b")
	payoutAbove := payoutFor(t, above, "inv-b")
	if !mathutil.WithinTolerance(payoutBelow, 1_000_000, 1.0) {
		t.Errorf("junior payout below flip = %.2f, want 1000000", payoutBelow)
	}
	if payoutAbove < payoutBelow {
		t.Errorf("junior payout dropped across flip: %.2f -> %.2f", payoutBelow, payoutAbove)
	}
	if payoutAbove > 1_001_000 {
		t.Errorf("junior payout above flip = %.2f, want continuous around 1000333", payoutAbove)
	}
}

func TestDistributePreferenceBelowBreakeven(t *testing.T) {
	engine := NewEngine(nil)
	// At $10M the investor's as-converted value (40% = $4M) is below the
	// $5M preference, so the preference is taken and common splits the rest.
	dist, err := engine.Distribute(preferredTable(), []instrument.PreferenceTier{onexTier()}, 10_000_000)
	if err != nil {
		t.Fatalf("Distribute returned error: %v", err)
	}

	if got := payoutFor(t, dist, "inv-1"); !mathutil.WithinTolerance(got, 5_000_000, 1.0) {
		t.Errorf("investor payout = %.2f, want 5000000", got)
	}
	if got := payoutFor(t, dist, "founder-1"); !mathutil.WithinTolerance(got, 5_000_000, 1.0) {
		t.Errorf("founder payout = %.2f, want 5000000", got)
	}
	if len(dist.Steps) == 0 {
		t.Fatal("expected waterfall steps")
	}
	if dist.Steps[0].Amount != 5_000_000 {
		t.Errorf("first step amount = %.2f, want 5000000", dist.Steps[0].Amount)
	}
}

func TestDistributeAsConvertedElection(t *testing.T) {
	engine := NewEngine(nil)
	// At $20M the investor's as-converted value (40% = $8M) beats the $5M
	// preference; the tier converts and shares pro-rata with common.
	dist, err := engine.Distribute(preferredTable(), []instrument.PreferenceTier{onexTier()}, 20_000_000)
	if err != nil {
		t.Fatalf("Distribute returned error: %v", err)
	}

	if got := payoutFor(t, dist, "inv-1"); !mathutil.WithinTolerance(got, 8_000_000, 1.0) {
		t.Errorf("investor payout = %.2f, want 8000000", got)
	}
	if got := payoutFor(t, dist, "founder-1"); !mathutil.WithinTolerance(got, 12_000_000, 1.0) {
		t.Errorf("founder payout = %.2f, want 12000000", got)
	}
}

func TestDistributeParticipatingWithCap(t *testing.T) {
	engine := NewEngine(nil)
	ct := captable.CapTable{
		TotalShares: 10_000_000,
		Stakeholders: []captable.Stakeholder{
			{ID: "founder-1", Name: "Alice", Type: captable.TypeFounder, Shares: 8_000_000, ShareClass: captable.ClassCommon},
			{ID: "inv-1", Name: "Acme Ventures", Type: captable.TypeInvestor, Shares: 2_000_000, ShareClass: captable.ClassPreferred, Investment: 2_000_000},
		},
	}.RecalcOwnership()
	tiers := []instrument.PreferenceTier{{
		ID: "tier-1", Name: "Series A", Seniority: 1,
		InvestmentAmount: 2_000_000, LiquidationMultiplier: 1,
		Participating: true, ParticipationCap: floatPtr(2),
		StakeholderIDs: []string{"inv-1"},
	}}

	// $30M exit: $2M preference, then participation capped at 2x total
	// return ($4M). The investor's uncapped pro-rata share of the $28M
	// residual would be $5.6M; the cap binds and the excess goes to common.
	dist, err := engine.Distribute(ct, tiers, 30_000_000)
	if err != nil {
		t.Fatalf("Distribute returned error: %v", err)
	}

	if got := payoutFor(t, dist, "inv-1"); !mathutil.WithinTolerance(got, 4_000_000, 1.0) {
		t.Errorf("capped investor payout = %.2f, want 4000000", got)
	}
	if got := payoutFor(t, dist, "founder-1"); !mathutil.WithinTolerance(got, 26_000_000, 1.0) {
		t.Errorf("founder payout = %.2f, want 26000000", got)
	}

	var total float64
	for _, payout := range dist.Payouts {
		total += payout.PayoutAmount
	}
	if !mathutil.WithinTolerance(total, 30_000_000, 1.0) {
		t.Errorf("cap redistribution lost proceeds: total %.2f", total)
	}
}

func TestDistributeResidualRecipientsOnlyPaid(t *testing.T) {
	engine := NewEngine(nil)
	ct := captable.CapTable{
		TotalShares: 10_000_000,
		Stakeholders: []captable.Stakeholder{
			{ID: "founder-1", Name: "Alice", Type: captable.TypeFounder, Shares: 8_000_000, ShareClass: captable.ClassCommon},
			{ID: "inv-1", Name: "Acme Ventures", Type: captable.TypeInvestor, Shares: 2_000_000, ShareClass: captable.ClassPreferred, Investment: 2_000_000},
		},
	}.RecalcOwnership()
	// A 1x participation cap on a 1x preference leaves the investor no
	// participation room at all: the preference alone fills the cap.
	tiers := []instrument.PreferenceTier{{
		ID: "tier-1", Name: "Series A", Seniority: 1,
		InvestmentAmount: 2_000_000, LiquidationMultiplier: 1,
		Participating: true, ParticipationCap: floatPtr(1),
		StakeholderIDs: []string{"inv-1"},
	}}

	dist, err := engine.Distribute(ct, tiers, 10_000_000)
	if err != nil {
		t.Fatalf("Distribute returned error: %v", err)
	}
	if got := payoutFor(t, dist, "inv-1"); !mathutil.WithinTolerance(got, 2_000_000, 1.0) {
		t.Errorf("capped investor payout = %.2f, want 2000000", got)
	}
	if got := payoutFor(t, dist, "founder-1"); !mathutil.WithinTolerance(got, 8_000_000, 1.0) {
		t.Errorf("founder payout = %.2f, want 8000000", got)
	}

	var residual *Step
	for i := range dist.Steps {
		if dist.Steps[i].Description == "Pro-rata distribution to common and participating holders" {
			residual = &dist.Steps[i]
		}
	}
	if residual == nil {
		t.Fatal("no pro-rata step in distribution")
	}
	if !mathutil.WithinTolerance(residual.Amount, 8_000_000, 1.0) {
		t.Errorf("pro-rata step amount = %.2f, want 8000000", residual.Amount)
	}
	if len(residual.Recipients) != 1 || residual.Recipients[0] != "Alice" {
		t.Errorf("pro-rata step recipients = %v, want [Alice]; the fully capped investor takes nothing here", residual.Recipients)
	}
}

func TestDistributeSeniorityOrder(t *testing.T) {
	engine := NewEngine(nil)
	ct := captable.CapTable{
		TotalShares: 10_000_000,
		Stakeholders: []captable.Stakeholder{
			{ID: "founder-1", Name: "Alice", Type: captable.TypeFounder, Shares: 6_000_000, ShareClass: captable.ClassCommon},
			{ID: "inv-a", Name: "Seed Fund", Type: captable.TypeInvestor, Shares: 2_000_000, ShareClass: captable.ClassPreferred, Investment: 3_000_000},
			{ID: "inv-b", Name: "Growth Fund", Type: captable.TypeInvestor, Shares: 2_000_000, ShareClass: captable.ClassPreferred, Investment: 4_000_000},
		},
	}.RecalcOwnership()
	// Growth Fund is senior (seniority 1) despite appearing later.
	tiers := []instrument.PreferenceTier{
		{ID: "t-seed", Name: "Seed", Seniority: 2, InvestmentAmount: 3_000_000, LiquidationMultiplier: 1, StakeholderIDs: []string{"inv-a"}},
		{ID: "t-growth", Name: "Series B", Seniority: 1, InvestmentAmount: 4_000_000, LiquidationMultiplier: 1, StakeholderIDs: []string{"inv-b"}},
	}

	// $5M exit covers the senior preference fully, the junior partially.
	dist, err := engine.Distribute(ct, tiers, 5_000_000)
	if err != nil {
		t.Fatalf("Distribute returned error: %v", err)
	}
	if got := payoutFor(t, dist, "inv-b"); !mathutil.WithinTolerance(got, 4_000_000, 1.0) {
		t.Errorf("senior payout = %.2f, want 4000000", got)
	}
	if got := payoutFor(t, dist, "inv-a"); !mathutil.WithinTolerance(got, 1_000_000, 1.0) {
		t.Errorf("junior payout = %.2f, want 1000000", got)
	}
	if got := payoutFor(t, dist, "founder-1"); got != 0 {
		t.Errorf("founder payout = %.2f, want 0", got)
	}
	if dist.Steps[0].Description != `Tier "Series B" liquidation preference (1.0x)` {
		t.Errorf("first step = %q, want senior tier preference", dist.Steps[0].Description)
	}
}

func TestDistributeROI(t *testing.T) {
	engine := NewEngine(nil)
	dist, err := engine.Distribute(preferredTable(), []instrument.PreferenceTier{onexTier()}, 10_000_000)
	if err != nil {
		t.Fatalf("Distribute returned error: %v", err)
	}
	for _, payout := range dist.Payouts {
		if payout.StakeholderID != "inv-1" {
			continue
		}
		if payout.ROI == nil {
			t.Fatal("investor ROI missing")
		}
		if math.Abs(*payout.ROI-1.0) > 1e-9 {
			t.Errorf("ROI = %.4f, want 1.0", *payout.ROI)
		}
	}
}

func TestDistributeErrors(t *testing.T) {
	engine := NewEngine(nil)

	t.Run("empty cap table", func(t *testing.T) {
		_, err := engine.Distribute(captable.CapTable{}, nil, 1_000_000)
		if !errors.Is(err, ErrEmptyCapTable) {
			t.Errorf("error = %v, want ErrEmptyCapTable", err)
		}
		if kind, _ := errs.KindOf(err); kind != errs.KindComputation {
			t.Errorf("kind = %v, want computation", kind)
		}
	})

	t.Run("invalid seniority", func(t *testing.T) {
		tier := onexTier()
		tier.Seniority = 0
		_, err := engine.Distribute(preferredTable(), []instrument.PreferenceTier{tier}, 1_000_000)
		if !errors.Is(err, ErrInvalidTierOrder) {
			t.Errorf("error = %v, want ErrInvalidTierOrder", err)
		}
	})

	t.Run("negative valuation", func(t *testing.T) {
		_, err := engine.Distribute(preferredTable(), nil, -1)
		if !errors.Is(err, ErrNegativeValuation) {
			t.Errorf("error = %v, want ErrNegativeValuation", err)
		}
	})
}

func TestDistributeOrphanTierIDs(t *testing.T) {
	engine := NewEngine(nil)
	tier := onexTier()
	tier.StakeholderIDs = []string{"removed-stakeholder"}

	// A tier whose stakeholders have all been removed takes nothing; the
	// whole valuation flows to the remaining stakeholders.
	dist, err := engine.Distribute(preferredTable(), []instrument.PreferenceTier{tier}, 10_000_000)
	if err != nil {
		t.Fatalf("Distribute returned error: %v", err)
	}
	var total float64
	for _, payout := range dist.Payouts {
		total += payout.PayoutAmount
	}
	if !mathutil.WithinTolerance(total, 10_000_000, 1.0) {
		t.Errorf("total = %.2f, want full valuation", total)
	}
}
