package waterfall

import (
	"github.com/eyadsibai/worth-it-sub001/internal/captable"
	"github.com/eyadsibai/worth-it-sub001/internal/instrument"
	"github.com/eyadsibai/worth-it-sub001/pkg/constants"
)

// Breakevens computes, for each non-participating preference tier, the
// minimum exit valuation within [lo, hi] at which the tier first elects to
// convert rather than take its preference. The result maps tier name to that
// valuation. Tiers whose election never flips in the range, and
// participating tiers (which never face the election), are omitted.
//
// The election is the same one Distribute settles, so the reported point is
// where the payout curve actually changes regime. A tier's conversion value
// is non-decreasing in the valuation while its preference is fixed, so a
// bisection over the range converges; the search tolerance is one dollar.
func (e *Engine) Breakevens(ct captable.CapTable, tiers []instrument.PreferenceTier, lo, hi float64) map[string]float64 {
	if hi <= lo || len(ct.Stakeholders) == 0 {
		return map[string]float64{}
	}

	states := e.resolveTiers(ct, tiers)

	// resolveTiers is deterministic, so trial runs index identically.
	electsAt := func(valuation float64, idx int) bool {
		trial := e.resolveTiers(ct, tiers)
		e.settleElections(ct, trial, valuation)
		return trial[idx].electsConvert
	}

	points := make(map[string]float64)
	for i, st := range states {
		if st.tier.Participating || st.tier.Preference() <= 0 || st.shares == 0 {
			continue
		}

		if !electsAt(hi, i) {
			continue // never flips in range
		}
		if electsAt(lo, i) {
			points[st.tier.Name] = lo
			continue
		}

		low, high := lo, hi
		for high-low > constants.BreakevenTolerance {
			mid := low + (high-low)/2
			if electsAt(mid, i) {
				high = mid
			} else {
				low = mid
			}
		}
		points[st.tier.Name] = high
	}
	return points
}
