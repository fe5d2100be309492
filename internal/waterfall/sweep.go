package waterfall

import (
	"context"
	"fmt"
	"sort"

	"github.com/eyadsibai/worth-it-sub001/internal/captable"
	"github.com/eyadsibai/worth-it-sub001/internal/instrument"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SweepResult carries the distributions for a sampled valuation curve plus
// the breakeven points over the swept range.
type SweepResult struct {
	Distributions []Distribution     `json:"distributions_by_valuation"`
	Breakevens    map[string]float64 `json:"breakeven_points"`
}

// SampleValuations returns n evenly-spaced valuations across [min, max],
// inclusive of both endpoints.
func SampleValuations(min, max float64, n int) []float64 {
	if n <= 1 || max <= min {
		return []float64{min}
	}
	points := make([]float64, n)
	step := (max - min) / float64(n-1)
	for i := range points {
		points[i] = min + step*float64(i)
	}
	return points
}

// Sweep computes one distribution per valuation. Each valuation is
// independent, so the computations fan out concurrently; results are merged
// back in ascending valuation order for stable chart rendering. Cancelling
// ctx discards in-flight work; there is no partial state to roll back.
func (e *Engine) Sweep(ctx context.Context, ct captable.CapTable, tiers []instrument.PreferenceTier, valuations []float64) (*SweepResult, error) {
	if len(valuations) == 0 {
		return nil, fmt.Errorf("waterfall: sweep requires at least one valuation")
	}

	results := make([]Distribution, len(valuations))
	g, ctx := errgroup.WithContext(ctx)
	for i, v := range valuations {
		i, v := i, v
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dist, err := e.Distribute(ct, tiers, v)
			if err != nil {
				return fmt.Errorf("waterfall: valuation %.2f: %w", v, err)
			}
			results[i] = *dist
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ExitValuation < results[j].ExitValuation
	})

	lo, hi := results[0].ExitValuation, results[len(results)-1].ExitValuation

	e.logger.Debug("sweep complete",
		zap.String("op", "waterfall.Sweep"),
		zap.Int("valuations", len(valuations)),
		zap.Float64("min", lo),
		zap.Float64("max", hi),
	)

	return &SweepResult{
		Distributions: results,
		Breakevens:    e.Breakevens(ct, tiers, lo, hi),
	}, nil
}
