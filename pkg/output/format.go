// Package output provides utilities for formatting and displaying
// waterfall results.
package output

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/eyadsibai/worth-it-sub001/internal/waterfall"
)

// PrettyFormat outputs a human-readable rather than machine-readable table:
// one payout table per valuation, followed by the breakeven points.
func PrettyFormat(result *waterfall.SweepResult) {
	p := message.NewPrinter(language.English)
	for _, dist := range result.Distributions {
		_, _ = p.Printf("--- Distribution at exit valuation $%.2f ---\n", dist.ExitValuation)
		fmt.Printf("Stakeholder          | Payout         | Share\n")
		fmt.Printf("___________          | ______         | _____\n")
		for _, payout := range dist.Payouts {
			_, _ = p.Printf("%-20s | $%.2f | %.2f%%\n", payout.Name, payout.PayoutAmount, payout.PayoutPct)
		}
		_, _ = p.Printf("Common %.2f%% / Preferred %.2f%%\n\n", dist.CommonPct, dist.PreferredPct)
	}

	if len(result.Breakevens) > 0 {
		fmt.Printf("--- Breakeven points ---\n")
		names := make([]string, 0, len(result.Breakevens))
		for name := range result.Breakevens {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			_, _ = p.Printf("%s: $%.2f\n", name, result.Breakevens[name])
		}
	}
}

// CsvFormat outputs in comma-separated value format: one row per valuation,
// one payout column per stakeholder.
func CsvFormat(result *waterfall.SweepResult) {
	if len(result.Distributions) == 0 {
		return
	}

	// All distributions share the same stakeholder order.
	fmt.Printf(`"valuation"`)
	for _, payout := range result.Distributions[0].Payouts {
		fmt.Printf(`,"%s"`, strings.ReplaceAll(payout.Name, `"`, `""`))
	}
	fmt.Printf(",\"common %%\",\"preferred %%\"\n")

	for _, dist := range result.Distributions {
		fmt.Printf(`"%.2f"`, dist.ExitValuation)
		for _, payout := range dist.Payouts {
			fmt.Printf(`,"%.2f"`, payout.PayoutAmount)
		}
		fmt.Printf(",\"%.2f\",\"%.2f\"\n", dist.CommonPct, dist.PreferredPct)
	}
}
