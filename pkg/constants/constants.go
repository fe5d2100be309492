// Package constants provides shared constants for the worth-it engines.
package constants

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// MinLiquidationMultiplier is the lowest valid liquidation preference multiple
	MinLiquidationMultiplier = 1.0
)

// Waterfall sweep constants
const (
	// DefaultSweepMinValuation is the lowest sampled exit valuation ($1M)
	DefaultSweepMinValuation = 1_000_000.0

	// DefaultSweepMaxValuation is the highest sampled exit valuation ($500M)
	DefaultSweepMaxValuation = 500_000_000.0

	// DefaultSweepSamples is the number of evenly-spaced valuations sampled
	// for charting between the minimum and maximum.
	DefaultSweepSamples = 20

	// BreakevenTolerance is the valuation tolerance for breakeven searches ($1)
	BreakevenTolerance = 1.0
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default scenario file name
	DefaultConfigFile = "scenario.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultStorePath is the default path of the scenario database
	DefaultStorePath = "scenarios.db"

	// DefaultMaxBodySizeBytes is the maximum accepted request body (256 KB)
	DefaultMaxBodySizeBytes int64 = 256 * 1024
)

// History constants
const (
	// DefaultHistoryDepth bounds the undo stack; oldest snapshots are dropped.
	DefaultHistoryDepth = 100
)
