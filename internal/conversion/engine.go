// Package conversion implements the SAFE/convertible-note conversion
// engine: when a priced round occurs, outstanding convertible instruments
// turn into preferred shares at the better of a valuation-cap price or a
// discounted round price. The engine is a pure function over its inputs;
// the caller owns marking converted instruments in its store.
package conversion

import (
	"fmt"

	"github.com/eyadsibai/worth-it-sub001/internal/captable"
	"github.com/eyadsibai/worth-it-sub001/internal/errs"
	"github.com/eyadsibai/worth-it-sub001/internal/instrument"
	"github.com/eyadsibai/worth-it-sub001/pkg/constants"
	"github.com/eyadsibai/worth-it-sub001/pkg/mathutil"
	"go.uber.org/zap"
)

// Sentinel errors for conversion failures.
var (
	// ErrInvalidInstrument rejects instruments that are not outstanding
	// SAFEs or convertible notes, including priced rounds offered as inputs.
	ErrInvalidInstrument = errs.Validation("instrument is not a convertible in outstanding status")

	// ErrAlreadyConverted rejects re-running conversion on an instrument
	// whose status is already converted.
	ErrAlreadyConverted = errs.StateConflict("instrument has already been converted")

	// ErrMissingConversionTerms rejects instruments with neither a
	// valuation cap nor a discount when the round price is unusable.
	ErrMissingConversionTerms = errs.Validation("instrument has no valuation cap or discount and the round has no usable price per share")

	// ErrDivisionByZero marks a conversion price resolving to zero.
	ErrDivisionByZero = errs.Computation("conversion price resolved to zero")
)

// Method records which candidate price won the conversion.
type Method string

const (
	MethodCap      Method = "cap"
	MethodDiscount Method = "discount"
)

// ConversionResult describes how one instrument converted.
type ConversionResult struct {
	InstrumentID     string  `json:"instrument_id"`
	InvestorName     string  `json:"investor_name"`
	SharesIssued     int64   `json:"shares_issued"`
	OwnershipPct     float64 `json:"ownership_pct"`
	ConversionMethod Method  `json:"conversion_method"`
}

// Summary aggregates a conversion batch.
type Summary struct {
	InstrumentsConverted int   `json:"instruments_converted"`
	TotalSharesIssued    int64 `json:"total_shares_issued"`
}

// Result is the full output of a conversion batch.
type Result struct {
	UpdatedCapTable captable.CapTable  `json:"updated_cap_table"`
	Conversions     []ConversionResult `json:"converted_instruments"`
	Summary         Summary            `json:"summary"`
}

// Engine converts outstanding convertible instruments when a priced round
// occurs.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a conversion engine with the given logger.
// If logger is nil, it will use a no-op logger to prevent panics.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Convert computes how each outstanding instrument converts into shares
// under the triggering round and returns the updated cap table plus
// per-instrument results. Inputs are never mutated.
//
// Every instrument converts against the same pre-round share count, and
// ownership percentages are computed once after the whole batch against the
// final denominator, so results do not depend on instrument order.
func (e *Engine) Convert(ct captable.CapTable, instruments []instrument.Instrument, round instrument.PricedRound) (*Result, error) {
	if len(instruments) == 0 {
		return nil, errs.Validation("no instruments to convert")
	}
	preRoundShares := ct.FullyDilutedShares()
	if preRoundShares <= 0 {
		return nil, errs.Validation("cap table total shares must be positive for conversion")
	}

	conversions := make([]ConversionResult, 0, len(instruments))
	var batchShares int64

	for _, in := range instruments {
		converted, err := e.convertOne(in, round, preRoundShares)
		if err != nil {
			return nil, err
		}
		batchShares += converted.SharesIssued
		conversions = append(conversions, converted)
	}

	// Ownership for every new investor is normalized once, after all
	// instruments converted, against pre-round shares plus all batch shares
	// plus the round's own new shares.
	denominator := float64(preRoundShares) + float64(batchShares) + round.NewSharesIssued
	for i := range conversions {
		conversions[i].OwnershipPct = mathutil.CalculatePercentage(
			float64(conversions[i].SharesIssued), denominator)
	}

	updated := ct
	for i, c := range conversions {
		var err error
		updated, err = updated.AddStakeholder(captable.Stakeholder{
			ID:         instruments[i].ID(),
			Name:       c.InvestorName,
			Type:       captable.TypeInvestor,
			Shares:     c.SharesIssued,
			ShareClass: captable.ClassPreferred,
			Investment: investmentAmount(instruments[i]),
		})
		if err != nil {
			return nil, fmt.Errorf("conversion: appending investor %s: %w", c.InvestorName, err)
		}
	}

	e.logger.Debug("conversion batch complete",
		zap.String("op", "conversion.Convert"),
		zap.Int("instruments", len(conversions)),
		zap.Int64("sharesIssued", batchShares),
	)

	return &Result{
		UpdatedCapTable: updated,
		Conversions:     conversions,
		Summary: Summary{
			InstrumentsConverted: len(conversions),
			TotalSharesIssued:    batchShares,
		},
	}, nil
}

// convertOne computes the conversion for a single instrument against the
// shared pre-round share count. OwnershipPct is filled in later by the
// batch normalization pass.
func (e *Engine) convertOne(in instrument.Instrument, round instrument.PricedRound, preRoundShares int64) (ConversionResult, error) {
	var (
		terms  instrument.SAFE
		amount float64
	)

	switch in.Kind {
	case instrument.KindSAFE:
		terms = *in.SAFE
		amount = terms.InvestmentAmount
	case instrument.KindNote:
		terms = in.Note.SAFE
		amount = in.Note.AccruedValue(in.Note.ConversionMonths())
	case instrument.KindPricedRound:
		return ConversionResult{}, fmt.Errorf("conversion: round %q offered as convertible: %w", in.Round.RoundName, ErrInvalidInstrument)
	default:
		return ConversionResult{}, fmt.Errorf("conversion: unknown instrument kind %q: %w", in.Kind, ErrInvalidInstrument)
	}

	if terms.Status == instrument.StatusConverted {
		return ConversionResult{}, fmt.Errorf("conversion: instrument %s: %w", terms.ID, ErrAlreadyConverted)
	}
	if terms.Status != instrument.StatusOutstanding {
		return ConversionResult{}, fmt.Errorf("conversion: instrument %s status %q: %w", terms.ID, terms.Status, ErrInvalidInstrument)
	}
	if amount <= 0 {
		return ConversionResult{}, errs.Validation("instrument %s has non-positive investment amount", terms.ID)
	}

	price, method, err := conversionPrice(terms, round, preRoundShares)
	if err != nil {
		return ConversionResult{}, fmt.Errorf("conversion: instrument %s: %w", terms.ID, err)
	}

	shares := mathutil.RoundShares(amount / price)

	e.logger.Debug("instrument converted",
		zap.String("op", "conversion.convertOne"),
		zap.String("instrument", terms.ID),
		zap.Float64("amount", amount),
		zap.Float64("price", price),
		zap.String("method", string(method)),
		zap.Int64("shares", shares),
	)

	return ConversionResult{
		InstrumentID:     terms.ID,
		InvestorName:     terms.InvestorName,
		SharesIssued:     shares,
		ConversionMethod: method,
	}, nil
}

// conversionPrice picks the investor-favorable price between the cap price
// and the discounted round price. When both candidates are present the
// lower price wins (more shares); an exact tie records as a discount
// conversion. With neither term set the instrument converts at the round
// price directly.
func conversionPrice(terms instrument.SAFE, round instrument.PricedRound, preRoundShares int64) (float64, Method, error) {
	var (
		capPrice      float64
		discountPrice float64
		hasCap        = terms.ValuationCap != nil && *terms.ValuationCap > 0
		hasDiscount   = terms.DiscountPct != nil && *terms.DiscountPct > 0
	)

	if hasCap {
		capPrice = *terms.ValuationCap / float64(preRoundShares)
	}
	if hasDiscount {
		discountPrice = round.PricePerShare * (1 - *terms.DiscountPct/constants.PercentageMultiplier)
	}

	switch {
	case hasCap && hasDiscount:
		if capPrice < discountPrice {
			return guardPrice(capPrice, MethodCap)
		}
		return guardPrice(discountPrice, MethodDiscount)
	case hasCap:
		return guardPrice(capPrice, MethodCap)
	case hasDiscount:
		return guardPrice(discountPrice, MethodDiscount)
	default:
		if round.PricePerShare <= 0 {
			return 0, "", ErrMissingConversionTerms
		}
		return guardPrice(round.PricePerShare, MethodDiscount)
	}
}

func guardPrice(price float64, method Method) (float64, Method, error) {
	if price <= 0 {
		return 0, "", ErrDivisionByZero
	}
	return price, method, nil
}

func investmentAmount(in instrument.Instrument) float64 {
	switch in.Kind {
	case instrument.KindSAFE:
		return in.SAFE.InvestmentAmount
	case instrument.KindNote:
		return in.Note.InvestmentAmount
	}
	return 0
}
