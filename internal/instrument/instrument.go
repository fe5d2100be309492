// Package instrument defines the funding instrument model: SAFEs,
// convertible notes, and priced rounds as a closed sum type, plus the
// preference tiers attached to priced rounds. Instruments are immutable
// records of capital raised under specific terms; they are created by user
// action and change only by status flips or explicit field edits.
package instrument

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/eyadsibai/worth-it-sub001/pkg/constants"
	"github.com/google/uuid"
)

// Kind discriminates the instrument variants.
type Kind string

const (
	KindSAFE        Kind = "safe"
	KindNote        Kind = "convertible_note"
	KindPricedRound Kind = "priced_round"
)

// Status tracks whether a convertible instrument has converted into equity.
type Status string

const (
	StatusOutstanding Status = "outstanding"
	StatusConverted   Status = "converted"
)

// InterestType selects the accrual formula for convertible notes.
type InterestType string

const (
	InterestSimple   InterestType = "simple"
	InterestCompound InterestType = "compound"
)

// SAFE is a Simple Agreement for Future Equity: capital that converts into
// equity at a future priced round at the better of a valuation-cap price or
// a discounted round price.
type SAFE struct {
	ID               string   `json:"id"`
	InvestorName     string   `json:"investor_name"`
	InvestmentAmount float64  `json:"investment_amount"`
	ValuationCap     *float64 `json:"valuation_cap,omitempty"`
	DiscountPct      *float64 `json:"discount_pct,omitempty"`
	ProRataRights    bool     `json:"pro_rata_rights"`
	MFNClause        bool     `json:"mfn_clause"`
	Status           Status   `json:"status"`
}

// ConvertibleNote is a debt-like instrument that accrues interest before
// converting under the same cap/discount terms as a SAFE.
type ConvertibleNote struct {
	SAFE
	InterestRate   float64      `json:"interest_rate"`
	InterestType   InterestType `json:"interest_type"`
	MaturityMonths int          `json:"maturity_months"`
	// IssuedMonthsAgo records time since issuance; conversion elapsed time
	// is min(IssuedMonthsAgo, MaturityMonths) because interest stops
	// accruing at maturity.
	IssuedMonthsAgo int `json:"issued_months_ago"`
}

// AccruedValue returns principal plus interest after monthsElapsed.
// Simple interest: P * r * t/12. Compound: P * ((1+r)^(t/12) - 1).
func (n ConvertibleNote) AccruedValue(monthsElapsed int) float64 {
	if monthsElapsed <= 0 || n.InterestRate <= 0 {
		return n.InvestmentAmount
	}
	rate := n.InterestRate / constants.PercentageMultiplier
	years := float64(monthsElapsed) / constants.MonthsPerYear
	switch n.InterestType {
	case InterestCompound:
		return n.InvestmentAmount * math.Pow(1+rate, years)
	default:
		return n.InvestmentAmount * (1 + rate*years)
	}
}

// ConversionMonths returns the elapsed months used for interest accrual at
// conversion time, capped at maturity.
func (n ConvertibleNote) ConversionMonths() int {
	if n.MaturityMonths > 0 && n.IssuedMonthsAgo > n.MaturityMonths {
		return n.MaturityMonths
	}
	return n.IssuedMonthsAgo
}

// PricedRound records an equity financing round. PricePerShare,
// NewSharesIssued, and PostMoneyValuation are derived once at creation from
// the cap table's share count before the round is applied; they are frozen
// into the record and never recomputed, even if the cap table changes later.
type PricedRound struct {
	ID                    string  `json:"id"`
	RoundName             string  `json:"round_name"`
	LeadInvestor          string  `json:"lead_investor,omitempty"`
	PreMoneyValuation     float64 `json:"pre_money_valuation"`
	AmountRaised          float64 `json:"amount_raised"`
	PricePerShare         float64 `json:"price_per_share"`
	LiquidationMultiplier float64 `json:"liquidation_multiplier"`
	Participating         bool    `json:"participating"`
	NewSharesIssued       float64 `json:"new_shares_issued"`
	PostMoneyValuation    float64 `json:"post_money_valuation"`
}

// NewPricedRound builds a PricedRound, freezing the derived fields against
// preRoundShares, the cap table total before the round is applied.
func NewPricedRound(name, lead string, preMoney, raised float64, preRoundShares int64, multiplier float64, participating bool) (PricedRound, error) {
	if preMoney < 0 {
		return PricedRound{}, fmt.Errorf("instrument: round %s has negative pre-money valuation", name)
	}
	if raised < 0 {
		return PricedRound{}, fmt.Errorf("instrument: round %s has negative amount raised", name)
	}
	if preRoundShares <= 0 {
		return PricedRound{}, fmt.Errorf("instrument: round %s requires a positive pre-round share count", name)
	}
	if multiplier < constants.MinLiquidationMultiplier {
		return PricedRound{}, fmt.Errorf("instrument: round %s liquidation multiplier %.2f below 1x", name, multiplier)
	}

	pps := preMoney / float64(preRoundShares)
	round := PricedRound{
		ID:                    uuid.NewString(),
		RoundName:             name,
		LeadInvestor:          lead,
		PreMoneyValuation:     preMoney,
		AmountRaised:          raised,
		PricePerShare:         pps,
		LiquidationMultiplier: multiplier,
		Participating:         participating,
		PostMoneyValuation:    preMoney + raised,
	}
	if pps > 0 {
		round.NewSharesIssued = raised / pps
	}
	return round, nil
}

// Instrument is the closed union over the three variants. Exactly one of
// SAFE, Note, or Round is set, matching Kind.
type Instrument struct {
	Kind  Kind
	SAFE  *SAFE
	Note  *ConvertibleNote
	Round *PricedRound
}

// FromSAFE wraps a SAFE in the union.
func FromSAFE(s SAFE) Instrument { return Instrument{Kind: KindSAFE, SAFE: &s} }

// FromNote wraps a ConvertibleNote in the union.
func FromNote(n ConvertibleNote) Instrument { return Instrument{Kind: KindNote, Note: &n} }

// FromRound wraps a PricedRound in the union.
func FromRound(r PricedRound) Instrument { return Instrument{Kind: KindPricedRound, Round: &r} }

// ID returns the id of the wrapped variant.
func (in Instrument) ID() string {
	switch in.Kind {
	case KindSAFE:
		return in.SAFE.ID
	case KindNote:
		return in.Note.ID
	case KindPricedRound:
		return in.Round.ID
	}
	return ""
}

// MarshalJSON encodes the union with a kind discriminator.
func (in Instrument) MarshalJSON() ([]byte, error) {
	switch in.Kind {
	case KindSAFE:
		return json.Marshal(struct {
			Kind Kind `json:"kind"`
			SAFE
		}{Kind: in.Kind, SAFE: *in.SAFE})
	case KindNote:
		return json.Marshal(struct {
			Kind Kind `json:"kind"`
			ConvertibleNote
		}{Kind: in.Kind, ConvertibleNote: *in.Note})
	case KindPricedRound:
		return json.Marshal(struct {
			Kind Kind `json:"kind"`
			PricedRound
		}{Kind: in.Kind, PricedRound: *in.Round})
	}
	return nil, fmt.Errorf("instrument: cannot marshal unknown kind %q", in.Kind)
}

// UnmarshalJSON decodes the union in two passes: the kind discriminator
// first, then the matching variant.
func (in *Instrument) UnmarshalJSON(data []byte) error {
	var head struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	switch head.Kind {
	case KindSAFE:
		var s SAFE
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*in = Instrument{Kind: KindSAFE, SAFE: &s}
	case KindNote:
		var n ConvertibleNote
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*in = Instrument{Kind: KindNote, Note: &n}
	case KindPricedRound:
		var r PricedRound
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		*in = Instrument{Kind: KindPricedRound, Round: &r}
	default:
		return fmt.Errorf("instrument: unknown kind %q", head.Kind)
	}
	return nil
}
