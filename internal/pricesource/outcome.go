package pricesource

import "github.com/shopspring/decimal"

// OutcomeKind discriminates the classified result of one fetch attempt.
type OutcomeKind int

const (
	// KindFound carries a usable price payload.
	KindFound OutcomeKind = iota
	// KindNotFound means the source looked and the product is not there.
	KindNotFound
	// KindInvalidInput means the request itself was rejected (bad domain, missing param).
	KindInvalidInput
	// KindUnknown covers hard failures: parsing errors, unrecognised codes,
	// malformed error bodies, empty success bodies.
	KindUnknown
)

func (k OutcomeKind) String() string {
	switch k {
	case KindFound:
		return "found"
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown_failure"
	}
}

// Outcome is the tagged result of a single price-fetch attempt. Price fields
// are only meaningful when Kind == KindFound; Reason and Message only when it
// is not.
type Outcome struct {
	Kind         OutcomeKind
	Name         string
	Price        decimal.Decimal
	Currency     string
	CanonicalURL string
	Reason       FailureReason
	Message      string
}

// Found reports whether the outcome carries a usable price.
func (o Outcome) Found() bool {
	return o.Kind == KindFound
}

func found(name string, price decimal.Decimal, currency, canonicalURL string) Outcome {
	return Outcome{
		Kind:         KindFound,
		Name:         name,
		Price:        price,
		Currency:     currency,
		CanonicalURL: canonicalURL,
	}
}

func failure(kind OutcomeKind, reason FailureReason, message string) Outcome {
	return Outcome{Kind: kind, Reason: reason, Message: message}
}
