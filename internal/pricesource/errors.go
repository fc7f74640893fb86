package pricesource

import "errors"

// ErrSourceUnreachable signals a transport-level fault: the price source gave
// no HTTP response at all (timeout, refused connection, DNS failure). It is
// deliberately distinct from business outcomes so callers can isolate it
// without treating the queried item as invalid.
var ErrSourceUnreachable = errors.New("price source unreachable")

// Wire-level error codes returned by the price source in structured error bodies.
const (
	CodeMissingParam      = "MISSING_PARAM"
	CodeProductNotFound   = "PRODUCT_NOT_FOUND"
	CodeInvalidDomain     = "INVALID_DOMAIN"
	CodeConnectionError   = "CONNECTION_ERROR"
	CodePriceParsingError = "PRICE_PARSING_ERROR"
	CodeScrapingError     = "SCRAPING_ERROR"
)

// FailureReason is the stable label attached to a non-Found outcome. The set is
// closed: every classified failure maps onto exactly one of these.
type FailureReason string

const (
	ReasonNone               FailureReason = ""
	ReasonNotFound           FailureReason = "not-found"
	ReasonInvalidInput       FailureReason = "invalid-input"
	ReasonParsing            FailureReason = "parsing"
	ReasonSourceUnreachable  FailureReason = "source-unreachable"
	ReasonUnmapped           FailureReason = "unmapped"
	ReasonMalformedErrorBody FailureReason = "malformed-error-body"
	ReasonEmptyBody          FailureReason = "empty-body"
	ReasonTransient          FailureReason = "transient"
)
