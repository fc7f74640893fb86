package pricesource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrorCounter records classified source errors keyed by the wire error code,
// so operators can tell a vanished product apart from a broken source.
type ErrorCounter interface {
	IncSourceError(code string)
}

// Options parameterise the price-source client.
type Options struct {
	BaseURL    string
	SearchPath string
	DirectPath string
	Timeout    time.Duration
	UserAgent  string
}

// Client calls the external price source and classifies its responses.
type Client struct {
	opts     Options
	logger   zerolog.Logger
	client   *http.Client
	baseURL  string
	counters ErrorCounter
}

// NewClient constructs a price-source client.
func NewClient(opts Options, counters ErrorCounter, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if opts.SearchPath == "" {
		opts.SearchPath = "/api/search"
	}
	if opts.DirectPath == "" {
		opts.DirectPath = "/api/price"
	}

	return &Client{
		opts:     opts,
		logger:   logger.With().Str("component", "pricesource_client").Logger(),
		client:   &http.Client{Timeout: timeout},
		baseURL:  baseURL,
		counters: counters,
	}
}

type searchRequest struct {
	Query string `json:"query"`
}

type urlRequest struct {
	URL string `json:"url"`
}

type priceResponse struct {
	FoundProductName string          `json:"found_product_name"`
	Price            decimal.Decimal `json:"price"`
	Currency         string          `json:"currency"`
	CanonicalURL     string          `json:"canonical_url"`
}

type errorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// FetchByName queries the source's search endpoint with a product name.
// Used when an observation is first created.
func (c *Client) FetchByName(ctx context.Context, name string) (Outcome, error) {
	return c.post(ctx, c.baseURL+c.opts.SearchPath, searchRequest{Query: name})
}

// FetchByURL queries the source's direct endpoint with a canonical product URL.
// This is the call the refresh pipeline makes for every stale observation.
func (c *Client) FetchByURL(ctx context.Context, productURL string) (Outcome, error) {
	return c.post(ctx, c.baseURL+c.opts.DirectPath, urlRequest{URL: productURL})
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) (Outcome, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Outcome{}, fmt.Errorf("marshal price source request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("create price source request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// No HTTP response at all. Surface on the fault channel so the caller
		// can isolate this item without classifying the product itself.
		return Outcome{}, fmt.Errorf("%w: %v", ErrSourceUnreachable, err)
	}
	defer resp.Body.Close()

	payloadBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: read response body: %v", ErrSourceUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.classifyError(resp.StatusCode, payloadBytes), nil
	}

	return c.classifySuccess(payloadBytes), nil
}

func (c *Client) classifySuccess(payload []byte) Outcome {
	if len(bytes.TrimSpace(payload)) == 0 {
		c.logger.Warn().Msg("price source returned success with empty body")
		return failure(KindUnknown, ReasonEmptyBody, "price source returned no payload")
	}

	var res priceResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		c.logger.Warn().Err(err).Msg("price source success body not parseable")
		return failure(KindUnknown, ReasonEmptyBody, "price source payload unreadable")
	}
	if res.FoundProductName == "" && res.Price.IsZero() {
		c.logger.Warn().Msg("price source returned success without usable data")
		return failure(KindUnknown, ReasonEmptyBody, "price source returned no payload")
	}

	return found(res.FoundProductName, res.Price, res.Currency, res.CanonicalURL)
}

// classifyError maps a structured error body onto the closed outcome set. The
// mapping is deterministic per wire code; an unparseable body must never crash
// the caller.
func (c *Client) classifyError(status int, payload []byte) Outcome {
	var errRes errorResponse
	if err := json.Unmarshal(payload, &errRes); err != nil || errRes.ErrorCode == "" {
		c.logger.Error().Int("status", status).Msg("could not parse price source error body")
		c.counters.IncSourceError(string(ReasonMalformedErrorBody))
		return failure(KindUnknown, ReasonMalformedErrorBody,
			fmt.Sprintf("unrecognised error format (status %d)", status))
	}

	c.logger.Warn().Str("error_code", errRes.ErrorCode).Msg("price source reported error")
	c.counters.IncSourceError(errRes.ErrorCode)

	switch errRes.ErrorCode {
	case CodeProductNotFound:
		return failure(KindNotFound, ReasonNotFound, errRes.Message)
	case CodeInvalidDomain, CodeMissingParam:
		return failure(KindInvalidInput, ReasonInvalidInput, errRes.Message)
	case CodePriceParsingError:
		return failure(KindUnknown, ReasonParsing, errRes.Message)
	case CodeConnectionError:
		return failure(KindUnknown, ReasonSourceUnreachable, errRes.Message)
	default:
		return failure(KindUnknown, ReasonUnmapped, errRes.Message)
	}
}
