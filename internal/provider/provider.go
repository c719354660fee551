// Package provider defines the market-data provider contract the bridge
// dispatches to, plus the parameter and HTTP errors every provider reports.
package provider

import (
	"context"
	"fmt"

	"github.com/seenimoa/yfbridge/internal/frame"
)

//go:generate mockgen -package=bridge_test -destination=../bridge/mock_provider_test.go -source=provider.go Provider

// Provider is a market-data source. Tabular results come back as frames
// for the normalize package; everything else is the provider's decoded
// JSON, passed through untouched.
type Provider interface {
	// Name identifies the provider in the response envelope's source field.
	Name() string

	// Search runs a free-text symbol search and returns the raw response.
	Search(ctx context.Context, query string) (any, error)

	// History returns a time-indexed OHLCV frame, oldest bar first.
	History(ctx context.Context, params HistoryParams) (*frame.Table, error)

	// News returns the provider's news items for symbol.
	News(ctx context.Context, symbol string) ([]any, error)

	// Headlines returns the provider's RSS headline feed for symbol.
	Headlines(ctx context.Context, symbol string) ([]any, error)

	// Info returns the flattened company info mapping for symbol.
	Info(ctx context.Context, symbol string) (map[string]any, error)

	// Statement returns a line-item × report-period frame.
	Statement(ctx context.Context, symbol string, kind StatementKind, freq Frequency) (*frame.Table, error)
}

// HistoryParams selects a price-history range. Interval is the provider's
// native interval code (e.g. "1d", "1wk").
type HistoryParams struct {
	Symbol    string
	StartDate string
	EndDate   string
	Interval  string
}

// StatementKind selects one of the three financial statements.
type StatementKind string

const (
	StatementIncome   StatementKind = "income"
	StatementBalance  StatementKind = "balance"
	StatementCashflow StatementKind = "cashflow"
)

// ParseStatementKind maps a request value to a statement kind. Anything other
// than income or balance selects the cash-flow statement.
func ParseStatementKind(s string) StatementKind {
	switch StatementKind(s) {
	case StatementIncome, StatementBalance:
		return StatementKind(s)
	default:
		return StatementCashflow
	}
}

// Frequency is the reporting period of a statement.
type Frequency string

const (
	FrequencyAnnual    Frequency = "annual"
	FrequencyQuarterly Frequency = "quarterly"
)

// QueryParams is the generic query parameter map checked by ValidateParams.
type QueryParams map[string]string

// Request field names, as they appear in the request envelope.
const (
	ParamSymbol        = "symbol"
	ParamQuery         = "query"
	ParamStartDate     = "start_date"
	ParamEndDate       = "end_date"
	ParamInterval      = "interval"
	ParamStatementType = "statement_type"
)

// ErrMissingParam is returned when a required query parameter is missing.
type ErrMissingParam struct {
	Param string
}

func (e *ErrMissingParam) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Param)
}

// ValidateParams checks that all required parameters are present in params.
func ValidateParams(params QueryParams, required ...string) error {
	for _, key := range required {
		if v, ok := params[key]; !ok || v == "" {
			return &ErrMissingParam{Param: key}
		}
	}
	return nil
}

// ErrHTTP wraps a non-2xx response from a provider endpoint.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d %s", e.StatusCode, e.Status)
	}
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}
