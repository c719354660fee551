// Package bridge implements the single-shot request/response cycle: read one
// JSON request, dispatch it to a provider, normalize the result and write
// exactly one JSON envelope.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/seenimoa/yfbridge/internal/provider"
)

// Action names the operation a request asks for.
type Action string

const (
	ActionSearch     Action = "search"
	ActionHistory    Action = "history"
	ActionNews       Action = "news"
	ActionEstimates  Action = "estimates"
	ActionInfo       Action = "info"
	ActionStatements Action = "statements"
)

// FeedRSS selects the RSS headline feed for a news request.
const FeedRSS = "rss"

// ErrUnsupportedAction is returned for a missing or unknown action.
var ErrUnsupportedAction = errors.New("Unsupported action")

// Request is the decoded request envelope. Fields the action does not use
// are ignored.
type Request struct {
	Action        Action `json:"action"`
	Query         string `json:"query,omitempty"`
	Symbol        string `json:"symbol,omitempty"`
	StartDate     string `json:"start_date,omitempty"`
	EndDate       string `json:"end_date,omitempty"`
	Interval      string `json:"interval,omitempty"`
	StatementType string `json:"statement_type,omitempty"`
	Feed          string `json:"feed,omitempty"`
}

// UnmarshalJSON accepts any JSON object. A non-string action decodes as no
// action; numeric parameters keep their textual form; unknown fields and
// other value types are ignored.
func (r *Request) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	action, _ := m["action"].(string)
	*r = Request{
		Action:        Action(action),
		Query:         field(m, provider.ParamQuery),
		Symbol:        field(m, provider.ParamSymbol),
		StartDate:     field(m, provider.ParamStartDate),
		EndDate:       field(m, provider.ParamEndDate),
		Interval:      field(m, provider.ParamInterval),
		StatementType: field(m, provider.ParamStatementType),
		Feed:          field(m, "feed"),
	}
	return nil
}

func field(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// ParseRequest decodes raw stdin. Empty or whitespace-only input is the
// empty request.
func ParseRequest(raw []byte) (Request, error) {
	var req Request
	if strings.TrimSpace(string(raw)) == "" {
		return req, nil
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, fmt.Errorf("parse request: %w", err)
	}
	return req, nil
}

// --- Response envelope ---

const unknownError = "unknown error"

// Response is the envelope written to stdout.
type Response struct {
	OK     bool
	Data   any
	Source string
	Error  string
}

// Success builds a success envelope.
func Success(data any, source string) Response {
	return Response{OK: true, Data: data, Source: source}
}

// Failure builds a failure envelope from err.
func Failure(err error) Response {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if strings.TrimSpace(msg) == "" {
		msg = unknownError
	}
	return Response{Error: msg}
}

type successBody struct {
	OK     bool   `json:"ok"`
	Data   any    `json:"data"`
	Source string `json:"source"`
}

type failureBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// MarshalJSON writes {ok, data, source} on success and {ok, error} on
// failure. data is always present on success, even when null.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.OK {
		return json.Marshal(successBody{OK: true, Data: r.Data, Source: r.Source})
	}
	msg := r.Error
	if msg == "" {
		msg = unknownError
	}
	return json.Marshal(failureBody{OK: false, Error: msg})
}

// Encode marshals resp. When a success envelope cannot be marshaled the
// marshal error is reported in a failure envelope instead.
func Encode(resp Response) []byte {
	b, err := json.Marshal(resp)
	if err == nil {
		return b
	}
	b, _ = json.Marshal(Failure(err))
	return b
}

// --- Run ---

// Run reads one request from in, serves it with p and writes one envelope
// to out, with no trailing newline. Every failure, panics included, ends up
// in the envelope; only a write error on out is returned.
func Run(ctx context.Context, in io.Reader, out io.Writer, p provider.Provider, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	resp := serve(ctx, in, p, logger)
	if !resp.OK {
		logger.Info("request failed", "error", resp.Error)
	}
	if _, err := out.Write(Encode(resp)); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func serve(ctx context.Context, in io.Reader, p provider.Provider, logger *slog.Logger) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("recovered panic", "panic", r)
			resp = Failure(fmt.Errorf("%v", r))
		}
	}()

	raw, err := io.ReadAll(in)
	if err != nil {
		return Failure(fmt.Errorf("read request: %w", err))
	}
	req, err := ParseRequest(raw)
	if err != nil {
		return Failure(err)
	}

	data, err := NewDispatcher(p, logger).Dispatch(ctx, req)
	if err != nil {
		return Failure(err)
	}
	return Success(data, p.Name())
}
