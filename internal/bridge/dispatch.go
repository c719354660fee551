package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/yfbridge/internal/frame"
	"github.com/seenimoa/yfbridge/internal/normalize"
	"github.com/seenimoa/yfbridge/internal/provider"
	"github.com/seenimoa/yfbridge/pkg/models"
)

// Dispatcher routes a request to the handler of its action.
type Dispatcher struct {
	provider provider.Provider
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher backed by p.
func NewDispatcher(p provider.Provider, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{provider: p, logger: logger}
}

// Dispatch runs the handler for req.Action and returns the response data.
// A missing or unknown action returns ErrUnsupportedAction without touching
// the provider.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (any, error) {
	d.logger.Debug("dispatch", "action", req.Action, "symbol", req.Symbol)

	switch req.Action {
	case ActionSearch:
		return d.provider.Search(ctx, req.Query)
	case ActionHistory:
		return d.history(ctx, req)
	case ActionNews:
		return d.news(ctx, req)
	case ActionEstimates:
		return d.estimates(ctx, req)
	case ActionInfo:
		return d.info(ctx, req)
	case ActionStatements:
		return d.statements(ctx, req)
	default:
		return nil, ErrUnsupportedAction
	}
}

// --- Handlers ---

// intervalAliases maps request interval words to Yahoo interval codes.
var intervalAliases = map[string]string{
	"minute": "1m",
	"day":    "1d",
	"week":   "1wk",
	"month":  "1mo",
	"year":   "1y",
}

// MapInterval translates a request interval. Yahoo codes and unknown values
// pass through unchanged; an empty interval means daily bars.
func MapInterval(interval string) string {
	if interval == "" {
		return "1d"
	}
	if code, ok := intervalAliases[interval]; ok {
		return code
	}
	return interval
}

func (d *Dispatcher) history(ctx context.Context, req Request) ([]models.Bar, error) {
	t, err := d.provider.History(ctx, provider.HistoryParams{
		Symbol:    req.Symbol,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Interval:  MapInterval(req.Interval),
	})
	if err != nil {
		return nil, err
	}
	bars := normalize.History(t)
	d.logger.Debug("history normalized", "bars", len(bars))
	return bars, nil
}

func (d *Dispatcher) news(ctx context.Context, req Request) ([]any, error) {
	var (
		items []any
		err   error
	)
	if req.Feed == FeedRSS {
		items, err = d.provider.Headlines(ctx, req.Symbol)
	} else {
		items, err = d.provider.News(ctx, req.Symbol)
	}
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []any{}
	}
	return items, nil
}

func (d *Dispatcher) estimates(ctx context.Context, req Request) (models.Estimates, error) {
	info, err := d.provider.Info(ctx, req.Symbol)
	if err != nil {
		return models.Estimates{}, err
	}
	return models.EstimateFromInfo(info), nil
}

func (d *Dispatcher) info(ctx context.Context, req Request) (map[string]any, error) {
	info, err := d.provider.Info(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}
	if info == nil {
		info = map[string]any{}
	}
	return info, nil
}

// statements reads the annual and quarterly tables of one statement
// concurrently. Output order is fixed regardless of completion order. A
// panic in either read fails the request like any other error.
func (d *Dispatcher) statements(ctx context.Context, req Request) (models.StatementSet, error) {
	kind := provider.ParseStatementKind(req.StatementType)

	var annual, quarterly *frame.Table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer recoverTo(&err)
		t, err := d.provider.Statement(gctx, req.Symbol, kind, provider.FrequencyAnnual)
		if err != nil {
			return fmt.Errorf("annual %s statement: %w", kind, err)
		}
		annual = t
		return nil
	})
	g.Go(func() (err error) {
		defer recoverTo(&err)
		t, err := d.provider.Statement(gctx, req.Symbol, kind, provider.FrequencyQuarterly)
		if err != nil {
			return fmt.Errorf("quarterly %s statement: %w", kind, err)
		}
		quarterly = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.StatementSet{}, err
	}

	set := models.StatementSet{
		Annual:    normalize.Statement(annual),
		Quarterly: normalize.Statement(quarterly),
	}
	d.logger.Debug("statements normalized", "kind", kind,
		"annual", len(set.Annual), "quarterly", len(set.Quarterly))
	return set, nil
}

// recoverTo turns a panic on a worker goroutine into *err. The recover in
// serve does not reach errgroup goroutines.
func recoverTo(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%v", r)
	}
}
