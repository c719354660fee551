package yfinance

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/yfbridge/internal/frame"
	"github.com/seenimoa/yfbridge/internal/normalize"
	"github.com/seenimoa/yfbridge/internal/provider"
	"github.com/seenimoa/yfbridge/pkg/utils"
)

// --- Search ---

// Search runs the v1 finance search and returns the decoded response as is.
func (c *Client) Search(ctx context.Context, query string) (any, error) {
	if err := provider.ValidateParams(provider.QueryParams{provider.ParamQuery: query}, provider.ParamQuery); err != nil {
		return nil, err
	}

	var resp any
	err := c.fetchJSON(ctx, c.cfg.Query1URL+"/v1/finance/search", map[string]string{
		"q":      query,
		"lang":   "en-US",
		"region": "US",
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("yfinance search %q: %w", query, err)
	}
	return resp, nil
}

// --- History ---

// DefaultInterval is used when a history request names no interval.
const DefaultInterval = "1d"

// History fetches the v8 chart for a symbol and returns it as a
// time-indexed OHLCV table, oldest bar first.
func (c *Client) History(ctx context.Context, p provider.HistoryParams) (*frame.Table, error) {
	symbol, err := requireSymbol(p.Symbol)
	if err != nil {
		return nil, err
	}
	start, end, err := dateRange(p.StartDate, p.EndDate, time.Now())
	if err != nil {
		return nil, err
	}
	interval := p.Interval
	if interval == "" {
		interval = DefaultInterval
	}

	var resp yfChartResponse
	err = c.fetchJSON(ctx, c.cfg.Query2URL+"/v8/finance/chart/"+url.PathEscape(symbol), map[string]string{
		"period1":        strconv.FormatInt(start.Unix(), 10),
		"period2":        strconv.FormatInt(end.Unix(), 10),
		"interval":       interval,
		"includePrePost": "false",
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("yfinance chart %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yfinance chart %s: %w", symbol, resp.Chart.Error)
	}
	if len(resp.Chart.Result) == 0 {
		return frame.New(nil, nil), nil
	}

	t := chartTable(resp.Chart.Result[0], interval, c.cfg.AutoAdjust)
	c.logger.Debug("chart parsed", "symbol", symbol, "interval", interval, "bars", t.Len())
	return t, nil
}

// dateRange resolves the request dates. A missing end means now; a missing
// start means one month before end.
func dateRange(startDate, endDate string, now time.Time) (start, end time.Time, err error) {
	end = now
	if strings.TrimSpace(endDate) != "" {
		if end, err = utils.ParseDate(endDate); err != nil {
			return start, end, fmt.Errorf("%s: %w", provider.ParamEndDate, err)
		}
	}
	start = end.AddDate(0, -1, 0)
	if strings.TrimSpace(startDate) != "" {
		if start, err = utils.ParseDate(startDate); err != nil {
			return start, end, fmt.Errorf("%s: %w", provider.ParamStartDate, err)
		}
	}
	if !start.Before(end) {
		return start, end, fmt.Errorf("start date %s must be before end date %s",
			utils.FormatDate(start), utils.FormatDate(end))
	}
	return start, end, nil
}

// isIntraday reports whether a Yahoo interval code is shorter than a day.
func isIntraday(interval string) bool {
	if strings.HasSuffix(interval, "mo") {
		return false
	}
	return strings.HasSuffix(interval, "m") || strings.HasSuffix(interval, "h")
}

// chartTable converts a chart result into a table indexed by bar time in
// the exchange time zone. Daily and coarser bars are pinned to local
// midnight and the index is named Date; intraday bars keep their time and
// the index is named Datetime.
func chartTable(result yfChartResult, interval string, autoAdjust bool) *frame.Table {
	if len(result.Indicators.Quote) == 0 || len(result.Timestamp) == 0 {
		return frame.New(nil, nil)
	}
	q := result.Indicators.Quote[0]
	var adjCloses []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjCloses = result.Indicators.AdjClose[0].AdjClose
	}

	loc := utils.LoadLocation(result.Meta.ExchangeTimezoneName)
	intraday := isIntraday(interval)

	columns := []string{normalize.ColOpen, normalize.ColHigh, normalize.ColLow, normalize.ColClose}
	if !autoAdjust && adjCloses != nil {
		columns = append(columns, colAdjClose)
	}
	columns = append(columns, normalize.ColVolume)

	type bar struct {
		at    time.Time
		cells map[string]frame.Value
	}
	bars := make([]bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		open, high, low, closePx := at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i)
		if open == nil && high == nil && low == nil && closePx == nil {
			continue
		}
		o, h, l, cl := frame.FloatPtr(open), frame.FloatPtr(high), frame.FloatPtr(low), frame.FloatPtr(closePx)
		adj := frame.FloatPtr(at(adjCloses, i))

		cells := map[string]frame.Value{normalize.ColVolume: volumeAt(q.Volume, i)}
		switch {
		case autoAdjust && adjCloses != nil:
			o, h, l, cl = adjust(o, h, l, cl, adj)
		case adjCloses != nil:
			cells[colAdjClose] = adj
		}
		cells[normalize.ColOpen], cells[normalize.ColHigh] = o, h
		cells[normalize.ColLow], cells[normalize.ColClose] = l, cl

		t := time.Unix(ts, 0).In(loc)
		if !intraday {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		}
		bars = append(bars, bar{at: t, cells: cells})
	}

	index := make([]frame.Value, len(bars))
	for i, b := range bars {
		index[i] = frame.Time(b.at)
	}
	labels := make([]frame.Value, len(columns))
	for j, name := range columns {
		labels[j] = frame.String(name)
	}

	t := frame.New(index, labels)
	t.IndexName = normalize.ColDate
	if intraday {
		t.IndexName = normalize.ColDatetime
	}
	for i, b := range bars {
		for j, name := range columns {
			t.Set(i, j, b.cells[name])
		}
	}
	return t
}

const colAdjClose = "Adj Close"

// adjust scales open, high and low by adjclose/close and replaces close with
// adjclose. A missing close or adjclose leaves all four missing.
func adjust(o, h, l, cl, adj frame.Value) (frame.Value, frame.Value, frame.Value, frame.Value) {
	c, okC := cl.Number()
	a, okA := adj.Number()
	if !okC || !okA || c == 0 {
		return frame.Missing(), frame.Missing(), frame.Missing(), frame.Missing()
	}
	ratio := a / c
	scale := func(v frame.Value) frame.Value {
		f, ok := v.Number()
		if !ok {
			return frame.Missing()
		}
		return frame.Float(f * ratio)
	}
	return scale(o), scale(h), scale(l), frame.Float(a)
}

func at(s []*float64, i int) *float64 {
	if i < len(s) {
		return s[i]
	}
	return nil
}

func volumeAt(s []*int64, i int) frame.Value {
	if i < len(s) {
		return frame.IntPtr(s[i])
	}
	return frame.Missing()
}

// --- News ---

// News returns the news items the search endpoint attaches to a symbol.
func (c *Client) News(ctx context.Context, symbol string) ([]any, error) {
	symbol, err := requireSymbol(symbol)
	if err != nil {
		return nil, err
	}

	var resp yfSearchResponse
	err = c.fetchJSON(ctx, c.cfg.Query2URL+"/v1/finance/search", map[string]string{
		"q":           symbol,
		"newsCount":   strconv.Itoa(c.cfg.NewsCount),
		"quotesCount": "0",
		"lang":        "en-US",
		"region":      "US",
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("yfinance news %s: %w", symbol, err)
	}
	if resp.News == nil {
		return []any{}, nil
	}
	return resp.News, nil
}

// Headlines fetches the Yahoo RSS headline feed for a symbol.
func (c *Client) Headlines(ctx context.Context, symbol string) ([]any, error) {
	symbol, err := requireSymbol(symbol)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, c.cfg.RSSURL+"/rss/2.0/headline", map[string]string{
		"s":      symbol,
		"region": "US",
		"lang":   "en-US",
	})
	if err != nil {
		return nil, fmt.Errorf("yfinance headlines %s: %w", symbol, err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("yfinance headlines %s: parse feed: %w", symbol, err)
	}

	items := make([]any, 0, len(feed.Items))
	for _, item := range feed.Items {
		h := Headline{
			Title:   strings.TrimSpace(item.Title),
			Link:    item.Link,
			UUID:    item.GUID,
			Summary: cleanHTML(item.Description),
		}
		if item.Author != nil {
			h.Publisher = item.Author.Name
		}
		if item.PublishedParsed != nil {
			h.Published = utils.FormatISO(item.PublishedParsed.UTC())
		}
		items = append(items, h)
	}
	return items, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}
