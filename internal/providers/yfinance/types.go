package yfinance

// --- Yahoo Finance API response types ---

// yfChartResponse wraps the v8 chart API response.
type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol               string `json:"symbol"`
	Currency             string `json:"currency"`
	InstrumentType       string `json:"instrumentType"`
	ExchangeName         string `json:"exchangeName"`
	ExchangeTimezoneName string `json:"exchangeTimezoneName"`
	DataGranularity      string `json:"dataGranularity"`
}

type yfIndicators struct {
	Quote    []yfOHLCV    `json:"quote"`
	AdjClose []yfAdjClose `json:"adjclose"`
}

type yfOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yfAdjClose struct {
	AdjClose []*float64 `json:"adjclose"`
}

// yfQuoteSummaryResponse wraps the v10 quoteSummary API response. Modules
// are kept as raw maps and flattened into the info mapping.
type yfQuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []map[string]any `json:"result"`
		Error  *yfError         `json:"error"`
	} `json:"quoteSummary"`
}

// yfTimeseriesResponse wraps the fundamentals-timeseries API response.
// Each result carries its type in meta.type and its data points under a
// key equal to that type.
type yfTimeseriesResponse struct {
	Timeseries struct {
		Result []map[string]any `json:"result"`
		Error  *yfError         `json:"error"`
	} `json:"timeseries"`
}

// yfSearchResponse is the part of the v1 search response the news call reads.
type yfSearchResponse struct {
	News []any `json:"news"`
}

// yfFinanceError wraps the error body Yahoo returns on most 4xx responses.
type yfFinanceError struct {
	Finance struct {
		Error *yfError `json:"error"`
	} `json:"finance"`
	Chart struct {
		Error *yfError `json:"error"`
	} `json:"chart"`
	QuoteSummary struct {
		Error *yfError `json:"error"`
	} `json:"quoteSummary"`
}

func (e yfFinanceError) first() *yfError {
	for _, err := range []*yfError{e.Finance.Error, e.Chart.Error, e.QuoteSummary.Error} {
		if err != nil && err.Description != "" {
			return err
		}
	}
	return nil
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *yfError) Error() string {
	if e.Code == "" {
		return e.Description
	}
	return e.Code + ": " + e.Description
}

// Headline is one item of the Yahoo RSS headline feed.
type Headline struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Publisher string `json:"publisher,omitempty"`
	Published string `json:"published,omitempty"`
	UUID      string `json:"uuid,omitempty"`
	Summary   string `json:"summary,omitempty"`
}
