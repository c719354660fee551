package bridge_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/seenimoa/yfbridge/internal/bridge"
	"github.com/seenimoa/yfbridge/internal/frame"
	"github.com/seenimoa/yfbridge/internal/provider"
)

const source = "yfinance/yahoo"

func newMock(t *testing.T) *MockProvider {
	t.Helper()
	return NewMockProvider(gomock.NewController(t))
}

func expectName(m *MockProvider) {
	m.EXPECT().Name().Return(source).AnyTimes()
}

// run feeds input through bridge.Run and decodes the single envelope.
func run(t *testing.T, p provider.Provider, input string) (raw string, env map[string]any) {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, bridge.Run(context.Background(), strings.NewReader(input), &out, p, nil))

	raw = out.String()
	dec := json.NewDecoder(strings.NewReader(raw))
	require.NoError(t, dec.Decode(&env), "output: %s", raw)
	assert.False(t, dec.More(), "more than one JSON value written: %s", raw)
	return raw, env
}

func requireFailure(t *testing.T, env map[string]any) string {
	t.Helper()
	assert.Equal(t, false, env["ok"])
	msg, _ := env["error"].(string)
	require.NotEmpty(t, msg)
	assert.NotContains(t, env, "data")
	assert.NotContains(t, env, "source")
	return msg
}

func requireSuccess(t *testing.T, env map[string]any) any {
	t.Helper()
	require.Equal(t, true, env["ok"], "envelope: %v", env)
	assert.Equal(t, source, env["source"])
	data, ok := env["data"]
	require.True(t, ok, "data key must be present")
	assert.NotContains(t, env, "error")
	return data
}

func statementTable(periods []time.Time, items map[string][]frame.Value, order []string) *frame.Table {
	cols := make([]frame.Value, len(periods))
	for j, p := range periods {
		cols[j] = frame.Time(p)
	}
	idx := make([]frame.Value, len(order))
	for i, name := range order {
		idx[i] = frame.String(name)
	}
	t := frame.New(idx, cols)
	for i, name := range order {
		for j, v := range items[name] {
			t.Set(i, j, v)
		}
	}
	return t
}

// --- Unsupported action ---

func TestRunUnsupportedAction(t *testing.T) {
	inputs := map[string]string{
		"missing action":   `{"symbol":"AAPL"}`,
		"unknown action":   `{"action":"quote","symbol":"AAPL"}`,
		"wrong case":       `{"action":"Search","query":"apple"}`,
		"non-string":       `{"action":5}`,
		"empty input":      ``,
		"whitespace input": " \n\t ",
		"json null":        `null`,
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			// No expectations: any provider call fails the test.
			_, env := run(t, newMock(t), input)
			assert.Equal(t, "Unsupported action", requireFailure(t, env))
		})
	}
}

func TestRunMalformedJSON(t *testing.T) {
	_, env := run(t, newMock(t), `{"action":`)
	msg := requireFailure(t, env)
	assert.True(t, strings.HasPrefix(msg, "parse request: "), msg)
}

func TestRunNoTrailingNewline(t *testing.T) {
	raw, _ := run(t, newMock(t), `{}`)
	assert.Equal(t, `{"ok":false,"error":"Unsupported action"}`, raw)
}

// --- Search ---

func TestRunSearchPassesThrough(t *testing.T) {
	m := newMock(t)
	expectName(m)
	payload := map[string]any{"quotes": []any{map[string]any{"symbol": "AAPL"}}, "count": 1.0}
	m.EXPECT().Search(gomock.Any(), "apple").Return(payload, nil)

	_, env := run(t, m, `{"action":"search","query":"apple"}`)
	assert.Equal(t, payload, requireSuccess(t, env))
}

func TestRunSuccessWithNullData(t *testing.T) {
	m := newMock(t)
	expectName(m)
	m.EXPECT().Search(gomock.Any(), "").Return(nil, nil)

	raw, env := run(t, m, `{"action":"search"}`)
	assert.Nil(t, requireSuccess(t, env))
	assert.Equal(t, `{"ok":true,"data":null,"source":"yfinance/yahoo"}`, raw)
}

// --- Provider errors ---

func TestRunProviderError(t *testing.T) {
	tests := []struct {
		name  string
		input string
		setup func(m *MockProvider, err error)
	}{
		{"search", `{"action":"search","query":"x"}`, func(m *MockProvider, err error) {
			m.EXPECT().Search(gomock.Any(), "x").Return(nil, err)
		}},
		{"history", `{"action":"history","symbol":"X"}`, func(m *MockProvider, err error) {
			m.EXPECT().History(gomock.Any(), gomock.Any()).Return(nil, err)
		}},
		{"news", `{"action":"news","symbol":"X"}`, func(m *MockProvider, err error) {
			m.EXPECT().News(gomock.Any(), "X").Return(nil, err)
		}},
		{"estimates", `{"action":"estimates","symbol":"X"}`, func(m *MockProvider, err error) {
			m.EXPECT().Info(gomock.Any(), "X").Return(nil, err)
		}},
		{"info", `{"action":"info","symbol":"X"}`, func(m *MockProvider, err error) {
			m.EXPECT().Info(gomock.Any(), "X").Return(nil, err)
		}},
		{"statements", `{"action":"statements","symbol":"X","statement_type":"income"}`, func(m *MockProvider, err error) {
			m.EXPECT().Statement(gomock.Any(), "X", provider.StatementIncome, gomock.Any()).Return(nil, err).MinTimes(1).MaxTimes(2)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMock(t)
			tt.setup(m, &provider.ErrHTTP{StatusCode: 404, Status: "Not Found", Body: "Quote not found"})
			_, env := run(t, m, tt.input)
			assert.Contains(t, requireFailure(t, env), "HTTP 404 Not Found: Quote not found")
		})
	}
}

func TestRunEmptyErrorText(t *testing.T) {
	m := newMock(t)
	m.EXPECT().Search(gomock.Any(), "q").Return(nil, errors.New(""))

	_, env := run(t, m, `{"action":"search","query":"q"}`)
	assert.Equal(t, "unknown error", requireFailure(t, env))
}

func TestRunMissingParamError(t *testing.T) {
	m := newMock(t)
	m.EXPECT().Info(gomock.Any(), "").Return(nil, &provider.ErrMissingParam{Param: provider.ParamSymbol})

	_, env := run(t, m, `{"action":"info"}`)
	assert.Equal(t, `missing required parameter "symbol"`, requireFailure(t, env))
}

func TestRunRecoversPanic(t *testing.T) {
	m := newMock(t)
	m.EXPECT().News(gomock.Any(), "AAPL").DoAndReturn(func(context.Context, string) ([]any, error) {
		panic("boom")
	})

	_, env := run(t, m, `{"action":"news","symbol":"AAPL"}`)
	assert.Equal(t, "boom", requireFailure(t, env))
}

func TestRunStatementsRecoversPanic(t *testing.T) {
	m := newMock(t)
	m.EXPECT().Statement(gomock.Any(), "AAPL", provider.StatementCashflow, provider.FrequencyAnnual).
		DoAndReturn(func(context.Context, string, provider.StatementKind, provider.Frequency) (*frame.Table, error) {
			panic("boom")
		})
	m.EXPECT().Statement(gomock.Any(), "AAPL", provider.StatementCashflow, provider.FrequencyQuarterly).
		Return(frame.New(nil, nil), nil).MaxTimes(1)

	raw, env := run(t, m, `{"action":"statements","symbol":"AAPL"}`)
	assert.Equal(t, "boom", requireFailure(t, env))
	assert.False(t, strings.HasSuffix(raw, "\n"))
}

func TestRunUnmarshalableData(t *testing.T) {
	m := newMock(t)
	expectName(m)
	m.EXPECT().Search(gomock.Any(), "q").Return(map[string]any{"c": make(chan int)}, nil)

	_, env := run(t, m, `{"action":"search","query":"q"}`)
	assert.Contains(t, requireFailure(t, env), "unsupported type")
}

// --- History ---

func TestRunHistory(t *testing.T) {
	ny := time.FixedZone("EST", -5*3600)
	tb := frame.New(
		[]frame.Value{
			frame.Time(time.Date(2024, 1, 2, 0, 0, 0, 0, ny)),
			frame.Time(time.Date(2024, 1, 3, 0, 0, 0, 0, ny)),
		},
		[]frame.Value{frame.String("Open"), frame.String("High"), frame.String("Low"), frame.String("Close"), frame.String("Volume")},
	)
	tb.IndexName = "Date"
	for j := range 5 {
		tb.Set(0, j, frame.Float(float64(10+j)))
	}
	tb.Set(0, 4, frame.Int(500))
	tb.Set(1, 3, frame.Float(12.5))

	m := newMock(t)
	expectName(m)
	m.EXPECT().History(gomock.Any(), provider.HistoryParams{
		Symbol: "AAPL", StartDate: "2024-01-01", EndDate: "2024-01-05", Interval: "1wk",
	}).Return(tb, nil)

	_, env := run(t, m, `{"action":"history","symbol":"AAPL","start_date":"2024-01-01","end_date":"2024-01-05","interval":"week"}`)
	bars, ok := requireSuccess(t, env).([]any)
	require.True(t, ok)
	require.Len(t, bars, tb.Len())

	for _, b := range bars {
		bar := b.(map[string]any)
		assert.Len(t, bar, 6)
		for _, k := range []string{"open", "high", "low", "close", "volume"} {
			v, present := bar[k]
			require.True(t, present, k)
			if v != nil {
				assert.IsType(t, float64(0), v, k)
			}
		}
	}
	first := bars[0].(map[string]any)
	assert.Equal(t, "2024-01-02T00:00:00-05:00", first["date"])
	assert.Equal(t, 10.0, first["open"])
	assert.Equal(t, 500.0, first["volume"])
	second := bars[1].(map[string]any)
	assert.Nil(t, second["open"])
	assert.Equal(t, 12.5, second["close"])
}

func TestRunHistoryEmpty(t *testing.T) {
	m := newMock(t)
	expectName(m)
	m.EXPECT().History(gomock.Any(), gomock.Any()).Return(frame.New(nil, nil), nil)

	raw, _ := run(t, m, `{"action":"history","symbol":"AAPL"}`)
	assert.Equal(t, `{"ok":true,"data":[],"source":"yfinance/yahoo"}`, raw)
}

func TestMapInterval(t *testing.T) {
	tests := map[string]string{
		"minute": "1m",
		"day":    "1d",
		"week":   "1wk",
		"month":  "1mo",
		"year":   "1y",
		"":       "1d",
		"1h":     "1h",
		"5m":     "5m",
		"Day":    "Day",
	}
	for in, want := range tests {
		assert.Equal(t, want, bridge.MapInterval(in), "MapInterval(%q)", in)
	}
}

// --- News ---

func TestRunNews(t *testing.T) {
	m := newMock(t)
	expectName(m)
	items := []any{map[string]any{"uuid": "1", "title": "Apple"}}
	m.EXPECT().News(gomock.Any(), "AAPL").Return(items, nil)

	_, env := run(t, m, `{"action":"news","symbol":"AAPL"}`)
	assert.Equal(t, items, requireSuccess(t, env))
}

func TestRunNewsNilIsEmptyList(t *testing.T) {
	m := newMock(t)
	expectName(m)
	m.EXPECT().News(gomock.Any(), "AAPL").Return(nil, nil)

	raw, _ := run(t, m, `{"action":"news","symbol":"AAPL"}`)
	assert.Equal(t, `{"ok":true,"data":[],"source":"yfinance/yahoo"}`, raw)
}

func TestRunNewsRSSFeed(t *testing.T) {
	m := newMock(t)
	expectName(m)
	m.EXPECT().Headlines(gomock.Any(), "AAPL").Return([]any{map[string]any{"title": "RSS"}}, nil)

	_, env := run(t, m, `{"action":"news","symbol":"AAPL","feed":"rss"}`)
	data := requireSuccess(t, env).([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "RSS", data[0].(map[string]any)["title"])
}

// --- Estimates / Info ---

func TestRunEstimates(t *testing.T) {
	m := newMock(t)
	expectName(m)
	m.EXPECT().Info(gomock.Any(), "AAPL").Return(map[string]any{
		"targetMeanPrice":   210.5,
		"recommendationKey": "buy",
		"trailingEps":       6.1,
		"sector":            "Technology",
	}, nil)

	_, env := run(t, m, `{"action":"estimates","symbol":"AAPL"}`)
	data := requireSuccess(t, env).(map[string]any)
	info := data["info"].(map[string]any)
	assert.Len(t, info, 8)
	assert.Equal(t, 210.5, info["targetMeanPrice"])
	assert.Equal(t, "buy", info["recommendationKey"])
	assert.Equal(t, 6.1, info["trailingEps"])
	for _, k := range []string{"targetHighPrice", "targetLowPrice", "recommendationMean", "numberOfAnalystOpinions", "forwardEps"} {
		v, ok := info[k]
		assert.True(t, ok, "key %s must be present", k)
		assert.Nil(t, v, k)
	}
	assert.NotContains(t, info, "sector")
}

func TestRunEstimatesNilInfo(t *testing.T) {
	m := newMock(t)
	expectName(m)
	m.EXPECT().Info(gomock.Any(), "AAPL").Return(nil, nil)

	raw, _ := run(t, m, `{"action":"estimates","symbol":"AAPL"}`)
	assert.JSONEq(t, `{"ok":true,"source":"yfinance/yahoo","data":{"info":{
		"targetMeanPrice":null,"targetHighPrice":null,"targetLowPrice":null,
		"recommendationMean":null,"recommendationKey":null,"numberOfAnalystOpinions":null,
		"forwardEps":null,"trailingEps":null}}}`, raw)
}

func TestRunInfo(t *testing.T) {
	m := newMock(t)
	expectName(m)
	m.EXPECT().Info(gomock.Any(), "MSFT").Return(map[string]any{"symbol": "MSFT", "beta": 0.9}, nil)

	_, env := run(t, m, `{"action":"info","symbol":"MSFT"}`)
	assert.Equal(t, map[string]any{"symbol": "MSFT", "beta": 0.9}, requireSuccess(t, env))
}

func TestRunInfoNilIsEmptyObject(t *testing.T) {
	m := newMock(t)
	expectName(m)
	m.EXPECT().Info(gomock.Any(), "MSFT").Return(nil, nil)

	raw, _ := run(t, m, `{"action":"info","symbol":"MSFT"}`)
	assert.Equal(t, `{"ok":true,"data":{},"source":"yfinance/yahoo"}`, raw)
}

// --- Statements ---

func TestRunStatementsEmptyAnnual(t *testing.T) {
	quarterly := statementTable(
		[]time.Time{time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
		map[string][]frame.Value{"TotalRevenue": {frame.Int(90), frame.Float(119.5)}},
		[]string{"TotalRevenue"},
	)

	m := newMock(t)
	expectName(m)
	m.EXPECT().Statement(gomock.Any(), "AAPL", provider.StatementBalance, provider.FrequencyAnnual).Return(frame.New(nil, nil), nil)
	m.EXPECT().Statement(gomock.Any(), "AAPL", provider.StatementBalance, provider.FrequencyQuarterly).Return(quarterly, nil)

	raw, env := run(t, m, `{"action":"statements","symbol":"AAPL","statement_type":"balance"}`)
	data := requireSuccess(t, env).(map[string]any)
	assert.Equal(t, []any{}, data["annual"])
	q := data["quarterly"].([]any)
	require.Len(t, q, 2)
	assert.Equal(t, map[string]any{"report_period": "2024-03-31", "TotalRevenue": 90.0}, q[0])
	assert.Equal(t, map[string]any{"report_period": "2023-12-31", "TotalRevenue": 119.5}, q[1])
	assert.Contains(t, raw, `"annual":[]`)
	assert.Contains(t, raw, `{"report_period":"2024-03-31","TotalRevenue":90}`)
}

func TestRunStatementsNeverEmitsMissing(t *testing.T) {
	annual := statementTable(
		[]time.Time{time.Date(2023, 9, 30, 0, 0, 0, 0, time.UTC), time.Date(2022, 9, 30, 0, 0, 0, 0, time.UTC)},
		map[string][]frame.Value{
			"NetIncome": {frame.Float(97), frame.Missing()},
			"Auditor":   {frame.Missing(), frame.String("EY")},
		},
		[]string{"NetIncome", "Auditor"},
	)

	m := newMock(t)
	expectName(m)
	m.EXPECT().Statement(gomock.Any(), "AAPL", provider.StatementCashflow, provider.FrequencyAnnual).Return(annual, nil)
	m.EXPECT().Statement(gomock.Any(), "AAPL", provider.StatementCashflow, provider.FrequencyQuarterly).Return(nil, nil)

	_, env := run(t, m, `{"action":"statements","symbol":"AAPL","statement_type":"cash"}`)
	data := requireSuccess(t, env).(map[string]any)
	assert.Equal(t, []any{}, data["quarterly"])
	for _, r := range data["annual"].([]any) {
		rec := r.(map[string]any)
		assert.IsType(t, "", rec["report_period"])
		for k, v := range rec {
			assert.NotNil(t, v, "key %s", k)
		}
	}
	assert.Equal(t, map[string]any{"report_period": "2022-09-30", "Auditor": "EY"}, data["annual"].([]any)[1])
}

func TestRunStatementsSingleIntegerCell(t *testing.T) {
	one := frame.New([]frame.Value{frame.String("Shares")}, []frame.Value{frame.String("FY")})
	one.Set(0, 0, frame.Int(42))

	m := newMock(t)
	expectName(m)
	m.EXPECT().Statement(gomock.Any(), "AAPL", provider.StatementIncome, provider.FrequencyAnnual).Return(one, nil)
	m.EXPECT().Statement(gomock.Any(), "AAPL", provider.StatementIncome, provider.FrequencyQuarterly).Return(frame.New(nil, nil), nil)

	raw, env := run(t, m, `{"action":"statements","symbol":"AAPL","statement_type":"income"}`)
	data := requireSuccess(t, env).(map[string]any)
	annual := data["annual"].([]any)
	require.Len(t, annual, 1)
	assert.Equal(t, 42.0, annual[0].(map[string]any)["Shares"])
	assert.Contains(t, raw, `"annual":[{"report_period":"FY","Shares":42}]`)
}

// --- Request decoding ---

func TestParseRequest(t *testing.T) {
	req, err := bridge.ParseRequest([]byte(`{"action":"history","symbol":"AAPL","interval":"day","extra":{"x":1},"start_date":20240101}`))
	require.NoError(t, err)
	assert.Equal(t, bridge.ActionHistory, req.Action)
	assert.Equal(t, "AAPL", req.Symbol)
	assert.Equal(t, "day", req.Interval)
	assert.Equal(t, "20240101", req.StartDate)
	assert.Empty(t, req.EndDate)

	req, err = bridge.ParseRequest([]byte("  "))
	require.NoError(t, err)
	assert.Equal(t, bridge.Request{}, req)

	_, err = bridge.ParseRequest([]byte(`[1,2]`))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse request: "))
}

func TestDispatchUnsupported(t *testing.T) {
	d := bridge.NewDispatcher(newMock(t), nil)
	_, err := d.Dispatch(context.Background(), bridge.Request{Action: "quote"})
	assert.ErrorIs(t, err, bridge.ErrUnsupportedAction)
}

func TestEncodeFailureShape(t *testing.T) {
	assert.Equal(t, `{"ok":false,"error":"unknown error"}`, string(bridge.Encode(bridge.Failure(nil))))
	assert.Equal(t, `{"ok":false,"error":"unknown error"}`, string(bridge.Encode(bridge.Response{})))
	assert.Equal(t, `{"ok":true,"data":[1],"source":"s"}`, string(bridge.Encode(bridge.Success([]int{1}, "s"))))
}
