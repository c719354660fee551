// Package models defines the JSON shapes the bridge writes: normalized price
// bars, statement records and the analyst-estimate summary.
package models

import "github.com/guregu/null/v6"

// Bar is one normalized price-history bar. Every field is nullable; a bar is
// kept even when the provider left some of its values empty.
type Bar struct {
	Date   null.String `json:"date"`
	Open   null.Float  `json:"open"`
	High   null.Float  `json:"high"`
	Low    null.Float  `json:"low"`
	Close  null.Float  `json:"close"`
	Volume null.Float  `json:"volume"`
}

// StatementSet holds the annual and quarterly records of one financial
// statement, newest period first.
type StatementSet struct {
	Annual    []*Record `json:"annual"`
	Quarterly []*Record `json:"quarterly"`
}

// Estimates wraps the analyst-estimate subset of a ticker's info mapping.
type Estimates struct {
	Info EstimateInfo `json:"info"`
}

// EstimateInfo carries analyst targets and EPS. Values are whatever the
// provider reported; a field the provider did not report encodes as null.
type EstimateInfo struct {
	TargetMeanPrice         any `json:"targetMeanPrice"`
	TargetHighPrice         any `json:"targetHighPrice"`
	TargetLowPrice          any `json:"targetLowPrice"`
	RecommendationMean      any `json:"recommendationMean"`
	RecommendationKey       any `json:"recommendationKey"`
	NumberOfAnalystOpinions any `json:"numberOfAnalystOpinions"`
	ForwardEps              any `json:"forwardEps"`
	TrailingEps             any `json:"trailingEps"`
}

// EstimateFromInfo picks the estimate fields out of an info mapping.
func EstimateFromInfo(info map[string]any) Estimates {
	return Estimates{Info: EstimateInfo{
		TargetMeanPrice:         info["targetMeanPrice"],
		TargetHighPrice:         info["targetHighPrice"],
		TargetLowPrice:          info["targetLowPrice"],
		RecommendationMean:      info["recommendationMean"],
		RecommendationKey:       info["recommendationKey"],
		NumberOfAnalystOpinions: info["numberOfAnalystOpinions"],
		ForwardEps:              info["forwardEps"],
		TrailingEps:             info["trailingEps"],
	}}
}
