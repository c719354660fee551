package yfinance

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/seenimoa/yfbridge/internal/frame"
	"github.com/seenimoa/yfbridge/internal/provider"
	"github.com/seenimoa/yfbridge/pkg/utils"
)

// --- Info ---

// infoModules are the quoteSummary modules merged into the info mapping.
// A key is taken from the first module that has it.
var infoModules = []string{
	"financialData",
	"quoteType",
	"defaultKeyStatistics",
	"assetProfile",
	"summaryDetail",
}

// Info returns the flattened quoteSummary of a symbol. A symbol Yahoo
// knows nothing about yields an empty mapping.
func (c *Client) Info(ctx context.Context, symbol string) (map[string]any, error) {
	symbol, err := requireSymbol(symbol)
	if err != nil {
		return nil, err
	}
	crumb, err := c.getCrumb(ctx)
	if err != nil {
		return nil, fmt.Errorf("yfinance info %s: %w", symbol, err)
	}

	var resp yfQuoteSummaryResponse
	err = c.fetchJSON(ctx, c.cfg.Query2URL+"/v10/finance/quoteSummary/"+url.PathEscape(symbol), map[string]string{
		"modules":   strings.Join(infoModules, ","),
		"crumb":     crumb,
		"formatted": "false",
		"lang":      "en-US",
		"region":    "US",
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("yfinance info %s: %w", symbol, err)
	}
	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yfinance info %s: %w", symbol, resp.QuoteSummary.Error)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return map[string]any{}, nil
	}
	return flattenInfo(resp.QuoteSummary.Result[0]), nil
}

// getCrumb performs the cookie and crumb handshake once per client.
func (c *Client) getCrumb(ctx context.Context) (string, error) {
	c.crumbMu.Lock()
	defer c.crumbMu.Unlock()
	if c.crumb != "" {
		return c.crumb, nil
	}

	// The cookie host answers 404 but sets the session cookie; only a
	// transport failure matters here.
	if _, err := c.http.R().SetContext(ctx).Get(c.cfg.CookieURL); err != nil {
		return "", fmt.Errorf("fetch session cookie: %w", err)
	}

	body, err := c.get(ctx, c.cfg.Query1URL+"/v1/test/getcrumb", nil)
	if err != nil {
		return "", fmt.Errorf("fetch crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(body))
	if crumb == "" || strings.ContainsAny(crumb, "<{ ") {
		return "", errors.New("fetch crumb: unexpected crumb response")
	}
	c.crumb = crumb
	return crumb, nil
}

// flattenInfo merges quoteSummary modules into one mapping. {raw, fmt}
// objects collapse to raw, empty objects to nil, and maxAge is dropped.
func flattenInfo(result map[string]any) map[string]any {
	info := make(map[string]any)
	for _, name := range infoModules {
		module, ok := result[name].(map[string]any)
		if !ok {
			continue
		}
		for k, v := range module {
			if k == "maxAge" {
				continue
			}
			if _, seen := info[k]; seen {
				continue
			}
			info[k] = flattenValue(v)
		}
	}
	return info
}

func flattenValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		if len(x) == 0 {
			return nil
		}
		if raw, ok := x["raw"]; ok {
			if _, hasFmt := x["fmt"]; hasFmt {
				return raw
			}
		}
		out := make(map[string]any, len(x))
		for k, e := range x {
			if k == "maxAge" {
				continue
			}
			out[k] = flattenValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = flattenValue(e)
		}
		return out
	default:
		return v
	}
}

// --- Statements ---

// timeseriesStart is the earliest period requested from the
// fundamentals-timeseries endpoint.
var timeseriesStart = time.Date(2016, 12, 31, 0, 0, 0, 0, time.UTC)

// Statement fetches one financial statement of a symbol from the
// fundamentals-timeseries endpoint. Rows are line items in canonical
// order, columns are report dates newest first.
func (c *Client) Statement(ctx context.Context, symbol string, kind provider.StatementKind, freq provider.Frequency) (*frame.Table, error) {
	symbol, err := requireSymbol(symbol)
	if err != nil {
		return nil, err
	}

	keys := statementKeys(kind)
	prefix := string(freq)
	types := make([]string, len(keys))
	for i, k := range keys {
		types[i] = prefix + k
	}

	var resp yfTimeseriesResponse
	err = c.fetchJSON(ctx, c.cfg.Query2URL+"/ws/fundamentals-timeseries/v1/finance/timeseries/"+url.PathEscape(symbol), map[string]string{
		"symbol":  symbol,
		"type":    strings.Join(types, ","),
		"period1": strconv.FormatInt(timeseriesStart.Unix(), 10),
		"period2": strconv.FormatInt(time.Now().Unix(), 10),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("yfinance %s %s %s: %w", freq, kind, symbol, err)
	}
	if resp.Timeseries.Error != nil {
		return nil, fmt.Errorf("yfinance %s %s %s: %w", freq, kind, symbol, resp.Timeseries.Error)
	}

	t := timeseriesTable(resp.Timeseries.Result, prefix, keys)
	c.logger.Debug("statement parsed", "symbol", symbol, "kind", kind, "freq", freq,
		"items", t.Len(), "periods", len(t.Columns()))
	return t, nil
}

// timeseriesTable pivots timeseries results into a line-item × date table.
// Line items without a single reported value are dropped.
func timeseriesTable(results []map[string]any, prefix string, keys []string) *frame.Table {
	values := make(map[string]map[string]float64) // item -> asOfDate -> raw
	dateSet := make(map[string]struct{})

	for _, r := range results {
		typ := metaType(r)
		if !strings.HasPrefix(typ, prefix) {
			continue
		}
		item := strings.TrimPrefix(typ, prefix)
		points, _ := r[typ].([]any)
		for _, p := range points {
			point, ok := p.(map[string]any)
			if !ok {
				continue
			}
			date, _ := point["asOfDate"].(string)
			reported, _ := point["reportedValue"].(map[string]any)
			raw, ok := reported["raw"].(float64)
			if date == "" || !ok {
				continue
			}
			if values[item] == nil {
				values[item] = make(map[string]float64)
			}
			values[item][date] = raw
			dateSet[date] = struct{}{}
		}
	}

	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	slices.Sort(dates)
	slices.Reverse(dates)

	var rows []string
	for _, k := range keys {
		if len(values[k]) > 0 {
			rows = append(rows, k)
		}
	}

	index := make([]frame.Value, len(rows))
	for i, k := range rows {
		index[i] = frame.String(k)
	}
	columns := make([]frame.Value, len(dates))
	for j, d := range dates {
		if t, err := utils.ParseDate(d); err == nil {
			columns[j] = frame.Time(t)
		} else {
			columns[j] = frame.String(d)
		}
	}

	t := frame.New(index, columns)
	for i, k := range rows {
		for j, d := range dates {
			if v, ok := values[k][d]; ok {
				t.Set(i, j, frame.Float(v))
			}
		}
	}
	return t
}

func metaType(result map[string]any) string {
	meta, _ := result["meta"].(map[string]any)
	types, _ := meta["type"].([]any)
	if len(types) == 0 {
		return ""
	}
	s, _ := types[0].(string)
	return s
}

func statementKeys(kind provider.StatementKind) []string {
	switch kind {
	case provider.StatementIncome:
		return incomeKeys
	case provider.StatementBalance:
		return balanceKeys
	default:
		return cashflowKeys
	}
}

// Line-item keys per statement, in display order.
var (
	incomeKeys = []string{
		"TaxEffectOfUnusualItems", "TaxRateForCalcs", "NormalizedEBITDA",
		"NormalizedDilutedEPS", "NormalizedBasicEPS", "TotalUnusualItems",
		"TotalUnusualItemsExcludingGoodwill", "NetIncomeFromContinuingOperationNetMinorityInterest",
		"ReconciledDepreciation", "ReconciledCostOfRevenue", "EBITDA", "EBIT",
		"NetInterestIncome", "InterestExpense", "InterestIncome",
		"ContinuingAndDiscontinuedDilutedEPS", "ContinuingAndDiscontinuedBasicEPS",
		"NormalizedIncome", "NetIncomeFromContinuingAndDiscontinuedOperation",
		"TotalExpenses", "RentExpenseSupplemental", "ReportedNormalizedDilutedEPS",
		"ReportedNormalizedBasicEPS", "TotalOperatingIncomeAsReported",
		"DividendPerShare", "DilutedAverageShares", "BasicAverageShares",
		"DilutedEPS", "DilutedEPSOtherGainsLosses", "TaxLossCarryforwardDilutedEPS",
		"DilutedAccountingChange", "DilutedExtraordinary", "DilutedDiscontinuousOperations",
		"DilutedContinuousOperations", "BasicEPS", "BasicEPSOtherGainsLosses",
		"TaxLossCarryforwardBasicEPS", "BasicAccountingChange", "BasicExtraordinary",
		"BasicDiscontinuousOperations", "BasicContinuousOperations",
		"DilutedNIAvailtoComStockholders", "AverageDilutionEarnings",
		"NetIncomeCommonStockholders", "OtherunderPreferredStockDividend",
		"PreferredStockDividends", "NetIncome", "MinorityInterests",
		"NetIncomeIncludingNoncontrollingInterests", "NetIncomeFromTaxLossCarryforward",
		"NetIncomeExtraordinary", "NetIncomeDiscontinuousOperations",
		"NetIncomeContinuousOperations", "EarningsFromEquityInterestNetOfTax",
		"TaxProvision", "PretaxIncome", "OtherIncomeExpense", "OtherNonOperatingIncomeExpenses",
		"SpecialIncomeCharges", "GainOnSaleOfPPE", "GainOnSaleOfBusiness",
		"OtherSpecialCharges", "WriteOff", "ImpairmentOfCapitalAssets",
		"RestructuringAndMergernAcquisition", "SecuritiesAmortization",
		"EarningsFromEquityInterest", "GainOnSaleOfSecurity", "NetNonOperatingInterestIncomeExpense",
		"TotalOtherFinanceCost", "InterestExpenseNonOperating", "InterestIncomeNonOperating",
		"OperatingIncome", "OperatingExpense", "OtherOperatingExpenses",
		"OtherTaxes", "ProvisionForDoubtfulAccounts", "DepreciationAmortizationDepletionIncomeStatement",
		"DepletionIncomeStatement", "DepreciationAndAmortizationInIncomeStatement",
		"Amortization", "AmortizationOfIntangiblesIncomeStatement",
		"DepreciationIncomeStatement", "ResearchAndDevelopment",
		"SellingGeneralAndAdministration", "SellingAndMarketingExpense",
		"GeneralAndAdministrativeExpense", "OtherGandA", "InsuranceAndClaims",
		"RentAndLandingFees", "SalariesAndWages", "GrossProfit", "CostOfRevenue",
		"TotalRevenue", "ExciseTaxes", "OperatingRevenue",
	}

	balanceKeys = []string{
		"TreasurySharesNumber", "PreferredSharesNumber", "OrdinarySharesNumber",
		"ShareIssued", "NetDebt", "TotalDebt", "TangibleBookValue", "InvestedCapital",
		"WorkingCapital", "NetTangibleAssets", "CapitalLeaseObligations",
		"CommonStockEquity", "PreferredStockEquity", "TotalCapitalization",
		"TotalEquityGrossMinorityInterest", "MinorityInterest", "StockholdersEquity",
		"OtherEquityInterest", "GainsLossesNotAffectingRetainedEarnings",
		"OtherEquityAdjustments", "FixedAssetsRevaluationReserve",
		"ForeignCurrencyTranslationAdjustments", "MinimumPensionLiabilities",
		"UnrealizedGainLoss", "TreasuryStock", "RetainedEarnings",
		"AdditionalPaidInCapital", "CapitalStock", "OtherCapitalStock", "CommonStock",
		"PreferredStock", "TotalPartnershipCapital", "GeneralPartnershipCapital",
		"LimitedPartnershipCapital", "TotalLiabilitiesNetMinorityInterest",
		"TotalNonCurrentLiabilitiesNetMinorityInterest", "OtherNonCurrentLiabilities",
		"LiabilitiesHeldforSaleNonCurrent", "RestrictedCommonStock",
		"PreferredSecuritiesOutsideStockEquity", "DerivativeProductLiabilities",
		"EmployeeBenefits", "NonCurrentPensionAndOtherPostretirementBenefitPlans",
		"NonCurrentAccruedExpenses", "DuetoRelatedPartiesNonCurrent",
		"TradeandOtherPayablesNonCurrent", "NonCurrentDeferredLiabilities",
		"NonCurrentDeferredRevenue", "NonCurrentDeferredTaxesLiabilities",
		"LongTermDebtAndCapitalLeaseObligation", "LongTermCapitalLeaseObligation",
		"LongTermDebt", "LongTermProvisions", "CurrentLiabilities",
		"OtherCurrentLiabilities", "CurrentDeferredLiabilities", "CurrentDeferredRevenue",
		"CurrentDeferredTaxesLiabilities", "CurrentDebtAndCapitalLeaseObligation",
		"CurrentCapitalLeaseObligation", "CurrentDebt", "OtherCurrentBorrowings",
		"LineOfCredit", "CommercialPaper", "CurrentNotesPayable",
		"PensionandOtherPostRetirementBenefitPlansCurrent", "CurrentProvisions",
		"PayablesAndAccruedExpenses", "CurrentAccruedExpenses", "InterestPayable",
		"Payables", "OtherPayable", "DuetoRelatedPartiesCurrent", "DividendsPayable",
		"TotalTaxPayable", "IncomeTaxPayable", "AccountsPayable", "TotalAssets",
		"TotalNonCurrentAssets", "OtherNonCurrentAssets", "DefinedPensionBenefit",
		"NonCurrentPrepaidAssets", "NonCurrentDeferredAssets", "NonCurrentDeferredTaxesAssets",
		"DuefromRelatedPartiesNonCurrent", "NonCurrentNoteReceivables",
		"NonCurrentAccountsReceivable", "FinancialAssets", "InvestmentsAndAdvances",
		"OtherInvestments", "InvestmentinFinancialAssets", "HeldToMaturitySecurities",
		"AvailableForSaleSecurities", "FinancialAssetsDesignatedasFairValueThroughProfitorLossTotal",
		"TradingSecurities", "LongTermEquityInvestment", "InvestmentsinJointVenturesatCost",
		"InvestmentsInOtherVenturesUnderEquityMethod", "InvestmentsinAssociatesatCost",
		"InvestmentsinSubsidiariesatCost", "InvestmentProperties",
		"GoodwillAndOtherIntangibleAssets", "OtherIntangibleAssets", "Goodwill",
		"NetPPE", "AccumulatedDepreciation", "GrossPPE", "Leases",
		"ConstructionInProgress", "OtherProperties", "MachineryFurnitureEquipment",
		"BuildingsAndImprovements", "LandAndImprovements", "Properties",
		"CurrentAssets", "OtherCurrentAssets", "HedgingAssetsCurrent",
		"AssetsHeldForSaleCurrent", "CurrentDeferredAssets", "CurrentDeferredTaxesAssets",
		"RestrictedCash", "PrepaidAssets", "Inventory", "InventoriesAdjustmentsAllowances",
		"OtherInventories", "FinishedGoods", "WorkInProcess", "RawMaterials",
		"Receivables", "ReceivablesAdjustmentsAllowances", "OtherReceivables",
		"DuefromRelatedPartiesCurrent", "TaxesReceivable", "AccruedInterestReceivable",
		"NotesReceivable", "LoansReceivable", "AccountsReceivable",
		"AllowanceForDoubtfulAccountsReceivable", "GrossAccountsReceivable",
		"CashCashEquivalentsAndShortTermInvestments", "OtherShortTermInvestments",
		"CashAndCashEquivalents", "CashEquivalents", "CashFinancial",
	}

	cashflowKeys = []string{
		"FreeCashFlow", "ForeignSales", "DomesticSales", "AdjustedGeographySegmentData",
		"RepurchaseOfCapitalStock", "RepaymentOfDebt", "IssuanceOfDebt",
		"IssuanceOfCapitalStock", "CapitalExpenditure", "InterestPaidSupplementalData",
		"IncomeTaxPaidSupplementalData", "EndCashPosition", "OtherCashAdjustmentOutsideChangeinCash",
		"BeginningCashPosition", "EffectOfExchangeRateChanges", "ChangesInCash",
		"OtherCashAdjustmentInsideChangeinCash", "CashFlowFromDiscontinuedOperation",
		"FinancingCashFlow", "CashFromDiscontinuedFinancingActivities",
		"CashFlowFromContinuingFinancingActivities", "NetOtherFinancingCharges",
		"InterestPaidCFF", "ProceedsFromStockOptionExercised", "CashDividendsPaid",
		"PreferredStockDividendPaid", "CommonStockDividendPaid", "NetPreferredStockIssuance",
		"PreferredStockPayments", "PreferredStockIssuance", "NetCommonStockIssuance",
		"CommonStockPayments", "CommonStockIssuance", "NetIssuancePaymentsOfDebt",
		"NetShortTermDebtIssuance", "ShortTermDebtPayments", "ShortTermDebtIssuance",
		"NetLongTermDebtIssuance", "LongTermDebtPayments", "LongTermDebtIssuance",
		"InvestingCashFlow", "CashFromDiscontinuedInvestingActivities",
		"CashFlowFromContinuingInvestingActivities", "NetOtherInvestingChanges",
		"InterestReceivedCFI", "DividendsReceivedCFI", "NetInvestmentPurchaseAndSale",
		"SaleOfInvestment", "PurchaseOfInvestment", "NetInvestmentPropertiesPurchaseAndSale",
		"SaleOfInvestmentProperties", "PurchaseOfInvestmentProperties",
		"NetBusinessPurchaseAndSale", "SaleOfBusiness", "PurchaseOfBusiness",
		"NetIntangiblesPurchaseAndSale", "SaleOfIntangibles", "PurchaseOfIntangibles",
		"NetPPEPurchaseAndSale", "SaleOfPPE", "PurchaseOfPPE", "CapitalExpenditureReported",
		"OperatingCashFlow", "CashFromDiscontinuedOperatingActivities",
		"CashFlowFromContinuingOperatingActivities", "TaxesRefundPaid",
		"InterestReceivedCFO", "InterestPaidCFO", "DividendReceivedCFO", "DividendPaidCFO",
		"ChangeInWorkingCapital", "ChangeInOtherWorkingCapital", "ChangeInOtherCurrentLiabilities",
		"ChangeInOtherCurrentAssets", "ChangeInPayablesAndAccruedExpense",
		"ChangeInAccruedExpense", "ChangeInInterestPayable", "ChangeInPayable",
		"ChangeInDividendPayable", "ChangeInAccountPayable", "ChangeInTaxPayable",
		"ChangeInIncomeTaxPayable", "ChangeInPrepaidAssets", "ChangeInInventory",
		"ChangeInReceivables", "ChangesInAccountReceivables", "OtherNonCashItems",
		"ExcessTaxBenefitFromStockBasedCompensation", "StockBasedCompensation",
		"UnrealizedGainLossOnInvestmentSecurities", "ProvisionandWriteOffofAssets",
		"AssetImpairmentCharge", "AmortizationOfSecurities", "DeferredTax",
		"DeferredIncomeTax", "DepreciationAmortizationDepletion", "Depletion",
		"DepreciationAndAmortization", "AmortizationCashFlow", "AmortizationOfIntangibles",
		"Depreciation", "OperatingGainsLosses", "PensionAndEmployeeBenefitExpense",
		"EarningsLossesFromEquityInvestments", "GainLossOnInvestmentSecurities",
		"NetForeignCurrencyExchangeGainLoss", "GainLossOnSaleOfPPE",
		"GainLossOnSaleOfBusiness", "NetIncomeFromContinuingOperations",
		"CashFlowsfromusedinOperatingActivitiesDirect", "TaxesRefundPaidDirect",
		"InterestReceivedDirect", "InterestPaidDirect", "DividendsReceivedDirect",
		"DividendsPaidDirect", "ClassesofCashPayments", "OtherCashPaymentsfromOperatingActivities",
		"PaymentsonBehalfofEmployees", "PaymentstoSuppliersforGoodsandServices",
		"ClassesofCashReceiptsfromOperatingActivities", "OtherCashReceiptsfromOperatingActivities",
		"ReceiptsfromGovernmentGrants", "ReceiptsfromCustomers",
	}
)
