package diagnosis

import "retail-insight/internal/domain/diagnosis"

// RuleInput carries the per-product facts the reason classifier looks at.
// Prices are period average selling prices; zero means no sales in that period.
type RuleInput struct {
	BaselineQty   float64
	CurrentQty    float64
	BaselinePrice float64
	CurrentPrice  float64
	Stock         int
	InBaseline    bool
	InCurrent     bool
}

// Rule pairs a predicate with the reason code it assigns.
type Rule struct {
	Code diagnosis.ReasonCode
	When func(RuleInput) bool
}

// FirstMatch evaluates rules top to bottom and returns the first hit.
// Precedence lives entirely in the order of the slice, so it can be
// unit-tested rule by rule and extended without touching any analyzer.
func FirstMatch(rules []Rule, in RuleInput) (diagnosis.ReasonCode, bool) {
	for _, r := range rules {
		if r.When(in) {
			return r.Code, true
		}
	}
	return "", false
}

// DeclineRules classifies products whose quantity dropped, highest priority first.
// A product missing from the baseline is a new product, never a decline.
var DeclineRules = []Rule{
	{
		Code: diagnosis.ReasonNewProduct,
		When: func(in RuleInput) bool { return !in.InBaseline && in.InCurrent },
	},
	{
		Code: diagnosis.ReasonStockedOut,
		When: func(in RuleInput) bool { return in.CurrentQty < in.BaselineQty && in.Stock == 0 },
	},
	{
		Code: diagnosis.ReasonPriceUpDecline,
		When: func(in RuleInput) bool {
			return in.CurrentQty < in.BaselineQty && in.CurrentPrice > in.BaselinePrice && in.BaselinePrice > 0
		},
	},
	{
		Code: diagnosis.ReasonPriceCutDeclining,
		When: func(in RuleInput) bool {
			return in.CurrentQty < in.BaselineQty && in.CurrentPrice < in.BaselinePrice && in.CurrentPrice > 0
		},
	},
	{
		Code: diagnosis.ReasonPlainDecline,
		When: func(in RuleInput) bool { return in.CurrentQty < in.BaselineQty },
	},
}

// RiseRules classifies products whose quantity grew, highest priority first.
var RiseRules = []Rule{
	{
		Code: diagnosis.ReasonNewProduct,
		When: func(in RuleInput) bool { return !in.InBaseline && in.InCurrent },
	},
	{
		Code: diagnosis.ReasonPriceUpVolumeUp,
		When: func(in RuleInput) bool {
			return in.CurrentQty > in.BaselineQty && in.CurrentPrice > in.BaselinePrice && in.BaselinePrice > 0
		},
	},
	{
		Code: diagnosis.ReasonPromotionSuccess,
		When: func(in RuleInput) bool {
			return in.CurrentQty > in.BaselineQty && in.CurrentPrice < in.BaselinePrice && in.CurrentPrice > 0
		},
	},
	{
		Code: diagnosis.ReasonOrganicGrowth,
		When: func(in RuleInput) bool { return in.CurrentQty > in.BaselineQty },
	},
}

// ClassifyProduct routes a product to the decline or rise rule list
// depending on the direction of its quantity change.
func ClassifyProduct(in RuleInput) (diagnosis.ReasonCode, bool) {
	if !in.InBaseline && in.InCurrent {
		return diagnosis.ReasonNewProduct, true
	}
	if in.CurrentQty < in.BaselineQty {
		return FirstMatch(DeclineRules, in)
	}
	if in.CurrentQty > in.BaselineQty {
		return FirstMatch(RiseRules, in)
	}
	return "", false
}
