package diagnosis

import (
	"testing"

	"retail-insight/internal/domain/diagnosis"
)

func TestClassifyProduct(t *testing.T) {
	cases := []struct {
		name string
		in   RuleInput
		want diagnosis.ReasonCode
		hit  bool
	}{
		{
			name: "new product never counts as decline",
			in:   RuleInput{InCurrent: true, CurrentQty: 3, CurrentPrice: 10},
			want: diagnosis.ReasonNewProduct,
			hit:  true,
		},
		{
			name: "stocked out wins over price rules",
			in: RuleInput{
				InBaseline: true, InCurrent: true,
				BaselineQty: 10, CurrentQty: 2,
				BaselinePrice: 10, CurrentPrice: 12,
				Stock: 0,
			},
			want: diagnosis.ReasonStockedOut,
			hit:  true,
		},
		{
			name: "price increase causing decline",
			in: RuleInput{
				InBaseline: true, InCurrent: true,
				BaselineQty: 100, CurrentQty: 60,
				BaselinePrice: 10, CurrentPrice: 12,
				Stock: 5,
			},
			want: diagnosis.ReasonPriceUpDecline,
			hit:  true,
		},
		{
			name: "price cut still declining",
			in: RuleInput{
				InBaseline: true, InCurrent: true,
				BaselineQty: 10, CurrentQty: 6,
				BaselinePrice: 10, CurrentPrice: 8,
				Stock: 5,
			},
			want: diagnosis.ReasonPriceCutDeclining,
			hit:  true,
		},
		{
			name: "plain decline when price flat",
			in: RuleInput{
				InBaseline: true, InCurrent: true,
				BaselineQty: 10, CurrentQty: 6,
				BaselinePrice: 10, CurrentPrice: 10,
				Stock: 5,
			},
			want: diagnosis.ReasonPlainDecline,
			hit:  true,
		},
		{
			name: "zero current sales with stock falls through to plain decline",
			in: RuleInput{
				InBaseline: true,
				BaselineQty: 10, CurrentQty: 0,
				BaselinePrice: 10, CurrentPrice: 0,
				Stock: 5,
			},
			want: diagnosis.ReasonPlainDecline,
			hit:  true,
		},
		{
			name: "price up and volume up",
			in: RuleInput{
				InBaseline: true, InCurrent: true,
				BaselineQty: 10, CurrentQty: 14,
				BaselinePrice: 10, CurrentPrice: 12,
			},
			want: diagnosis.ReasonPriceUpVolumeUp,
			hit:  true,
		},
		{
			name: "promotion success",
			in: RuleInput{
				InBaseline: true, InCurrent: true,
				BaselineQty: 10, CurrentQty: 14,
				BaselinePrice: 10, CurrentPrice: 8,
			},
			want: diagnosis.ReasonPromotionSuccess,
			hit:  true,
		},
		{
			name: "organic growth",
			in: RuleInput{
				InBaseline: true, InCurrent: true,
				BaselineQty: 10, CurrentQty: 14,
				BaselinePrice: 10, CurrentPrice: 10,
			},
			want: diagnosis.ReasonOrganicGrowth,
			hit:  true,
		},
		{
			name: "flat quantity is not a finding",
			in: RuleInput{
				InBaseline: true, InCurrent: true,
				BaselineQty: 10, CurrentQty: 10,
				BaselinePrice: 10, CurrentPrice: 12,
			},
			hit: false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := ClassifyProduct(c.in)
			if ok != c.hit {
				t.Fatalf("hit: expected %v, got %v", c.hit, ok)
			}
			if got != c.want && c.hit {
				t.Errorf("expected %s, got %s", c.want, got)
			}
		})
	}
}

func TestFirstMatch_RespectsOrder(t *testing.T) {
	rules := []Rule{
		{Code: "first", When: func(RuleInput) bool { return true }},
		{Code: "second", When: func(RuleInput) bool { return true }},
	}
	code, ok := FirstMatch(rules, RuleInput{})
	if !ok || code != "first" {
		t.Errorf("expected first rule to win, got %s (%v)", code, ok)
	}
}
