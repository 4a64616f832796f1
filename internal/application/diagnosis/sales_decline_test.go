package diagnosis

import (
	"math"
	"testing"
	"time"

	"retail-insight/internal/domain/diagnosis"
	"retail-insight/internal/domain/orders"
)

func line(product string, date time.Time, price, cost, qty float64, stock int) orders.OrderLine {
	return orders.OrderLine{
		OrderID:     "o-" + product + date.Format("0102"),
		ProductName: product,
		Date:        date,
		UnitPrice:   price,
		UnitCost:    cost,
		Quantity:    qty,
		Stock:       stock,
	}
}

func twoPeriodIndex(t *testing.T, lines []orders.OrderLine) (*ProductIndex, diagnosis.Comparison) {
	t.Helper()
	dates := make(map[string]bool)
	table := make([]orders.Order, 0, len(lines))
	for _, l := range lines {
		key := l.Date.Format("2006-01-02")
		if dates[key] {
			continue
		}
		dates[key] = true
		table = append(table, orders.Order{OrderID: key, Date: l.Date})
	}
	periods := ResolvePeriods(table, diagnosis.GranularityDay)
	if len(periods) != 2 {
		t.Fatalf("fixture should span exactly 2 days, got %d periods", len(periods))
	}
	return BuildProductIndex(lines, periods), diagnosis.Comparison{Current: periods[0], Baseline: periods[1]}
}

func TestSalesDecline_PriceIncreaseCausingDecline(t *testing.T) {
	idx, cmp := twoPeriodIndex(t, []orders.OrderLine{
		line("美式咖啡", d(1), 10, 4, 100, 50),
		line("美式咖啡", d(8), 12, 4, 60, 50),
	})

	res := SalesDecline(idx, cmp, SalesDeclineParams{})
	if len(res.Decliners.Rows) != 1 {
		t.Fatalf("expected 1 decliner, got %d", len(res.Decliners.Rows))
	}

	f := res.Decliners.Rows[0]
	if f.Reason != diagnosis.ReasonPriceUpDecline {
		t.Errorf("expected price-increase-causing-decline, got %s", f.Reason)
	}
	if f.QtyDelta != -40 {
		t.Errorf("QtyDelta: expected -40, got %v", f.QtyDelta)
	}
	if f.QtyDeltaPct == nil || *f.QtyDeltaPct != -40 {
		t.Errorf("QtyDeltaPct: expected -40, got %v", f.QtyDeltaPct)
	}
	// 營收損失 = 40 × 當期均價 12
	if f.RevenueLoss != 480 {
		t.Errorf("RevenueLoss: expected 480, got %v", f.RevenueLoss)
	}
	// 利潤損失 = 480 × 當期毛利率 (12−4)/12
	wantProfit := 480 * (12.0 - 4) / 12
	if math.Abs(f.ProfitLoss-wantProfit) > 1e-9 {
		t.Errorf("ProfitLoss: expected %v, got %v", wantProfit, f.ProfitLoss)
	}
	if f.Severity != diagnosis.SeverityWarning {
		t.Errorf("480 < 500 should stay warning, got %s", f.Severity)
	}
}

func TestSalesDecline_CriticalWhenLossExceedsThreshold(t *testing.T) {
	idx, cmp := twoPeriodIndex(t, []orders.OrderLine{
		line("便当", d(1), 20, 10, 100, 50),
		line("便当", d(8), 20, 10, 40, 50),
	})

	res := SalesDecline(idx, cmp, SalesDeclineParams{})
	if len(res.Decliners.Rows) != 1 {
		t.Fatalf("expected 1 decliner, got %d", len(res.Decliners.Rows))
	}
	// 損失 60 × 20 = 1200 ≥ 500
	if res.Decliners.Rows[0].Severity != diagnosis.SeverityCritical {
		t.Errorf("expected critical, got %s", res.Decliners.Rows[0].Severity)
	}
}

func TestSalesDecline_StockedOutUsesBaselinePriceForLoss(t *testing.T) {
	idx, cmp := twoPeriodIndex(t, []orders.OrderLine{
		line("可颂", d(1), 8, 3, 30, 0),
		line("美式咖啡", d(8), 10, 4, 5, 10), // 撐住當期，讓期別存在
	})

	res := SalesDecline(idx, cmp, SalesDeclineParams{})
	var f *diagnosis.Finding
	for i := range res.Decliners.Rows {
		if res.Decliners.Rows[i].Subject == "可颂" {
			f = &res.Decliners.Rows[i]
		}
	}
	if f == nil {
		t.Fatal("expected 可颂 in decliners")
	}
	if f.Reason != diagnosis.ReasonStockedOut {
		t.Errorf("expected stocked-out, got %s", f.Reason)
	}
	// 當期零銷量退回基期均價 8 估損失
	if f.RevenueLoss != 240 {
		t.Errorf("RevenueLoss: expected 240, got %v", f.RevenueLoss)
	}
	if f.CurrentAvgPrice != nil {
		t.Errorf("zero current sales should have nil avg price, got %v", *f.CurrentAvgPrice)
	}
}

func TestSalesDecline_NewProductNeverInDecliners(t *testing.T) {
	idx, cmp := twoPeriodIndex(t, []orders.OrderLine{
		line("旧品", d(1), 10, 4, 5, 10),
		line("旧品", d(8), 10, 4, 5, 10),
		line("新品", d(8), 15, 6, 3, 10),
	})

	res := SalesDecline(idx, cmp, SalesDeclineParams{})
	for _, f := range res.Decliners.Rows {
		if f.Subject == "新品" {
			t.Fatal("new product must not appear in decliners")
		}
	}
	if len(res.Risers.Rows) != 0 {
		// 新品不屬 RiseReasons，也不進上升榜
		t.Errorf("new product must not appear in risers either, got %d rows", len(res.Risers.Rows))
	}
}

func TestSalesDecline_TopKAndOrdering(t *testing.T) {
	lines := []orders.OrderLine{
		line("a", d(1), 10, 4, 30, 10),
		line("a", d(8), 10, 4, 10, 10), // Δ −20
		line("b", d(1), 10, 4, 30, 10),
		line("b", d(8), 10, 4, 25, 10), // Δ −5
		line("c", d(1), 10, 4, 30, 10),
		line("c", d(8), 10, 4, 20, 10), // Δ −10
	}
	idx, cmp := twoPeriodIndex(t, lines)

	res := SalesDecline(idx, cmp, SalesDeclineParams{TopK: 2})
	if len(res.Decliners.Rows) != 2 {
		t.Fatalf("expected top 2, got %d", len(res.Decliners.Rows))
	}
	if res.Decliners.Rows[0].Subject != "a" || res.Decliners.Rows[1].Subject != "c" {
		t.Errorf("expected a then c, got %s then %s", res.Decliners.Rows[0].Subject, res.Decliners.Rows[1].Subject)
	}
}

func TestSalesDecline_SummaryTotals(t *testing.T) {
	idx, cmp := twoPeriodIndex(t, []orders.OrderLine{
		line("a", d(1), 10, 4, 10, 10),
		line("b", d(1), 20, 8, 5, 10),
		line("a", d(8), 10, 4, 8, 10),
		line("b", d(8), 20, 8, 6, 10),
	})

	res := SalesDecline(idx, cmp, SalesDeclineParams{})
	if len(res.Summary.Rows) != 1 {
		t.Fatalf("expected exactly 1 summary row, got %d", len(res.Summary.Rows))
	}
	s := res.Summary.Rows[0]
	if s.CurrentQty != 14 || s.BaselineQty != 15 {
		t.Errorf("qty totals: got current %v baseline %v", s.CurrentQty, s.BaselineQty)
	}
	if s.CurrentRevenue != 200 || s.BaselineRevenue != 200 {
		t.Errorf("revenue totals: got current %v baseline %v", s.CurrentRevenue, s.BaselineRevenue)
	}
}

func TestSalesDecline_DeterministicOutput(t *testing.T) {
	lines := []orders.OrderLine{
		line("b", d(1), 10, 4, 30, 10),
		line("a", d(1), 10, 4, 30, 10),
		line("b", d(8), 10, 4, 20, 10),
		line("a", d(8), 10, 4, 20, 10),
	}
	idx, cmp := twoPeriodIndex(t, lines)

	first := SalesDecline(idx, cmp, SalesDeclineParams{})
	second := SalesDecline(idx, cmp, SalesDeclineParams{})
	if len(first.Decliners.Rows) != len(second.Decliners.Rows) {
		t.Fatal("row counts differ between runs")
	}
	for i := range first.Decliners.Rows {
		if first.Decliners.Rows[i].Subject != second.Decliners.Rows[i].Subject {
			t.Fatalf("row %d subject differs between runs", i)
		}
	}
	// 同 Δ 時以商品名為從屬排序鍵
	if first.Decliners.Rows[0].Subject != "a" {
		t.Errorf("tie should break by subject, got %s first", first.Decliners.Rows[0].Subject)
	}
}
