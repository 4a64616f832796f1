package diagnosis

import (
	"fmt"
	"sort"

	"retail-insight/internal/domain/diagnosis"
)

// SalesDeclineParams 控制銷量下滑分析的排名與分級，零值時套用預設。
type SalesDeclineParams struct {
	TopK                int     // 下滑榜／上升榜各取幾名，預設 5
	CriticalRevenueLoss float64 // 營收損失達此值列 critical，預設 500
}

func (p SalesDeclineParams) withDefaults() SalesDeclineParams {
	if p.TopK <= 0 {
		p.TopK = 5
	}
	if p.CriticalRevenueLoss == 0 {
		p.CriticalRevenueLoss = 500
	}
	return p
}

// SalesDeclineResult 為三個具名子檢視：期別總覽、top-K 下滑榜、top-K 上升榜。
// 子檢視已依歸因過濾完，前端不需要再自行判斷哪些歸因算問題。
type SalesDeclineResult struct {
	Summary   diagnosis.Table
	Decliners diagnosis.Table
	Risers    diagnosis.Table
}

// Tables 依固定順序回傳三個子檢視。
func (r SalesDeclineResult) Tables() []diagnosis.Table {
	return []diagnosis.Table{r.Summary, r.Decliners, r.Risers}
}

// SalesDecline 比較兩期的商品銷量並產出歸因排名。
// 外連接兩期商品集合：基期缺席的商品標 new-product、不給 %Δ（避免除以零），
// 絕不與真實下滑混為一談。營收損失 = |Δ銷量| × 當期均價；
// 利潤損失 = 營收損失 × 當期毛利率。
func SalesDecline(idx *ProductIndex, cmp diagnosis.Comparison, params SalesDeclineParams) SalesDeclineResult {
	params = params.withDefaults()

	cur := idx.Group(cmp.Current.Index)
	base := idx.Group(cmp.Baseline.Index)

	var findings []diagnosis.Finding
	var totalCurQty, totalBaseQty, totalCurRev, totalBaseRev, totalCurMargin float64

	for _, name := range idx.Products(cmp.Current.Index, cmp.Baseline.Index) {
		cs, inCur := cur[name]
		bs, inBase := base[name]
		if cs == nil {
			cs = &ProductStat{Product: name}
		}
		if bs == nil {
			bs = &ProductStat{Product: name}
		}

		totalCurQty += cs.Qty
		totalBaseQty += bs.Qty
		totalCurRev += cs.Revenue
		totalBaseRev += bs.Revenue
		totalCurMargin += cs.Revenue - cs.Cost

		in := RuleInput{
			BaselineQty: bs.Qty,
			CurrentQty:  cs.Qty,
			Stock:       cs.Stock,
			InBaseline:  inBase,
			InCurrent:   inCur,
		}
		if p := bs.AvgPrice(); p != nil {
			in.BaselinePrice = *p
		}
		if p := cs.AvgPrice(); p != nil {
			in.CurrentPrice = *p
		}

		reason, ok := ClassifyProduct(in)
		if !ok {
			continue // 銷量持平，不值得占版面
		}

		f := diagnosis.Finding{
			Subject:          name,
			Reason:           reason,
			Severity:         diagnosis.SeverityInfo,
			CurrentQty:       cs.Qty,
			BaselineQty:      bs.Qty,
			QtyDelta:         cs.Qty - bs.Qty,
			CurrentRevenue:   cs.Revenue,
			BaselineRevenue:  bs.Revenue,
			RevenueDelta:     cs.Revenue - bs.Revenue,
			CurrentAvgPrice:  cs.AvgPrice(),
			BaselineAvgPrice: bs.AvgPrice(),
			MarginRate:       cs.MarginRate(),
		}
		f.QtyDeltaPct = pctChange(bs.Qty, cs.Qty)
		f.RevenueDeltaPct = pctChange(bs.Revenue, cs.Revenue)

		if diagnosis.DeclineReasons[reason] {
			avgPrice := in.CurrentPrice
			if avgPrice == 0 {
				avgPrice = in.BaselinePrice // 當期零銷量（如缺貨）退回基期均價估損失
			}
			f.RevenueLoss = -f.QtyDelta * avgPrice
			if f.MarginRate != nil {
				f.ProfitLoss = f.RevenueLoss * *f.MarginRate
			}
			f.Severity = diagnosis.SeverityWarning
			if f.RevenueLoss >= params.CriticalRevenueLoss {
				f.Severity = diagnosis.SeverityCritical
			}
		}
		findings = append(findings, f)
	}

	// Δ銷量由小到大，跌最兇的排最前
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].QtyDelta != findings[j].QtyDelta {
			return findings[i].QtyDelta < findings[j].QtyDelta
		}
		return findings[i].Subject < findings[j].Subject
	})

	suffix := fmt.Sprintf(" %s vs %s", cmp.Current.Label, cmp.Baseline.Label)
	result := SalesDeclineResult{
		Summary:   diagnosis.NewTable("sales_decline.summary"+suffix, []diagnosis.Finding{summaryRow(cmp, totalCurQty, totalBaseQty, totalCurRev, totalBaseRev, totalCurMargin)}),
		Decliners: diagnosis.NewTable("sales_decline.top_decliners"+suffix, topDecliners(findings, params.TopK)),
		Risers:    diagnosis.NewTable("sales_decline.top_risers"+suffix, topRisers(findings, params.TopK)),
	}
	return result
}

func summaryRow(cmp diagnosis.Comparison, curQty, baseQty, curRev, baseRev, curMargin float64) diagnosis.Finding {
	f := diagnosis.Finding{
		Subject:         fmt.Sprintf("%s vs %s", cmp.Current.Label, cmp.Baseline.Label),
		Severity:        diagnosis.SeverityInfo,
		CurrentQty:      curQty,
		BaselineQty:     baseQty,
		QtyDelta:        curQty - baseQty,
		QtyDeltaPct:     pctChange(baseQty, curQty),
		CurrentRevenue:  curRev,
		BaselineRevenue: baseRev,
		RevenueDelta:    curRev - baseRev,
		RevenueDeltaPct: pctChange(baseRev, curRev),
	}
	if curRev != 0 {
		m := curMargin / curRev
		f.MarginRate = &m
	}
	if f.RevenueDelta < 0 {
		f.Severity = diagnosis.SeverityWarning
	}
	return f
}

func topDecliners(findings []diagnosis.Finding, k int) []diagnosis.Finding {
	out := make([]diagnosis.Finding, 0, k)
	for _, f := range findings {
		if !diagnosis.DeclineReasons[f.Reason] || f.QtyDelta >= 0 {
			continue
		}
		out = append(out, f)
		if len(out) == k {
			break
		}
	}
	return out
}

func topRisers(findings []diagnosis.Finding, k int) []diagnosis.Finding {
	risers := make([]diagnosis.Finding, 0)
	for _, f := range findings {
		if !diagnosis.RiseReasons[f.Reason] || f.QtyDelta <= 0 {
			continue
		}
		risers = append(risers, f)
	}
	sort.SliceStable(risers, func(i, j int) bool {
		if risers[i].QtyDelta != risers[j].QtyDelta {
			return risers[i].QtyDelta > risers[j].QtyDelta
		}
		return risers[i].Subject < risers[j].Subject
	})
	if len(risers) > k {
		risers = risers[:k]
	}
	return risers
}

// pctChange 回傳百分比變化；基期為零時回傳 nil（N/A），絕不除以零。
func pctChange(baseline, current float64) *float64 {
	if baseline == 0 {
		return nil
	}
	v := (current - baseline) / baseline * 100
	return &v
}
