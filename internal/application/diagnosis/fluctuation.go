package diagnosis

import (
	"math"
	"sort"

	"retail-insight/internal/domain/diagnosis"
)

// FluctuationParams 控制異常波動判定，零值時套用預設。
type FluctuationParams struct {
	ThresholdPct float64 // 銷量增減幅超過此百分比視為異常，預設 50
}

func (p FluctuationParams) withDefaults() FluctuationParams {
	if p.ThresholdPct == 0 {
		p.ThresholdPct = 50
	}
	return p
}

// AbnormalFluctuation 比較最近兩期的商品銷量，漲幅超標的標 spike、跌幅超標的標 slump。
// 基期缺席的商品 %Δ 無定義，直接排除——這裡不做新品判讀，新品歸銷量下滑分析管。
// 期數不足兩期時回傳標記 insufficient_data 的空表。
func AbnormalFluctuation(idx *ProductIndex, periods []diagnosis.Period, params FluctuationParams) diagnosis.Table {
	params = params.withDefaults()
	const name = "abnormal_fluctuation.by_product"

	if len(periods) < 2 {
		return diagnosis.EmptyTable(name)
	}

	cur := idx.Group(0)
	base := idx.Group(1)

	var findings []diagnosis.Finding
	for _, product := range idx.Products(0, 1) {
		bs, inBase := base[product]
		cs, inCur := cur[product]
		if !inBase || bs.Qty == 0 {
			continue
		}
		if !inCur {
			cs = &ProductStat{Product: product}
		}

		pct := (cs.Qty - bs.Qty) / bs.Qty * 100
		if math.Abs(pct) <= params.ThresholdPct {
			continue
		}

		reason := diagnosis.ReasonSpike
		if pct < 0 {
			reason = diagnosis.ReasonSlump
		}
		severity := diagnosis.SeverityWarning
		if math.Abs(pct) > 2*params.ThresholdPct {
			severity = diagnosis.SeverityCritical
		}

		p := pct
		findings = append(findings, diagnosis.Finding{
			Subject:         product,
			Reason:          reason,
			Severity:        severity,
			CurrentQty:      cs.Qty,
			BaselineQty:     bs.Qty,
			QtyDelta:        cs.Qty - bs.Qty,
			QtyDeltaPct:     &p,
			CurrentRevenue:  cs.Revenue,
			BaselineRevenue: bs.Revenue,
			RevenueDelta:    cs.Revenue - bs.Revenue,
			RevenueDeltaPct: pctChange(bs.Revenue, cs.Revenue),
		})
	}

	// 波動幅度大的排最前
	sort.SliceStable(findings, func(i, j int) bool {
		ai, aj := math.Abs(*findings[i].QtyDeltaPct), math.Abs(*findings[j].QtyDeltaPct)
		if ai != aj {
			return ai > aj
		}
		return findings[i].Subject < findings[j].Subject
	})
	return diagnosis.NewTable(name, findings)
}
