package diagnosis

import (
	"sort"

	"retail-insight/internal/domain/diagnosis"
	"retail-insight/internal/domain/orders"
)

// ThresholdParams 統整三個閾值型分析器的參數，零值時套用預設。
type ThresholdParams struct {
	NegativeMarginCriticalLoss float64 // 商品累計虧損達此值列 critical，預設 100
	DeliveryFeeThreshold       float64 // 配送費占比告警線，預設 0.20（正常 < 0.15）
	TrafficShareMin            float64 // 引流品占比可接受區間下限，預設 0.20
	TrafficShareMax            float64 // 引流品占比可接受區間上限，預設 0.60
}

func (p ThresholdParams) withDefaults() ThresholdParams {
	if p.NegativeMarginCriticalLoss == 0 {
		p.NegativeMarginCriticalLoss = 100
	}
	if p.DeliveryFeeThreshold == 0 {
		p.DeliveryFeeThreshold = 0.20
	}
	if p.TrafficShareMin == 0 {
		p.TrafficShareMin = 0.20
	}
	if p.TrafficShareMax == 0 {
		p.TrafficShareMax = 0.60
	}
	return p
}

// NegativeMargin 找出最近一期淨利為負的訂單，按商品歸因虧損。
// 一張負利訂單的虧損依各明細列的營收占比分攤到商品上；
// 沒有負利訂單時回傳空表，不是錯誤。
func NegativeMargin(orderTable []orders.Order, lines []orders.OrderLine, period diagnosis.Period, params ThresholdParams) diagnosis.Table {
	params = params.withDefaults()
	const name = "negative_margin.by_product"

	negByID := make(map[string]orders.Order)
	for _, o := range orderTable {
		if !period.Contains(o.Date) {
			continue
		}
		if o.NetProfit < 0 {
			negByID[o.OrderID] = o
		}
	}
	if len(negByID) == 0 {
		return diagnosis.NewTable(name, []diagnosis.Finding{})
	}

	type agg struct {
		count map[string]bool
		loss  float64
	}
	byProduct := make(map[string]*agg)

	for _, line := range lines {
		o, ok := negByID[line.OrderID]
		if !ok {
			continue
		}
		a, ok := byProduct[line.ProductName]
		if !ok {
			a = &agg{count: make(map[string]bool)}
			byProduct[line.ProductName] = a
		}
		a.count[line.OrderID] = true
		if o.Revenue > 0 {
			a.loss += o.NetProfit * (line.Revenue() / o.Revenue)
		} else if o.LineCount > 0 {
			a.loss += o.NetProfit / float64(o.LineCount)
		}
	}

	products := make([]string, 0, len(byProduct))
	for p := range byProduct {
		products = append(products, p)
	}
	sort.Strings(products)

	findings := make([]diagnosis.Finding, 0, len(products))
	for _, p := range products {
		a := byProduct[p]
		severity := diagnosis.SeverityWarning
		if -a.loss > params.NegativeMarginCriticalLoss {
			severity = diagnosis.SeverityCritical
		}
		findings = append(findings, diagnosis.Finding{
			Subject:    p,
			Reason:     diagnosis.ReasonNegativeMargin,
			Severity:   severity,
			OrderCount: len(a.count),
			TotalLoss:  a.loss,
		})
	}
	// 虧最多的排最前
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].TotalLoss != findings[j].TotalLoss {
			return findings[i].TotalLoss < findings[j].TotalLoss
		}
		return findings[i].Subject < findings[j].Subject
	})
	return diagnosis.NewTable(name, findings)
}

// DeliveryFeeOutlierResult 為逐單告警與按地址歸併兩個子檢視。
type DeliveryFeeOutlierResult struct {
	Orders    diagnosis.Table
	Addresses diagnosis.Table
}

// Tables 依固定順序回傳兩個子檢視。
func (r DeliveryFeeOutlierResult) Tables() []diagnosis.Table {
	return []diagnosis.Table{r.Orders, r.Addresses}
}

// DeliveryFeeOutlier 找出配送費占訂單實收比例超標的訂單，並按地址歸併排名。
// 訂單實收為零時占比無法定義（N/A），直接略過，不丟例外。
func DeliveryFeeOutlier(orderTable []orders.Order, period diagnosis.Period, params ThresholdParams) DeliveryFeeOutlierResult {
	params = params.withDefaults()

	var orderFindings []diagnosis.Finding
	type addrAgg struct {
		count    int
		ratioSum float64
		fee      float64
	}
	byAddr := make(map[string]*addrAgg)

	for _, o := range orderTable {
		if !period.Contains(o.Date) {
			continue
		}
		if o.OrderRevenue <= 0 {
			continue
		}
		ratio := o.DeliveryFee / o.OrderRevenue
		if ratio <= params.DeliveryFeeThreshold {
			continue
		}

		r := ratio
		severity := diagnosis.SeverityWarning
		if ratio > 2*params.DeliveryFeeThreshold {
			severity = diagnosis.SeverityCritical
		}
		orderFindings = append(orderFindings, diagnosis.Finding{
			Subject:        o.OrderID,
			Reason:         diagnosis.ReasonDeliveryFeeHigh,
			Severity:       severity,
			Ratio:          &r,
			CurrentRevenue: o.OrderRevenue,
			TotalLoss:      o.DeliveryFee,
		})

		addr := o.Address
		if addr == "" {
			addr = "(unknown)"
		}
		a, ok := byAddr[addr]
		if !ok {
			a = &addrAgg{}
			byAddr[addr] = a
		}
		a.count++
		a.ratioSum += ratio
		a.fee += o.DeliveryFee
	}

	sort.SliceStable(orderFindings, func(i, j int) bool {
		if *orderFindings[i].Ratio != *orderFindings[j].Ratio {
			return *orderFindings[i].Ratio > *orderFindings[j].Ratio
		}
		return orderFindings[i].Subject < orderFindings[j].Subject
	})

	addrs := make([]string, 0, len(byAddr))
	for a := range byAddr {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)

	addrFindings := make([]diagnosis.Finding, 0, len(addrs))
	for _, addr := range addrs {
		a := byAddr[addr]
		avg := a.ratioSum / float64(a.count)
		addrFindings = append(addrFindings, diagnosis.Finding{
			Subject:    addr,
			Reason:     diagnosis.ReasonDeliveryFeeHigh,
			Severity:   diagnosis.SeverityWarning,
			OrderCount: a.count,
			Ratio:      &avg,
			TotalLoss:  a.fee,
		})
	}
	sort.SliceStable(addrFindings, func(i, j int) bool {
		if addrFindings[i].OrderCount != addrFindings[j].OrderCount {
			return addrFindings[i].OrderCount > addrFindings[j].OrderCount
		}
		return addrFindings[i].Subject < addrFindings[j].Subject
	})

	return DeliveryFeeOutlierResult{
		Orders:    diagnosis.NewTable("delivery_fee.outlier_orders", orderFindings),
		Addresses: diagnosis.NewTable("delivery_fee.by_address", addrFindings),
	}
}

// RoleImbalance 按場景計算引流品與利潤品的銷量結構比，落在可接受區間外的場景
// 標 traffic-heavy（引流品過重）或 profit-heavy（利潤品過重）。
// 角色標註由外部營運提供；沒有任何已標註商品的場景不納入判斷。
func RoleImbalance(lines []orders.OrderLine, period diagnosis.Period, roles map[string]orders.ProductRole, params ThresholdParams) diagnosis.Table {
	params = params.withDefaults()
	const name = "role_imbalance.by_scene"

	if len(roles) == 0 {
		return diagnosis.NewTable(name, []diagnosis.Finding{})
	}

	type sceneAgg struct {
		trafficQty float64
		profitQty  float64
	}
	byScene := make(map[string]*sceneAgg)

	for _, line := range lines {
		if !period.Contains(line.Date) {
			continue
		}
		role, ok := roles[line.ProductName]
		if !ok {
			continue
		}
		s, ok := byScene[line.Scene]
		if !ok {
			s = &sceneAgg{}
			byScene[line.Scene] = s
		}
		switch role {
		case orders.RoleTraffic:
			s.trafficQty += line.Quantity
		case orders.RoleProfit:
			s.profitQty += line.Quantity
		}
	}

	scenes := make([]string, 0, len(byScene))
	for s := range byScene {
		scenes = append(scenes, s)
	}
	sort.Strings(scenes)

	var findings []diagnosis.Finding
	for _, scene := range scenes {
		s := byScene[scene]
		total := s.trafficQty + s.profitQty
		if total == 0 {
			continue
		}
		share := s.trafficQty / total
		if share >= params.TrafficShareMin && share <= params.TrafficShareMax {
			continue
		}

		reason := diagnosis.ReasonProfitHeavy
		if share > params.TrafficShareMax {
			reason = diagnosis.ReasonTrafficHeavy
		}
		r := share
		findings = append(findings, diagnosis.Finding{
			Subject:  scene,
			Reason:   reason,
			Severity: diagnosis.SeverityWarning,
			Ratio:    &r,
			// 結構比的分子分母借用量值欄位：CurrentQty 放引流品銷量、BaselineQty 放利潤品銷量
			CurrentQty:  s.trafficQty,
			BaselineQty: s.profitQty,
		})
	}
	return diagnosis.NewTable(name, findings)
}
