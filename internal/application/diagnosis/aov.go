package diagnosis

import (
	"retail-insight/internal/domain/diagnosis"
	"retail-insight/internal/domain/orders"
)

// AOVAttribution 將客單價變化拆解為件數效應、價格效應與交互效應。
//
// 口徑（全系統一致，不得混用）：
//
//	quantity_effect    = (q1 − q0) × p0
//	price_effect       = (p1 − p0) × q0
//	interaction_effect = (q1 − q0) × (p1 − p0)
//
// 主效應皆以基期錨定、量價交互另列一項，三項之和恆等於 ΔAOV（代數恆等，
// 測試直接驗證）。若改以當期件數 q1 計價格效應，交互項會被吸進價格效應，
// 加總恆等式即不成立，故不採用。
//
// 任一期沒有訂單時無法定義客單價，回傳 ok=false，由呼叫端以
// insufficient_data 處理，不視為錯誤。
func AOVAttribution(orderTable []orders.Order, cmp diagnosis.Comparison) (diagnosis.AOVDecomposition, bool) {
	var out diagnosis.AOVDecomposition

	q0, p0, ok0 := basketProfile(orderTable, cmp.Baseline)
	q1, p1, ok1 := basketProfile(orderTable, cmp.Current)
	if !ok0 || !ok1 {
		return out, false
	}

	out.BaselineItemsPerOrder = q0
	out.BaselineAvgItemPrice = p0
	out.CurrentItemsPerOrder = q1
	out.CurrentAvgItemPrice = p1

	out.BaselineAOV = q0 * p0
	out.CurrentAOV = q1 * p1
	out.Delta = out.CurrentAOV - out.BaselineAOV

	out.QuantityEffect = (q1 - q0) * p0
	out.PriceEffect = (p1 - p0) * q0
	out.InteractionEffect = (q1 - q0) * (p1 - p0)

	return out, true
}

// basketProfile 回傳該期的平均每單件數 q 與平均件單價 p（AOV = q × p）。
// 該期無訂單或總件數為零時 ok=false。
func basketProfile(orderTable []orders.Order, p diagnosis.Period) (q, price float64, ok bool) {
	var orderCount int
	var totalQty, totalRevenue float64

	for _, o := range orderTable {
		if !p.Contains(o.Date) {
			continue
		}
		orderCount++
		totalQty += o.Quantity
		totalRevenue += o.Revenue
	}
	if orderCount == 0 || totalQty == 0 {
		return 0, 0, false
	}
	return totalQty / float64(orderCount), totalRevenue / totalQty, true
}
