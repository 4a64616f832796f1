package dataset

import (
	"log"
	"sort"

	"retail-insight/internal/domain/orders"
)

// Exclusions 定義聚合前要剔除的品類／通路／商品（如耗材類 SKU）。
// 剔除必須發生在聚合之前：聚合後再剔會讓多列訂單的總額悄悄失真。
type Exclusions struct {
	Categories []string `json:"categories,omitempty"`
	Channels   []string `json:"channels,omitempty"`
	Products   []string `json:"products,omitempty"`
}

func (e Exclusions) match(line orders.OrderLine) bool {
	for _, c := range e.Categories {
		if line.CategoryL1 == c || line.CategoryL3 == c {
			return true
		}
	}
	for _, ch := range e.Channels {
		if line.Channel == ch {
			return true
		}
	}
	for _, p := range e.Products {
		if line.ProductName == p {
			return true
		}
	}
	return false
}

// Aggregate 將訂單明細收斂為一張訂單一列：累加欄位加總、訂單層級欄位取首值。
// 同一訂單的訂單層級欄位若出現不一致，取第一筆並記資料品質警告，不中斷整批。
// 輸出依（日期、訂單號）排序，確保同輸入必得同輸出。
func Aggregate(lines []orders.OrderLine, excl Exclusions) []orders.Order {
	byID := make(map[string]*orders.Order)
	seq := make([]string, 0)

	for _, line := range lines {
		if excl.match(line) {
			continue
		}

		o, ok := byID[line.OrderID]
		if !ok {
			o = &orders.Order{
				OrderID:              line.OrderID,
				Date:                 line.Date,
				Scene:                line.Scene,
				TimeSlot:             line.TimeSlot,
				Channel:              line.Channel,
				Address:              line.Address,
				DeliveryFee:          line.DeliveryFee,
				PlatformCommission:   line.PlatformCommission,
				PackagingFee:         line.PackagingFee,
				CustomerPaidDelivery: line.CustomerPaidDelivery,
				Subsidy:              line.Subsidy,
			}
			byID[line.OrderID] = o
			seq = append(seq, line.OrderID)
		} else {
			warnConflicts(o, line)
		}

		o.Revenue += line.Revenue()
		o.Cost += line.Cost()
		o.Quantity += line.Quantity
		o.LineProfit += line.Profit()
		o.LineCount++
	}

	out := make([]orders.Order, 0, len(seq))
	for _, id := range seq {
		o := byID[id]
		o.Derive()
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].OrderID < out[j].OrderID
	})
	return out
}

// warnConflicts 比對同訂單後續列的訂單層級欄位，不一致時記警告，值維持首筆。
func warnConflicts(o *orders.Order, line orders.OrderLine) {
	if line.DeliveryFee != o.DeliveryFee {
		log.Printf("[Dataset] data quality: order %s has conflicting delivery_fee (%.2f vs %.2f), keeping first", o.OrderID, o.DeliveryFee, line.DeliveryFee)
	}
	if line.PlatformCommission != o.PlatformCommission {
		log.Printf("[Dataset] data quality: order %s has conflicting platform_commission (%.2f vs %.2f), keeping first", o.OrderID, o.PlatformCommission, line.PlatformCommission)
	}
	if line.Subsidy != o.Subsidy {
		log.Printf("[Dataset] data quality: order %s has conflicting subsidy (%.2f vs %.2f), keeping first", o.OrderID, o.Subsidy, line.Subsidy)
	}
	if !line.Date.Equal(o.Date) {
		log.Printf("[Dataset] data quality: order %s has conflicting date (%s vs %s), keeping first", o.OrderID, o.Date.Format("2006-01-02"), line.Date.Format("2006-01-02"))
	}
}
