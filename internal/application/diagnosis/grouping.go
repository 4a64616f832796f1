package diagnosis

import (
	"sort"

	"retail-insight/internal/domain/diagnosis"
	"retail-insight/internal/domain/orders"
)

// ProductStat 為商品在單一期別內的彙總。
type ProductStat struct {
	Product string
	Qty     float64
	Revenue float64
	Cost    float64
	Stock   int // 期內最後一筆已知庫存
}

// AvgPrice 回傳期內平均售價；無銷量時為 nil（N/A）。
func (s ProductStat) AvgPrice() *float64 {
	if s.Qty == 0 {
		return nil
	}
	v := s.Revenue / s.Qty
	return &v
}

// MarginRate 回傳期內毛利率；營收為零時為 nil（N/A）。
func (s ProductStat) MarginRate() *float64 {
	if s.Revenue == 0 {
		return nil
	}
	v := (s.Revenue - s.Cost) / s.Revenue
	return &v
}

// ProductIndex 為商品 × 期別的彙總索引。資料集可達數萬列，
// 一次建好供同批次的所有分析器共用，不得每個分析器各算一遍。
type ProductIndex struct {
	groups []map[string]*ProductStat // 與期別 index 對齊
}

// BuildProductIndex 依期別清單將明細列彙總為商品 × 期別索引。
func BuildProductIndex(lines []orders.OrderLine, periods []diagnosis.Period) *ProductIndex {
	idx := &ProductIndex{groups: make([]map[string]*ProductStat, len(periods))}
	for i := range idx.groups {
		idx.groups[i] = make(map[string]*ProductStat)
	}

	// 同一天的列很多，先把日期對期別的對應算一次
	dateToPeriod := make(map[string]int)
	periodOf := func(d orders.OrderLine) int {
		key := d.Date.Format("2006-01-02")
		if i, ok := dateToPeriod[key]; ok {
			return i
		}
		for i, p := range periods {
			if p.Contains(d.Date) {
				dateToPeriod[key] = i
				return i
			}
		}
		dateToPeriod[key] = -1
		return -1
	}

	for _, line := range lines {
		i := periodOf(line)
		if i < 0 {
			continue
		}
		s, ok := idx.groups[i][line.ProductName]
		if !ok {
			s = &ProductStat{Product: line.ProductName}
			idx.groups[i][line.ProductName] = s
		}
		s.Qty += line.Quantity
		s.Revenue += line.Revenue()
		s.Cost += line.Cost()
		s.Stock = line.Stock
	}
	return idx
}

// Group 回傳指定期別的商品彙總；索引越界時回傳空表。
func (idx *ProductIndex) Group(periodIndex int) map[string]*ProductStat {
	if periodIndex < 0 || periodIndex >= len(idx.groups) {
		return map[string]*ProductStat{}
	}
	return idx.groups[periodIndex]
}

// Products 回傳兩期商品名稱的聯集，字典序排序以保證同輸入同輸出。
func (idx *ProductIndex) Products(periodIndexes ...int) []string {
	seen := make(map[string]bool)
	for _, pi := range periodIndexes {
		for name := range idx.Group(pi) {
			seen[name] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
