package orders

import (
	"fmt"
	"time"
)

// OrderLine 為「訂單 × 商品」的一筆明細列，由外部正規化層輸出的標準欄位組成。
// 訂單層級欄位（配送費、平台抽傭、補貼等）會在同一張訂單的每一列重複出現，
// 聚合時只能取第一筆，不可加總。
type OrderLine struct {
	OrderID     string
	ProductName string
	CategoryL1  string
	CategoryL3  string
	Date        time.Time
	Scene       string
	TimeSlot    string
	Channel     string

	UnitPrice float64
	UnitCost  float64
	Quantity  float64

	MonthlySales int
	Stock        int

	// 訂單層級欄位（整張訂單共用）
	DeliveryFee          float64
	PlatformCommission   float64
	PackagingFee         float64
	CustomerPaidDelivery float64
	Subsidy              float64
	Address              string
}

// Validate 基礎必填檢查。
func (l OrderLine) Validate() error {
	if l.OrderID == "" {
		return fmt.Errorf("order id is required")
	}
	if l.ProductName == "" {
		return fmt.Errorf("product name is required")
	}
	if l.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	return nil
}

// Revenue 回傳該明細列的營收貢獻。
func (l OrderLine) Revenue() float64 {
	return l.UnitPrice * l.Quantity
}

// Cost 回傳該明細列的成本貢獻。
func (l OrderLine) Cost() float64 {
	return l.UnitCost * l.Quantity
}

// Profit 回傳該明細列的毛利貢獻。
func (l OrderLine) Profit() float64 {
	return (l.UnitPrice - l.UnitCost) * l.Quantity
}

// Order 為以 order_id 收斂後的訂單列：累加欄位為各明細列加總，
// 訂單層級欄位取第一筆值。
type Order struct {
	OrderID  string
	Date     time.Time
	Scene    string
	TimeSlot string
	Channel  string
	Address  string

	Revenue    float64
	Cost       float64
	Quantity   float64
	LineProfit float64
	LineCount  int

	DeliveryFee          float64
	PlatformCommission   float64
	PackagingFee         float64
	CustomerPaidDelivery float64
	Subsidy              float64

	// 衍生欄位，聚合完成後計算
	GrossMargin  float64
	OrderRevenue float64
	NetProfit    float64
}

// Derive 依聚合結果計算衍生欄位。
func (o *Order) Derive() {
	o.GrossMargin = o.Revenue - o.Cost - o.Subsidy
	o.OrderRevenue = o.Revenue + o.PackagingFee + o.CustomerPaidDelivery
	o.NetProfit = o.GrossMargin - o.DeliveryFee - o.PlatformCommission
}

// ProductRole 表示商品在門店經營中的角色定位，由外部營運標註。
type ProductRole string

const (
	RoleTraffic ProductRole = "traffic" // 引流品
	RoleProfit  ProductRole = "profit"  // 利潤品
)
