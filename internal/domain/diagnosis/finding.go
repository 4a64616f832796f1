package diagnosis

// Severity 表示診斷結果的嚴重程度分級。
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// ReasonCode 為規則分類引擎產出的歸因標籤。
type ReasonCode string

// 銷量下滑側歸因（依優先序排列，先命中先贏）。
const (
	ReasonStockedOut        ReasonCode = "stocked-out"
	ReasonPriceUpDecline    ReasonCode = "price-increase-causing-decline"
	ReasonPriceCutDeclining ReasonCode = "price-cut-still-declining"
	ReasonPlainDecline      ReasonCode = "plain-decline"
	ReasonNewProduct        ReasonCode = "new-product"
)

// 銷量上升側歸因。
const (
	ReasonPriceUpVolumeUp  ReasonCode = "price-increase-volume-up"
	ReasonPromotionSuccess ReasonCode = "price-cut-promotion-success"
	ReasonOrganicGrowth    ReasonCode = "organic-growth"
)

// 閾值型分析器歸因。
const (
	ReasonNegativeMargin  ReasonCode = "negative-margin"
	ReasonDeliveryFeeHigh ReasonCode = "delivery-fee-outlier"
	ReasonTrafficHeavy    ReasonCode = "traffic-heavy"
	ReasonProfitHeavy     ReasonCode = "profit-heavy"
	ReasonSpike           ReasonCode = "spike"
	ReasonSlump           ReasonCode = "slump"
)

// DeclineReasons 判定為「問題」的下滑側歸因，top-K 下滑榜只收這些。
var DeclineReasons = map[ReasonCode]bool{
	ReasonStockedOut:        true,
	ReasonPriceUpDecline:    true,
	ReasonPriceCutDeclining: true,
	ReasonPlainDecline:      true,
}

// RiseReasons 判定為「正向」的上升側歸因，top-K 上升榜只收這些。
var RiseReasons = map[ReasonCode]bool{
	ReasonPriceUpVolumeUp:  true,
	ReasonPromotionSuccess: true,
	ReasonOrganicGrowth:    true,
}

// Finding 為單筆診斷輸出列：主體、指標增減、歸因與輔助彙總。
// 百分比變化以指標基期為分母；分母為零時為 nil（N/A），不丟例外。
type Finding struct {
	Subject  string     `json:"subject"`
	Reason   ReasonCode `json:"reason_code,omitempty"`
	Severity Severity   `json:"severity"`

	CurrentQty  float64  `json:"current_qty"`
	BaselineQty float64  `json:"baseline_qty"`
	QtyDelta    float64  `json:"qty_delta"`
	QtyDeltaPct *float64 `json:"qty_delta_pct"`

	CurrentRevenue  float64  `json:"current_revenue"`
	BaselineRevenue float64  `json:"baseline_revenue"`
	RevenueDelta    float64  `json:"revenue_delta"`
	RevenueDeltaPct *float64 `json:"revenue_delta_pct"`

	CurrentAvgPrice  *float64 `json:"current_avg_price,omitempty"`
	BaselineAvgPrice *float64 `json:"baseline_avg_price,omitempty"`
	MarginRate       *float64 `json:"margin_rate,omitempty"`

	RevenueLoss float64 `json:"revenue_loss,omitempty"`
	ProfitLoss  float64 `json:"profit_loss,omitempty"`

	OrderCount int      `json:"order_count,omitempty"`
	TotalLoss  float64  `json:"total_loss,omitempty"`
	Ratio      *float64 `json:"ratio,omitempty"`
}

// 表格狀態標籤。
const (
	TableStatusOK               = "ok"
	TableStatusInsufficientData = "insufficient_data"
)

// Table 為具名的 Finding 子檢視，匯出與前端不需再自行依歸因過濾。
type Table struct {
	Name   string    `json:"name"`
	Status string    `json:"status"`
	Rows   []Finding `json:"rows"`
}

// NewTable 建立狀態為 ok 的具名表格。
func NewTable(name string, rows []Finding) Table {
	return Table{Name: name, Status: TableStatusOK, Rows: rows}
}

// EmptyTable 建立標記為資料不足的空表格，供軟性失敗時回傳。
func EmptyTable(name string) Table {
	return Table{Name: name, Status: TableStatusInsufficientData, Rows: []Finding{}}
}

// AOVDecomposition 為客單價變化的量價拆解結果。
// 約定：主效應以基期錨定、量價交互另列一項，三項之和恆等於 Delta。
type AOVDecomposition struct {
	CurrentAOV  float64 `json:"current_aov"`
	BaselineAOV float64 `json:"baseline_aov"`
	Delta       float64 `json:"delta"`

	QuantityEffect    float64 `json:"quantity_effect"`
	PriceEffect       float64 `json:"price_effect"`
	InteractionEffect float64 `json:"interaction_effect"`

	CurrentItemsPerOrder  float64 `json:"current_items_per_order"`
	BaselineItemsPerOrder float64 `json:"baseline_items_per_order"`
	CurrentAvgItemPrice   float64 `json:"current_avg_item_price"`
	BaselineAvgItemPrice  float64 `json:"baseline_avg_item_price"`
}
