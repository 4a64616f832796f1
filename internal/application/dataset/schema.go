package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"retail-insight/internal/domain/orders"
)

// 標準欄位名。分析器只認這一套名稱；來源欄位的別名在 ingestion 時一次解析完畢。
const (
	ColProductName        = "product_name"
	ColUnitPrice          = "unit_price"
	ColUnitCost           = "unit_cost"
	ColDate               = "date"
	ColOrderID            = "order_id"
	ColCategoryL1         = "category_l1"
	ColCategoryL3         = "category_l3"
	ColMonthlySales       = "monthly_sales"
	ColStock              = "stock"
	ColDeliveryFee        = "delivery_fee"
	ColPlatformCommission = "platform_commission"
	ColScene              = "scene"
	ColTimeSlot           = "time_slot"
	ColChannel            = "channel"

	// 選填欄位，缺漏時取預設值
	ColQuantity             = "quantity"
	ColPackagingFee         = "packaging_fee"
	ColCustomerPaidDelivery = "customer_paid_delivery"
	ColSubsidy              = "subsidy"
	ColAddress              = "address"
)

// RequiredColumns 為缺一不可的 14 個標準欄位，缺欄直接整批失敗。
var RequiredColumns = []string{
	ColProductName, ColUnitPrice, ColUnitCost, ColDate, ColOrderID,
	ColCategoryL1, ColCategoryL3, ColMonthlySales, ColStock,
	ColDeliveryFee, ColPlatformCommission, ColScene, ColTimeSlot, ColChannel,
}

// AliasVersion 標示欄位別名表版本，供資料來源升版時追蹤。
const AliasVersion = "v1"

// columnAliases 為 v1 別名表：來源欄位名 -> 標準欄位名。
// 一次在 ingestion 解析完，分析器永遠不需要猜欄位拼法。
var columnAliases = map[string]string{
	"product":    ColProductName,
	"商品名称":       ColProductName,
	"order_date": ColDate,
	"日期":         ColDate,
	"price":      ColUnitPrice,
	"售价":         ColUnitPrice,
	"cost":       ColUnitCost,
	"成本":         ColUnitCost,
	"orderid":    ColOrderID,
	"订单号":        ColOrderID,
	"qty":        ColQuantity,
	"数量":         ColQuantity,
	"配送费":        ColDeliveryFee,
	"平台扣点":       ColPlatformCommission,
}

// SchemaError 表示輸入不符標準欄位契約，屬致命錯誤：整個請求立即中止，不產生部分結果。
type SchemaError struct {
	Missing []string
	Column  string
	Reason  string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("schema error: missing required columns: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("schema error: column %q: %s", e.Column, e.Reason)
}

// Record 為正規化層輸出的一列原始紀錄（標準欄位名或 v1 別名 -> 字串值）。
type Record map[string]string

// canonicalize 依別名表把一列紀錄的欄位名換成標準名。標準名本身優先於別名。
func canonicalize(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		key := strings.ToLower(strings.TrimSpace(k))
		if canon, ok := columnAliases[key]; ok {
			if _, exists := out[canon]; !exists {
				out[canon] = v
			}
			continue
		}
		out[key] = v
	}
	return out
}

// checkColumns 驗證必填欄位齊全，缺欄回傳 SchemaError。
func checkColumns(rec Record) error {
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := rec[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &SchemaError{Missing: missing}
	}
	return nil
}

// ParseRecords 將正規化紀錄轉為 OrderLine 並回傳資料集指紋。
// 欄位缺漏或型別無法解析屬 SchemaError；資料品質問題（負數量）記警告後繼續。
func ParseRecords(records []Record) ([]orders.OrderLine, string, error) {
	if len(records) == 0 {
		return nil, "", &SchemaError{Column: "*", Reason: "empty dataset"}
	}

	lines := make([]orders.OrderLine, 0, len(records))
	for _, raw := range records {
		rec := canonicalize(raw)
		// 每列都驗欄位：後段列缺欄若只靠預設值補零，會悄悄汙染彙總
		if err := checkColumns(rec); err != nil {
			return nil, "", err
		}

		line, err := parseLine(rec)
		if err != nil {
			return nil, "", err
		}
		if line.Quantity < 0 {
			log.Printf("[Dataset] data quality: order %s product %s has negative quantity %.2f", line.OrderID, line.ProductName, line.Quantity)
		}
		lines = append(lines, line)
	}

	return lines, FingerprintLines(lines), nil
}

// FingerprintLines 對已解析的明細列計算資料集指紋，供快取鍵使用。
// 同一批列在同一順序下必得同指紋。
func FingerprintLines(lines []orders.OrderLine) string {
	h := sha256.New()
	for _, line := range lines {
		fmt.Fprintf(h, "%s|%s|%s|%.4f|%.4f|%.4f\n",
			line.OrderID, line.ProductName, line.Date.Format("2006-01-02"),
			line.UnitPrice, line.UnitCost, line.Quantity)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func parseLine(rec Record) (orders.OrderLine, error) {
	var line orders.OrderLine
	var err error

	line.OrderID = strings.TrimSpace(rec[ColOrderID])
	line.ProductName = strings.TrimSpace(rec[ColProductName])
	line.CategoryL1 = strings.TrimSpace(rec[ColCategoryL1])
	line.CategoryL3 = strings.TrimSpace(rec[ColCategoryL3])
	line.Scene = strings.TrimSpace(rec[ColScene])
	line.TimeSlot = strings.TrimSpace(rec[ColTimeSlot])
	line.Channel = strings.TrimSpace(rec[ColChannel])
	line.Address = strings.TrimSpace(rec[ColAddress])

	if line.Date, err = parseDate(rec[ColDate]); err != nil {
		return line, &SchemaError{Column: ColDate, Reason: err.Error()}
	}
	if line.UnitPrice, err = parseFloat(rec, ColUnitPrice, 0); err != nil {
		return line, err
	}
	if line.UnitCost, err = parseFloat(rec, ColUnitCost, 0); err != nil {
		return line, err
	}
	if line.Quantity, err = parseFloat(rec, ColQuantity, 1); err != nil {
		return line, err
	}
	if line.MonthlySales, err = parseInt(rec, ColMonthlySales); err != nil {
		return line, err
	}
	if line.Stock, err = parseInt(rec, ColStock); err != nil {
		return line, err
	}
	if line.DeliveryFee, err = parseFloat(rec, ColDeliveryFee, 0); err != nil {
		return line, err
	}
	if line.PlatformCommission, err = parseFloat(rec, ColPlatformCommission, 0); err != nil {
		return line, err
	}
	if line.PackagingFee, err = parseFloat(rec, ColPackagingFee, 0); err != nil {
		return line, err
	}
	if line.CustomerPaidDelivery, err = parseFloat(rec, ColCustomerPaidDelivery, 0); err != nil {
		return line, err
	}
	if line.Subsidy, err = parseFloat(rec, ColSubsidy, 0); err != nil {
		return line, err
	}

	if err := line.Validate(); err != nil {
		return line, &SchemaError{Column: ColOrderID, Reason: err.Error()}
	}
	return line, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006/01/02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			// 取來源時區的日曆日，不可用 Truncate：帶時區偏移的時間戳
			// 經絕對時間截斷會落到前一天，同一天的列被拆進不同期別
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", s)
}

func parseFloat(rec Record, col string, def float64) (float64, error) {
	s, ok := rec[col]
	if !ok || strings.TrimSpace(s) == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &SchemaError{Column: col, Reason: fmt.Sprintf("not a number: %q", s)}
	}
	return v, nil
}

func parseInt(rec Record, col string) (int, error) {
	s, ok := rec[col]
	if !ok || strings.TrimSpace(s) == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		// 容忍 "12.0" 這種來源輸出
		f, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if ferr != nil {
			return 0, &SchemaError{Column: col, Reason: fmt.Sprintf("not an integer: %q", s)}
		}
		return int(f), nil
	}
	return v, nil
}
