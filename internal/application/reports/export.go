package reports

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	appdiag "retail-insight/internal/application/diagnosis"
	"retail-insight/internal/domain/diagnosis"
)

// findingHeader 為 Finding 表的固定欄序，所有子檢視共用同一寬表頭。
// 只輸出原始數值：貨幣符號與百分比字串是前端的事，不在這層。
var findingHeader = []string{
	"subject", "reason_code", "severity",
	"current_qty", "baseline_qty", "qty_delta", "qty_delta_pct",
	"current_revenue", "baseline_revenue", "revenue_delta", "revenue_delta_pct",
	"current_avg_price", "baseline_avg_price", "margin_rate",
	"revenue_loss", "profit_loss", "order_count", "total_loss", "ratio",
}

// TableRecords 將 Finding 表轉為 JSON-records 形式（每列一個 map，原始數值）。
func TableRecords(t diagnosis.Table) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(t.Rows))
	for _, f := range t.Rows {
		out = append(out, map[string]interface{}{
			"subject":            f.Subject,
			"reason_code":        string(f.Reason),
			"severity":           string(f.Severity),
			"current_qty":        f.CurrentQty,
			"baseline_qty":       f.BaselineQty,
			"qty_delta":          f.QtyDelta,
			"qty_delta_pct":      f.QtyDeltaPct,
			"current_revenue":    f.CurrentRevenue,
			"baseline_revenue":   f.BaselineRevenue,
			"revenue_delta":      f.RevenueDelta,
			"revenue_delta_pct":  f.RevenueDeltaPct,
			"current_avg_price":  f.CurrentAvgPrice,
			"baseline_avg_price": f.BaselineAvgPrice,
			"margin_rate":        f.MarginRate,
			"revenue_loss":       f.RevenueLoss,
			"profit_loss":        f.ProfitLoss,
			"order_count":        f.OrderCount,
			"total_loss":         f.TotalLoss,
			"ratio":              f.Ratio,
		})
	}
	return out
}

// ExportCSV 將一次診斷的所有表格匯出為分節 CSV：
// 每張表一節，節首為 `# 表名 (狀態)`，接表頭與資料列，適合直接轉多分頁試算表。
func ExportCSV(out appdiag.RunOutput) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	for _, t := range out.Tables {
		if err := w.Write([]string{fmt.Sprintf("# %s (%s)", t.Name, t.Status)}); err != nil {
			return "", err
		}
		if err := w.Write(findingHeader); err != nil {
			return "", err
		}
		for _, f := range t.Rows {
			record := []string{
				f.Subject,
				string(f.Reason),
				string(f.Severity),
				formatFloat(f.CurrentQty),
				formatFloat(f.BaselineQty),
				formatFloat(f.QtyDelta),
				formatPtr(f.QtyDeltaPct),
				formatFloat(f.CurrentRevenue),
				formatFloat(f.BaselineRevenue),
				formatFloat(f.RevenueDelta),
				formatPtr(f.RevenueDeltaPct),
				formatPtr(f.CurrentAvgPrice),
				formatPtr(f.BaselineAvgPrice),
				formatPtr(f.MarginRate),
				formatFloat(f.RevenueLoss),
				formatFloat(f.ProfitLoss),
				strconv.Itoa(f.OrderCount),
				formatFloat(f.TotalLoss),
				formatPtr(f.Ratio),
			}
			if err := w.Write(record); err != nil {
				return "", err
			}
		}
	}

	for _, rec := range out.AOV {
		label := "aov_attribution"
		if rec.Status == diagnosis.TableStatusOK {
			label = fmt.Sprintf("aov_attribution %s vs %s", rec.Comparison.Current.Label, rec.Comparison.Baseline.Label)
		}
		if err := w.Write([]string{fmt.Sprintf("# %s (%s)", label, rec.Status)}); err != nil {
			return "", err
		}
		if err := w.Write([]string{"current_aov", "baseline_aov", "delta", "quantity_effect", "price_effect", "interaction_effect"}); err != nil {
			return "", err
		}
		if rec.Decomposition != nil {
			d := rec.Decomposition
			record := []string{
				formatFloat(d.CurrentAOV),
				formatFloat(d.BaselineAOV),
				formatFloat(d.Delta),
				formatFloat(d.QuantityEffect),
				formatFloat(d.PriceEffect),
				formatFloat(d.InteractionEffect),
			}
			if err := w.Write(record); err != nil {
				return "", err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatPtr(v *float64) string {
	if v == nil {
		return "" // N/A：分母為零的比率以空值輸出
	}
	return formatFloat(*v)
}
