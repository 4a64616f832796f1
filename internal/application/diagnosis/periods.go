package diagnosis

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"retail-insight/internal/domain/diagnosis"
	"retail-insight/internal/domain/orders"
)

// ErrInsufficientPeriods 表示可比期數不足兩期。屬軟性訊號：
// 比較型分析器遇到時回傳標記 insufficient_data 的空表，不是錯誤。
var ErrInsufficientPeriods = errors.New("fewer than 2 periods available for comparison")

// ResolvePeriods 依粒度將訂單日期分桶，回傳由近到遠排序的期別清單（index 0 為最近）。
func ResolvePeriods(orderTable []orders.Order, g diagnosis.Granularity) []diagnosis.Period {
	type bucket struct {
		start, end time.Time
		label      string
		count      int
	}
	buckets := make(map[string]*bucket)

	for _, o := range orderTable {
		var key, label string
		var start, end time.Time

		switch g {
		case diagnosis.GranularityWeek:
			year, week := o.Date.ISOWeek()
			key = fmt.Sprintf("%04d-W%02d", year, week)
			label = key
			start = isoWeekStart(o.Date)
			end = start.AddDate(0, 0, 6)
		default: // day
			start = o.Date
			end = o.Date
			key = o.Date.Format("2006-01-02")
			label = key
		}

		b, ok := buckets[key]
		if !ok {
			b = &bucket{start: start, end: end, label: label}
			buckets[key] = b
		}
		b.count++
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return buckets[keys[i]].start.After(buckets[keys[j]].start)
	})

	periods := make([]diagnosis.Period, 0, len(keys))
	for i, k := range keys {
		b := buckets[k]
		periods = append(periods, diagnosis.Period{
			Index:    i,
			Label:    b.label,
			Start:    b.start,
			End:      b.end,
			RowCount: b.count,
		})
	}
	return periods
}

// isoWeekStart 回傳該日期所屬 ISO 週的週一。
func isoWeekStart(d time.Time) time.Time {
	wd := int(d.Weekday())
	if wd == 0 {
		wd = 7
	}
	return d.AddDate(0, 0, -(wd - 1))
}

// ResolveComparisons 統一 pinpoint 與 batch 兩種模式：永遠回傳比較對清單。
// pinpoint 回傳長度 1（指定的當期/基期索引），batch 回傳所有相鄰 (i, i+1) 對。
// 分析器對模式完全無感。
func ResolveComparisons(periods []diagnosis.Period, mode diagnosis.Mode, currentIdx, baselineIdx int) ([]diagnosis.Comparison, error) {
	if len(periods) < 2 {
		return nil, ErrInsufficientPeriods
	}

	if mode == diagnosis.ModeBatch {
		out := make([]diagnosis.Comparison, 0, len(periods)-1)
		for i := 0; i+1 < len(periods); i++ {
			out = append(out, diagnosis.Comparison{Current: periods[i], Baseline: periods[i+1]})
		}
		return out, nil
	}

	if baselineIdx == 0 && currentIdx == 0 {
		baselineIdx = 1
	}
	if currentIdx < 0 || currentIdx >= len(periods) {
		return nil, fmt.Errorf("current period index %d out of range", currentIdx)
	}
	if baselineIdx < 0 || baselineIdx >= len(periods) {
		return nil, fmt.Errorf("baseline period index %d out of range", baselineIdx)
	}
	if currentIdx == baselineIdx {
		return nil, fmt.Errorf("current and baseline period must differ")
	}
	return []diagnosis.Comparison{{Current: periods[currentIdx], Baseline: periods[baselineIdx]}}, nil
}
