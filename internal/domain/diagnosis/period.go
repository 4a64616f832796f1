package diagnosis

import "time"

// Granularity 表示分期粒度。
type Granularity string

const (
	GranularityDay  Granularity = "day"
	GranularityWeek Granularity = "week"
)

// Mode 表示比較範圍：pinpoint 指定兩期；batch 對所有相鄰期兩兩比較。
type Mode string

const (
	ModePinpoint Mode = "pinpoint"
	ModeBatch    Mode = "batch"
)

// Period 為連續日期區間，index 0 為最近一期。
type Period struct {
	Index    int       `json:"index"`
	Label    string    `json:"label"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	RowCount int       `json:"row_count"`
}

// Contains 判斷日期是否落在期間內（含端點）。
func (p Period) Contains(d time.Time) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

// Comparison 為一組（當期、基期）比較對。
type Comparison struct {
	Current  Period `json:"current"`
	Baseline Period `json:"baseline"`
}
