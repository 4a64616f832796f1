package diagnosis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"retail-insight/internal/application/dataset"
	"retail-insight/internal/domain/diagnosis"
	"retail-insight/internal/domain/orders"
)

// Analyzer 識別一個診斷分析器。
type Analyzer string

const (
	AnalyzerSalesDecline   Analyzer = "sales_decline"
	AnalyzerAOV            Analyzer = "aov_attribution"
	AnalyzerNegativeMargin Analyzer = "negative_margin"
	AnalyzerDeliveryFee    Analyzer = "delivery_fee_outlier"
	AnalyzerRoleImbalance  Analyzer = "role_imbalance"
	AnalyzerFluctuation    Analyzer = "abnormal_fluctuation"
)

// AllAnalyzers 為固定的執行順序，輸出順序與之一致。
var AllAnalyzers = []Analyzer{
	AnalyzerSalesDecline,
	AnalyzerAOV,
	AnalyzerNegativeMargin,
	AnalyzerDeliveryFee,
	AnalyzerRoleImbalance,
	AnalyzerFluctuation,
}

// RunParams 為一次診斷請求的完整參數。
type RunParams struct {
	Granularity   diagnosis.Granularity         `json:"granularity"`
	Mode          diagnosis.Mode                `json:"mode"`
	CurrentIndex  int                           `json:"current_index"`
	BaselineIndex int                           `json:"baseline_index"`
	SalesDecline  SalesDeclineParams            `json:"sales_decline"`
	Threshold     ThresholdParams               `json:"threshold"`
	Fluctuation   FluctuationParams             `json:"fluctuation"`
	Roles         map[string]orders.ProductRole `json:"roles,omitempty"`
}

func (p RunParams) withDefaults() RunParams {
	if p.Granularity == "" {
		p.Granularity = diagnosis.GranularityDay
	}
	if p.Mode == "" {
		p.Mode = diagnosis.ModePinpoint
	}
	return p
}

// RunInput 指定資料集 session、要跑的分析器與參數；Analyzers 為空表示全跑。
type RunInput struct {
	SessionID string
	Analyzers []Analyzer
	Params    RunParams
}

// AOVRecord 為一組比較對的客單價拆解結果。
type AOVRecord struct {
	Comparison    diagnosis.Comparison        `json:"comparison"`
	Status        string                      `json:"status"`
	Decomposition *diagnosis.AOVDecomposition `json:"decomposition,omitempty"`
}

// RunOutput 為一次診斷的全部產出。
type RunOutput struct {
	RunID       string             `json:"run_id"`
	SessionID   string             `json:"session_id"`
	Fingerprint string             `json:"fingerprint"`
	Periods     []diagnosis.Period `json:"periods"`
	Tables      []diagnosis.Table  `json:"tables"`
	AOV         []AOVRecord        `json:"aov,omitempty"`
	Cached      bool               `json:"cached"`
}

// FindingCache 以（資料集指紋、分析器、參數）為鍵快取診斷結果，短 TTL。
type FindingCache interface {
	Get(key string) (RunOutput, bool)
	Put(key string, out RunOutput)
}

// RunUseCase 為診斷批次執行器：解析期別、建一次商品索引、依序跑所選分析器。
// 所有分析器皆為純函式，互不共享可變狀態。
type RunUseCase struct {
	sessions dataset.SessionStore
	cache    FindingCache // 可為 nil
}

// NewRunUseCase 建立診斷執行用例。
func NewRunUseCase(sessions dataset.SessionStore, cache FindingCache) *RunUseCase {
	return &RunUseCase{sessions: sessions, cache: cache}
}

// Execute 執行一次診斷。期數不足屬軟性結果：回傳標記 insufficient_data 的
// 空表，不是錯誤；只有 schema／參數問題才會失敗。
func (u *RunUseCase) Execute(ctx context.Context, input RunInput) (RunOutput, error) {
	var out RunOutput

	sess, err := u.sessions.GetSession(ctx, input.SessionID)
	if err != nil {
		return out, fmt.Errorf("get session: %w", err)
	}

	params := input.Params.withDefaults()
	selected, err := selectAnalyzers(input.Analyzers)
	if err != nil {
		return out, err
	}

	key := cacheKey(sess.Fingerprint, selected, params)
	if u.cache != nil {
		if hit, ok := u.cache.Get(key); ok {
			hit.Cached = true
			return hit, nil
		}
	}

	periods := ResolvePeriods(sess.Orders, params.Granularity)
	idx := BuildProductIndex(sess.Lines, periods)

	comparisons, cmpErr := ResolveComparisons(periods, params.Mode, params.CurrentIndex, params.BaselineIndex)
	if cmpErr != nil && !errors.Is(cmpErr, ErrInsufficientPeriods) {
		return out, cmpErr
	}

	out.RunID = uuid.NewString()
	out.SessionID = sess.ID
	out.Fingerprint = sess.Fingerprint
	out.Periods = periods

	for _, a := range selected {
		switch a {
		case AnalyzerSalesDecline:
			if cmpErr != nil {
				out.Tables = append(out.Tables,
					diagnosis.EmptyTable("sales_decline.summary"),
					diagnosis.EmptyTable("sales_decline.top_decliners"),
					diagnosis.EmptyTable("sales_decline.top_risers"))
				continue
			}
			for _, cmp := range comparisons {
				out.Tables = append(out.Tables, SalesDecline(idx, cmp, params.SalesDecline).Tables()...)
			}

		case AnalyzerAOV:
			if cmpErr != nil {
				out.AOV = append(out.AOV, AOVRecord{Status: diagnosis.TableStatusInsufficientData})
				continue
			}
			for _, cmp := range comparisons {
				rec := AOVRecord{Comparison: cmp, Status: diagnosis.TableStatusOK}
				if d, ok := AOVAttribution(sess.Orders, cmp); ok {
					rec.Decomposition = &d
				} else {
					rec.Status = diagnosis.TableStatusInsufficientData
				}
				out.AOV = append(out.AOV, rec)
			}

		case AnalyzerNegativeMargin:
			if len(periods) == 0 {
				out.Tables = append(out.Tables, diagnosis.EmptyTable("negative_margin.by_product"))
				continue
			}
			out.Tables = append(out.Tables, NegativeMargin(sess.Orders, sess.Lines, periods[0], params.Threshold))

		case AnalyzerDeliveryFee:
			if len(periods) == 0 {
				out.Tables = append(out.Tables,
					diagnosis.EmptyTable("delivery_fee.outlier_orders"),
					diagnosis.EmptyTable("delivery_fee.by_address"))
				continue
			}
			out.Tables = append(out.Tables, DeliveryFeeOutlier(sess.Orders, periods[0], params.Threshold).Tables()...)

		case AnalyzerRoleImbalance:
			if len(periods) == 0 {
				out.Tables = append(out.Tables, diagnosis.EmptyTable("role_imbalance.by_scene"))
				continue
			}
			out.Tables = append(out.Tables, RoleImbalance(sess.Lines, periods[0], params.Roles, params.Threshold))

		case AnalyzerFluctuation:
			out.Tables = append(out.Tables, AbnormalFluctuation(idx, periods, params.Fluctuation))
		}
	}

	if u.cache != nil {
		u.cache.Put(key, out)
	}
	return out, nil
}

// selectAnalyzers 驗證名稱並回傳固定執行順序；空清單表示全跑。
func selectAnalyzers(requested []Analyzer) ([]Analyzer, error) {
	if len(requested) == 0 {
		return AllAnalyzers, nil
	}
	known := make(map[Analyzer]bool, len(AllAnalyzers))
	for _, a := range AllAnalyzers {
		known[a] = true
	}
	want := make(map[Analyzer]bool, len(requested))
	for _, a := range requested {
		if !known[a] {
			return nil, fmt.Errorf("unknown analyzer %q", a)
		}
		want[a] = true
	}
	out := make([]Analyzer, 0, len(want))
	for _, a := range AllAnalyzers {
		if want[a] {
			out = append(out, a)
		}
	}
	return out, nil
}

// cacheKey 由資料集指紋、分析器清單與完整參數組成，輸入相同必得同鍵。
func cacheKey(fingerprint string, analyzers []Analyzer, params RunParams) string {
	names := make([]string, 0, len(analyzers))
	for _, a := range analyzers {
		names = append(names, string(a))
	}
	sort.Strings(names)

	payload, _ := json.Marshal(struct {
		Fingerprint string    `json:"fp"`
		Analyzers   []string  `json:"analyzers"`
		Params      RunParams `json:"params"`
	}{fingerprint, names, params})

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
