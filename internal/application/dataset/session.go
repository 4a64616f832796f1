package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"retail-insight/internal/domain/orders"
)

// Session 為一份已載入資料集的明確握把：呼叫端拿 SessionID 發診斷請求，
// 不存在行程層級的「當前資料集」全域狀態。
type Session struct {
	ID          string
	Fingerprint string
	Lines       []orders.OrderLine
	Orders      []orders.Order
	From, To    time.Time
	LoadedAt    time.Time
}

// SessionStore 管理資料集 session 的存取。
type SessionStore interface {
	PutSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (Session, error)
}

// LineSource 由持久層載入已正規化的訂單明細（外部 ETL 落地的 order_lines）。
type LineSource interface {
	LoadOrderLines(ctx context.Context, from, to time.Time) ([]orders.OrderLine, error)
}

// LoadUseCase 解析、聚合並登記一份資料集 session。
type LoadUseCase struct {
	store  SessionStore
	source LineSource // 可為 nil，僅支援 inline records
	now    func() time.Time
}

// NewLoadUseCase 建立資料集載入用例。
func NewLoadUseCase(store SessionStore, source LineSource) *LoadUseCase {
	return &LoadUseCase{
		store:  store,
		source: source,
		now:    time.Now,
	}
}

// LoadInput 控制一次載入：直接給正規化紀錄，或給日期範圍由持久層撈取。
type LoadInput struct {
	Records    []Record
	From, To   time.Time
	Exclusions Exclusions
}

type LoadResult struct {
	SessionID   string
	Fingerprint string
	LineCount   int
	OrderCount  int
	From, To    time.Time
}

func (u *LoadUseCase) Execute(ctx context.Context, input LoadInput) (LoadResult, error) {
	var out LoadResult

	var lines []orders.OrderLine
	var fingerprint string
	var err error

	switch {
	case len(input.Records) > 0:
		lines, fingerprint, err = ParseRecords(input.Records)
		if err != nil {
			return out, err
		}
	case u.source != nil:
		if input.From.IsZero() || input.To.IsZero() {
			return out, fmt.Errorf("date range is required when loading from source")
		}
		lines, err = u.source.LoadOrderLines(ctx, input.From, input.To)
		if err != nil {
			return out, fmt.Errorf("load order lines: %w", err)
		}
		if len(lines) == 0 {
			return out, &SchemaError{Column: "*", Reason: "empty dataset"}
		}
		fingerprint = FingerprintLines(lines)
	default:
		return out, fmt.Errorf("either records or a line source is required")
	}

	aggregated := Aggregate(lines, input.Exclusions)

	sess := Session{
		ID:          uuid.NewString(),
		Fingerprint: fingerprint,
		Lines:       lines,
		Orders:      aggregated,
		LoadedAt:    u.now(),
	}
	for _, o := range aggregated {
		if sess.From.IsZero() || o.Date.Before(sess.From) {
			sess.From = o.Date
		}
		if o.Date.After(sess.To) {
			sess.To = o.Date
		}
	}

	if err := u.store.PutSession(ctx, sess); err != nil {
		return out, fmt.Errorf("store session: %w", err)
	}

	out.SessionID = sess.ID
	out.Fingerprint = sess.Fingerprint
	out.LineCount = len(lines)
	out.OrderCount = len(aggregated)
	out.From = sess.From
	out.To = sess.To
	return out, nil
}
