package alert

import (
	"context"
	"fmt"
	"strings"

	appdiag "retail-insight/internal/application/diagnosis"
	"retail-insight/internal/domain/diagnosis"
)

// Notifier 寄送通知。
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}

// Engine 彙整一次診斷中的 critical 發現並送出通報。
type Engine struct {
	notifier Notifier
	maxItems int
}

// NewEngine 建立通報引擎。
func NewEngine(notifier Notifier) *Engine {
	return &Engine{
		notifier: notifier,
		maxItems: 10,
	}
}

// NotifyCritical 掃描診斷產出，有 critical 發現時送出摘要；沒有則不動作。
// 通報失敗只回傳錯誤讓呼叫端記 log，不影響診斷結果本身。
func (e *Engine) NotifyCritical(ctx context.Context, out appdiag.RunOutput) error {
	if e == nil || e.notifier == nil {
		return nil
	}

	var items []string
	for _, t := range out.Tables {
		for _, f := range t.Rows {
			if f.Severity != diagnosis.SeverityCritical {
				continue
			}
			items = append(items, fmt.Sprintf("- [%s] %s (%s)", t.Name, f.Subject, f.Reason))
			if len(items) >= e.maxItems {
				break
			}
		}
		if len(items) >= e.maxItems {
			break
		}
	}
	if len(items) == 0 {
		return nil
	}

	msg := fmt.Sprintf("診斷警報：%d 筆 critical 發現 (run %s)\n%s",
		len(items), out.RunID, strings.Join(items, "\n"))
	return e.notifier.SendMessage(ctx, msg)
}
