package diagnosis

import (
	"testing"

	"retail-insight/internal/domain/diagnosis"
	"retail-insight/internal/domain/orders"
)

func fluctuationFixture(t *testing.T, lines []orders.OrderLine) (*ProductIndex, []diagnosis.Period) {
	t.Helper()
	idx, cmp := twoPeriodIndex(t, lines)
	return idx, []diagnosis.Period{cmp.Current, cmp.Baseline}
}

func TestAbnormalFluctuation_SpikeAndSlump(t *testing.T) {
	idx, periods := fluctuationFixture(t, []orders.OrderLine{
		line("飙升品", d(1), 10, 4, 10, 10),
		line("飙升品", d(8), 10, 4, 18, 10), // +80%
		line("暴跌品", d(1), 10, 4, 10, 10),
		line("暴跌品", d(8), 10, 4, 4, 10), // −60%
		line("平稳品", d(1), 10, 4, 10, 10),
		line("平稳品", d(8), 10, 4, 12, 10), // +20%，未超標
	})

	tbl := AbnormalFluctuation(idx, periods, FluctuationParams{})
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(tbl.Rows))
	}
	// 波動幅度大的排最前：80% > 60%
	if tbl.Rows[0].Subject != "飙升品" || tbl.Rows[0].Reason != diagnosis.ReasonSpike {
		t.Errorf("expected 飙升品 spike first, got %s %s", tbl.Rows[0].Subject, tbl.Rows[0].Reason)
	}
	if tbl.Rows[1].Subject != "暴跌品" || tbl.Rows[1].Reason != diagnosis.ReasonSlump {
		t.Errorf("expected 暴跌品 slump second, got %s %s", tbl.Rows[1].Subject, tbl.Rows[1].Reason)
	}
	if tbl.Rows[0].Severity != diagnosis.SeverityWarning {
		t.Errorf("80%% < 2×50%% should be warning, got %s", tbl.Rows[0].Severity)
	}
}

func TestAbnormalFluctuation_CriticalBeyondDoubleThreshold(t *testing.T) {
	idx, periods := fluctuationFixture(t, []orders.OrderLine{
		line("爆品", d(1), 10, 4, 10, 10),
		line("爆品", d(8), 10, 4, 25, 10), // +150% > 2×50%
	})

	tbl := AbnormalFluctuation(idx, periods, FluctuationParams{})
	if len(tbl.Rows) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(tbl.Rows))
	}
	if tbl.Rows[0].Severity != diagnosis.SeverityCritical {
		t.Errorf("expected critical, got %s", tbl.Rows[0].Severity)
	}
}

func TestAbnormalFluctuation_NewProductExcluded(t *testing.T) {
	idx, periods := fluctuationFixture(t, []orders.OrderLine{
		line("旧品", d(1), 10, 4, 10, 10),
		line("旧品", d(8), 10, 4, 11, 10),
		line("新品", d(8), 10, 4, 50, 10), // 基期缺席，%Δ 無定義
	})

	tbl := AbnormalFluctuation(idx, periods, FluctuationParams{})
	for _, f := range tbl.Rows {
		if f.Subject == "新品" {
			t.Fatal("baseline-absent products must be excluded")
		}
	}
}

func TestAbnormalFluctuation_DisappearedProductIsSlump(t *testing.T) {
	idx, periods := fluctuationFixture(t, []orders.OrderLine{
		line("下架品", d(1), 10, 4, 10, 10),
		line("旧品", d(1), 10, 4, 10, 10),
		line("旧品", d(8), 10, 4, 10, 10),
	})

	tbl := AbnormalFluctuation(idx, periods, FluctuationParams{})
	if len(tbl.Rows) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(tbl.Rows))
	}
	f := tbl.Rows[0]
	if f.Subject != "下架品" || f.Reason != diagnosis.ReasonSlump {
		t.Errorf("expected 下架品 slump, got %s %s", f.Subject, f.Reason)
	}
	if f.QtyDeltaPct == nil || *f.QtyDeltaPct != -100 {
		t.Errorf("expected -100%%, got %v", f.QtyDeltaPct)
	}
}

func TestAbnormalFluctuation_InsufficientPeriods(t *testing.T) {
	lines := []orders.OrderLine{line("旧品", d(1), 10, 4, 10, 10)}
	periods := []diagnosis.Period{{Index: 0, Label: "2025-08-01", Start: d(1), End: d(1)}}
	idx := BuildProductIndex(lines, periods)

	tbl := AbnormalFluctuation(idx, periods, FluctuationParams{})
	if tbl.Status != diagnosis.TableStatusInsufficientData {
		t.Errorf("expected insufficient_data, got %s", tbl.Status)
	}
	if len(tbl.Rows) != 0 {
		t.Errorf("expected empty rows, got %d", len(tbl.Rows))
	}
}
