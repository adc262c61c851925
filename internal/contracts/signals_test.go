package contracts

import (
	"testing"
)

func f(v float64) *float64 { return &v }

func TestRangeTest_Match(t *testing.T) {
	tests := []struct {
		name string
		test RangeTest
		v    float64
		want bool
	}{
		{"between inside", RangeTest{Op: OpBetween, Min: f(1), Max: f(5)}, 3, true},
		{"between on bound", RangeTest{Op: OpBetween, Min: f(1), Max: f(5)}, 5, true},
		{"between outside", RangeTest{Op: OpBetween, Min: f(1), Max: f(5)}, 6, false},
		{"between open max", RangeTest{Op: OpBetween, Min: f(1)}, 1e9, true},
		{"between open min", RangeTest{Op: OpBetween, Max: f(1)}, -1e9, true},
		{"gte", RangeTest{Op: OpGTE, Min: f(2)}, 2, true},
		{"gt", RangeTest{Op: OpGT, Min: f(2)}, 2, false},
		{"lte", RangeTest{Op: OpLTE, Max: f(2)}, 2, true},
		{"lt", RangeTest{Op: OpLT, Max: f(2)}, 2, false},
		{"eq within epsilon", RangeTest{Op: OpEQ, Min: f(0.3)}, 0.1 + 0.2, true},
		{"eq falls back to max", RangeTest{Op: OpEQ, Max: f(7)}, 7, true},
		{"eq mismatch", RangeTest{Op: OpEQ, Min: f(7)}, 7.01, false},
		{"gte missing bound", RangeTest{Op: OpGTE}, 100, false},
		{"unknown op", RangeTest{Op: "~"}, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.test.Match(tt.v); got != tt.want {
				t.Errorf("Match(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestRangeTest_Validate(t *testing.T) {
	valid := []RangeTest{
		{Op: OpBetween},
		{Op: OpGTE, Min: f(1)},
		{Op: OpLT, Max: f(1)},
		{Op: OpEQ, Max: f(1)},
	}
	for _, rt := range valid {
		if err := rt.Validate(); err != nil {
			t.Errorf("Validate(%+v) unexpected error: %v", rt, err)
		}
	}

	invalid := []RangeTest{
		{Op: OpBetween, Min: f(5), Max: f(1)},
		{Op: OpGT},
		{Op: OpLTE},
		{Op: OpEQ},
		{Op: "!="},
	}
	for _, rt := range invalid {
		if err := rt.Validate(); err == nil {
			t.Errorf("Validate(%+v) expected error", rt)
		}
	}
}

func TestSignalRule_Ready(t *testing.T) {
	rule := SignalRule{Name: "감자", Action: ActionSell, DelayDays: 3}
	if rule.Ready(day("2024-01-10"), day("2024-01-12")) {
		t.Error("rule should not be ready before delay elapses")
	}
	if !rule.Ready(day("2024-01-10"), day("2024-01-13")) {
		t.Error("rule should be ready on disclosure_date + delay")
	}
}

func TestParseAction(t *testing.T) {
	for in, want := range map[string]Action{"buy": ActionBuy, " SELL ": ActionSell, "": ActionNeutral, "neutral": ActionNeutral} {
		got, err := ParseAction(in)
		if err != nil || got != want {
			t.Errorf("ParseAction(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseAction("hold"); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestRebalancePeriod_Days(t *testing.T) {
	tests := map[RebalancePeriod]int{
		RebalanceDaily:     1,
		RebalanceWeekly:    7,
		RebalanceMonthly:   30,
		RebalanceQuarterly: 90,
		"yearly":           30,
	}
	for p, want := range tests {
		if got := p.Days(); got != want {
			t.Errorf("%s.Days() = %d, want %d", p, got, want)
		}
	}
}

func TestIndicatorReportTypes(t *testing.T) {
	cfg := BacktestConfig{IndicatorConditions: []IndicatorCondition{
		{ReportType: "유상증자 결정"},
		{ReportType: "감자 결정"},
		{ReportType: "유상증자 결정"},
	}}
	got := cfg.IndicatorReportTypes()
	if len(got) != 2 || got[0] != "유상증자 결정" || got[1] != "감자 결정" {
		t.Errorf("IndicatorReportTypes() = %v", got)
	}
}

func TestBacktestConfig_Hash(t *testing.T) {
	a := DefaultBacktestConfig()
	b := DefaultBacktestConfig()
	if a.Hash() == "" || a.Hash() != b.Hash() {
		t.Fatalf("hash not stable: %q vs %q", a.Hash(), b.Hash())
	}
	b.MaxPositions++
	if a.Hash() == b.Hash() {
		t.Errorf("hash ignores MaxPositions")
	}
}
