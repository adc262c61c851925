package selection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis-backtest/internal/contracts"
	"github.com/wonny/aegis-backtest/internal/s0_data"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRank_StableSortAndFilters(t *testing.T) {
	universe := []string{"A", "B", "C", "D", "E"}
	scores := map[string]float64{"A": 3, "B": 5, "C": 3, "D": 1, "E": 5}

	tests := []struct {
		name      string
		filter    contracts.ScreenFilter
		ascending bool
		want      []string
	}{
		{"descending ties keep order", contracts.ScreenFilter{}, false, []string{"B", "E", "A", "C", "D"}},
		{"ascending ties keep order", contracts.ScreenFilter{}, true, []string{"D", "A", "C", "B", "E"}},
		{"value filter descending", contracts.ScreenFilter{Type: contracts.FilterValue, Value: 3}, false, []string{"B", "E", "A", "C"}},
		{"value filter ascending", contracts.ScreenFilter{Type: contracts.FilterValue, Value: 3}, true, []string{"D", "A", "C"}},
		{"top 40%", contracts.ScreenFilter{Type: contracts.FilterTop, Percent: 40}, false, []string{"B", "E"}},
		{"top rounds up", contracts.ScreenFilter{Type: contracts.FilterTop, Percent: 30}, false, []string{"B", "E"}},
		{"top tiny percent keeps one", contracts.ScreenFilter{Type: contracts.FilterTop, Percent: 0.1}, false, []string{"B"}},
		{"bottom 20%", contracts.ScreenFilter{Type: contracts.FilterBottom, Percent: 20}, false, []string{"D"}},
		{"top 0% is empty", contracts.ScreenFilter{Type: contracts.FilterTop, Percent: 0}, false, []string{}},
		{"top 100% keeps all", contracts.ScreenFilter{Type: contracts.FilterTop, Percent: 100}, false, []string{"B", "E", "A", "C", "D"}},
		{"percent clamped", contracts.ScreenFilter{Type: contracts.FilterBottom, Percent: 250}, true, []string{"D", "A", "C", "B", "E"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rank(universe, scores, tt.filter, tt.ascending)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRank_Idempotent(t *testing.T) {
	universe := []string{"A", "B", "C", "D", "E", "F"}
	scores := map[string]float64{"A": 1, "B": 2, "C": 2, "D": -1, "E": 0, "F": 2}

	once := Rank(universe, scores, contracts.ScreenFilter{}, false)
	twice := Rank(once, scores, contracts.ScreenFilter{}, false)
	assert.Equal(t, once, twice)
}

func TestPercentileCount(t *testing.T) {
	assert.Equal(t, 0, PercentileCount(10, 0))
	assert.Equal(t, 0, PercentileCount(0, 50))
	assert.Equal(t, 1, PercentileCount(10, 1))
	assert.Equal(t, 4, PercentileCount(10, 35))
	assert.Equal(t, 10, PercentileCount(10, 100))
	assert.Equal(t, 10, PercentileCount(10, 120))
	assert.Equal(t, 0, PercentileCount(10, -5))
}

func TestScores(t *testing.T) {
	series := contracts.PriceSeries{}
	for i, c := range []float64{100, 50, 80, 90, 120} {
		series = append(series, contracts.PriceBar{Date: day("2024-01-01").AddDate(0, 0, i), Close: c})
	}

	assert.InDelta(t, 20.0, MomentumScore(series, 20), 1e-9)
	// 최근 3개: 80 → 120
	assert.InDelta(t, 50.0, MomentumScore(series, 3), 1e-9)
	assert.Zero(t, MomentumScore(series[:1], 20))
	assert.Equal(t, 1.2e9, MarketCapScore(series))
	assert.Zero(t, MarketCapScore(nil))

	history := contracts.DisclosureHistory{}
	for i := 0; i < 35; i++ {
		reportType := "유상증자 결정" // 1
		if i < 5 {
			reportType = "감자 결정" // 2
		}
		history = append(history, contracts.NewDisclosureEvent(day("2024-01-01").AddDate(0, 0, i), "A", "", reportType, "", ""))
	}
	assert.Equal(t, 40.0, DisclosureScore(history))
	assert.Equal(t, 30.0, EventTypeScore(history))
}

func TestSentimentScore(t *testing.T) {
	start, end := day("2024-01-01"), day("2024-03-31")
	history := contracts.DisclosureHistory{
		contracts.NewDisclosureEvent(day("2024-01-10"), "A", "", "감자 결정", "", ""),    // 창 밖
		contracts.NewDisclosureEvent(day("2024-03-05"), "A", "", "감자 결정", "", ""),    // -1 × 0.5
		contracts.NewDisclosureEvent(day("2024-03-20"), "A", "", "소송 등의 제기", "", ""), // 0 × 0.75
		contracts.NewDisclosureEvent(day("2024-03-30"), "A", "", "유상증자 결정", "", ""),  // +1 × 1.0
	}

	got := SentimentScore(history, start, end, 30, 1.0)
	assert.InDelta(t, (-0.5+0+1.0)/2.25, got, 1e-9)

	// 큰 가중치는 [-1, 1]로 잘림
	only := contracts.DisclosureHistory{contracts.NewDisclosureEvent(day("2024-03-30"), "A", "", "유상증자 결정", "", "")}
	assert.Equal(t, 1.0, SentimentScore(only, start, end, 30, 5))
	assert.Zero(t, SentimentScore(nil, start, end, 30, 1))

	// lookback 0 → 전체 기간
	all := SentimentScore(history, start, end, 0, 1.0)
	assert.InDelta(t, (-0.5-2.0/3*1+0+1.0)/(0.5+2.0/3+5.0/6+1.0), all, 1e-9)
}

func screeningStore() *s0_data.MemoryStore {
	store := s0_data.NewMemoryStore()
	add := func(symbol string, closes ...float64) {
		for i, c := range closes {
			store.AddPrices(symbol, contracts.PriceBar{Date: day("2024-01-02").AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1})
		}
	}
	add("A", 100, 110) // +10%
	add("B", 100, 130) // +30%
	add("C", 100, 90)  // -10%
	add("D", 100, 130) // +30%
	return store
}

func TestScreener_Momentum(t *testing.T) {
	cfg := contracts.DefaultBacktestConfig()
	cfg.StartDate, cfg.EndDate = day("2024-01-01"), day("2024-01-31")
	cfg.SortBy = contracts.SortMomentum
	cfg.MaxPortfolioSize = 3

	loader := s0_data.NewLoader(screeningStore(), s0_data.LoaderConfig{Concurrency: 2}, nil)
	res, err := NewScreener(loader, cfg, nil).Screen(context.Background(), []string{"A", "B", "C", "D"})
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "D", "A"}, res.Symbols)
	assert.InDelta(t, -10.0, res.Scores["C"], 1e-9)
}

func TestScreener_NoCriterionKeepsUniverseOrder(t *testing.T) {
	cfg := contracts.DefaultBacktestConfig()
	cfg.SortBy = contracts.SortNone
	cfg.MaxPortfolioSize = 2

	store := s0_data.NewMemoryStore()
	store.FailQuery(s0_data.QueryPrices, errors.New("must not load"))
	loader := s0_data.NewLoader(store, s0_data.LoaderConfig{}, nil)

	res, err := NewScreener(loader, cfg, nil).Screen(context.Background(), []string{"C", "A", "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, res.Symbols)
	assert.Nil(t, res.Scores)
}

func TestScreener_DataErrorsScoreZero(t *testing.T) {
	cfg := contracts.DefaultBacktestConfig()
	cfg.StartDate, cfg.EndDate = day("2024-01-01"), day("2024-01-31")
	cfg.SortBy = contracts.SortMomentum
	cfg.SortAscending = true

	store := screeningStore()
	store.FailQuery(s0_data.QueryPrices, errors.New("timeout"))
	loader := s0_data.NewLoader(store, s0_data.LoaderConfig{}, nil)

	res, err := NewScreener(loader, cfg, nil).Screen(context.Background(), []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, res.Symbols)
	for _, s := range res.Symbols {
		assert.Zero(t, res.Scores[s])
	}
}

func TestScreener_PercentZeroIsEmpty(t *testing.T) {
	cfg := contracts.DefaultBacktestConfig()
	cfg.StartDate, cfg.EndDate = day("2024-01-01"), day("2024-01-31")
	cfg.SortBy = contracts.SortMomentum
	cfg.Filter = contracts.ScreenFilter{Type: contracts.FilterTop, Percent: 0}

	loader := s0_data.NewLoader(screeningStore(), s0_data.LoaderConfig{}, nil)
	res, err := NewScreener(loader, cfg, nil).Screen(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	assert.Empty(t, res.Symbols)
}

func TestScreener_DisclosureCriteriaRespectUseDisclosures(t *testing.T) {
	store := s0_data.NewMemoryStore()
	store.AddDisclosures(contracts.NewDisclosureEvent(day("2024-01-10"), "B", "", "유상증자 결정", "증자감자", "R1"))
	loader := s0_data.NewLoader(store, s0_data.LoaderConfig{}, nil)

	cfg := contracts.DefaultBacktestConfig()
	cfg.StartDate, cfg.EndDate = day("2024-01-01"), day("2024-01-31")
	cfg.SortBy = contracts.SortDisclosure

	cfg.UseDisclosures = true
	res, err := NewScreener(loader, cfg, nil).Screen(context.Background(), []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, res.Symbols)
	assert.Equal(t, 1.0, res.Scores["B"])

	cfg.UseDisclosures = false
	for _, criterion := range []contracts.SortCriterion{contracts.SortDisclosure, contracts.SortEventType, contracts.SortSentimentScore} {
		cfg.SortBy = criterion
		scorer := NewScorer(cfg)
		_, needDisclosures := scorer.Needs()
		assert.False(t, needDisclosures, criterion)

		res, err := NewScreener(loader, cfg, nil).Screen(context.Background(), []string{"A", "B"})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, res.Symbols, criterion)
		assert.Zero(t, res.Scores["B"], criterion)
	}

	// 직접 주입된 공시도 무시
	history := contracts.DisclosureHistory{contracts.NewDisclosureEvent(day("2024-01-10"), "B", "", "유상증자 결정", "증자감자", "R1")}
	score, err := NewScorer(cfg).Score(&s0_data.SymbolData{Symbol: "B", Disclosures: history})
	require.NoError(t, err)
	assert.Zero(t, score)
}
