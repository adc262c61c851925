package s1_universe

import (
	"context"
	"strings"

	"github.com/wonny/aegis-backtest/internal/contracts"
	"github.com/wonny/aegis-backtest/pkg/logger"
)

// Source says where the universe came from
type Source string

const (
	SourceSymbols   Source = "target_symbols"
	SourceCorpNames Source = "target_corp_names"
	SourceAll       Source = "all"
)

// Universe is the resolved symbol list of one run
type Universe struct {
	Symbols    []string `json:"symbols"`
	Source     Source   `json:"source"`
	Unresolved []string `json:"unresolved,omitempty"` // 종목코드를 찾지 못한 회사명
}

// Empty reports whether nothing was resolved
func (u *Universe) Empty() bool {
	return len(u.Symbols) == 0
}

// Lookup is the slice of the data layer the builder needs
type Lookup interface {
	ListSymbols(ctx context.Context) []string
	ResolveCorpName(ctx context.Context, corpName string) (string, bool)
}

// Builder resolves explicit symbols, company names or the whole store
// into a concrete symbol list
// ⭐ SSOT: S1 유니버스 생성은 여기서만
type Builder struct {
	lookup Lookup
	logger *logger.Logger
}

// NewBuilder creates a new Universe Builder
func NewBuilder(lookup Lookup, log *logger.Logger) *Builder {
	return &Builder{
		lookup: lookup,
		logger: logger.OrNop(log).WithField("module", "s1_universe"),
	}
}

// Build returns the universe for cfg. Explicit targets are never widened
// to the full market: an unresolvable target list yields an empty universe.
func (b *Builder) Build(ctx context.Context, cfg contracts.BacktestConfig) *Universe {
	var u *Universe
	switch {
	case len(cfg.TargetSymbols) > 0:
		u = &Universe{Symbols: dedupe(cfg.TargetSymbols), Source: SourceSymbols}
	case len(cfg.TargetCorpNames) > 0:
		u = b.resolveCorpNames(ctx, cfg.TargetCorpNames)
	default:
		u = &Universe{Symbols: dedupe(b.lookup.ListSymbols(ctx)), Source: SourceAll}
	}

	b.logger.WithFields(map[string]interface{}{
		"source":     u.Source,
		"symbols":    len(u.Symbols),
		"unresolved": len(u.Unresolved),
	}).Info("Universe built")

	return u
}

func (b *Builder) resolveCorpNames(ctx context.Context, names []string) *Universe {
	u := &Universe{Symbols: make([]string, 0, len(names)), Source: SourceCorpNames}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		symbol, ok := b.lookup.ResolveCorpName(ctx, name)
		if !ok || symbol == "" {
			b.logger.WithField("corp_name", name).Warn("Corp name not found")
			u.Unresolved = append(u.Unresolved, name)
			continue
		}
		u.Symbols = append(u.Symbols, symbol)
	}
	u.Symbols = dedupe(u.Symbols)
	return u
}

// dedupe drops blanks and repeats, keeping first-seen order
func dedupe(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
