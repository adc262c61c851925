package s0_data

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-backtest/internal/contracts"
)

// DisclosureRepository reads score_table_dart_idc (DART 공시 + 지표 점수)
// ⭐ SSOT: 공시/지표 데이터 조회는 여기서만
type DisclosureRepository struct {
	pool *pgxpool.Pool
}

// NewDisclosureRepository creates a new disclosure repository
func NewDisclosureRepository(pool *pgxpool.Pool) *DisclosureRepository {
	return &DisclosureRepository{pool: pool}
}

// LoadDisclosures returns distinct filings matching q, date ascending
func (r *DisclosureRepository) LoadDisclosures(ctx context.Context, q contracts.DisclosureQuery) (contracts.DisclosureHistory, error) {
	if q.Symbol == "" && q.CorpName == "" {
		return contracts.DisclosureHistory{}, nil
	}

	conditions := []string{"rcept_dt >= $1", "rcept_dt <= $2"}
	args := []interface{}{contracts.DateOf(q.Start), contracts.DateOf(q.End)}

	if q.Symbol != "" {
		args = append(args, q.Symbol)
		conditions = append(conditions, fmt.Sprintf("stock_code = $%d", len(args)))
	}
	if q.CorpName != "" {
		args = append(args, q.CorpName)
		conditions = append(conditions, fmt.Sprintf("corp_name = $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT
			rcept_dt,
			COALESCE(stock_code, ''),
			COALESCE(corp_name, ''),
			COALESCE(report_type, ''),
			COALESCE(category, ''),
			COALESCE(rcept_no, '')
		FROM score_table_dart_idc
		WHERE %s
		ORDER BY 1, 6
	`, strings.Join(conditions, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query disclosures %s: %w", q.Key(), err)
	}
	defer rows.Close()

	history := make(contracts.DisclosureHistory, 0)
	for rows.Next() {
		var date time.Time
		var code, corpName, reportType, category, receiptNo string
		if err := rows.Scan(&date, &code, &corpName, &reportType, &category, &receiptNo); err != nil {
			return nil, fmt.Errorf("scan disclosure %s: %w", q.Key(), err)
		}
		history = append(history, contracts.NewDisclosureEvent(date, code, corpName, reportType, category, receiptNo))
	}
	return history, rows.Err()
}

// LoadIndicators returns indicator rows ordered by date, report type and indicator name
func (r *DisclosureRepository) LoadIndicators(ctx context.Context, q contracts.IndicatorQuery) ([]contracts.IndicatorRecord, error) {
	conditions := []string{"stock_code = $1", "rcept_dt >= $2", "rcept_dt <= $3", "idc_nm IS NOT NULL"}
	args := []interface{}{q.Symbol, contracts.DateOf(q.Start), contracts.DateOf(q.End)}

	if q.CorpName != "" {
		args = append(args, q.CorpName)
		conditions = append(conditions, fmt.Sprintf("corp_name = $%d", len(args)))
	}
	if len(q.ReportTypes) > 0 {
		args = append(args, q.ReportTypes)
		conditions = append(conditions, fmt.Sprintf("report_type = ANY($%d)", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT rcept_dt, COALESCE(report_type, ''), idc_nm, idc_score::float8
		FROM score_table_dart_idc
		WHERE %s
		ORDER BY rcept_dt, report_type, idc_nm
	`, strings.Join(conditions, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query indicators %s: %w", q.Symbol, err)
	}
	defer rows.Close()

	records := make([]contracts.IndicatorRecord, 0)
	for rows.Next() {
		var rec contracts.IndicatorRecord
		if err := rows.Scan(&rec.Date, &rec.ReportType, &rec.IndicatorName, &rec.Score); err != nil {
			return nil, fmt.Errorf("scan indicator %s: %w", q.Symbol, err)
		}
		rec.Date = contracts.DateOf(rec.Date)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ResolveCorpName finds the stock code filed under an exact company name
func (r *DisclosureRepository) ResolveCorpName(ctx context.Context, corpName string) (string, bool, error) {
	query := `
		SELECT DISTINCT stock_code
		FROM score_table_dart_idc
		WHERE corp_name = $1 AND stock_code IS NOT NULL
		ORDER BY stock_code
		LIMIT 1
	`

	var symbol string
	err := r.pool.QueryRow(ctx, query, corpName).Scan(&symbol)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolve corp name %q: %w", corpName, err)
	}
	return symbol, true, nil
}

// LookupCorpName returns the company name filed under symbol, or "" if none
func (r *DisclosureRepository) LookupCorpName(ctx context.Context, symbol string) (string, error) {
	query := `
		SELECT DISTINCT corp_name
		FROM score_table_dart_idc
		WHERE stock_code = $1 AND corp_name IS NOT NULL
		ORDER BY corp_name
		LIMIT 1
	`

	var name string
	err := r.pool.QueryRow(ctx, query, symbol).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup corp name %s: %w", symbol, err)
	}
	return name, nil
}
