package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"coinclarity/internal/domain"
	"coinclarity/internal/storage"
)

// ReportStore implements storage.ReportStore using PostgreSQL.
// Analyzer payloads and signals land in JSONB columns so the report can
// be served back verbatim without a join.
type ReportStore struct {
	pool *Pool
}

// NewReportStore creates a new ReportStore.
func NewReportStore(pool *Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReportStore = (*ReportStore)(nil)

const reportColumns = `
	report_id, chain, address,
	risk_score, risk_tier, mrr, scr, mfr, uf, confidence,
	signals, contract_analysis, liquidity_analysis, holder_analysis,
	token_name, token_symbol, price_usd, price_change_24h,
	created_at, updated_at
`

// Insert adds a new report. Returns ErrDuplicateKey if report_id exists.
func (s *ReportStore) Insert(ctx context.Context, r *domain.AnalysisReport) error {
	if r == nil || r.ReportID == "" {
		return storage.ErrInvalidInput
	}

	signalsJSON, err := json.Marshal(r.Signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}
	contractJSON, err := marshalNullable(r.ContractAnalysis)
	if err != nil {
		return fmt.Errorf("marshal contract analysis: %w", err)
	}
	liquidityJSON, err := marshalNullable(r.LiquidityAnalysis)
	if err != nil {
		return fmt.Errorf("marshal liquidity analysis: %w", err)
	}
	holderJSON, err := marshalNullable(r.HolderAnalysis)
	if err != nil {
		return fmt.Errorf("marshal holder analysis: %w", err)
	}

	query := `
		INSERT INTO analysis_reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err = s.pool.Exec(ctx, query,
		r.ReportID, string(r.Chain), r.Address,
		r.RiskScore, string(r.RiskTier), r.MRR, r.SCR, r.MFR, r.UF, r.Confidence,
		signalsJSON, contractJSON, liquidityJSON, holderJSON,
		r.TokenName, r.TokenSymbol, r.PriceUSD, r.PriceChange24h,
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent report for a token.
func (s *ReportStore) GetLatest(ctx context.Context, chain domain.Chain, address string) (*domain.AnalysisReport, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM analysis_reports
		WHERE chain = $1 AND address = $2
		ORDER BY created_at DESC, report_id DESC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, string(chain), address)
	r, err := scanReport(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest report: %w", err)
	}
	return r, nil
}

// GetByID retrieves a report by its ID. Returns ErrNotFound if not exists.
func (s *ReportStore) GetByID(ctx context.Context, reportID string) (*domain.AnalysisReport, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM analysis_reports
		WHERE report_id = $1
	`

	row := s.pool.QueryRow(ctx, query, reportID)
	r, err := scanReport(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get report by id: %w", err)
	}
	return r, nil
}

// History retrieves up to limit reports for a token, newest first.
func (s *ReportStore) History(ctx context.Context, chain domain.Chain, address string, limit int) ([]*domain.AnalysisReport, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT ` + reportColumns + `
		FROM analysis_reports
		WHERE chain = $1 AND address = $2
		ORDER BY created_at DESC, report_id DESC
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, string(chain), address, limit)
	if err != nil {
		return nil, fmt.Errorf("get report history: %w", err)
	}
	defer rows.Close()

	var reports []*domain.AnalysisReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report rows: %w", err)
	}
	return reports, nil
}

// scanReport scans a single row into an AnalysisReport.
func scanReport(row pgx.Row) (*domain.AnalysisReport, error) {
	var r domain.AnalysisReport
	var chainStr, tierStr string
	var signalsJSON []byte
	var contractJSON, liquidityJSON, holderJSON []byte

	err := row.Scan(
		&r.ReportID, &chainStr, &r.Address,
		&r.RiskScore, &tierStr, &r.MRR, &r.SCR, &r.MFR, &r.UF, &r.Confidence,
		&signalsJSON, &contractJSON, &liquidityJSON, &holderJSON,
		&r.TokenName, &r.TokenSymbol, &r.PriceUSD, &r.PriceChange24h,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Chain = domain.Chain(chainStr)
	r.RiskTier = domain.RiskTier(tierStr)

	if err := json.Unmarshal(signalsJSON, &r.Signals); err != nil {
		return nil, fmt.Errorf("unmarshal signals: %w", err)
	}
	if r.ContractAnalysis, err = unmarshalNullable[domain.ContractAnalysis](contractJSON); err != nil {
		return nil, fmt.Errorf("unmarshal contract analysis: %w", err)
	}
	if r.LiquidityAnalysis, err = unmarshalNullable[domain.LiquidityAnalysis](liquidityJSON); err != nil {
		return nil, fmt.Errorf("unmarshal liquidity analysis: %w", err)
	}
	if r.HolderAnalysis, err = unmarshalNullable[domain.HolderAnalysis](holderJSON); err != nil {
		return nil, fmt.Errorf("unmarshal holder analysis: %w", err)
	}
	return &r, nil
}

// marshalNullable renders a pointer as JSON, mapping nil to SQL NULL.
func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// unmarshalNullable parses a JSONB column, mapping NULL to a nil pointer.
func unmarshalNullable[T any](data []byte) (*T, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
