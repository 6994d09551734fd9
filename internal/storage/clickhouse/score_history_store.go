package clickhouse

import (
	"context"
	"fmt"

	"coinclarity/internal/domain"
	"coinclarity/internal/storage"
)

// ScoreHistoryStore implements storage.ScoreHistoryStore using ClickHouse.
// The table is append-only; one row lands per completed analysis.
type ScoreHistoryStore struct {
	conn *Conn
}

// NewScoreHistoryStore creates a new ScoreHistoryStore.
func NewScoreHistoryStore(conn *Conn) *ScoreHistoryStore {
	return &ScoreHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ScoreHistoryStore = (*ScoreHistoryStore)(nil)

// Insert appends a score point.
func (s *ScoreHistoryStore) Insert(ctx context.Context, p *domain.ScorePoint) error {
	if p == nil || p.Fingerprint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO score_history (
			fingerprint, chain, address, risk_score, risk_tier,
			mrr, scr, mfr, uf, confidence, scored_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		p.Fingerprint, string(p.Chain), p.Address,
		uint8(p.RiskScore), string(p.RiskTier),
		uint8(p.MRR), uint8(p.SCR), uint8(p.MFR),
		p.UF, p.Confidence, p.ScoredAt,
	)
	if err != nil {
		return fmt.Errorf("insert score point: %w", err)
	}
	return nil
}

// GetByFingerprint retrieves points for a token, ordered by scored_at ASC.
// A limit <= 0 returns all points.
func (s *ScoreHistoryStore) GetByFingerprint(ctx context.Context, fingerprint string, limit int) ([]*domain.ScorePoint, error) {
	query := `
		SELECT fingerprint, chain, address, risk_score, risk_tier,
		       mrr, scr, mfr, uf, confidence, scored_at
		FROM score_history
		WHERE fingerprint = ?
		ORDER BY scored_at ASC
	`
	args := []interface{}{fingerprint}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, uint64(limit))
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query score history: %w", err)
	}
	defer rows.Close()

	return scanScorePoints(rows)
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanScorePoints scans multiple rows.
func scanScorePoints(rows chRows) ([]*domain.ScorePoint, error) {
	var points []*domain.ScorePoint

	for rows.Next() {
		var p domain.ScorePoint
		var chainStr, tierStr string
		var riskScore, mrr, scr, mfr uint8

		err := rows.Scan(
			&p.Fingerprint, &chainStr, &p.Address, &riskScore, &tierStr,
			&mrr, &scr, &mfr, &p.UF, &p.Confidence, &p.ScoredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan score history row: %w", err)
		}

		p.Chain = domain.Chain(chainStr)
		p.RiskTier = domain.RiskTier(tierStr)
		p.RiskScore = int(riskScore)
		p.MRR = int(mrr)
		p.SCR = int(scr)
		p.MFR = int(mfr)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score history rows: %w", err)
	}

	return points, nil
}
