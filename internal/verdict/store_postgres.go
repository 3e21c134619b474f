package verdict

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"bordero/internal/claims/models"
	"bordero/pkg/domain"
	"bordero/pkg/platform/sentinel"
	txcontext "bordero/pkg/platform/tx"
)

// PostgresStore persists verdicts with optimistic versioning.
//
// Schema:
//
//	CREATE TABLE verdicts (
//	    cedant_id     TEXT NOT NULL,
//	    claim_number  TEXT NOT NULL,
//	    state         TEXT NOT NULL,
//	    findings      JSONB NOT NULL DEFAULT '[]',
//	    risk_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
//	    risk_level    TEXT NOT NULL DEFAULT 'very_low',
//	    version       INTEGER NOT NULL,
//	    posting       JSONB NOT NULL DEFAULT '{}',
//	    decided_by    TEXT NOT NULL DEFAULT '',
//	    justification TEXT NOT NULL DEFAULT '',
//	    created_at    TIMESTAMPTZ NOT NULL,
//	    updated_at    TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (cedant_id, claim_number)
//	);
//	CREATE INDEX verdicts_state_idx ON verdicts (state, created_at);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer joins a context transaction when one is open, so a verdict save can
// commit atomically with its audit outbox rows.
func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Get(ctx context.Context, claim domain.ClaimID) (models.Verdict, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT cedant_id, claim_number, state, findings, risk_score, risk_level,
		       version, posting, decided_by, justification, created_at, updated_at
		FROM verdicts
		WHERE cedant_id = $1 AND claim_number = $2
	`, string(claim.Cedant), string(claim.Number))

	verdict, err := scanVerdict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Verdict{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Verdict{}, fmt.Errorf("get verdict: %w", err)
	}
	return verdict, nil
}

// Save upserts the verdict guarded by its version: new verdicts insert at
// version 1, updates require the stored row to be exactly one version behind.
func (s *PostgresStore) Save(ctx context.Context, verdict models.Verdict) error {
	findings, err := json.Marshal(verdict.Findings)
	if err != nil {
		return fmt.Errorf("marshal findings: %w", err)
	}
	posting, err := json.Marshal(verdict.Posting)
	if err != nil {
		return fmt.Errorf("marshal posting facts: %w", err)
	}

	if verdict.Version == 1 {
		res, err := s.execer(ctx).ExecContext(ctx, `
			INSERT INTO verdicts (
				cedant_id, claim_number, state, findings, risk_score, risk_level,
				version, posting, decided_by, justification, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (cedant_id, claim_number) DO NOTHING
		`,
			string(verdict.Claim.Cedant), string(verdict.Claim.Number),
			string(verdict.State), findings, verdict.RiskScore, string(verdict.RiskLevel),
			verdict.Version, posting, verdict.DecidedBy, verdict.Justification,
			verdict.CreatedAt, verdict.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert verdict: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sentinel.ErrConflict
		}
		return nil
	}

	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE verdicts
		SET state = $3, findings = $4, risk_score = $5, risk_level = $6,
		    version = $7, posting = $8, decided_by = $9, justification = $10,
		    updated_at = $11
		WHERE cedant_id = $1 AND claim_number = $2 AND version = $12
	`,
		string(verdict.Claim.Cedant), string(verdict.Claim.Number),
		string(verdict.State), findings, verdict.RiskScore, string(verdict.RiskLevel),
		verdict.Version, posting, verdict.DecidedBy, verdict.Justification,
		verdict.UpdatedAt, verdict.Version-1,
	)
	if err != nil {
		return fmt.Errorf("update verdict: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) ListByState(ctx context.Context, state models.VerdictState) ([]models.Verdict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cedant_id, claim_number, state, findings, risk_score, risk_level,
		       version, posting, decided_by, justification, created_at, updated_at
		FROM verdicts
		WHERE state = $1
		ORDER BY created_at ASC
	`, string(state))
	if err != nil {
		return nil, fmt.Errorf("list verdicts: %w", err)
	}
	defer rows.Close()

	var out []models.Verdict
	for rows.Next() {
		verdict, err := scanVerdict(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		out = append(out, verdict)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdicts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountByState(ctx context.Context) (map[models.VerdictState]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT state, COUNT(*) FROM verdicts GROUP BY state
	`)
	if err != nil {
		return nil, fmt.Errorf("count verdicts: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.VerdictState]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("scan verdict count: %w", err)
		}
		counts[models.VerdictState(state)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdict counts: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVerdict(row rowScanner) (models.Verdict, error) {
	var (
		verdict  models.Verdict
		cedant   string
		number   string
		state    string
		level    string
		findings []byte
		posting  []byte
	)
	err := row.Scan(
		&cedant, &number, &state, &findings, &verdict.RiskScore, &level,
		&verdict.Version, &posting, &verdict.DecidedBy, &verdict.Justification,
		&verdict.CreatedAt, &verdict.UpdatedAt,
	)
	if err != nil {
		return models.Verdict{}, err
	}

	verdict.Claim = domain.ClaimID{
		Cedant: domain.CedantID(cedant),
		Number: domain.ClaimNumber(number),
	}
	verdict.State = models.VerdictState(state)
	verdict.RiskLevel = models.RiskLevel(level)
	if err := json.Unmarshal(findings, &verdict.Findings); err != nil {
		return models.Verdict{}, fmt.Errorf("decode findings: %w", err)
	}
	if err := json.Unmarshal(posting, &verdict.Posting); err != nil {
		return models.Verdict{}, fmt.Errorf("decode posting facts: %w", err)
	}
	return verdict, nil
}
