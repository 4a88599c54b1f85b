package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"campaign-lab/internal/domain"
	"campaign-lab/internal/storage"
)

// CampaignResultStore implements storage.CampaignResultStore using
// PostgreSQL. Structured sub-records (parameters, stage metrics,
// guardrail checks) are stored as JSONB: they are read back whole, never
// filtered by field, so flattening them into columns buys nothing.
type CampaignResultStore struct {
	pool *Pool
}

// NewCampaignResultStore creates a new CampaignResultStore.
func NewCampaignResultStore(pool *Pool) *CampaignResultStore {
	return &CampaignResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CampaignResultStore = (*CampaignResultStore)(nil)

const campaignResultColumns = `
	result_id, campaign_id, asset, venue, params_version, params, seed,
	train_metrics, validation_metrics, walk_forward_metrics, oos_metrics,
	risk_of_ruin, ruin_indeterm, bootstrap_calmar,
	state, guardrails, significance, valid, unstable, reject_reason,
	dataset_checksum, ledger_checksum, created_at_ms
`

// Insert adds a new result. Returns ErrDuplicateKey if result_id exists.
func (s *CampaignResultStore) Insert(ctx context.Context, r *domain.CampaignResult) error {
	args, err := campaignResultArgs(r)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO campaign_results (` + campaignResultColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14,
			$15, $16, $17, $18, $19, $20,
			$21, $22, $23
		)
	`

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert campaign result: %w", err)
	}
	return nil
}

// GetByID retrieves a result by its ID. Returns ErrNotFound if not exists.
func (s *CampaignResultStore) GetByID(ctx context.Context, resultID string) (*domain.CampaignResult, error) {
	query := `SELECT ` + campaignResultColumns + ` FROM campaign_results WHERE result_id = $1`

	row := s.pool.QueryRow(ctx, query, resultID)
	r, err := scanCampaignResult(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get campaign result by id: %w", err)
	}
	return r, nil
}

// GetByCampaignID retrieves all results for a campaign, ordered by
// created_at ASC.
func (s *CampaignResultStore) GetByCampaignID(ctx context.Context, campaignID string) ([]*domain.CampaignResult, error) {
	query := `
		SELECT ` + campaignResultColumns + `
		FROM campaign_results
		WHERE campaign_id = $1
		ORDER BY created_at_ms ASC, result_id ASC
	`

	rows, err := s.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("get campaign results by campaign id: %w", err)
	}
	defer rows.Close()

	var results []*domain.CampaignResult
	for rows.Next() {
		r, err := scanCampaignResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign result row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaign result rows: %w", err)
	}

	return results, nil
}

// campaignResultArgs serializes a result into insert arguments.
func campaignResultArgs(r *domain.CampaignResult) ([]any, error) {
	params, err := json.Marshal(r.Params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	train, err := json.Marshal(r.Train)
	if err != nil {
		return nil, fmt.Errorf("marshal train metrics: %w", err)
	}
	validation, err := json.Marshal(r.Validation)
	if err != nil {
		return nil, fmt.Errorf("marshal validation metrics: %w", err)
	}
	walkForward, err := json.Marshal(r.WalkForward)
	if err != nil {
		return nil, fmt.Errorf("marshal walk-forward metrics: %w", err)
	}
	oos, err := json.Marshal(r.OutOfSample)
	if err != nil {
		return nil, fmt.Errorf("marshal out-of-sample metrics: %w", err)
	}
	bootstrap, err := json.Marshal(r.BootstrapCalmr)
	if err != nil {
		return nil, fmt.Errorf("marshal bootstrap bounds: %w", err)
	}
	guardrails, err := json.Marshal(r.Guardrails)
	if err != nil {
		return nil, fmt.Errorf("marshal guardrails: %w", err)
	}
	significance, err := json.Marshal(r.Significance)
	if err != nil {
		return nil, fmt.Errorf("marshal significance: %w", err)
	}

	return []any{
		r.ResultID, r.CampaignID, r.Asset, r.Venue, r.ParamsVersion, params, r.Seed,
		train, validation, walkForward, oos,
		r.RiskOfRuin, r.RuinIndeterm, bootstrap,
		string(r.State), guardrails, significance, r.Valid, r.Unstable, r.RejectReason,
		r.DatasetChecksum, r.LedgerChecksum, r.CreatedAtMs,
	}, nil
}

// scanCampaignResult scans a single row into a CampaignResult.
func scanCampaignResult(row pgx.Row) (*domain.CampaignResult, error) {
	var r domain.CampaignResult
	var state string
	var params, train, validation, walkForward, oos, bootstrap, guardrails, significance []byte

	err := row.Scan(
		&r.ResultID, &r.CampaignID, &r.Asset, &r.Venue, &r.ParamsVersion, &params, &r.Seed,
		&train, &validation, &walkForward, &oos,
		&r.RiskOfRuin, &r.RuinIndeterm, &bootstrap,
		&state, &guardrails, &significance, &r.Valid, &r.Unstable, &r.RejectReason,
		&r.DatasetChecksum, &r.LedgerChecksum, &r.CreatedAtMs,
	)
	if err != nil {
		return nil, err
	}

	r.State = domain.CampaignState(state)
	for _, field := range []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"params", params, &r.Params},
		{"train metrics", train, &r.Train},
		{"validation metrics", validation, &r.Validation},
		{"walk-forward metrics", walkForward, &r.WalkForward},
		{"out-of-sample metrics", oos, &r.OutOfSample},
		{"bootstrap bounds", bootstrap, &r.BootstrapCalmr},
		{"guardrails", guardrails, &r.Guardrails},
		{"significance", significance, &r.Significance},
	} {
		if err := json.Unmarshal(field.raw, field.dst); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", field.name, err)
		}
	}

	return &r, nil
}
