package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dpr_engine/pkg/core/report"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no report has the requested id
var ErrNotFound = errors.New("report not found")

// Repository stores project reports
type Repository interface {
	Save(ctx context.Context, r *report.ProjectReport) error
	Load(ctx context.Context, id string) (*report.ProjectReport, error)
	ListByUser(ctx context.Context, userID string) ([]*report.ProjectReport, error)
}

// ReportRepo keeps each report as one JSONB document in project_reports
type ReportRepo struct {
	pool *pgxpool.Pool
}

// NewReportRepo creates a repository over the pool (nil = the shared pool)
func NewReportRepo(p *pgxpool.Pool) *ReportRepo {
	if p == nil {
		p = GetPool()
	}
	return &ReportRepo{pool: p}
}

// Save upserts the report by id
func (r *ReportRepo) Save(ctx context.Context, rep *report.ProjectReport) error {
	if r.pool == nil {
		return ErrPoolNotInitialized
	}

	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO project_reports (id, user_id, scheme, status, report_json, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id)
		DO UPDATE SET
			user_id = EXCLUDED.user_id,
			scheme = EXCLUDED.scheme,
			status = EXCLUDED.status,
			report_json = EXCLUDED.report_json,
			updated_at = EXCLUDED.updated_at;
	`
	_, err = r.pool.Exec(ctx, query, rep.ID, rep.UserID, string(rep.Scheme), string(rep.Status), data, rep.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save report %s: %w", rep.ID, err)
	}
	return nil
}

// Load fetches one report
func (r *ReportRepo) Load(ctx context.Context, id string) (*report.ProjectReport, error) {
	if r.pool == nil {
		return nil, ErrPoolNotInitialized
	}

	var data []byte
	err := r.pool.QueryRow(ctx, `SELECT report_json FROM project_reports WHERE id = $1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load report %s: %w", id, err)
	}
	return decodeReport(data)
}

// ListByUser returns a user's reports, most recently updated first
func (r *ReportRepo) ListByUser(ctx context.Context, userID string) ([]*report.ProjectReport, error) {
	if r.pool == nil {
		return nil, ErrPoolNotInitialized
	}

	query := `
		SELECT report_json
		FROM project_reports
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var out []*report.ProjectReport
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		rep, err := decodeReport(data)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func decodeReport(data []byte) (*report.ProjectReport, error) {
	var rep report.ProjectReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &rep, nil
}
