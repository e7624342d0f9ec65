package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/locvowork/pivotgrid/internal/domain"
	"github.com/locvowork/pivotgrid/pkg/pivot"
)

// DefaultReportsTable is the table holding saved report configurations.
const DefaultReportsTable = "reports"

// pgUndefinedTable is the SQLSTATE of a missing relation.
const pgUndefinedTable = "42P01"

type postgresReportRepository struct {
	db    *sql.DB
	table string
}

// NewPostgresReportRepository stores report configurations as JSONB rows.
func NewPostgresReportRepository(db *sql.DB, table string) domain.ReportRepository {
	if table == "" {
		table = DefaultReportsTable
	}
	return &postgresReportRepository{db: db, table: pq.QuoteIdentifier(table)}
}

// EnsureReportsTable creates the reports table when missing.
func EnsureReportsTable(ctx context.Context, db *sql.DB, table string) error {
	if table == "" {
		table = DefaultReportsTable
	}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		path       TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		category   TEXT NOT NULL,
		config     JSONB NOT NULL,
		version    BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, pq.QuoteIdentifier(table))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create reports table: %w", err)
	}
	return nil
}

func (r *postgresReportRepository) Catalog(ctx context.Context) (domain.Catalog, error) {
	query := fmt.Sprintf(`SELECT path, name, category FROM %s ORDER BY category, name`, r.table)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		if isUndefinedTable(err) {
			return domain.Catalog{}, nil
		}
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	catalog := domain.Catalog{}
	for rows.Next() {
		var d domain.ReportDescriptor
		if err := rows.Scan(&d.Path, &d.Name, &d.Category); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		catalog.Add(d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return catalog, nil
}

func (r *postgresReportRepository) LoadConfig(ctx context.Context, path string) (pivot.GridConfig, error) {
	clean, err := domain.CleanReportPath(path)
	if err != nil {
		return pivot.GridConfig{}, err
	}

	query := fmt.Sprintf(`SELECT config FROM %s WHERE path = $1`, r.table)
	var raw []byte
	err = r.db.QueryRowContext(ctx, query, clean).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || isUndefinedTable(err) {
		return pivot.GridConfig{}, nil
	}
	if err != nil {
		return pivot.GridConfig{}, fmt.Errorf("failed to get report config: %w", err)
	}

	var cfg pivot.GridConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return pivot.GridConfig{}, fmt.Errorf("failed to decode report config: %w", err)
	}
	return cfg, nil
}

func (r *postgresReportRepository) SaveConfig(ctx context.Context, path string, cfg pivot.GridConfig) error {
	clean, err := domain.CleanReportPath(path)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode report config: %w", err)
	}

	d := domain.DescriptorFor(clean)
	query := fmt.Sprintf(`INSERT INTO %s (path, name, category, config)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (path) DO UPDATE
		SET config = EXCLUDED.config, version = %s.version + 1, updated_at = now()`, r.table, r.table)
	if _, err := r.db.ExecContext(ctx, query, d.Path, d.Name, d.Category, raw); err != nil {
		return fmt.Errorf("failed to save report config: %w", err)
	}
	return nil
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUndefinedTable
}
