// Package postgres stores research artifacts as PostgreSQL rows.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	_ "github.com/lib/pq"

	"github.com/sweetpotato0/ai-research/config"
	errorskg "github.com/sweetpotato0/ai-research/errors"
	"github.com/sweetpotato0/ai-research/report"
)

var reIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Config holds PostgreSQL sink configuration
type Config struct {
	DSN        string
	Table      string
	AutoCreate bool
}

// DefaultConfig returns default PostgreSQL configuration
func DefaultConfig() *Config {
	return &Config{
		DSN:        "host=localhost port=5432 user=postgres password=postgres dbname=research sslmode=disable",
		Table:      "research_reports",
		AutoCreate: true,
	}
}

// Sink upserts one row per run, keyed by run id.
type Sink struct {
	db    *sql.DB
	table string
}

// New opens the database, pings it and, when AutoCreate is set, creates the
// table.
func New(ctx context.Context, cfg *Config) (*Sink, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := config.ValidatePostgresConfig(cfg.DSN, cfg.Table); err != nil {
		return nil, err
	}
	if !reIdent.MatchString(cfg.Table) {
		return nil, errorskg.Config("invalid postgres table name %q", cfg.Table)
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	s := &Sink{db: db, table: cfg.Table}
	if cfg.AutoCreate {
		if err := s.createTable(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}
	return s, nil
}

func (s *Sink) createTable(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		run_id VARCHAR(64) PRIMARY KEY,
		query TEXT NOT NULL,
		report TEXT NOT NULL,
		is_llm_generated BOOLEAN NOT NULL,
		plan JSONB,
		evidence JSONB,
		sources JSONB,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_created_at ON %[1]s(created_at);
	`, s.table)

	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Emit implements report.Sink.
func (s *Sink) Emit(ctx context.Context, a report.Artifact) error {
	if a.RunID == "" {
		return fmt.Errorf("artifact has no run id")
	}
	plan, evidence, sources, err := encodeColumns(a)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (run_id, query, report, is_llm_generated, plan, evidence, sources, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (run_id) DO UPDATE SET
		query = EXCLUDED.query,
		report = EXCLUDED.report,
		is_llm_generated = EXCLUDED.is_llm_generated,
		plan = EXCLUDED.plan,
		evidence = EXCLUDED.evidence,
		sources = EXCLUDED.sources
	`, s.table)

	_, err = s.db.ExecContext(ctx, query,
		a.RunID, a.Query, a.Report, a.IsLLMGenerated, plan, evidence, sources, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store report in PostgreSQL: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *Sink) Close() error {
	return s.db.Close()
}

func encodeColumns(a report.Artifact) (plan, evidence, sources string, err error) {
	for _, c := range []struct {
		dst *string
		v   any
	}{
		{&plan, a.Plan},
		{&evidence, a.Evidence},
		{&sources, a.Sources},
	} {
		raw, mErr := json.Marshal(c.v)
		if mErr != nil {
			return "", "", "", fmt.Errorf("failed to marshal artifact: %w", mErr)
		}
		if string(raw) == "null" {
			raw = []byte("[]")
		}
		*c.dst = string(raw)
	}
	return plan, evidence, sources, nil
}
