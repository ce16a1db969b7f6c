package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the recorder's connection pool.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type txPool interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Ping(context.Context) error
	Close()
}

// PostgresRecorder writes the ranked rows of finished sessions.
type PostgresRecorder struct {
	pool  txPool
	table string
}

// NewPostgresRecorder connects a pool for cfg.
func NewPostgresRecorder(ctx context.Context, cfg PostgresConfig) (*PostgresRecorder, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	rec, err := NewPostgresRecorderWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return rec, nil
}

// NewPostgresRecorderWithPool constructs a recorder from an existing pool.
func NewPostgresRecorderWithPool(pool txPool, table string) (*PostgresRecorder, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "seo_results"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresRecorder{pool: pool, table: table}, nil
}

// Close releases the pool.
func (r *PostgresRecorder) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

// Table returns the results table name.
func (r *PostgresRecorder) Table() string {
	return r.table
}

// Ping verifies connectivity.
func (r *PostgresRecorder) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// EnsureSchema creates the results table when it does not exist.
func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	session_id        TEXT        NOT NULL,
	rank              INTEGER     NOT NULL,
	org_number        TEXT        NOT NULL,
	name              TEXT        NOT NULL,
	municipality      TEXT,
	website           TEXT,
	seo_score         INTEGER     NOT NULL,
	opportunity_score INTEGER     NOT NULL,
	seo_accessible    BOOLEAN     NOT NULL,
	seo_issues        TEXT[]      NOT NULL,
	seo_details       JSONB       NOT NULL,
	recorded_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, rank)
)`, r.table)
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", r.table, err)
	}
	return nil
}

// SaveResults inserts one row per result in rank order inside a single
// transaction.
func (r *PostgresRecorder) SaveResults(ctx context.Context, sessionID string, results []scanner.AnalyzedTarget) (err error) {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	query := fmt.Sprintf(`
INSERT INTO %s (
	session_id,
	rank,
	org_number,
	name,
	municipality,
	website,
	seo_score,
	opportunity_score,
	seo_accessible,
	seo_issues,
	seo_details
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)`, r.table)

	for i, res := range results {
		details, marshalErr := json.Marshal(res.SEODetails)
		if marshalErr != nil {
			return fmt.Errorf("marshal details for %s: %w", res.OrgNumber, marshalErr)
		}
		issues := res.SEOIssues
		if issues == nil {
			issues = []string{}
		}
		if _, err = tx.Exec(ctx, query,
			sessionID,
			i+1,
			res.OrgNumber,
			res.Name,
			res.Municipality,
			res.Website,
			res.SEOScore,
			res.OpportunityScore,
			res.SEOAccessible,
			issues,
			details,
		); err != nil {
			return fmt.Errorf("insert %s: %w", res.OrgNumber, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
