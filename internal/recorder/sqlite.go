package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"PortfolioSentinel/internal/model"
)

// SQLiteRecorder persists snapshots to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	clock  func() time.Time
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the service writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, clock: time.Now, logger: logger.With(zap.String("component", "recorder"))}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_snapshots (
			id          TEXT PRIMARY KEY,
			cycle_id    TEXT NOT NULL,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			price       REAL,
			source      TEXT,
			observed_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_symbol_ts ON price_snapshots(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS risk_snapshots (
			id                TEXT PRIMARY KEY,
			timestamp         INTEGER NOT NULL,
			portfolio         TEXT NOT NULL,
			total_return      REAL,
			annualized_return REAL,
			volatility        REAL,
			sharpe_ratio      REAL,
			sortino_ratio     REAL,
			beta              REAL,
			var_95            REAL,
			cvar_95           REAL,
			max_drawdown      REAL,
			information_ratio REAL,
			calculated_at     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_risk_portfolio_ts ON risk_snapshots(portfolio, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordPrices(ctx context.Context, quotes []model.Quote) error {
	if len(quotes) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin price snapshot: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO price_snapshots
		(id, cycle_id, timestamp, symbol, price, source, observed_at)
		VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare price snapshot: %w", err)
	}
	defer stmt.Close()

	cycle := uuid.NewString()
	now := r.clock().Unix()
	for _, q := range quotes {
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), cycle, now,
			q.Symbol, nullable(q.Price), q.Source, q.ObservedAt.Unix()); err != nil {
			return fmt.Errorf("insert price %s: %w", q.Symbol, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordRisk(ctx context.Context, portfolio string, m model.RiskMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO risk_snapshots
		(id, timestamp, portfolio, total_return, annualized_return, volatility,
		 sharpe_ratio, sortino_ratio, beta, var_95, cvar_95, max_drawdown,
		 information_ratio, calculated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		uuid.NewString(), r.clock().Unix(), portfolio,
		nullable(m.TotalReturn), nullable(m.AnnualizedReturn), nullable(m.Volatility),
		nullable(m.SharpeRatio), nullable(m.SortinoRatio), nullable(m.Beta),
		nullable(m.VaR95), nullable(m.CVaR95), nullable(m.MaxDrawdown),
		nullable(m.InformationRatio), m.CalculatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert risk snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}

// nullable stores non-finite values as NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
