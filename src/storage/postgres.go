package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"market-simulator/src/logger"
	"market-simulator/src/models"
	"market-simulator/src/utils"

	"github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresDB keeps every table under a schema named after the executable.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pq.QuoteIdentifier(d.Schema))); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.recreateTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) table(name string) string {
	return pq.QuoteIdentifier(d.Schema) + "." + pq.QuoteIdentifier(name)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) recreateTables() error {
	for _, name := range []string{"ticks", "markets"} {
		if _, err := d.DB.Exec(`DROP TABLE IF EXISTS ` + d.table(name)); err != nil {
			return fmt.Errorf("failed to drop %s: %w", name, err)
		}
	}

	query := fmt.Sprintf(`
		CREATE TABLE %s (
			run_id TEXT,
			session_id TEXT,
			market_id TEXT,
			seq BIGINT,
			last_price_cents INTEGER,
			spread_cents INTEGER,
			best_ask_cents INTEGER,
			best_bid_cents INTEGER,
			ask_depth_total BIGINT,
			bid_depth_total BIGINT,
			created_at TIMESTAMPTZ,
			PRIMARY KEY (session_id, seq)
		);
	`, d.table("ticks"))
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create ticks: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE %s (
			market_id TEXT PRIMARY KEY,
			title TEXT,
			category TEXT,
			target_percentage DOUBLE PRECISION,
			registered_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
	`, d.table("markets"))
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create markets: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) RegisterMarkets(cards []models.MMarketCard) error {
	if len(cards) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO %s (market_id, title, category, target_percentage)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (market_id) DO UPDATE SET
			title = EXCLUDED.title,
			category = EXCLUDED.category,
			target_percentage = EXCLUDED.target_percentage,
			registered_at = CURRENT_TIMESTAMP
	`, d.table("markets")))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range cards {
		if _, err := stmt.Exec(c.ID, c.Title, c.Category, c.TargetPercentage()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

// SaveTicks streams the batch through COPY.
func (d *PostgresDB) SaveTicks(ticks []models.MTickRecord) error {
	if len(ticks) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(pq.CopyInSchema(d.Schema, "ticks",
		"run_id", "session_id", "market_id", "seq", "last_price_cents", "spread_cents",
		"best_ask_cents", "best_bid_cents", "ask_depth_total", "bid_depth_total", "created_at"))
	if err != nil {
		return err
	}

	for _, t := range ticks {
		_, err := stmt.Exec(t.RunID, t.SessionID, t.MarketID, int64(t.Sequence), t.LastPriceCents, t.SpreadCents,
			t.BestAskCents, t.BestBidCents, t.AskTotal, t.BidTotal, t.CreatedAt.UTC())
		if err != nil {
			stmt.Close()
			return err
		}
	}

	if _, err := stmt.Exec(); err != nil {
		stmt.Close()
		return err
	}
	if err := stmt.Close(); err != nil {
		return err
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData() error {
	hours := d.Config.Storage.RetentionHours
	cutoff := utils.RetentionCutoff(time.Now().UTC(), hours)

	res, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM %s WHERE created_at < $1`, d.table("ticks")), cutoff)
	if err != nil {
		d.Logger.Error("Cleanup ticks error: %v", err)
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		d.Logger.Info("Cleanup removed %d ticks older than %dh", n, hours)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
