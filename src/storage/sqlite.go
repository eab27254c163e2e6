package storage

import (
	"database/sql"
	"fmt"
	"time"

	"market-simulator/src/logger"
	"market-simulator/src/models"
	"market-simulator/src/utils"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	if cfg.Storage.DBPath == "" {
		return nil, fmt.Errorf("sqlite: db_path is empty")
	}
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	db, err := sql.Open("sqlite", d.Config.Storage.DBPath)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	// a single writer avoids SQLITE_BUSY between session journals
	db.SetMaxOpenConns(1)
	d.DB = db

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.recreateTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) recreateTables() error {
	for _, table := range []string{"ticks", "markets"} {
		if _, err := d.DB.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}

	query := `
		CREATE TABLE ticks (
			run_id TEXT,
			session_id TEXT,
			market_id TEXT,
			seq INTEGER,
			last_price_cents INTEGER,
			spread_cents INTEGER,
			best_ask_cents INTEGER,
			best_bid_cents INTEGER,
			ask_depth_total INTEGER,
			bid_depth_total INTEGER,
			created_at INTEGER,
			PRIMARY KEY (session_id, seq)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create ticks: %w", err)
	}

	query = `
		CREATE TABLE markets (
			market_id TEXT PRIMARY KEY,
			title TEXT,
			category TEXT,
			target_percentage REAL,
			registered_at INTEGER
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create markets: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) RegisterMarkets(cards []models.MMarketCard) error {
	if len(cards) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO markets (market_id, title, category, target_percentage, registered_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (market_id) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			target_percentage = excluded.target_percentage,
			registered_at = excluded.registered_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().UnixMilli()
	for _, c := range cards {
		if _, err := stmt.Exec(c.ID, c.Title, c.Category, c.TargetPercentage(), now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveTicks(ticks []models.MTickRecord) error {
	if len(ticks) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO ticks (run_id, session_id, market_id, seq, last_price_cents, spread_cents, best_ask_cents, best_bid_cents, ask_depth_total, bid_depth_total, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range ticks {
		_, err := stmt.Exec(t.RunID, t.SessionID, t.MarketID, int64(t.Sequence), t.LastPriceCents, t.SpreadCents,
			t.BestAskCents, t.BestBidCents, t.AskTotal, t.BidTotal, t.CreatedAt.UTC().UnixMilli())
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData() error {
	hours := d.Config.Storage.RetentionHours
	cutoff := utils.RetentionCutoff(time.Now().UTC(), hours).UnixMilli()

	res, err := d.DB.Exec("DELETE FROM ticks WHERE created_at < ?", cutoff)
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

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
