package storage

import (
	"fmt"
	"strings"

	"market-simulator/src/interfaces"
	"market-simulator/src/logger"
	"market-simulator/src/models"
)

// NoopDB is used when the journal is disabled (db_type "none").
type NoopDB struct{}

func (NoopDB) Initialize() error                                { return nil }
func (NoopDB) RegisterMarkets(cards []models.MMarketCard) error { return nil }
func (NoopDB) SaveTicks(ticks []models.MTickRecord) error       { return nil }
func (NoopDB) CleanupOldData() error                            { return nil }
func (NoopDB) Close() error                                     { return nil }

// -----------------------------------------------------------------------------

// NewDatabase picks the backend named by storage.db_type. The result is not
// initialized yet.
func NewDatabase(cfg *models.MConfig, log *logger.Logger) (interfaces.IDatabase, error) {
	switch strings.ToLower(cfg.Storage.DBType) {
	case "", "sqlite":
		return NewAsyncSQLiteDB(cfg, log)
	case "postgres", "postgresql":
		return NewPostgresDB(cfg, log)
	case "none":
		return NoopDB{}, nil
	default:
		return nil, fmt.Errorf("unsupported db_type %q", cfg.Storage.DBType)
	}
}
