package interfaces

import "market-simulator/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for the tick journal.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the schema. Tables are recreated on every start.
	Initialize() error

	// -----------------------------------------------------------------------------

	// RegisterMarkets stores the catalog the session ids refer to.
	RegisterMarkets(cards []models.MMarketCard) error

	// -----------------------------------------------------------------------------

	// SaveTicks inserts a batch of tick records.
	SaveTicks(ticks []models.MTickRecord) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes rows older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
