package interfaces

import "market-simulator/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger pushes book and history updates to external listeners.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast sends a message to every listener subscribed to its market.
	Broadcast(msg models.MStreamMessage)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
